package kairos

import (
	"context"
	"math"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// Emission carries a candidate set through the gate cascade. It is
// created per decision and discarded with it.
type Emission struct {
	RunID        string
	Candidates   []Candidate
	Energy       float64 // terminal run energy
	Satisfaction float64 // terminal run satisfaction
	OrganCount   int

	thresholds Thresholds
	gateScores [4]float64

	// Accepted holds the survivors of all four gates, best first.
	// Empty is a normal, non-exceptional outcome.
	Accepted []Candidate

	// Confidence is the normalized composite of the four gate scores.
	Confidence float64
}

// windowMultiplier is the score boost for candidates proposed while
// satisfaction sits inside the kairos window. Window membership is a
// tie-breaker, not a filter: out-of-window candidates keep multiplier 1.
const windowMultiplier = 1.5

// Cascade is the four-gate emission filter, built as a pipz sequence so
// gate order is explicit data and each gate is observable on its own.
type Cascade struct {
	seq *pipz.Sequence[*Emission]
}

// NewCascade builds the gate cascade. The gates run strictly in order:
// intersection, coherence, satisfaction window, minimum residual energy.
func NewCascade() *Cascade {
	return &Cascade{
		seq: pipz.NewSequence(pipz.Name("gate-cascade"),
			pipz.Apply(pipz.Name("gate-intersection"), gateIntersection),
			pipz.Apply(pipz.Name("gate-coherence"), gateCoherence),
			pipz.Apply(pipz.Name("gate-window"), gateWindow),
			pipz.Apply(pipz.Name("gate-residual"), gateResidual),
		),
	}
}

// Filter runs the candidates through all four gates and returns the
// emission with Accepted and Confidence populated.
func (c *Cascade) Filter(ctx context.Context, em *Emission, thresholds Thresholds) (*Emission, error) {
	em.thresholds = thresholds.Clamped()

	out, err := c.seq.Process(ctx, em)
	if err != nil {
		// Gates never fail; a pipeline error means a canceled context.
		return em, err
	}

	if len(out.Accepted) == 0 {
		out.Confidence = 0
		capitan.Emit(ctx, EmissionEmpty,
			FieldRunID.Field(out.RunID),
			FieldCandidateCount.Field(len(out.Candidates)),
		)
		return out, nil
	}

	composite := 0.0
	for _, s := range out.gateScores {
		composite += s
	}
	out.Confidence = clamp01(composite / 4)

	capitan.Emit(ctx, EmissionAccepted,
		FieldRunID.Field(out.RunID),
		FieldAtom.Field(out.Accepted[0].Atom),
		FieldAcceptedCount.Field(len(out.Accepted)),
		FieldConfidence.Field(float32(out.Confidence)),
	)
	return out, nil
}

// gateIntersection keeps candidates whose intersection strength meets
// TauIntersection.
func gateIntersection(ctx context.Context, em *Emission) (*Emission, error) {
	entered := len(em.Candidates)
	kept := em.Candidates[:0]
	for _, c := range em.Candidates {
		if c.Strength >= em.thresholds.TauIntersection {
			kept = append(kept, c)
		}
	}
	em.Candidates = kept
	em.gateScores[0] = gateFraction(len(kept), entered)
	emitGate(ctx, em, "intersection", len(kept))
	return em, nil
}

// gateCoherence keeps candidates whose mean contributor coherence meets
// TauCoherence.
func gateCoherence(ctx context.Context, em *Emission) (*Emission, error) {
	entered := len(em.Candidates)
	kept := em.Candidates[:0]
	for _, c := range em.Candidates {
		if c.Coherence >= em.thresholds.TauCoherence {
			kept = append(kept, c)
		}
	}
	em.Candidates = kept
	em.gateScores[1] = gateFraction(len(kept), entered)
	emitGate(ctx, em, "coherence", len(kept))
	return em, nil
}

// gateWindow boosts candidates whose proposal-time satisfaction sits in
// the kairos window. Nothing is dropped here; the multiplier makes
// window membership the tie-breaker downstream.
func gateWindow(ctx context.Context, em *Emission) (*Emission, error) {
	inWindow := 0
	for i := range em.Candidates {
		if em.thresholds.InWindow(em.Candidates[i].Satisfaction) {
			em.Candidates[i].Score *= windowMultiplier
			inWindow++
		}
	}

	if em.thresholds.InWindow(em.Satisfaction) {
		em.gateScores[2] = 1.0
	} else {
		// Out-of-window satisfaction is still plausible; score decays
		// with distance from the nearer window edge.
		dist := math.Min(
			math.Abs(em.Satisfaction-em.thresholds.KairosLow),
			math.Abs(em.Satisfaction-em.thresholds.KairosHigh),
		)
		em.gateScores[2] = clamp01(1.0 - 2*dist)
	}
	emitGate(ctx, em, "window", inWindow)
	return em, nil
}

// gateResidual selects the candidate(s) minimizing would-be residual
// energy, provided the discharge meets TauEnergy. Ties break by higher
// boosted score, so window membership decides between equal residuals,
// then by intersection strength, then alphabetical atom name.
func gateResidual(ctx context.Context, em *Emission) (*Emission, error) {
	if len(em.Candidates) == 0 {
		em.gateScores[3] = 0
		return em, nil
	}

	best := math.Inf(1)
	for _, c := range em.Candidates {
		if c.Residual < best {
			best = c.Residual
		}
	}

	const residualTie = 1e-9
	var winners []Candidate
	for _, c := range em.Candidates {
		if c.Residual-best > residualTie {
			continue
		}
		if em.Energy-c.Residual < em.thresholds.TauEnergy {
			continue
		}
		winners = append(winners, c)
	}

	// Tie order within the argmin set.
	for i := 0; i < len(winners)-1; i++ {
		for j := i + 1; j < len(winners); j++ {
			wi, wj := winners[i], winners[j]
			if wj.Score > wi.Score ||
				(wj.Score == wi.Score && wj.Strength > wi.Strength) ||
				(wj.Score == wi.Score && wj.Strength == wi.Strength && wj.Atom < wi.Atom) {
				winners[i], winners[j] = winners[j], winners[i]
			}
		}
	}

	em.Accepted = winners
	if len(winners) > 0 {
		em.gateScores[3] = clamp01(1.0 - winners[0].Residual)
	}
	emitGate(ctx, em, "residual", len(winners))
	return em, nil
}

// gateFraction is the survivor ratio used in the confidence composite.
func gateFraction(kept, entered int) float64 {
	if entered == 0 {
		return 0
	}
	return float64(kept) / float64(entered)
}

func emitGate(ctx context.Context, em *Emission, gate string, kept int) {
	capitan.Emit(ctx, GatePassed,
		FieldRunID.Field(em.RunID),
		FieldGate.Field(gate),
		FieldCandidateCount.Field(kept),
	)
}
