package kairos

import "sort"

// Candidate is one (semantic atom, supporting organ set) pairing
// proposed for emission. Created by Compose, consumed and discarded by
// the gate cascade within one decision.
type Candidate struct {
	// Atom is the jointly activated semantic atom.
	Atom string

	// Strength is the sum of contributing organ activations.
	Strength float64

	// Coherence is the mean coherence of contributing organs.
	Coherence float64

	// Organs are the contributing organ names in slot order, with their
	// activation for this atom.
	Organs []Support

	// Satisfaction is the terminal S at proposal time. Filled by the
	// engine before gating.
	Satisfaction float64

	// Residual is the would-be energy left if this candidate were
	// chosen. Filled by the engine before gating.
	Residual float64

	// Score is the gate-cascade ranking score, seeded from strength and
	// coherence and multiplied inside the window gate.
	Score float64
}

// Support records one organ's contribution to a candidate.
type Support struct {
	Organ      string
	Activation float64
}

// Compose aggregates organ results into intersection candidates: one
// Candidate per atom activated by at least two organs with combined
// activation at or above tauIntersection.
//
// Single-organ activation is dropped outright; it is too noise-prone to
// emit on. An empty result is a valid, expected output.
//
// Output order is deterministic: strength descending, then atom name
// ascending.
func Compose(results []OrganResult, tauIntersection float64) []Candidate {
	type tally struct {
		strength  float64
		coherence float64
		organs    []Support
	}
	atoms := make(map[string]*tally)

	for _, r := range results {
		for atom, activation := range r.Activations {
			if activation <= 0 {
				continue
			}
			t := atoms[atom]
			if t == nil {
				t = &tally{}
				atoms[atom] = t
			}
			t.strength += activation
			t.coherence += r.Coherence
			t.organs = append(t.organs, Support{Organ: r.Organ, Activation: activation})
		}
	}

	candidates := make([]Candidate, 0, len(atoms))
	for atom, t := range atoms {
		if len(t.organs) < 2 {
			continue
		}
		if t.strength < tauIntersection {
			continue
		}
		coherence := t.coherence / float64(len(t.organs))
		candidates = append(candidates, Candidate{
			Atom:      atom,
			Strength:  t.strength,
			Coherence: coherence,
			Organs:    t.organs,
			Score:     t.strength * coherence,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Strength != candidates[j].Strength {
			return candidates[i].Strength > candidates[j].Strength
		}
		return candidates[i].Atom < candidates[j].Atom
	})
	return candidates
}
