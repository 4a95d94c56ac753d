package kairos

import "math"

// EnergyState is the per-cycle aggregate over all organ results. It is
// recomputed every cycle and never persisted beyond the current run.
type EnergyState struct {
	Energy       float64 // E, in [0,1]; lower is more settled
	Satisfaction float64 // S: mean organ coherence
	Appetition   float64 // A: mean organ lure
	Resonance    float64 // R: 1 - stddev of coherences
	Intersection float64 // I: active-atom density across organs
	Delta        float64 // |E - E_prev|
}

// computeEnergy derives the cycle's energy state from organ results.
//
//	E = alpha*(1-S) + beta*|base - prevE| + gamma*(1-A) + delta*(1-R) + zeta*I
//
// The beta term measures instability: how far this cycle's settled value
// moved from the previous cycle's energy. atomUniverse is the size of the
// union of all organ atom sets, used to normalize intersection density.
func computeEnergy(weights EnergyWeights, prevEnergy float64, results []OrganResult, atomUniverse int) EnergyState {
	if !weights.valid() {
		weights = DefaultEnergyWeights()
	}
	if len(results) == 0 {
		return EnergyState{Energy: 1.0, Delta: math.Abs(1.0 - prevEnergy)}
	}

	var sumCoherence, sumLure float64
	active := make(map[string]struct{})
	for _, r := range results {
		sumCoherence += r.Coherence
		sumLure += r.Lure
		for atom, v := range r.Activations {
			if v > 0 {
				active[atom] = struct{}{}
			}
		}
	}
	n := float64(len(results))
	satisfaction := sumCoherence / n
	appetition := sumLure / n

	var variance float64
	for _, r := range results {
		d := r.Coherence - satisfaction
		variance += d * d
	}
	resonance := clamp01(1.0 - math.Sqrt(variance/n))

	intersection := 0.0
	if atomUniverse > 0 {
		intersection = clamp01(float64(len(active)) / float64(atomUniverse))
	}

	base := weights.Alpha*(1-satisfaction) +
		weights.Gamma*(1-appetition) +
		weights.Delta*(1-resonance) +
		weights.Zeta*intersection

	energy := clamp01(base + weights.Beta*math.Abs(base-prevEnergy))

	return EnergyState{
		Energy:       energy,
		Satisfaction: satisfaction,
		Appetition:   appetition,
		Resonance:    resonance,
		Intersection: intersection,
		Delta:        math.Abs(energy - prevEnergy),
	}
}

// residualEnergy estimates the energy left if the given candidate were
// chosen: the terminal energy discounted by how much of the organ field
// the candidate's intersection discharges.
func residualEnergy(terminal float64, strength float64, organCount int) float64 {
	if organCount <= 0 {
		return clamp01(terminal)
	}
	discharge := clamp01(strength / float64(organCount))
	return clamp01(terminal * (1 - discharge))
}
