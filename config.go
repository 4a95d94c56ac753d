package kairos

// Default configuration for the convergence engine.
// These can be overridden per-engine using builder methods or per-run
// using RunOptions.
var (
	// DefaultMaxCycles bounds a single convergence run. The loop forces
	// StateExhausted when the budget is spent regardless of energy.
	DefaultMaxCycles = 7

	// DefaultConvergenceEpsilon is the energy-delta floor for the kairos
	// exit. A cycle whose |E - E_prev| falls below this while satisfaction
	// sits inside the kairos window terminates the run.
	DefaultConvergenceEpsilon = 0.05

	// DefaultHighSatisfaction terminates a run on satisfaction alone,
	// independent of energy stability.
	DefaultHighSatisfaction = 0.85

	// DefaultCouplingLambda is the EMA rate for coupling updates.
	DefaultCouplingLambda = 0.1

	// DefaultCouplingDecay is applied to every coupling entry once per
	// DefaultCouplingDecayEvery updates. Keeps very frequent pairs from
	// growing without bound. Set to 1.0 to disable.
	DefaultCouplingDecay      = 0.999
	DefaultCouplingDecayEvery = 100

	// DefaultSimilarityThreshold is the cosine floor for assigning a
	// signature to an existing family centroid.
	DefaultSimilarityThreshold = 0.85

	// DefaultMaturityCount is the member count at which a centroid's
	// targets start feeding the threshold governor.
	DefaultMaturityCount = 3

	// DefaultFamilyLambda is the EMA rate for centroid drift.
	DefaultFamilyLambda = 0.2

	// DefaultHistorySize bounds the downstream-satisfaction ring consumed
	// by the governor.
	DefaultHistorySize = 20

	// SignatureDim is the fixed persistence width for family signatures.
	// Live signatures are one slot per registered organ; they are padded
	// or truncated to this width at the storage boundary.
	SignatureDim = 32
)

// EnergyWeights are the coefficients of the energy functional
//
//	E = alpha*(1-S) + beta*|dE| + gamma*(1-A) + delta*(1-R) + zeta*I
//
// where S is mean organ coherence, A mean lure, R coherence agreement,
// and I intersection density. The weights must sum to 1.
type EnergyWeights struct {
	Alpha float64 // satisfaction deficit
	Beta  float64 // energy instability between cycles
	Gamma float64 // appetition deficit
	Delta float64 // resonance deficit
	Zeta  float64 // intersection density
}

// DefaultEnergyWeights returns the standard weighting.
func DefaultEnergyWeights() EnergyWeights {
	return EnergyWeights{
		Alpha: 0.40,
		Beta:  0.25,
		Gamma: 0.15,
		Delta: 0.10,
		Zeta:  0.10,
	}
}

// valid reports whether the weights are usable: non-negative and summing
// to 1 within a small tolerance.
func (w EnergyWeights) valid() bool {
	if w.Alpha < 0 || w.Beta < 0 || w.Gamma < 0 || w.Delta < 0 || w.Zeta < 0 {
		return false
	}
	sum := w.Alpha + w.Beta + w.Gamma + w.Delta + w.Zeta
	return sum > 0.999 && sum < 1.001
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clamp bounds v to [lo,hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
