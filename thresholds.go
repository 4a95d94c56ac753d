package kairos

// Thresholds is the mutable calibration owned by the Governor. It is
// adjusted at most once per completed convergence run, never mid-cycle.
type Thresholds struct {
	// Scope names the logical owner of this set: "global" or a family
	// scope like "family:3".
	Scope string

	// TauIntersection is the combined-activation floor for a candidate,
	// on a 0..organ-count scale.
	TauIntersection float64

	// TauCoherence is the mean-coherence floor for a candidate.
	TauCoherence float64

	// KairosLow and KairosHigh bound the satisfaction window treated as
	// the opportune moment to stop and commit. The conversational default
	// is [0.45, 0.70]; entity-classification deployments widen the high
	// bound (see WideKairosWindow).
	KairosLow  float64
	KairosHigh float64

	// TauEnergy is the minimum energy discharge an accepted candidate
	// must produce at the final gate.
	TauEnergy float64
}

// DefaultThresholds returns the conversational-text calibration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Scope:           "global",
		TauIntersection: 1.5,
		TauCoherence:    0.4,
		KairosLow:       0.45,
		KairosHigh:      0.70,
		TauEnergy:       0.05,
	}
}

// WideKairosWindow returns the entity-classification calibration, which
// widens the kairos window to [0.45, 0.85].
func WideKairosWindow() Thresholds {
	t := DefaultThresholds()
	t.KairosHigh = 0.85
	return t
}

// InWindow reports whether satisfaction falls inside the kairos window.
func (t Thresholds) InWindow(satisfaction float64) bool {
	return satisfaction >= t.KairosLow && satisfaction <= t.KairosHigh
}

// Clamped repairs the set to safe bounds. Malformed thresholds are
// clamped locally rather than rejected; entry points never surface a
// threshold error.
func (t Thresholds) Clamped() Thresholds {
	if t.Scope == "" {
		t.Scope = "global"
	}
	t.TauCoherence = clamp(t.TauCoherence, TauCoherenceMin, TauCoherenceMax)
	t.TauIntersection = clamp(t.TauIntersection, TauIntersectionMin, TauIntersectionMax)
	t.KairosLow = clamp01(t.KairosLow)
	t.KairosHigh = clamp01(t.KairosHigh)
	if t.KairosHigh < t.KairosLow {
		t.KairosLow, t.KairosHigh = t.KairosHigh, t.KairosLow
	}
	t.TauEnergy = clamp01(t.TauEnergy)
	return t
}

// Safe ranges for governed thresholds. The governor's clamp is the sole
// safeguard against drift; out-of-range adjustments are silently bounded.
const (
	TauCoherenceMin = 0.30
	TauCoherenceMax = 0.70

	TauIntersectionMin = 1.0
	TauIntersectionMax = 2.5
)
