package kairos

import (
	"context"
	"math"

	"github.com/zoobzio/capitan"
)

// Regime is a classification bucket of mean satisfaction that selects
// the governor's evolution rate.
type Regime string

const (
	RegimeInitializing Regime = "initializing"
	RegimeConverging   Regime = "converging"
	RegimeStable       Regime = "stable"
	RegimeCommitted    Regime = "committed"
	RegimeSaturating   Regime = "saturating"
	RegimePlateaued    Regime = "plateaued"
)

// GovernorConfig tunes threshold evolution.
type GovernorConfig struct {
	// Boundaries are the five ordered satisfaction cutoffs separating the
	// six regimes. Default: 0.45, 0.55, 0.65, 0.75, 0.85.
	Boundaries [5]float64

	// Rates are the per-regime evolution rates, in regime order.
	// Committed runs at full rate: satisfaction sitting between two
	// static thresholds would otherwise never trigger recalibration.
	Rates [6]float64

	// BaseStep scales every adjustment. Default: 0.1.
	BaseStep float64

	// IntersectionScale and WindowScale size the proportional nudges to
	// TauIntersection and the kairos window relative to the primary
	// TauCoherence adjustment.
	IntersectionScale float64
	WindowScale       float64
}

// DefaultGovernorConfig returns the standard evolution policy.
func DefaultGovernorConfig() GovernorConfig {
	return GovernorConfig{
		Boundaries:        [5]float64{0.45, 0.55, 0.65, 0.75, 0.85},
		Rates:             [6]float64{0.1, 0.3, 0.5, 1.0, 0.3, 0.1},
		BaseStep:          0.1,
		IntersectionScale: 0.5,
		WindowScale:       0.25,
	}
}

// Governor recalibrates thresholds from outcome history. It is the
// engine's online learning loop: called at most once per completed run.
type Governor struct {
	cfg GovernorConfig
}

// NewGovernor creates a governor with the given config; zero-value
// fields fall back to defaults.
func NewGovernor(cfg GovernorConfig) *Governor {
	def := DefaultGovernorConfig()
	if cfg.BaseStep == 0 {
		cfg.BaseStep = def.BaseStep
	}
	if cfg.Boundaries == ([5]float64{}) {
		cfg.Boundaries = def.Boundaries
	}
	if cfg.Rates == ([6]float64{}) {
		cfg.Rates = def.Rates
	}
	if cfg.IntersectionScale == 0 {
		cfg.IntersectionScale = def.IntersectionScale
	}
	if cfg.WindowScale == 0 {
		cfg.WindowScale = def.WindowScale
	}
	return &Governor{cfg: cfg}
}

// Classify maps mean satisfaction to its regime.
func (g *Governor) Classify(satisfactionMean float64) Regime {
	b := g.cfg.Boundaries
	switch {
	case satisfactionMean < b[0]:
		return RegimeInitializing
	case satisfactionMean < b[1]:
		return RegimeConverging
	case satisfactionMean < b[2]:
		return RegimeStable
	case satisfactionMean < b[3]:
		return RegimeCommitted
	case satisfactionMean < b[4]:
		return RegimeSaturating
	default:
		return RegimePlateaued
	}
}

// rate returns the evolution rate for a regime.
func (g *Governor) rate(r Regime) float64 {
	switch r {
	case RegimeInitializing:
		return g.cfg.Rates[0]
	case RegimeConverging:
		return g.cfg.Rates[1]
	case RegimeStable:
		return g.cfg.Rates[2]
	case RegimeCommitted:
		return g.cfg.Rates[3]
	case RegimeSaturating:
		return g.cfg.Rates[4]
	default:
		return g.cfg.Rates[5]
	}
}

// FamilyHint carries a mature centroid's calibration targets into the
// evolution step, letting recurring families converge around their own
// points without a global reset.
type FamilyHint struct {
	Centroid           int
	TargetEnergy       float64
	TargetSatisfaction float64
}

// Evolve produces an adjusted threshold set from the recent mean
// downstream satisfaction. The regime is classified on the raw mean; a
// mature family hint blends into the adjustment target only.
//
// At equilibrium (mean equal to TauCoherence) the magnitude is zero, so
// thresholds never drift without a satisfaction gap to close.
func (g *Governor) Evolve(ctx context.Context, t Thresholds, satisfactionMean float64, hint *FamilyHint) (Thresholds, Regime) {
	t = t.Clamped()
	regime := g.Classify(satisfactionMean)
	rate := g.rate(regime)

	capitan.Emit(ctx, RegimeClassified,
		FieldRegime.Field(string(regime)),
		FieldSatisfaction.Field(float32(satisfactionMean)),
	)

	target := satisfactionMean
	if hint != nil {
		target = (satisfactionMean + hint.TargetSatisfaction) / 2
	}

	direction := 1.0
	if target > t.TauCoherence {
		direction = -1.0
	}
	magnitude := g.cfg.BaseStep * math.Abs(target-t.TauCoherence) * rate

	evolved := t
	evolved.TauCoherence = clamp(t.TauCoherence+direction*magnitude, TauCoherenceMin, TauCoherenceMax)
	evolved.TauIntersection = clamp(
		t.TauIntersection+direction*magnitude*g.cfg.IntersectionScale,
		TauIntersectionMin, TauIntersectionMax,
	)

	// The window tracks the satisfaction the system actually achieves:
	// the high bound eases toward the target so the kairos exit stays
	// reachable as calibration shifts.
	windowShift := (target - (evolved.KairosLow+evolved.KairosHigh)/2) * magnitude * g.cfg.WindowScale
	evolved.KairosHigh = clamp01(evolved.KairosHigh + windowShift)
	if evolved.KairosHigh < evolved.KairosLow {
		evolved.KairosHigh = evolved.KairosLow
	}

	capitan.Emit(ctx, ThresholdsEvolved,
		FieldRegime.Field(string(regime)),
		FieldTauCoherence.Field(float32(evolved.TauCoherence)),
		FieldTauIntersection.Field(float32(evolved.TauIntersection)),
	)

	return evolved.Clamped(), regime
}
