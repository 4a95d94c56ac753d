package kairos

import (
	"math"
	"testing"
)

func TestEnergyBounded(t *testing.T) {
	// Sweep a deterministic grid of organ outputs; E must stay in [0,1]
	// regardless of the previous energy.
	weights := DefaultEnergyWeights()
	for _, prev := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		for c := 0.0; c <= 1.0; c += 0.25 {
			for l := 0.0; l <= 1.0; l += 0.25 {
				results := []OrganResult{
					{Organ: "a", Coherence: c, Lure: l, Activations: map[string]float64{"x": c}},
					{Organ: "b", Coherence: 1 - c, Lure: l, Activations: map[string]float64{"y": l}},
				}
				state := computeEnergy(weights, prev, results, 4)
				if state.Energy < 0 || state.Energy > 1 {
					t.Fatalf("energy %f out of bounds at prev=%f c=%f l=%f", state.Energy, prev, c, l)
				}
			}
		}
	}
}

func TestEnergyComponents(t *testing.T) {
	results := []OrganResult{
		{Organ: "a", Coherence: 0.8, Lure: 0.7, Activations: map[string]float64{"safety": 0.6}},
		{Organ: "b", Coherence: 0.8, Lure: 0.7, Activations: map[string]float64{"safety": 0.6}},
	}

	state := computeEnergy(DefaultEnergyWeights(), 1.0, results, 2)

	if math.Abs(state.Satisfaction-0.8) > 1e-9 {
		t.Errorf("satisfaction = %f, want 0.8", state.Satisfaction)
	}
	if math.Abs(state.Appetition-0.7) > 1e-9 {
		t.Errorf("appetition = %f, want 0.7", state.Appetition)
	}
	// Equal coherences: zero spread, full resonance.
	if math.Abs(state.Resonance-1.0) > 1e-9 {
		t.Errorf("resonance = %f, want 1.0", state.Resonance)
	}
	// One active atom of a two-atom universe.
	if math.Abs(state.Intersection-0.5) > 1e-9 {
		t.Errorf("intersection = %f, want 0.5", state.Intersection)
	}
}

func TestEnergyNoResults(t *testing.T) {
	state := computeEnergy(DefaultEnergyWeights(), 0.4, nil, 3)
	if state.Energy != 1.0 {
		t.Errorf("expected full energy with no organ results, got %f", state.Energy)
	}
}

func TestEnergyInvalidWeightsFallBack(t *testing.T) {
	bad := EnergyWeights{Alpha: 5, Beta: -1}
	results := []OrganResult{{Organ: "a", Coherence: 0.5, Lure: 0.5}}

	state := computeEnergy(bad, 1.0, results, 1)
	if state.Energy < 0 || state.Energy > 1 {
		t.Errorf("fallback weights produced out-of-range energy %f", state.Energy)
	}
}

func TestEnergyDeltaShrinksWhenStable(t *testing.T) {
	results := []OrganResult{
		{Organ: "a", Coherence: 0.6, Lure: 0.6, Activations: map[string]float64{"x": 0.5}},
	}
	weights := DefaultEnergyWeights()

	prev := 1.0
	var last EnergyState
	for cycle := 0; cycle < 6; cycle++ {
		last = computeEnergy(weights, prev, results, 1)
		prev = last.Energy
	}
	if last.Delta >= DefaultConvergenceEpsilon {
		t.Errorf("constant organ output should settle below epsilon, delta = %f", last.Delta)
	}
}

func TestResidualEnergy(t *testing.T) {
	// Full-strength intersection across all organs discharges everything.
	if r := residualEnergy(0.6, 3, 3); r != 0 {
		t.Errorf("expected zero residual, got %f", r)
	}
	// No strength leaves the terminal energy untouched.
	if r := residualEnergy(0.6, 0, 3); math.Abs(r-0.6) > 1e-9 {
		t.Errorf("expected residual 0.6, got %f", r)
	}
	// Partial discharge scales linearly.
	if r := residualEnergy(0.6, 1.5, 3); math.Abs(r-0.3) > 1e-9 {
		t.Errorf("expected residual 0.3, got %f", r)
	}
	// Degenerate organ count clamps instead of dividing by zero.
	if r := residualEnergy(0.6, 1.0, 0); math.Abs(r-0.6) > 1e-9 {
		t.Errorf("expected residual 0.6, got %f", r)
	}
}
