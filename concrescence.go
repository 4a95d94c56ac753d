package kairos

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// State is a convergence run's lifecycle state. Every run terminates in
// exactly one of the three terminal states.
type State string

const (
	// StateRunning is the non-terminal in-cycle state.
	StateRunning State = "running"

	// StateKairos is the opportune-moment exit: energy stabilized while
	// satisfaction sits inside the kairos window.
	StateKairos State = "kairos"

	// StateHighSatisfaction is the exit on satisfaction alone.
	StateHighSatisfaction State = "high_satisfaction"

	// StateExhausted is the exit on cycle budget, deadline, or
	// cancellation.
	StateExhausted State = "exhausted"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s != StateRunning
}

// CycleTrace is the per-cycle audit record carried on a Result.
type CycleTrace struct {
	Cycle        int
	Energy       float64
	Satisfaction float64
	Appetition   float64
	Resonance    float64
	Intersection float64
	Delta        float64
}

// Loop drives repeated concrescence cycles over an utterance: every
// cycle invokes all organs in parallel, recomputes the energy state, and
// decides whether to continue, stop on convergence, or stop on budget.
type Loop struct {
	registry         *Registry
	weights          EnergyWeights
	epsilon          float64
	highSatisfaction float64
	maxCycles        int
}

// NewLoop creates a loop over the registry's organs with default
// weights and budget.
func NewLoop(registry *Registry) *Loop {
	return &Loop{
		registry:         registry,
		weights:          DefaultEnergyWeights(),
		epsilon:          DefaultConvergenceEpsilon,
		highSatisfaction: DefaultHighSatisfaction,
		maxCycles:        DefaultMaxCycles,
	}
}

// WithWeights overrides the energy functional weights. Invalid weights
// fall back to the defaults at compute time.
func (l *Loop) WithWeights(w EnergyWeights) *Loop {
	l.weights = w
	return l
}

// WithMaxCycles overrides the cycle budget.
func (l *Loop) WithMaxCycles(n int) *Loop {
	if n > 0 {
		l.maxCycles = n
	}
	return l
}

// WithEpsilon overrides the energy-delta floor for the kairos exit.
func (l *Loop) WithEpsilon(eps float64) *Loop {
	if eps > 0 {
		l.epsilon = eps
	}
	return l
}

// runOutcome is the loop's terminal summary, consumed by the engine.
type runOutcome struct {
	state   State
	energy  EnergyState
	cycles  int
	results []OrganResult // final cycle's organ results
	trace   []CycleTrace
	mature  []MatureRecord
}

// organCycleResult carries one organ's output off its goroutine.
type organCycleResult struct {
	slot   int
	result OrganResult
}

// Run executes cycles until a terminal state. Cancellation and the
// wall-clock deadline are checked only between cycles, never mid-cycle,
// so occasion state is never partially written. deadline.IsZero()
// disables the wall clock.
func (l *Loop) Run(ctx context.Context, u *Utterance, thresholds Thresholds, snap CouplingSnapshot, deadline time.Time) runOutcome {
	thresholds = thresholds.Clamped()

	if u == nil || u.Len() == 0 {
		// Malformed input: repaired to an immediate exhausted outcome.
		return runOutcome{
			state:  StateExhausted,
			energy: EnergyState{Energy: 1.0},
		}
	}

	organs := l.registry.Organs()
	atomUniverse := len(l.registry.AtomUniverse())
	window := u.Full()

	prevEnergy := 1.0
	// A run aborted before its first cycle still reports the initial
	// energy, not a spuriously settled zero.
	state := EnergyState{Energy: 1.0}
	var results []OrganResult
	var trace []CycleTrace

	cycle := 0
	terminal := StateRunning
	for terminal == StateRunning {
		if ctx.Err() != nil || (!deadline.IsZero() && time.Now().After(deadline)) {
			terminal = StateExhausted
			break
		}

		cycle++
		results = l.runCycle(ctx, window, organs, snap)
		state = computeEnergy(l.weights, prevEnergy, results, atomUniverse)

		trace = append(trace, CycleTrace{
			Cycle:        cycle,
			Energy:       state.Energy,
			Satisfaction: state.Satisfaction,
			Appetition:   state.Appetition,
			Resonance:    state.Resonance,
			Intersection: state.Intersection,
			Delta:        state.Delta,
		})

		capitan.Emit(ctx, CycleCompleted,
			FieldUtterance.Field(u.ID),
			FieldCycle.Field(cycle),
			FieldEnergy.Field(float32(state.Energy)),
			FieldSatisfaction.Field(float32(state.Satisfaction)),
			FieldDelta.Field(float32(state.Delta)),
		)

		// Exit conditions: kairos wins over high satisfaction wins over
		// exhaustion when several hold at once.
		switch {
		case state.Delta < l.epsilon && thresholds.InWindow(state.Satisfaction):
			terminal = StateKairos
		case state.Satisfaction > l.highSatisfaction:
			terminal = StateHighSatisfaction
		case cycle >= l.maxCycles:
			terminal = StateExhausted
		}

		prevEnergy = state.Energy
	}

	// Maturation: only post-convergence values are safe to score
	// against; the per-cycle felt state is provisional until here.
	mature := u.mature(state.Energy, state.Satisfaction, cycle, terminal)

	return runOutcome{
		state:   terminal,
		energy:  state,
		cycles:  cycle,
		results: results,
		trace:   trace,
		mature:  mature,
	}
}

// runCycle fans every organ out on its own goroutine. Organs read only
// the shared window and the immutable coupling snapshot, and write only
// their own felt slot, so no locking is needed inside a cycle. No organ
// sees another's output from the same cycle; cross-organ influence flows
// through the aggregate computed after all organs finish.
func (l *Loop) runCycle(ctx context.Context, window Window, organs []Organ, snap CouplingSnapshot) []OrganResult {
	out := make(chan organCycleResult, len(organs))

	for slot, organ := range organs {
		go func(slot int, o Organ) {
			result := o.Evaluate(window, snap)
			for i := 0; i < window.Len(); i++ {
				window.setFelt(i, slot, result.Coherence)
			}

			capitan.Emit(ctx, OrganEvaluated,
				FieldOrgan.Field(result.Organ),
				FieldCoherence.Field(float32(result.Coherence)),
				FieldLure.Field(float32(result.Lure)),
			)

			out <- organCycleResult{slot: slot, result: result}
		}(slot, organ)
	}

	results := make([]OrganResult, len(organs))
	for range organs {
		r := <-out
		results[r.slot] = r.result
	}
	return results
}
