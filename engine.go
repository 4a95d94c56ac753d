package kairos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
)

// Result is the outcome of one convergence run: the terminal state, the
// accepted candidates with their confidence, and the audit trail an
// external collaborator can log or score.
type Result struct {
	RunID       string
	UtteranceID string

	State        State
	Energy       float64
	Satisfaction float64
	Cycles       int

	// Candidates are the gate-cascade survivors, best first. Empty is a
	// normal outcome; the caller supplies its own fallback policy (for
	// example Engine.BestAssociate).
	Candidates []Candidate

	// Confidence is the normalized composite of the four gate scores.
	Confidence float64

	// Trace holds the per-cycle energy record.
	Trace []CycleTrace

	// Mature holds the post-convergence per-occasion records.
	Mature []MatureRecord

	// Signature is the final organ-coherence profile in slot order, used
	// for family assignment when the outcome is recorded.
	Signature []float64
}

// RunOptions tune a single convergence run.
type RunOptions struct {
	// Thresholds overrides the engine's current calibration for this run
	// only. Malformed values are clamped, never rejected.
	Thresholds *Thresholds

	// Hint recenters the kairos window toward a known family's target
	// satisfaction for this run.
	Hint *FamilyHint

	// Deadline forces StateExhausted between cycles once the wall clock
	// passes it. Zero disables the deadline; MaxCycles remains the
	// primary safety valve.
	Deadline time.Time
}

// Engine owns the convergence loop, the gate cascade, and the learned
// calibration state. Learned state is explicit and injectable, not
// process-global: every entry point operates on this engine's state
// only.
//
// Separate convergence runs may execute concurrently. Mutation of the
// shared coupling matrix, family memory, and thresholds happens only in
// RecordOutcome under a single writer lock with short critical sections;
// runs read coupling state through immutable snapshots and are never
// blocked by a writer.
type Engine struct {
	registry *Registry
	loop     *Loop
	cascade  *Cascade
	governor *Governor
	coupling *Coupling
	families *Families
	store    Store

	mu         sync.Mutex // guards thresholds and history; the single-writer lock
	thresholds Thresholds
	history    []float64
	histNext   int
	histSize   int

	persist sync.WaitGroup
}

// NewEngine creates an engine over the given organ registry with default
// calibration and no persistence.
func NewEngine(registry *Registry) *Engine {
	return &Engine{
		registry:   registry,
		loop:       NewLoop(registry),
		cascade:    NewCascade(),
		governor:   NewGovernor(DefaultGovernorConfig()),
		coupling:   NewCoupling(),
		families:   NewFamilies(DefaultFamilyConfig()),
		thresholds: DefaultThresholds(),
		histSize:   DefaultHistorySize,
	}
}

// Builder methods

// WithStore sets the persistence backend.
func (e *Engine) WithStore(s Store) *Engine {
	e.store = s
	return e
}

// WithThresholds sets the starting calibration.
func (e *Engine) WithThresholds(t Thresholds) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.thresholds = t.Clamped()
	return e
}

// WithGovernor sets the threshold evolution policy.
func (e *Engine) WithGovernor(g *Governor) *Engine {
	e.governor = g
	return e
}

// WithLoop sets a configured concrescence loop.
func (e *Engine) WithLoop(l *Loop) *Engine {
	e.loop = l
	return e
}

// WithFamilies sets the family memory.
func (e *Engine) WithFamilies(f *Families) *Engine {
	e.families = f
	return e
}

// WithCoupling sets the coupling memory.
func (e *Engine) WithCoupling(c *Coupling) *Engine {
	e.coupling = c
	return e
}

// Thresholds returns the engine's current calibration.
func (e *Engine) Thresholds() Thresholds {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thresholds
}

// Coupling returns the engine's coupling memory for direct queries
// (fallback policies, audit).
func (e *Engine) Coupling() *Coupling {
	return e.coupling
}

// Families returns the engine's family memory.
func (e *Engine) Families() *Families {
	return e.families
}

// RunConvergence drives one utterance to a terminal state and gates the
// resulting candidates.
//
// An empty or nil utterance is repaired, not rejected: the result is
// StateExhausted with zero candidates and confidence 0. The only
// caller-visible failure mode is zero accepted candidates, surfaced as a
// normal result field.
func (e *Engine) RunConvergence(ctx context.Context, u *Utterance, opts *RunOptions) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()

	thresholds := e.Thresholds()
	var deadline time.Time
	if opts != nil {
		if opts.Thresholds != nil {
			thresholds = opts.Thresholds.Clamped()
		}
		if opts.Hint != nil {
			thresholds = recenterWindow(thresholds, opts.Hint.TargetSatisfaction)
		}
		deadline = opts.Deadline
	}

	utteranceID := ""
	occasions := 0
	if u != nil {
		utteranceID = u.ID
		occasions = u.Len()
	}

	capitan.Emit(ctx, RunStarted,
		FieldRunID.Field(runID),
		FieldUtterance.Field(utteranceID),
		FieldCandidateCount.Field(occasions),
	)

	snap := e.coupling.Snapshot()
	outcome := e.loop.Run(ctx, u, thresholds, snap, deadline)

	result := &Result{
		RunID:        runID,
		UtteranceID:  utteranceID,
		State:        outcome.state,
		Energy:       outcome.energy.Energy,
		Satisfaction: outcome.energy.Satisfaction,
		Cycles:       outcome.cycles,
		Trace:        outcome.trace,
		Mature:       outcome.mature,
		Signature:    coherenceProfile(outcome.results),
	}

	if len(outcome.results) > 0 {
		candidates := Compose(outcome.results, thresholds.TauIntersection)
		organCount := e.registry.Len()
		for i := range candidates {
			candidates[i].Satisfaction = outcome.energy.Satisfaction
			candidates[i].Residual = residualEnergy(outcome.energy.Energy, candidates[i].Strength, organCount)
		}

		capitan.Emit(ctx, CandidatesComposed,
			FieldRunID.Field(runID),
			FieldCandidateCount.Field(len(candidates)),
		)

		em := &Emission{
			RunID:        runID,
			Candidates:   candidates,
			Energy:       outcome.energy.Energy,
			Satisfaction: outcome.energy.Satisfaction,
			OrganCount:   organCount,
		}
		em, err := e.cascade.Filter(ctx, em, thresholds)
		if err != nil {
			return result, fmt.Errorf("gate cascade: %w", err)
		}
		result.Candidates = em.Accepted
		result.Confidence = em.Confidence
	}

	signal := RunConverged
	if result.State == StateExhausted {
		signal = RunExhausted
	}
	capitan.Emit(ctx, signal,
		FieldRunID.Field(runID),
		FieldState.Field(string(result.State)),
		FieldCycle.Field(result.Cycles),
		FieldEnergy.Field(float32(result.Energy)),
		FieldSatisfaction.Field(float32(result.Satisfaction)),
		FieldAcceptedCount.Field(len(result.Candidates)),
		FieldConfidence.Field(float32(result.Confidence)),
		FieldRunDuration.Field(time.Since(start)),
	)

	return result, nil
}

// RecordOutcome feeds a run's downstream satisfaction back into the
// engine: coupling strengthens for the accepted emission, the family
// memory assigns the run's signature, and the governor evolves the
// thresholds exactly once.
//
// Persistence happens asynchronously; a store failure is logged and
// retried without affecting the recorded in-memory state.
func (e *Engine) RecordOutcome(ctx context.Context, result *Result, downstreamSatisfaction float64) error {
	if result == nil {
		return fmt.Errorf("record outcome: nil result")
	}
	downstream := clamp01(downstreamSatisfaction)

	// Coupling strengthens only on accepted emissions. Each accepted
	// candidate contributes its supporting organs plus the atom itself,
	// so both organ-organ and organ-atom couplings accrue.
	for _, c := range result.Candidates {
		activations := make(map[string]float64, len(c.Organs)+1)
		for _, s := range c.Organs {
			activations[s.Organ] = s.Activation
		}
		activations[c.Atom] = clamp01(c.Strength / float64(maxInt(len(c.Organs), 1)))
		e.coupling.Update(activations)
	}
	if len(result.Candidates) > 0 {
		capitan.Emit(ctx, CouplingUpdated,
			FieldRunID.Field(result.RunID),
			FieldCouplingPairs.Field(e.coupling.Snapshot().Len()),
		)
	}

	centroid := e.families.Assign(ctx, result.Signature, result.Energy, result.Satisfaction)

	var hint *FamilyHint
	if centroid.Mature {
		hint = &FamilyHint{
			Centroid:           centroid.Index,
			TargetEnergy:       centroid.TargetEnergy,
			TargetSatisfaction: centroid.TargetSatisfaction,
		}
	}

	e.mu.Lock()
	e.pushHistory(downstream)
	mean := e.historyMean()
	e.thresholds, _ = e.governor.Evolve(ctx, e.thresholds, mean, hint)
	thresholds := e.thresholds
	e.mu.Unlock()

	if e.store != nil {
		e.persist.Add(1)
		go e.persistCalibration(thresholds)
	}

	return nil
}

// BestAssociate is the coupling-backed fallback for zero-candidate
// outcomes: the strongest persisted associate for an atom, with its
// weight. The engine only signals the empty result; choosing to use
// this fallback is the caller's policy.
func (e *Engine) BestAssociate(atom string) (string, float64) {
	return e.coupling.BestAssociate(atom)
}

// LoadCalibration restores thresholds, coupling, and families from the
// store. Missing state is not an error; defaults remain in place.
func (e *Engine) LoadCalibration(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	t, err := e.store.LoadThresholds(ctx, "global")
	switch {
	case err == nil:
		e.mu.Lock()
		e.thresholds = t.Clamped()
		e.mu.Unlock()
	case !isNotFound(err):
		return fmt.Errorf("load thresholds: %w", err)
	}

	cells, err := e.store.LoadCoupling(ctx)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("load coupling: %w", err)
	}
	if len(cells) > 0 {
		e.coupling.Load(cells)
	}

	centroids, err := e.store.LoadCentroids(ctx)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("load centroids: %w", err)
	}
	if len(centroids) > 0 {
		e.families.Load(centroids)
	}

	return nil
}

// Close waits for in-flight persistence to finish.
func (e *Engine) Close() error {
	e.persist.Wait()
	return nil
}

// persistCalibration writes the full calibration with one delayed retry.
// Runs detached from any request context: persistence must not be
// canceled by the caller that happened to record the outcome.
func (e *Engine) persistCalibration(thresholds Thresholds) {
	defer e.persist.Done()

	write := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := e.store.SaveThresholds(ctx, thresholds); err != nil {
			return fmt.Errorf("save thresholds: %w", err)
		}
		if err := e.store.SaveCoupling(ctx, e.coupling.Cells()); err != nil {
			return fmt.Errorf("save coupling: %w", err)
		}
		if err := e.store.SaveCentroids(ctx, e.families.Centroids()); err != nil {
			return fmt.Errorf("save centroids: %w", err)
		}
		return nil
	}

	err := write()
	if err != nil {
		capitan.Error(context.Background(), CalibrationSaveFailed,
			FieldError.Field(err),
		)
		time.Sleep(time.Second)
		err = write()
	}
	if err != nil {
		capitan.Error(context.Background(), CalibrationSaveFailed,
			FieldError.Field(err),
		)
		return
	}

	capitan.Emit(context.Background(), CalibrationSaved,
		FieldTauCoherence.Field(float32(thresholds.TauCoherence)),
	)
}

// pushHistory appends to the bounded satisfaction ring. Caller holds mu.
func (e *Engine) pushHistory(v float64) {
	if len(e.history) < e.histSize {
		e.history = append(e.history, v)
		return
	}
	e.history[e.histNext] = v
	e.histNext = (e.histNext + 1) % e.histSize
}

// historyMean averages the satisfaction ring. Caller holds mu.
func (e *Engine) historyMean() float64 {
	if len(e.history) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range e.history {
		sum += v
	}
	return sum / float64(len(e.history))
}

// coherenceProfile extracts the signature vector in slot order.
func coherenceProfile(results []OrganResult) []float64 {
	profile := make([]float64, len(results))
	for i, r := range results {
		profile[i] = r.Coherence
	}
	return profile
}

// recenterWindow eases the kairos window toward a family's target
// satisfaction without changing its width.
func recenterWindow(t Thresholds, target float64) Thresholds {
	width := t.KairosHigh - t.KairosLow
	center := (t.KairosHigh + t.KairosLow) / 2
	shifted := center + 0.5*(clamp01(target)-center)
	t.KairosLow = clamp01(shifted - width/2)
	t.KairosHigh = clamp01(shifted + width/2)
	return t.Clamped()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
