// Package kairos implements a multi-organ felt-convergence and
// gated-emission engine: independent scoring organs evaluate an
// utterance over repeated cycles, a weighted energy functional decides
// when the moment is right to commit, and a four-gate cascade emits the
// semantic atoms the organs jointly agree on. The engine continuously
// recalibrates its own thresholds from outcome history.
//
// # Core Types
//
// The package is built around a small set of concepts:
//
//   - [Occasion] / [Utterance] - atomic input units in an arena with
//     index-based neighbor windows and per-cycle felt state
//   - [Organ] - a pluggable scorer producing coherence, lure, and
//     semantic-atom activations for a window
//   - [Loop] - the concrescence cycle driver: parallel organ fan-out,
//     energy descent, kairos detection
//   - [Candidate] / [Cascade] - intersection candidates filtered by the
//     four-gate emission cascade
//   - [Governor] - regime-based threshold evolution from outcome history
//   - [Coupling] - persistent pairwise association memory (EMA)
//   - [Families] - centroids of historical organ-coherence signatures
//   - [Engine] - the synchronous entry points RunConvergence and
//     RecordOutcome over explicit, injectable state
//
// # Running a Convergence
//
//	registry := kairos.DefaultRegistry()
//	engine := kairos.NewEngine(registry)
//	u := kairos.NewUtterance("is it safe to deploy now?", registry.Len())
//	result, err := engine.RunConvergence(ctx, u, nil)
//
// The result carries the terminal state, accepted candidates with a
// confidence scalar, and per-occasion mature records. Zero accepted
// candidates is a normal outcome, not an error; callers choose their own
// fallback (for example [Engine.BestAssociate]).
//
// # Feedback
//
// After the emitted unit's downstream fate is known, record it:
//
//	err = engine.RecordOutcome(ctx, result, 0.8)
//
// This strengthens the coupling matrix for the accepted emission,
// assigns the run's signature to a family centroid, and evolves the
// thresholds one governor step.
//
// # Persistence
//
// The [SoyStore] implementation uses soy for PostgreSQL persistence of
// thresholds, coupling cells, and family centroids:
//
//	store, err := kairos.NewSoyStore(db)
//	engine := kairos.NewEngine(registry).WithStore(store)
//	err = engine.LoadCalibration(ctx)
//
// Store writes happen asynchronously after RecordOutcome and never abort
// the run that produced them.
//
// # Observability
//
// The engine emits capitan signals throughout execution. See signals.go
// for the complete list including RunStarted, CycleCompleted,
// EmissionAccepted, ThresholdsEvolved, and CouplingUpdated.
package kairos
