package kairos

import "github.com/zoobzio/capitan"

// Signal definitions for convergence engine events.
// Signals follow the pattern: kairos.<entity>.<event>.
var (
	// Run lifecycle signals.
	RunStarted = capitan.NewSignal(
		"kairos.run.started",
		"Convergence run began over an utterance",
	)
	CycleCompleted = capitan.NewSignal(
		"kairos.cycle.completed",
		"One concrescence cycle finished with fresh energy and satisfaction",
	)
	RunConverged = capitan.NewSignal(
		"kairos.run.converged",
		"Run reached a converged terminal state",
	)
	RunExhausted = capitan.NewSignal(
		"kairos.run.exhausted",
		"Run stopped on cycle budget or deadline",
	)

	// Organ signals.
	OrganEvaluated = capitan.NewSignal(
		"kairos.organ.evaluated",
		"Organ produced a result for the current cycle",
	)
	OrganNeutralized = capitan.NewSignal(
		"kairos.organ.neutralized",
		"Organ output replaced with the neutral result",
	)

	// Emission signals.
	CandidatesComposed = capitan.NewSignal(
		"kairos.candidates.composed",
		"Intersection candidates built from organ results",
	)
	GatePassed = capitan.NewSignal(
		"kairos.gate.passed",
		"Candidates survived a cascade gate",
	)
	EmissionAccepted = capitan.NewSignal(
		"kairos.emission.accepted",
		"Gate cascade accepted one or more candidates",
	)
	EmissionEmpty = capitan.NewSignal(
		"kairos.emission.empty",
		"Gate cascade yielded zero survivors",
	)

	// Calibration signals.
	ThresholdsEvolved = capitan.NewSignal(
		"kairos.thresholds.evolved",
		"Governor adjusted thresholds from outcome feedback",
	)
	RegimeClassified = capitan.NewSignal(
		"kairos.regime.classified",
		"Mean satisfaction classified into an evolution regime",
	)
	CouplingUpdated = capitan.NewSignal(
		"kairos.coupling.updated",
		"Coupling matrix strengthened from an accepted emission",
	)
	FamilyAssigned = capitan.NewSignal(
		"kairos.family.assigned",
		"Run signature matched an existing family centroid",
	)
	FamilyCreated = capitan.NewSignal(
		"kairos.family.created",
		"No centroid matched; new family created",
	)

	// Persistence signals.
	CalibrationSaved = capitan.NewSignal(
		"kairos.calibration.saved",
		"Engine calibration state persisted",
	)
	CalibrationSaveFailed = capitan.NewSignal(
		"kairos.calibration.save_failed",
		"Calibration write failed; in-memory state remains authoritative",
	)
)

// Field keys for kairos event data.
var (
	// Run metadata.
	FieldRunID     = capitan.NewStringKey("run_id")
	FieldUtterance = capitan.NewStringKey("utterance_id")
	FieldCycle     = capitan.NewIntKey("cycle")
	FieldState     = capitan.NewStringKey("state")

	// Scalar state. float32 keys match the event sink's numeric width.
	FieldEnergy       = capitan.NewFloat32Key("energy")
	FieldSatisfaction = capitan.NewFloat32Key("satisfaction")
	FieldDelta        = capitan.NewFloat32Key("delta")
	FieldConfidence   = capitan.NewFloat32Key("confidence")

	// Organ metadata.
	FieldOrgan     = capitan.NewStringKey("organ")
	FieldCoherence = capitan.NewFloat32Key("coherence")
	FieldLure      = capitan.NewFloat32Key("lure")

	// Emission metadata.
	FieldGate           = capitan.NewStringKey("gate")
	FieldCandidateCount = capitan.NewIntKey("candidate_count")
	FieldAcceptedCount  = capitan.NewIntKey("accepted_count")
	FieldAtom           = capitan.NewStringKey("atom")

	// Calibration metadata.
	FieldRegime          = capitan.NewStringKey("regime")
	FieldTauCoherence    = capitan.NewFloat32Key("tau_coherence")
	FieldTauIntersection = capitan.NewFloat32Key("tau_intersection")
	FieldCouplingPairs   = capitan.NewIntKey("coupling_pairs")
	FieldCentroid        = capitan.NewIntKey("centroid")
	FieldMembers         = capitan.NewIntKey("members")

	// Timing.
	FieldRunDuration = capitan.NewDurationKey("run_duration")

	// Error information.
	FieldError = capitan.NewErrorKey("error")
)
