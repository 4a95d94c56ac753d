package kairos

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestEngineRunConvergence(t *testing.T) {
	engine := NewEngine(settlingRegistry(t))
	u := NewUtterance("is it safe to deploy now", 3)

	result, err := engine.RunConvergence(context.Background(), u, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.State != StateKairos {
		t.Fatalf("state = %s, want kairos", result.State)
	}
	if len(result.Candidates) != 1 || result.Candidates[0].Atom != "safety" {
		t.Fatalf("expected the shared safety atom, got %v", result.Candidates)
	}
	if result.Confidence <= 0 {
		t.Errorf("accepted emission must carry positive confidence, got %f", result.Confidence)
	}
	if result.RunID == "" || result.UtteranceID != u.ID {
		t.Errorf("result missing identifiers: %+v", result)
	}
	if len(result.Trace) != result.Cycles {
		t.Errorf("trace length %d != cycles %d", len(result.Trace), result.Cycles)
	}
	if len(result.Signature) != 3 {
		t.Errorf("signature width %d, want one slot per organ", len(result.Signature))
	}
	if len(result.Mature) != u.Len() {
		t.Errorf("expected %d mature records, got %d", u.Len(), len(result.Mature))
	}
}

func TestEngineEmptyUtterance(t *testing.T) {
	engine := NewEngine(settlingRegistry(t))

	for _, u := range []*Utterance{nil, NewUtterance("", 3)} {
		result, err := engine.RunConvergence(context.Background(), u, nil)
		if err != nil {
			t.Fatalf("empty input must not error: %v", err)
		}
		if result.State != StateExhausted {
			t.Errorf("state = %s, want exhausted", result.State)
		}
		if len(result.Candidates) != 0 || result.Confidence != 0 {
			t.Errorf("empty input must emit nothing: %v / %f",
				result.Candidates, result.Confidence)
		}
	}
}

func TestEngineRunDeadline(t *testing.T) {
	engine := NewEngine(oscillatingRegistry(t))
	u := NewUtterance("no time left", 2)

	result, err := engine.RunConvergence(context.Background(), u, &RunOptions{
		Deadline: time.Now().Add(-time.Second),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != StateExhausted || result.Cycles != 0 {
		t.Errorf("expired deadline: state %s after %d cycles", result.State, result.Cycles)
	}
}

func TestEngineThresholdOverride(t *testing.T) {
	engine := NewEngine(settlingRegistry(t))
	u := NewUtterance("is it safe", 3)

	// An intersection floor above the combined strength of 1.8 starves
	// the composer for this run only.
	strict := DefaultThresholds()
	strict.TauIntersection = 2.5

	result, err := engine.RunConvergence(context.Background(), u, &RunOptions{
		Thresholds: &strict,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Candidates) != 0 {
		t.Errorf("floor 2.5 must starve strength 1.8, got %v", result.Candidates)
	}

	if engine.Thresholds().TauIntersection != DefaultThresholds().TauIntersection {
		t.Error("per-run override must not touch the engine calibration")
	}
}

func TestEngineRecordOutcomeEvolvesThresholds(t *testing.T) {
	engine := NewEngine(settlingRegistry(t))
	u := NewUtterance("is it safe to deploy", 3)

	result, err := engine.RunConvergence(context.Background(), u, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := engine.RecordOutcome(context.Background(), result, 0.683); err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	// Single sample: mean 0.683, committed regime, full-rate step
	// 0.1 * |0.683 - 0.4| relaxing tau_coherence.
	want := 0.4 - 0.1*(0.683-0.4)
	if got := engine.Thresholds().TauCoherence; math.Abs(got-want) > 1e-9 {
		t.Errorf("tau_coherence = %f, want %f", got, want)
	}
}

func TestEngineRecordOutcomeStrengthensCoupling(t *testing.T) {
	engine := NewEngine(settlingRegistry(t))
	u := NewUtterance("is it safe", 3)

	result, err := engine.RunConvergence(context.Background(), u, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Candidates) == 0 {
		t.Fatal("test needs an accepted candidate")
	}

	if err := engine.RecordOutcome(context.Background(), result, 0.7); err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	// The accepted safety atom couples to its supporting organs.
	if w := engine.Coupling().Query("a", "safety"); w <= 0 {
		t.Errorf("expected organ-atom coupling after acceptance, got %f", w)
	}
	if w := engine.Coupling().Query("a", "b"); w <= 0 {
		t.Errorf("expected organ-organ coupling after acceptance, got %f", w)
	}
}

func TestEngineRecordOutcomeAssignsFamily(t *testing.T) {
	engine := NewEngine(settlingRegistry(t))
	u := NewUtterance("is it safe", 3)

	result, err := engine.RunConvergence(context.Background(), u, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := engine.RecordOutcome(context.Background(), result, 0.6); err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	centroids := engine.Families().Centroids()
	if len(centroids) != 1 {
		t.Fatalf("expected one centroid, got %d", len(centroids))
	}
	if centroids[0].Members != 1 {
		t.Errorf("expected one member, got %d", centroids[0].Members)
	}
}

func TestEngineRecordOutcomeNilResult(t *testing.T) {
	engine := NewEngine(settlingRegistry(t))
	if err := engine.RecordOutcome(context.Background(), nil, 0.5); err == nil {
		t.Error("nil result must be rejected")
	}
}

func TestEnginePersistsCalibration(t *testing.T) {
	store := newMockStore()
	engine := NewEngine(settlingRegistry(t)).WithStore(store)
	u := NewUtterance("is it safe", 3)

	result, err := engine.RunConvergence(context.Background(), u, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := engine.RecordOutcome(context.Background(), result, 0.683); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	saved, err := store.LoadThresholds(context.Background(), "global")
	if err != nil {
		t.Fatalf("load thresholds: %v", err)
	}
	want := 0.4 - 0.1*(0.683-0.4)
	if math.Abs(saved.TauCoherence-want) > 1e-9 {
		t.Errorf("persisted tau_coherence = %f, want %f", saved.TauCoherence, want)
	}

	cells, _ := store.LoadCoupling(context.Background())
	if len(cells) == 0 {
		t.Error("expected persisted coupling cells")
	}
	centroids, _ := store.LoadCentroids(context.Background())
	if len(centroids) != 1 {
		t.Errorf("expected one persisted centroid, got %d", len(centroids))
	}
}

func TestEngineStoreFailureDoesNotError(t *testing.T) {
	store := newMockStore()
	store.failSaves = true
	engine := NewEngine(settlingRegistry(t)).WithStore(store)
	u := NewUtterance("is it safe", 3)

	result, err := engine.RunConvergence(context.Background(), u, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The record succeeds even when the store is down; the writer retries
	// once in the background and gives up.
	if err := engine.RecordOutcome(context.Background(), result, 0.6); err != nil {
		t.Fatalf("record outcome must not surface store failures: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := store.saves(); got != 2 {
		t.Errorf("expected one attempt plus one retry, got %d", got)
	}
	if engine.Thresholds().TauCoherence == DefaultThresholds().TauCoherence {
		t.Error("in-memory calibration must evolve despite the store failure")
	}
}

func TestEngineLoadCalibrationRoundTrip(t *testing.T) {
	store := newMockStore()

	source := NewEngine(settlingRegistry(t)).WithStore(store)
	u := NewUtterance("is it safe to deploy", 3)
	result, err := source.RunConvergence(context.Background(), u, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := source.RecordOutcome(context.Background(), result, 0.683); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	if err := source.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	restored := NewEngine(settlingRegistry(t)).WithStore(store)
	if err := restored.LoadCalibration(context.Background()); err != nil {
		t.Fatalf("load calibration: %v", err)
	}

	if restored.Thresholds().TauCoherence != source.Thresholds().TauCoherence {
		t.Errorf("thresholds lost in round trip: %f vs %f",
			restored.Thresholds().TauCoherence, source.Thresholds().TauCoherence)
	}
	if restored.Coupling().Query("a", "safety") != source.Coupling().Query("a", "safety") {
		t.Error("coupling lost in round trip")
	}
	if len(restored.Families().Centroids()) != 1 {
		t.Error("centroids lost in round trip")
	}
}

func TestEngineLoadCalibrationEmptyStore(t *testing.T) {
	engine := NewEngine(settlingRegistry(t)).WithStore(newMockStore())

	if err := engine.LoadCalibration(context.Background()); err != nil {
		t.Fatalf("empty store must not error: %v", err)
	}
	if engine.Thresholds() != DefaultThresholds() {
		t.Error("defaults must survive an empty store")
	}
}

func TestEngineBestAssociateFallback(t *testing.T) {
	engine := NewEngine(settlingRegistry(t))

	if partner, _ := engine.BestAssociate("safety"); partner != "" {
		t.Errorf("cold engine must have no associate, got %q", partner)
	}

	u := NewUtterance("is it safe", 3)
	result, err := engine.RunConvergence(context.Background(), u, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := engine.RecordOutcome(context.Background(), result, 0.7); err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	partner, weight := engine.BestAssociate("safety")
	if partner == "" || weight <= 0 {
		t.Errorf("expected a learned associate, got %q/%f", partner, weight)
	}
}

func TestEngineSatisfactionHistoryMean(t *testing.T) {
	engine := NewEngine(settlingRegistry(t))
	u := NewUtterance("is it safe", 3)

	result, err := engine.RunConvergence(context.Background(), u, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// First outcome 0.9 relaxes tau. The second, a poor 0.2, would push
	// tau back up on its own, but the ring mean 0.55 still exceeds the
	// evolved tau, so the calibration keeps relaxing.
	if err := engine.RecordOutcome(context.Background(), result, 0.9); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	afterFirst := engine.Thresholds().TauCoherence
	if afterFirst >= 0.4 {
		t.Fatalf("high satisfaction must relax tau: %f", afterFirst)
	}

	if err := engine.RecordOutcome(context.Background(), result, 0.2); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	afterSecond := engine.Thresholds().TauCoherence

	if afterSecond >= afterFirst {
		t.Errorf("smoothed mean 0.55 must keep relaxing tau: %f then %f",
			afterFirst, afterSecond)
	}
}

func TestRecenterWindow(t *testing.T) {
	base := DefaultThresholds() // [0.45, 0.70], center 0.575, width 0.25

	shifted := recenterWindow(base, 0.9)

	wantCenter := 0.575 + 0.5*(0.9-0.575)
	gotCenter := (shifted.KairosLow + shifted.KairosHigh) / 2
	if math.Abs(gotCenter-wantCenter) > 1e-9 {
		t.Errorf("center = %f, want %f", gotCenter, wantCenter)
	}
	if math.Abs((shifted.KairosHigh-shifted.KairosLow)-0.25) > 1e-9 {
		t.Errorf("width changed: [%f, %f]", shifted.KairosLow, shifted.KairosHigh)
	}
}
