package kairos

import (
	"context"
	"fmt"
	"sync"
)

// mockStore implements Store for testing without a database.
type mockStore struct {
	mu         sync.RWMutex
	thresholds map[string]Thresholds
	cells      []CouplingCell
	centroids  []Centroid

	saveCount int
	failSaves bool
}

func newMockStore() *mockStore {
	return &mockStore{
		thresholds: make(map[string]Thresholds),
	}
}

func (m *mockStore) SaveThresholds(_ context.Context, t Thresholds) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveCount++
	if m.failSaves {
		return fmt.Errorf("store unavailable")
	}
	m.thresholds[t.Scope] = t
	return nil
}

func (m *mockStore) LoadThresholds(_ context.Context, scope string) (Thresholds, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.thresholds[scope]
	if !ok {
		return Thresholds{}, ErrNotFound
	}
	return t, nil
}

func (m *mockStore) SaveCoupling(_ context.Context, cells []CouplingCell) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSaves {
		return fmt.Errorf("store unavailable")
	}
	m.cells = append([]CouplingCell(nil), cells...)
	return nil
}

func (m *mockStore) LoadCoupling(_ context.Context) ([]CouplingCell, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]CouplingCell(nil), m.cells...), nil
}

func (m *mockStore) SaveCentroids(_ context.Context, centroids []Centroid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSaves {
		return fmt.Errorf("store unavailable")
	}
	m.centroids = append([]Centroid(nil), centroids...)
	return nil
}

func (m *mockStore) LoadCentroids(_ context.Context) ([]Centroid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Centroid(nil), m.centroids...), nil
}

func (m *mockStore) saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCount
}

var _ Store = (*mockStore)(nil)

// scriptOrgan replays a fixed sequence of results, one per cycle. The
// last entry repeats once the script runs out.
type scriptOrgan struct {
	name   string
	atoms  []string
	script []OrganResult

	mu   sync.Mutex
	call int
}

func (s *scriptOrgan) Name() string    { return s.name }
func (s *scriptOrgan) Atoms() []string { return s.atoms }

func (s *scriptOrgan) Evaluate(Window, CouplingSnapshot) OrganResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.call
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	s.call++
	return s.script[i]
}

// constOrgan returns the same result every cycle.
func constOrgan(name string, coherence, lure float64, activations map[string]float64) *scriptOrgan {
	atoms := make([]string, 0, len(activations))
	for atom := range activations {
		atoms = append(atoms, atom)
	}
	return &scriptOrgan{
		name:  name,
		atoms: atoms,
		script: []OrganResult{{
			Organ:       name,
			Coherence:   coherence,
			Lure:        lure,
			Activations: activations,
		}},
	}
}

// copyActivations guards shared maps against in-place gate mutation.
func copyActivations(src map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
