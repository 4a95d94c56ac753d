package kairos

import (
	"fmt"
	"sort"
	"sync"
)

// OrganResult is one organ's output for one cycle over one window.
// Immutable once produced; consumed by the loop and the composer within
// the same cycle only.
type OrganResult struct {
	// Organ is the producing organ's registered name.
	Organ string

	// Coherence is the organ's confidence in its own reading, in [0,1].
	Coherence float64

	// Lure is the organ's pull toward a decision, in [0,1].
	Lure float64

	// Activations maps semantic atom names to strengths in [0,1].
	// Absent atoms are zero.
	Activations map[string]float64
}

// NeutralResult is the mandated output for a malformed (empty) window:
// coherence 0.5, lure 0.5, no activations.
func NeutralResult(organ string) OrganResult {
	return OrganResult{
		Organ:       organ,
		Coherence:   0.5,
		Lure:        0.5,
		Activations: map[string]float64{},
	}
}

// BalancedResult spreads uniform activation across the organ's atom set.
// Used when an organ finds no evidence: the organ still participates in
// intersection computation instead of going dormant.
func BalancedResult(organ string, atoms []string) OrganResult {
	r := OrganResult{
		Organ:       organ,
		Coherence:   0.5,
		Lure:        0.5,
		Activations: make(map[string]float64, len(atoms)),
	}
	if len(atoms) == 0 {
		return r
	}
	share := 1.0 / float64(len(atoms))
	for _, a := range atoms {
		r.Activations[a] = share
	}
	return r
}

// Organ scores a window of occasions. Implementations must be pure with
// respect to their inputs except for reading the coupling snapshot as an
// optional weak prior, and must always return a result.
type Organ interface {
	// Name returns the organ's stable registered identifier.
	Name() string

	// Atoms returns the semantic atoms this organ can activate.
	Atoms() []string

	// Evaluate scores the window. prior may be the zero snapshot.
	Evaluate(w Window, prior CouplingSnapshot) OrganResult
}

// Guaranteed wraps an organ with the never-empty post-condition:
//   - empty window -> NeutralResult
//   - panic -> NeutralResult
//   - all-zero activations on a non-empty window -> BalancedResult
//
// The concrescence loop wraps every registered organ, so per-organ code
// never needs this logic itself.
func Guaranteed(o Organ) Organ {
	return &guaranteed{inner: o}
}

type guaranteed struct {
	inner Organ
}

func (g *guaranteed) Name() string    { return g.inner.Name() }
func (g *guaranteed) Atoms() []string { return g.inner.Atoms() }

func (g *guaranteed) Evaluate(w Window, prior CouplingSnapshot) (result OrganResult) {
	if w.Empty() {
		return NeutralResult(g.inner.Name())
	}

	defer func() {
		if r := recover(); r != nil {
			result = NeutralResult(g.inner.Name())
		}
	}()

	result = g.inner.Evaluate(w, prior)
	result.Organ = g.inner.Name()
	result.Coherence = clamp01(result.Coherence)
	result.Lure = clamp01(result.Lure)

	if result.Activations == nil {
		result.Activations = map[string]float64{}
	}
	total := 0.0
	for atom, v := range result.Activations {
		v = clamp01(v)
		result.Activations[atom] = v
		total += v
	}
	if total == 0 {
		return BalancedResult(g.inner.Name(), g.inner.Atoms())
	}
	return result
}

// Registry holds the organ set for an engine. Dispatch is explicit:
// organs are looked up by registered name and invoked in deterministic
// slot order, never via reflection.
type Registry struct {
	mu     sync.RWMutex
	organs []Organ
	slots  map[string]int
}

// NewRegistry creates a registry with the given organs, wrapping each
// with the Guaranteed post-condition. Registration order fixes each
// organ's felt-vector slot.
func NewRegistry(organs ...Organ) (*Registry, error) {
	r := &Registry{slots: make(map[string]int, len(organs))}
	for _, o := range organs {
		if err := r.Register(o); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends an organ. Names must be unique.
func (r *Registry) Register(o Organ) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.slots[o.Name()]; exists {
		return fmt.Errorf("organ already registered: %s", o.Name())
	}
	r.slots[o.Name()] = len(r.organs)
	r.organs = append(r.organs, Guaranteed(o))
	return nil
}

// Len returns the registered organ count.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.organs)
}

// Slot returns the felt-vector slot for a registered organ name.
func (r *Registry) Slot(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.slots[name]
	return slot, ok
}

// Organs returns the organs in slot order.
func (r *Registry) Organs() []Organ {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Organ, len(r.organs))
	copy(out, r.organs)
	return out
}

// Names returns the registered organ names in slot order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.organs))
	for name, slot := range r.slots {
		names[slot] = name
	}
	return names
}

// AtomUniverse returns the sorted union of every organ's atom set.
func (r *Registry) AtomUniverse() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, o := range r.organs {
		for _, a := range o.Atoms() {
			seen[a] = struct{}{}
		}
	}
	atoms := make([]string, 0, len(seen))
	for a := range seen {
		atoms = append(atoms, a)
	}
	sort.Strings(atoms)
	return atoms
}
