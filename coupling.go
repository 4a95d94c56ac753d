package kairos

import (
	"sort"
	"sync"
)

// pairKey is a canonical unordered name pair: A <= B lexically. The
// diagonal (A == B) carries self-terms.
type pairKey struct {
	A, B string
}

func makePair(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{A: a, B: b}
}

// CouplingCell is one persisted matrix entry.
type CouplingCell struct {
	A       string
	B       string
	Weight  float64
	Updates int
}

// Coupling is the persistent association matrix between organs and
// atoms. Entries strengthen via EMA whenever two names co-activate in an
// accepted emission; the matrix survives utterances and sessions.
//
// Writes go through the engine's single-writer discipline; reads during
// organ evaluation use an immutable Snapshot so concurrent runs are
// never blocked by a writer.
type Coupling struct {
	mu      sync.RWMutex
	weights map[pairKey]float64
	updates map[pairKey]int

	lambda     float64
	decay      float64
	decayEvery int
	count      int
}

// NewCoupling creates an empty matrix with default EMA and decay rates.
func NewCoupling() *Coupling {
	return &Coupling{
		weights:    make(map[pairKey]float64),
		updates:    make(map[pairKey]int),
		lambda:     DefaultCouplingLambda,
		decay:      DefaultCouplingDecay,
		decayEvery: DefaultCouplingDecayEvery,
	}
}

// WithLambda overrides the EMA rate.
func (c *Coupling) WithLambda(lambda float64) *Coupling {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lambda = clamp01(lambda)
	return c
}

// WithDecay overrides the slow-decay policy. decay 1.0 disables it.
func (c *Coupling) WithDecay(decay float64, every int) *Coupling {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decay = clamp01(decay)
	if every > 0 {
		c.decayEvery = every
	}
	return c
}

// Update strengthens every co-activating pair (self-terms included) from
// one accepted emission:
//
//	M[i,j] = (1-lambda)*M[i,j] + lambda*(activation_i * activation_j)
//
// Symmetry holds by construction: both orderings share one canonical
// cell.
func (c *Coupling) Update(activations map[string]float64) {
	if len(activations) == 0 {
		return
	}

	names := make([]string, 0, len(activations))
	for name := range activations {
		names = append(names, name)
	}
	sort.Strings(names)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, a := range names {
		for _, b := range names[i:] {
			key := makePair(a, b)
			c.weights[key] = (1-c.lambda)*c.weights[key] + c.lambda*activations[a]*activations[b]
			c.updates[key]++
		}
	}

	c.count++
	if c.decay < 1.0 && c.decayEvery > 0 && c.count%c.decayEvery == 0 {
		for key, w := range c.weights {
			c.weights[key] = w * c.decay
		}
	}
}

// Query returns the association strength for a pair, zero when unseen.
func (c *Coupling) Query(a, b string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.weights[makePair(a, b)]
}

// BestAssociate returns the strongest partner for a name. Callers use
// this as a fallback source when the live cascade yields zero survivors.
func (c *Coupling) BestAssociate(name string) (string, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	best := ""
	bestWeight := 0.0
	for key, w := range c.weights {
		var partner string
		switch name {
		case key.A:
			partner = key.B
		case key.B:
			partner = key.A
		default:
			continue
		}
		if partner == name {
			continue
		}
		if w > bestWeight || (w == bestWeight && best != "" && partner < best) {
			best = partner
			bestWeight = w
		}
	}
	return best, bestWeight
}

// Cells returns every entry for persistence, in deterministic order.
func (c *Coupling) Cells() []CouplingCell {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cells := make([]CouplingCell, 0, len(c.weights))
	for key, w := range c.weights {
		cells = append(cells, CouplingCell{A: key.A, B: key.B, Weight: w, Updates: c.updates[key]})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].A != cells[j].A {
			return cells[i].A < cells[j].A
		}
		return cells[i].B < cells[j].B
	})
	return cells
}

// Load replaces the matrix contents from persisted cells.
func (c *Coupling) Load(cells []CouplingCell) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.weights = make(map[pairKey]float64, len(cells))
	c.updates = make(map[pairKey]int, len(cells))
	for _, cell := range cells {
		key := makePair(cell.A, cell.B)
		c.weights[key] = cell.Weight
		c.updates[key] = cell.Updates
	}
}

// Snapshot returns an immutable copy for lock-free reads during organ
// evaluation.
func (c *Coupling) Snapshot() CouplingSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	weights := make(map[pairKey]float64, len(c.weights))
	for key, w := range c.weights {
		weights[key] = w
	}
	return CouplingSnapshot{weights: weights}
}

// CouplingSnapshot is a point-in-time, read-only view of the matrix.
// The zero value is valid and reports zero for every pair.
type CouplingSnapshot struct {
	weights map[pairKey]float64
}

// Prior returns the persisted association for a pair, zero when unseen.
func (s CouplingSnapshot) Prior(a, b string) float64 {
	if s.weights == nil {
		return 0
	}
	return s.weights[makePair(a, b)]
}

// Len returns the number of non-zero entries in the snapshot.
func (s CouplingSnapshot) Len() int {
	return len(s.weights)
}
