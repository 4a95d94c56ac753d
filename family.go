package kairos

import (
	"context"
	"math"
	"sync"

	"github.com/zoobzio/capitan"
)

// Centroid is one family: the running mean of historical organ-coherence
// signatures plus the calibration point its members converged around.
// Centroids never merge or split; they only accrue members and drift.
type Centroid struct {
	Index              int
	Signature          Signature
	Members            int
	Mature             bool
	TargetEnergy       float64
	TargetSatisfaction float64
}

// FamilyConfig tunes centroid assignment.
type FamilyConfig struct {
	// SimilarityThreshold is the cosine floor for joining an existing
	// centroid. Default: 0.85.
	SimilarityThreshold float64

	// MaturityCount is the member count at which a centroid's targets
	// feed the governor. Default: 3.
	MaturityCount int

	// Lambda is the EMA rate for signature and target drift. Default: 0.2.
	Lambda float64
}

// DefaultFamilyConfig returns the standard assignment policy.
func DefaultFamilyConfig() FamilyConfig {
	return FamilyConfig{
		SimilarityThreshold: DefaultSimilarityThreshold,
		MaturityCount:       DefaultMaturityCount,
		Lambda:              DefaultFamilyLambda,
	}
}

// Families maintains the centroid list. Assignment is deterministic:
// given a fixed list, a signature always lands on the same centroid,
// with similarity ties broken by lowest index.
type Families struct {
	mu        sync.RWMutex
	centroids []*Centroid
	cfg       FamilyConfig
}

// NewFamilies creates an empty family memory; zero-value config fields
// fall back to defaults.
func NewFamilies(cfg FamilyConfig) *Families {
	def := DefaultFamilyConfig()
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	if cfg.MaturityCount == 0 {
		cfg.MaturityCount = def.MaturityCount
	}
	if cfg.Lambda == 0 {
		cfg.Lambda = def.Lambda
	}
	return &Families{cfg: cfg}
}

// Assign matches the signature against existing centroids. When the best
// cosine similarity clears the threshold the centroid EMA-drifts toward
// the signature and its targets toward the run's energy/satisfaction;
// otherwise a new centroid is created with the run as its seed.
//
// Returns a copy of the assigned centroid.
func (f *Families) Assign(ctx context.Context, signature []float64, energy, satisfaction float64) Centroid {
	f.mu.Lock()
	defer f.mu.Unlock()

	bestIdx := -1
	bestSim := 0.0
	for i, c := range f.centroids {
		sim := cosine(signature, c.Signature.Floats())
		// Strict greater-than: ties stay with the lowest index.
		if sim > bestSim {
			bestSim = sim
			bestIdx = i
		}
	}

	if bestIdx >= 0 && bestSim >= f.cfg.SimilarityThreshold {
		c := f.centroids[bestIdx]
		lambda := f.cfg.Lambda
		sig := c.Signature.Floats()
		for i := range sig {
			if i < len(signature) {
				sig[i] = (1-lambda)*sig[i] + lambda*signature[i]
			}
		}
		c.Signature = NewSignature(sig)
		c.TargetEnergy = (1-lambda)*c.TargetEnergy + lambda*energy
		c.TargetSatisfaction = (1-lambda)*c.TargetSatisfaction + lambda*satisfaction
		c.Members++
		c.Mature = c.Members >= f.cfg.MaturityCount

		capitan.Emit(ctx, FamilyAssigned,
			FieldCentroid.Field(c.Index),
			FieldMembers.Field(c.Members),
		)
		return *c
	}

	c := &Centroid{
		Index:              len(f.centroids),
		Signature:          NewSignature(signature),
		Members:            1,
		Mature:             1 >= f.cfg.MaturityCount,
		TargetEnergy:       energy,
		TargetSatisfaction: satisfaction,
	}
	f.centroids = append(f.centroids, c)

	capitan.Emit(ctx, FamilyCreated,
		FieldCentroid.Field(c.Index),
	)
	return *c
}

// Hint returns the governor bias from the nearest mature centroid, or
// nil when no mature centroid clears the similarity threshold.
func (f *Families) Hint(signature []float64) *FamilyHint {
	f.mu.RLock()
	defer f.mu.RUnlock()

	bestIdx := -1
	bestSim := 0.0
	for i, c := range f.centroids {
		if !c.Mature {
			continue
		}
		sim := cosine(signature, c.Signature.Floats())
		if sim > bestSim {
			bestSim = sim
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestSim < f.cfg.SimilarityThreshold {
		return nil
	}

	c := f.centroids[bestIdx]
	return &FamilyHint{
		Centroid:           c.Index,
		TargetEnergy:       c.TargetEnergy,
		TargetSatisfaction: c.TargetSatisfaction,
	}
}

// Maturity reports whether the centroid at index has reached the member
// floor.
func (f *Families) Maturity(index int) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if index < 0 || index >= len(f.centroids) {
		return false
	}
	return f.centroids[index].Mature
}

// Centroids returns copies of every centroid in index order.
func (f *Families) Centroids() []Centroid {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Centroid, len(f.centroids))
	for i, c := range f.centroids {
		out[i] = *c
	}
	return out
}

// Load replaces the centroid list from persisted state, re-indexing in
// order.
func (f *Families) Load(centroids []Centroid) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.centroids = make([]*Centroid, len(centroids))
	for i := range centroids {
		c := centroids[i]
		c.Index = i
		c.Mature = c.Members >= f.cfg.MaturityCount
		f.centroids[i] = &c
	}
}

// cosine is the cosine similarity of two profiles, comparing up to the
// shorter length. Zero when either norm vanishes.
func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
