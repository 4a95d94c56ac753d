package kairos

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store lookups when no persisted state
// exists for the requested scope. Callers fall back to defaults.
var ErrNotFound = errors.New("calibration state not found")

// Store defines the persistence interface for the engine's learned
// state: thresholds per scope, the coupling matrix, and the family
// centroid list. Implementations handle storage; the engine handles
// locking and retry.
//
// A Store is written asynchronously after outcomes are recorded. Write
// failures never abort the convergence run that produced the state; the
// in-memory state remains authoritative until the next successful write.
type Store interface {
	// SaveThresholds upserts the threshold set for its scope.
	SaveThresholds(ctx context.Context, t Thresholds) error

	// LoadThresholds loads the threshold set for a scope.
	// Returns ErrNotFound when the scope has never been saved.
	LoadThresholds(ctx context.Context, scope string) (Thresholds, error)

	// SaveCoupling replaces the persisted coupling matrix.
	SaveCoupling(ctx context.Context, cells []CouplingCell) error

	// LoadCoupling loads every coupling cell.
	LoadCoupling(ctx context.Context) ([]CouplingCell, error)

	// SaveCentroids replaces the persisted family centroid list.
	SaveCentroids(ctx context.Context, centroids []Centroid) error

	// LoadCentroids loads every centroid in index order.
	LoadCentroids(ctx context.Context) ([]Centroid, error)
}
