package kairos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/zoobzio/astql/postgres"
	"github.com/zoobzio/soy"
)

// thresholdRow is the persisted shape of one ThresholdSet scope.
type thresholdRow struct {
	ID              string    `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	Scope           string    `db:"scope" type:"text" constraints:"notnull,unique"`
	TauIntersection float64   `db:"tau_intersection" type:"double precision" constraints:"notnull"`
	TauCoherence    float64   `db:"tau_coherence" type:"double precision" constraints:"notnull"`
	KairosLow       float64   `db:"kairos_low" type:"double precision" constraints:"notnull"`
	KairosHigh      float64   `db:"kairos_high" type:"double precision" constraints:"notnull"`
	TauEnergy       float64   `db:"tau_energy" type:"double precision" constraints:"notnull"`
	UpdatedAt       time.Time `db:"updated_at" type:"timestamp" constraints:"notnull"`
}

// couplingRow is one persisted coupling matrix cell. The pair is stored
// in canonical order (a <= b), matching the in-memory symmetry.
type couplingRow struct {
	ID        string    `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	A         string    `db:"a" type:"text" constraints:"notnull"`
	B         string    `db:"b" type:"text" constraints:"notnull"`
	Weight    float64   `db:"weight" type:"double precision" constraints:"notnull"`
	Updates   int       `db:"updates" type:"integer" constraints:"notnull"`
	UpdatedAt time.Time `db:"updated_at" type:"timestamp" constraints:"notnull"`
}

// centroidRow is one persisted family centroid. Signatures are padded to
// the fixed SignatureDim width for the vector column.
type centroidRow struct {
	ID                 string    `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	Idx                int       `db:"idx" type:"integer" constraints:"notnull"`
	Signature          Signature `db:"signature" type:"vector(32)"`
	Members            int       `db:"members" type:"integer" constraints:"notnull"`
	Mature             bool      `db:"mature" type:"boolean" constraints:"notnull"`
	TargetEnergy       float64   `db:"target_energy" type:"double precision" constraints:"notnull"`
	TargetSatisfaction float64   `db:"target_satisfaction" type:"double precision" constraints:"notnull"`
	UpdatedAt          time.Time `db:"updated_at" type:"timestamp" constraints:"notnull"`
}

// SoyStore implements Store using soy for Postgres persistence.
type SoyStore struct {
	thresholds *soy.Soy[thresholdRow]
	couplings  *soy.Soy[couplingRow]
	centroids  *soy.Soy[centroidRow]
	db         *sqlx.DB
}

// NewSoyStore creates a soy-backed Store implementation.
func NewSoyStore(db *sqlx.DB) (*SoyStore, error) {
	renderer := postgres.New()

	thresholds, err := soy.New[thresholdRow](db, "thresholds", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize thresholds table: %w", err)
	}

	couplings, err := soy.New[couplingRow](db, "couplings", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize couplings table: %w", err)
	}

	centroids, err := soy.New[centroidRow](db, "families", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize families table: %w", err)
	}

	return &SoyStore{
		thresholds: thresholds,
		couplings:  couplings,
		centroids:  centroids,
		db:         db,
	}, nil
}

// SaveThresholds upserts the threshold set for its scope.
func (s *SoyStore) SaveThresholds(ctx context.Context, t Thresholds) error {
	t = t.Clamped()

	// Replace-in-place: one row per scope, at most a handful of scopes.
	_, err := s.thresholds.Remove().
		Where("scope", "=", "scope").
		Exec(ctx, map[string]any{"scope": t.Scope})
	if err != nil {
		return fmt.Errorf("failed to clear thresholds: %w", err)
	}

	_, err = s.thresholds.Insert().Exec(ctx, &thresholdRow{
		Scope:           t.Scope,
		TauIntersection: t.TauIntersection,
		TauCoherence:    t.TauCoherence,
		KairosLow:       t.KairosLow,
		KairosHigh:      t.KairosHigh,
		TauEnergy:       t.TauEnergy,
		UpdatedAt:       time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to insert thresholds: %w", err)
	}
	return nil
}

// LoadThresholds loads the threshold set for a scope.
func (s *SoyStore) LoadThresholds(ctx context.Context, scope string) (Thresholds, error) {
	row, err := s.thresholds.Select().
		Where("scope", "=", "scope").
		Exec(ctx, map[string]any{"scope": scope})
	if err != nil {
		if isNoRows(err) {
			return Thresholds{}, ErrNotFound
		}
		return Thresholds{}, fmt.Errorf("failed to load thresholds: %w", err)
	}

	return Thresholds{
		Scope:           row.Scope,
		TauIntersection: row.TauIntersection,
		TauCoherence:    row.TauCoherence,
		KairosLow:       row.KairosLow,
		KairosHigh:      row.KairosHigh,
		TauEnergy:       row.TauEnergy,
	}, nil
}

// SaveCoupling replaces the persisted coupling matrix.
func (s *SoyStore) SaveCoupling(ctx context.Context, cells []CouplingCell) error {
	_, err := s.couplings.Remove().
		Where("weight", ">=", "floor").
		Exec(ctx, map[string]any{"floor": 0.0})
	if err != nil {
		return fmt.Errorf("failed to clear couplings: %w", err)
	}

	now := time.Now()
	for _, cell := range cells {
		_, err := s.couplings.Insert().Exec(ctx, &couplingRow{
			A:         cell.A,
			B:         cell.B,
			Weight:    cell.Weight,
			Updates:   cell.Updates,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("failed to insert coupling %s/%s: %w", cell.A, cell.B, err)
		}
	}
	return nil
}

// LoadCoupling loads every coupling cell.
func (s *SoyStore) LoadCoupling(ctx context.Context) ([]CouplingCell, error) {
	rows, err := s.couplings.Query().
		OrderBy("a", "asc").
		Exec(ctx, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("failed to load couplings: %w", err)
	}

	cells := make([]CouplingCell, len(rows))
	for i, row := range rows {
		cells[i] = CouplingCell{A: row.A, B: row.B, Weight: row.Weight, Updates: row.Updates}
	}
	return cells, nil
}

// SaveCentroids replaces the persisted family centroid list.
func (s *SoyStore) SaveCentroids(ctx context.Context, centroids []Centroid) error {
	_, err := s.centroids.Remove().
		Where("idx", ">=", "floor").
		Exec(ctx, map[string]any{"floor": 0})
	if err != nil {
		return fmt.Errorf("failed to clear families: %w", err)
	}

	now := time.Now()
	for _, c := range centroids {
		_, err := s.centroids.Insert().Exec(ctx, &centroidRow{
			Idx:                c.Index,
			Signature:          c.Signature.Padded(SignatureDim),
			Members:            c.Members,
			Mature:             c.Mature,
			TargetEnergy:       c.TargetEnergy,
			TargetSatisfaction: c.TargetSatisfaction,
			UpdatedAt:          now,
		})
		if err != nil {
			return fmt.Errorf("failed to insert centroid %d: %w", c.Index, err)
		}
	}
	return nil
}

// LoadCentroids loads every centroid in index order.
func (s *SoyStore) LoadCentroids(ctx context.Context) ([]Centroid, error) {
	rows, err := s.centroids.Query().
		OrderBy("idx", "asc").
		Exec(ctx, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("failed to load families: %w", err)
	}

	centroids := make([]Centroid, len(rows))
	for i, row := range rows {
		centroids[i] = Centroid{
			Index:              row.Idx,
			Signature:          row.Signature,
			Members:            row.Members,
			Mature:             row.Mature,
			TargetEnergy:       row.TargetEnergy,
			TargetSatisfaction: row.TargetSatisfaction,
		}
	}
	return centroids, nil
}

// Close closes the underlying database connection.
func (s *SoyStore) Close() error {
	return s.db.Close()
}

// isNoRows detects the driver's empty-result error without binding to a
// specific driver error type.
func isNoRows(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no rows")
}

var _ Store = (*SoyStore)(nil)
