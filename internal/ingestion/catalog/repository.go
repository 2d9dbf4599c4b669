// Package catalog records processed datasets. The PostgreSQL repository is
// the system of record, the Redis cache fronts single-dataset reads, and the
// disk catalog answers from the data root when PostgreSQL is not configured.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/postgres"
)

// Reader serves catalog lookups.
type Reader interface {
	Get(ctx context.Context, id string) (*ingestion.DatasetRecord, error)
	List(ctx context.Context, limit, offset int) ([]*ingestion.DatasetRecord, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	id            TEXT PRIMARY KEY,
	format        TEXT NOT NULL,
	shapes        JSONB NOT NULL,
	classes       TEXT[] NOT NULL,
	num_classes   INTEGER NOT NULL,
	train_samples INTEGER NOT NULL,
	test_samples  INTEGER NOT NULL,
	path          TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectColumns = `id, format, shapes, classes, num_classes, train_samples, test_samples, path, created_at, updated_at`

// Repository stores dataset records in PostgreSQL.
type Repository struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewRepository creates a Repository on db.
func NewRepository(db *postgres.Client) *Repository {
	return &Repository{
		db:     db,
		logger: slog.Default().With("component", "catalog"),
	}
}

// EnsureSchema creates the datasets table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating datasets table: %w", err)
	}
	return nil
}

// Upsert inserts rec or replaces the existing row with the same id, keeping
// the original creation time.
func (r *Repository) Upsert(ctx context.Context, rec *ingestion.DatasetRecord) error {
	shapes, err := json.Marshal(rec.Shapes)
	if err != nil {
		return fmt.Errorf("encoding shapes: %w", err)
	}
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO datasets (id, format, shapes, classes, num_classes, train_samples, test_samples, path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (id) DO UPDATE SET
			format = EXCLUDED.format,
			shapes = EXCLUDED.shapes,
			classes = EXCLUDED.classes,
			num_classes = EXCLUDED.num_classes,
			train_samples = EXCLUDED.train_samples,
			test_samples = EXCLUDED.test_samples,
			path = EXCLUDED.path,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at`,
			rec.ID, rec.Format, shapes, pq.Array(rec.Classes), rec.NumClasses,
			rec.TrainSamples, rec.TestSamples, rec.Path, rec.UpdatedAt,
		).Scan(&rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("upserting dataset %s: %w", rec.ID, err)
		}
		return nil
	})
}

// Get returns the record for id, or DatasetNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*ingestion.DatasetRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM datasets WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Failure(apperrors.ErrDatasetNotFound, "dataset %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying dataset %s: %w", id, err)
	}
	return rec, nil
}

// List returns records ordered by most recent update.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*ingestion.DatasetRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM datasets ORDER BY updated_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}
	defer rows.Close()

	records := make([]*ingestion.DatasetRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning dataset row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*ingestion.DatasetRecord, error) {
	var (
		rec    ingestion.DatasetRecord
		shapes []byte
	)
	err := s.Scan(&rec.ID, &rec.Format, &shapes, pq.Array(&rec.Classes), &rec.NumClasses,
		&rec.TrainSamples, &rec.TestSamples, &rec.Path, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shapes, &rec.Shapes); err != nil {
		return nil, fmt.Errorf("decoding shapes: %w", err)
	}
	return &rec, nil
}
