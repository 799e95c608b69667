package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobRecord is the persisted state of one generation job. Only job state is
// stored; generation logic and patient data never touch the database.
type JobRecord struct {
	ID         uuid.UUID
	Status     string
	Phase      string
	Progress   float64
	ConfigHash string
	Records    int
	ResultPath string
	ErrorKind  string
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// JobStore persists job metadata.
type JobStore interface {
	Save(ctx context.Context, rec JobRecord) error
	Update(ctx context.Context, rec JobRecord) error
	Get(ctx context.Context, id uuid.UUID) (JobRecord, error)
	List(ctx context.Context, limit int) ([]JobRecord, error)
}

// PostgresStore is the lib/pq backed job store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the jobs table if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id UUID PRIMARY KEY,
			status TEXT NOT NULL,
			phase TEXT NOT NULL DEFAULT '',
			progress DOUBLE PRECISION NOT NULL DEFAULT 0,
			config_hash TEXT NOT NULL DEFAULT '',
			records INTEGER NOT NULL DEFAULT 0,
			result_path TEXT NOT NULL DEFAULT '',
			error_kind TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}
	return nil
}

// Save inserts a new job row.
func (s *PostgresStore) Save(ctx context.Context, rec JobRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, status, phase, progress, config_hash, records, result_path, error_kind, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.Status, rec.Phase, rec.Progress, rec.ConfigHash, rec.Records,
		rec.ResultPath, rec.ErrorKind, rec.Error, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", rec.ID, err)
	}
	return nil
}

// Update rewrites the mutable columns of a job row.
func (s *PostgresStore) Update(ctx context.Context, rec JobRecord) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $2, phase = $3, progress = $4, records = $5,
			result_path = $6, error_kind = $7, error = $8, updated_at = $9
		WHERE id = $1`,
		rec.ID, rec.Status, rec.Phase, rec.Progress, rec.Records,
		rec.ResultPath, rec.ErrorKind, rec.Error, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", rec.ID, err)
	}
	return nil
}

// Get loads one job row.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (JobRecord, error) {
	var rec JobRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, phase, progress, config_hash, records, result_path, error_kind, error, created_at, updated_at
		FROM jobs WHERE id = $1`, id).Scan(
		&rec.ID, &rec.Status, &rec.Phase, &rec.Progress, &rec.ConfigHash, &rec.Records,
		&rec.ResultPath, &rec.ErrorKind, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return JobRecord{}, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	return rec, nil
}

// List returns the most recent jobs.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, phase, progress, config_hash, records, result_path, error_kind, error, created_at, updated_at
		FROM jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var recs []JobRecord
	for rows.Next() {
		var rec JobRecord
		if err := rows.Scan(&rec.ID, &rec.Status, &rec.Phase, &rec.Progress, &rec.ConfigHash,
			&rec.Records, &rec.ResultPath, &rec.ErrorKind, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
