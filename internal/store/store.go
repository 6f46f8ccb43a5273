// Package store persists the processing audit trail: one row per logical
// document, updated as it moves through the pipeline.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/tradefinlabs/docpipeline/constants"
)

// Record is one audit row.
type Record struct {
	ID                string
	Source            string
	DocumentID        string
	DocumentType      string
	Confidence        float64
	Status            constants.JobStatus
	SplitMethod       constants.SplitMethod
	PageRange         string
	ValidationStatus  constants.ValidationStatus
	SubmissionOutcome constants.SubmissionOutcome
	Error             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Store wraps the audit database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the audit database and ensures the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Warn("store.pragma_failed", "pragma", pragma, "error", err)
		}
	}
	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS processing_job (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		document_id TEXT NOT NULL,
		document_type TEXT,
		confidence REAL,
		status TEXT NOT NULL,
		split_method TEXT,
		page_range TEXT,
		validation_status TEXT,
		submission_outcome TEXT,
		error TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_job_source ON processing_job(source);
	CREATE INDEX IF NOT EXISTS idx_job_status ON processing_job(status, updated_at);`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Create inserts a new job row in QUEUED state and returns its id.
func (s *Store) Create(ctx context.Context, source, documentID string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processing_job (id, source, document_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, source, documentID, constants.JobStatusQueued, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	return id, nil
}

// Update rewrites the mutable columns of one job row.
func (s *Store) Update(ctx context.Context, rec Record) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE processing_job SET
			document_type = ?, confidence = ?, status = ?, split_method = ?,
			page_range = ?, validation_status = ?, submission_outcome = ?,
			error = ?, updated_at = ?
		 WHERE id = ?`,
		rec.DocumentType, rec.Confidence, rec.Status, rec.SplitMethod,
		rec.PageRange, rec.ValidationStatus, rec.SubmissionOutcome,
		rec.Error, time.Now().UTC(), rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", rec.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update job %s: no such row", rec.ID)
	}
	return nil
}

// SetStatus moves one job to a new status, optionally recording an error.
func (s *Store) SetStatus(ctx context.Context, id string, status constants.JobStatus, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE processing_job SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set status for %s: %w", id, err)
	}
	return nil
}

// BySource returns all job rows for one source file, oldest first.
func (s *Store) BySource(ctx context.Context, source string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, document_id,
			COALESCE(document_type, ''), COALESCE(confidence, 0), status,
			COALESCE(split_method, ''), COALESCE(page_range, ''),
			COALESCE(validation_status, ''), COALESCE(submission_outcome, ''),
			COALESCE(error, ''), created_at, updated_at
		 FROM processing_job WHERE source = ? ORDER BY created_at, rowid`,
		source,
	)
	if err != nil {
		return nil, fmt.Errorf("query jobs for %s: %w", source, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.Source, &rec.DocumentID,
			&rec.DocumentType, &rec.Confidence, &rec.Status,
			&rec.SplitMethod, &rec.PageRange,
			&rec.ValidationStatus, &rec.SubmissionOutcome,
			&rec.Error, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
