// Package archive persists a record of every pipeline run to a local SQLite
// database: run identity, headline counts, and the full output document.
//
// The archive is an operational convenience, not part of the editing
// pipeline. A run that cannot be archived still succeeds; callers log the
// archive error and move on.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/veracall/veracall/pkg/types"
)

// ErrNotFound is returned when a run ID has no archived record.
var ErrNotFound = errors.New("archive: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id            TEXT PRIMARY KEY,
	transcript_id     TEXT NOT NULL,
	created_at        DATETIME NOT NULL,
	degraded          INTEGER NOT NULL,
	segments_total    INTEGER NOT NULL,
	segments_modified INTEGER NOT NULL,
	ops_applied       INTEGER NOT NULL,
	output_json       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_transcript ON runs(transcript_id);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Record summarises one archived pipeline run.
type Record struct {
	RunID            string
	TranscriptID     string
	CreatedAt        time.Time
	Degraded         bool
	SegmentsTotal    int
	SegmentsModified int
	OpsApplied       int
}

// Store is a SQLite-backed run archive. Safe for concurrent use; SQLite
// serialises writers internally.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the archive database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveRun archives one completed run and returns its generated run ID.
func (s *Store) SaveRun(ctx context.Context, out *types.OutputDocument, degraded bool) (string, error) {
	payload, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("archive: marshal output: %w", err)
	}

	var total, modified, ops int
	if tr := out.TransformationReport; tr != nil {
		total = tr.TotalSegments
		modified = tr.SegmentsModified
		for _, sr := range tr.Segments {
			ops += len(sr.Ops)
		}
	}

	runID := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, transcript_id, created_at, degraded, segments_total, segments_modified, ops_applied, output_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, out.TranscriptID, time.Now().UTC(), degraded, total, modified, ops, string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("archive: insert run: %w", err)
	}
	return runID, nil
}

// GetRun returns the record and archived output document for runID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Record, *types.OutputDocument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, transcript_id, created_at, degraded, segments_total, segments_modified, ops_applied, output_json
		FROM runs WHERE run_id = ?`, runID)

	var (
		rec     Record
		payload string
	)
	err := row.Scan(&rec.RunID, &rec.TranscriptID, &rec.CreatedAt, &rec.Degraded,
		&rec.SegmentsTotal, &rec.SegmentsModified, &rec.OpsApplied, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, runID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("archive: get run %q: %w", runID, err)
	}

	out := &types.OutputDocument{}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return nil, nil, fmt.Errorf("archive: unmarshal output for run %q: %w", runID, err)
	}
	return &rec, out, nil
}

// ListRuns returns up to limit run records, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, transcript_id, created_at, degraded, segments_total, segments_modified, ops_applied
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.RunID, &rec.TranscriptID, &rec.CreatedAt, &rec.Degraded,
			&rec.SegmentsTotal, &rec.SegmentsModified, &rec.OpsApplied); err != nil {
			return nil, fmt.Errorf("archive: scan run: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
