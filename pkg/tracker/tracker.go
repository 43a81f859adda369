package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/reviewd/pkg/models"
)

// Tracker records and queries upstream review fetches.
type Tracker interface {
	// Record stores a fetch record.
	Record(ctx context.Context, rec models.FetchRecord) error
	// Recent returns the latest fetch records, newest first.
	Recent(ctx context.Context, limit int) ([]models.FetchRecord, error)
	// CountSince counts fetches since a given time. An empty outcome counts all.
	CountSince(ctx context.Context, since time.Time, outcome models.FetchOutcome) (int64, error)
	// Summary aggregates the whole log.
	Summary(ctx context.Context) (models.FetchSummary, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS fetch_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	review_count INTEGER NOT NULL DEFAULT 0,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_fetch_time ON fetch_records(created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores a fetch record.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.FetchRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO fetch_records (account, location, outcome, review_count, latency_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Account, rec.Location, string(rec.Outcome), rec.ReviewCount, rec.LatencyMs, rec.Error, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record fetch: %w", err)
	}
	return nil
}

// Recent returns the latest fetch records, newest first.
func (t *SQLiteTracker) Recent(ctx context.Context, limit int) ([]models.FetchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, account, location, outcome, review_count, latency_ms, error, created_at
		 FROM fetch_records ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent fetches: %w", err)
	}
	defer rows.Close()

	var records []models.FetchRecord
	for rows.Next() {
		var r models.FetchRecord
		var outcome string
		if err := rows.Scan(&r.ID, &r.Account, &r.Location, &outcome, &r.ReviewCount, &r.LatencyMs, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fetch: %w", err)
		}
		r.Outcome = models.FetchOutcome(outcome)
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountSince counts fetches since a given time, optionally filtered by outcome.
func (t *SQLiteTracker) CountSince(ctx context.Context, since time.Time, outcome models.FetchOutcome) (int64, error) {
	query := `SELECT COUNT(*) FROM fetch_records WHERE created_at >= ?`
	args := []any{since.UTC()}
	if outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, string(outcome))
	}

	var n int64
	if err := t.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count fetches: %w", err)
	}
	return n, nil
}

// Summary aggregates the whole fetch log.
func (t *SQLiteTracker) Summary(ctx context.Context) (models.FetchSummary, error) {
	var s models.FetchSummary
	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN outcome = 'ok' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN outcome = 'error' THEN 1 ELSE 0 END), 0)
		 FROM fetch_records`,
	).Scan(&s.Total, &s.Succeeded, &s.Failed)
	if err != nil {
		return s, fmt.Errorf("summary: %w", err)
	}

	if s.LastSuccess, err = t.lastAt(ctx, models.FetchOK); err != nil {
		return s, err
	}
	if s.LastFailure, err = t.lastAt(ctx, models.FetchError); err != nil {
		return s, err
	}
	return s, nil
}

func (t *SQLiteTracker) lastAt(ctx context.Context, outcome models.FetchOutcome) (*time.Time, error) {
	var at time.Time
	err := t.db.QueryRowContext(ctx,
		`SELECT created_at FROM fetch_records WHERE outcome = ? ORDER BY created_at DESC LIMIT 1`,
		string(outcome),
	).Scan(&at)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last %s fetch: %w", outcome, err)
	}
	return &at, nil
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
