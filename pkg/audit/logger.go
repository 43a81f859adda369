// Package audit keeps a queryable SQLite log of the requests the service
// answered, with sensitive URL parameters redacted.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/reviewd/pkg/config"
	"github.com/pario-ai/reviewd/pkg/models"
)

// Logger writes and queries access entries in a dedicated SQLite database.
type Logger struct {
	db        *sql.DB
	retention int
	done      chan struct{}
	wg        sync.WaitGroup
	now       func() time.Time
}

// New opens the audit database, creates the schema and starts the
// retention loop.
func New(cfg config.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{
		db:        db,
		retention: cfg.RetentionDays,
		done:      make(chan struct{}),
		now:       time.Now,
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS access_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id  TEXT NOT NULL,
		method      TEXT NOT NULL,
		route       TEXT NOT NULL,
		url         TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		cache       TEXT NOT NULL DEFAULT '',
		client_hash TEXT NOT NULL DEFAULT '',
		latency_ms  INTEGER NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_access_request ON access_log(request_id)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_access_route ON access_log(route)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_access_created ON access_log(created_at)`)
	return err
}

// Log appends an entry. Request ids come from clients and are not unique, so
// every call adds a row. The URL is redacted again before it is written.
// A nil Logger discards entries.
func (l *Logger) Log(ctx context.Context, entry models.AccessEntry) error {
	if l == nil || l.db == nil {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO access_log
		(request_id, method, route, url, status_code, cache, client_hash, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.Method, entry.Route, RedactURL(entry.URL),
		entry.StatusCode, entry.Cache, entry.ClientHash, entry.LatencyMs,
		entry.CreatedAt.UTC(),
	)
	return err
}

// Query returns entries matching opts, newest first.
func (l *Logger) Query(ctx context.Context, opts models.AccessQueryOpts) ([]models.AccessEntry, error) {
	q := `SELECT id, request_id, method, route, url, status_code, cache, client_hash, latency_ms, created_at
		FROM access_log WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.Route != "" {
		q += " AND route = ?"
		args = append(args, opts.Route)
	}
	if opts.MinStatus > 0 {
		q += " AND status_code >= ?"
		args = append(args, opts.MinStatus)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UTC())
	}

	q += " ORDER BY created_at DESC, id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AccessEntry
	for rows.Next() {
		var e models.AccessEntry
		if err := rows.Scan(
			&e.ID, &e.RequestID, &e.Method, &e.Route, &e.URL, &e.StatusCode,
			&e.Cache, &e.ClientHash, &e.LatencyMs, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns request and server error counts grouped by route and day.
func (l *Logger) Stats(ctx context.Context) ([]models.AccessStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT route, date(created_at) AS day, count(*),
		        COALESCE(SUM(CASE WHEN status_code >= 500 THEN 1 ELSE 0 END), 0)
		 FROM access_log GROUP BY route, day ORDER BY day DESC, route`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AccessStat
	for rows.Next() {
		var s models.AccessStat
		var day sql.NullString
		if err := rows.Scan(&s.Route, &day, &s.Count, &s.Errors); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := l.now().AddDate(0, 0, -l.retention).UTC()
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM access_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}

// HashClient returns a short stable SHA-256 hex digest of a client address,
// so the log can group callers without storing their addresses.
func HashClient(addr string) string {
	h := sha256.Sum256([]byte(addr))
	return hex.EncodeToString(h[:8])
}
