package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a fetch or run does not exist.
var ErrNotFound = errors.New("not found")

// Journal records every fetch made while harvesting sources.
type Journal interface {
	StartRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	AddFetch(ctx context.Context, f *Fetch) error
	GetFetch(ctx context.Context, id string) (*Fetch, error)
	SearchFetches(ctx context.Context, q SearchQuery) ([]Fetch, error)
	PruneExpired(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// tsLayout is fixed width so that stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000Z07:00"

const fetchColumns = `id, COALESCE(run_id, ''), ts, source, kind, url, domain, status, bytes, elapsed_ms, fields, misses, error`

// SQLiteJournal implements Journal backed by a SQLite database.
type SQLiteJournal struct {
	db *sql.DB

	insertRun   *sql.Stmt
	finishRun   *sql.Stmt
	insertFetch *sql.Stmt
	getFetch    *sql.Stmt
}

// NewSQLiteJournal creates a journal from an already-opened and migrated database.
func NewSQLiteJournal(db *sql.DB) (*SQLiteJournal, error) {
	j := &SQLiteJournal{db: db}
	if err := j.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return j, nil
}

// OpenJournal opens the SQLite file at path, runs migrations and returns
// the journal together with the database handle the caller must close.
func OpenJournal(path string) (*SQLiteJournal, *sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	if err := NewMigrationRunner(db).Run(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	j, err := NewSQLiteJournal(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return j, db, nil
}

func (j *SQLiteJournal) prepareStatements() error {
	var err error

	j.insertRun, err = j.db.Prepare(`
		INSERT INTO runs (id, started_at, sources) VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}

	j.finishRun, err = j.db.Prepare(`
		UPDATE runs SET finished_at = ?, sources = ?, failed = ?, appended = ? WHERE id = ?
	`)
	if err != nil {
		return err
	}

	j.insertFetch, err = j.db.Prepare(`
		INSERT INTO fetches (id, run_id, ts, source, kind, url, domain, status, bytes, elapsed_ms, fields, misses, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	j.getFetch, err = j.db.Prepare(`SELECT ` + fetchColumns + ` FROM fetches WHERE id = ?`)
	return err
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		tsLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// extractDomain pulls the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// StartRun inserts a run, assigning an ID and start time when missing.
func (j *SQLiteJournal) StartRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if _, err := j.insertRun.ExecContext(ctx, run.ID, formatTimestamp(run.StartedAt), run.Sources); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run started with StartRun.
func (j *SQLiteJournal) FinishRun(ctx context.Context, run *Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	res, err := j.finishRun.ExecContext(ctx,
		formatTimestamp(run.FinishedAt), run.Sources, run.Failed, run.Appended, run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// AddFetch inserts a fetch. ID, Domain and Timestamp are filled in when empty.
func (j *SQLiteJournal) AddFetch(ctx context.Context, f *Fetch) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Domain == "" {
		f.Domain = extractDomain(f.URL)
	}
	if f.Kind == "" {
		f.Kind = KindPage
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}

	_, err := j.insertFetch.ExecContext(ctx,
		f.ID, nullable(f.RunID), formatTimestamp(f.Timestamp), f.Source, f.Kind, f.URL, f.Domain,
		f.Status, f.Bytes, f.Elapsed.Milliseconds(), f.Fields, f.Misses, f.Error,
	)
	if err != nil {
		return fmt.Errorf("insert fetch: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFetch(row rowScanner) (Fetch, error) {
	var f Fetch
	var ts string
	var elapsedMS int64
	err := row.Scan(
		&f.ID, &f.RunID, &ts, &f.Source, &f.Kind, &f.URL, &f.Domain,
		&f.Status, &f.Bytes, &elapsedMS, &f.Fields, &f.Misses, &f.Error,
	)
	if err != nil {
		return Fetch{}, err
	}
	f.Timestamp, _ = parseTimestamp(ts)
	f.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return f, nil
}

// GetFetch retrieves a single fetch by ID.
func (j *SQLiteJournal) GetFetch(ctx context.Context, id string) (*Fetch, error) {
	f, err := scanFetch(j.getFetch.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fetch %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get fetch: %w", err)
	}
	return &f, nil
}

// SearchFetches returns fetches matching every filter, newest first.
func (j *SQLiteJournal) SearchFetches(ctx context.Context, q SearchQuery) ([]Fetch, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	var clauses []string
	var args []any

	if q.Query != "" {
		clauses = append(clauses, "url LIKE ?")
		args = append(args, "%"+q.Query+"%")
	}
	if q.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, q.Source)
	}
	if q.Domain != "" {
		clauses = append(clauses, "domain = ?")
		args = append(args, q.Domain)
	}
	if q.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, q.RunID)
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "ts >= ?")
		args = append(args, formatTimestamp(q.Since))
	}
	if !q.Until.IsZero() {
		clauses = append(clauses, "ts <= ?")
		args = append(args, formatTimestamp(q.Until))
	}
	if q.FailedOnly {
		clauses = append(clauses, "error != ''")
	}

	query := `SELECT ` + fetchColumns + ` FROM fetches`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY ts DESC LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fetches: %w", err)
	}
	defer rows.Close()

	fetches := []Fetch{}
	for rows.Next() {
		f, err := scanFetch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fetch: %w", err)
		}
		fetches = append(fetches, f)
	}
	return fetches, rows.Err()
}

// PruneExpired deletes fetches and runs older than olderThan. It returns the
// number of fetches removed.
func (j *SQLiteJournal) PruneExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	cutoff := formatTimestamp(olderThan)

	res, err := j.db.ExecContext(ctx, "DELETE FROM fetches WHERE ts < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune fetches: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := j.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff); err != nil {
		return n, fmt.Errorf("prune runs: %w", err)
	}
	return n, nil
}

// CountExpired returns how many fetches PruneExpired would remove.
func (j *SQLiteJournal) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fetches WHERE ts < ?", formatTimestamp(olderThan)).Scan(&n)
	return n, err
}

// PurgeAll deletes every fetch and run.
func (j *SQLiteJournal) PurgeAll(ctx context.Context) error {
	for _, stmt := range []string{"DELETE FROM fetches", "DELETE FROM runs"} {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// GetStats returns aggregate statistics about the journal.
func (j *SQLiteJournal) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	var avgMS sql.NullFloat64
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(error != ''), 0), AVG(elapsed_ms) FROM fetches",
	).Scan(&stats.TotalFetches, &stats.FailedFetches, &avgMS)
	if err != nil {
		return nil, fmt.Errorf("count fetches: %w", err)
	}
	stats.AvgElapsed = time.Duration(avgMS.Float64 * float64(time.Millisecond))

	if stats.TotalFetches > 0 {
		var oldest, newest string
		err = j.db.QueryRowContext(ctx, "SELECT MIN(ts), MAX(ts) FROM fetches").Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("fetch time range: %w", err)
		}
		stats.OldestFetch, _ = parseTimestamp(oldest)
		stats.NewestFetch, _ = parseTimestamp(newest)
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT source, COUNT(*) AS cnt, SUM(error != '')
		FROM fetches GROUP BY source ORDER BY cnt DESC, source LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("top sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Source, &sc.Count, &sc.Failed); err != nil {
			return nil, err
		}
		stats.TopSources = append(stats.TopSources, sc)
	}
	return stats, rows.Err()
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (j *SQLiteJournal) Close() error {
	for _, stmt := range []*sql.Stmt{j.insertRun, j.finishRun, j.insertFetch, j.getFetch} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
