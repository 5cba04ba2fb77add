package storage

import "database/sql"

// migrateV001 creates the run and fetch tables with their indexes.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			started_at  DATETIME NOT NULL,
			finished_at DATETIME,
			sources     INTEGER NOT NULL DEFAULT 0,
			failed      INTEGER NOT NULL DEFAULT 0,
			appended    BOOLEAN NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS fetches (
			id         TEXT PRIMARY KEY,
			run_id     TEXT REFERENCES runs(id) ON DELETE CASCADE,
			ts         DATETIME NOT NULL,
			source     TEXT NOT NULL,
			kind       TEXT NOT NULL DEFAULT 'page',
			url        TEXT NOT NULL,
			domain     TEXT NOT NULL DEFAULT '',
			status     INTEGER NOT NULL DEFAULT 0,
			bytes      INTEGER NOT NULL DEFAULT 0,
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			fields     INTEGER NOT NULL DEFAULT 0,
			error      TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_fetches_ts        ON fetches(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_source    ON fetches(source)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_domain    ON fetches(domain)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_run       ON fetches(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started      ON runs(started_at)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// migrateV002 adds the per-fetch count of rules that matched nothing.
func migrateV002(tx *sql.Tx) error {
	_, err := tx.Exec(`ALTER TABLE fetches ADD COLUMN misses INTEGER NOT NULL DEFAULT 0`)
	return err
}
