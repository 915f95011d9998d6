package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SchemaVersion is the schema version this binary understands. The store
// refuses to serve queries against a database whose schema_version in meta
// is newer than this.
const SchemaVersion = 1

const initialSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS graph_versions (
	id INTEGER PRIMARY KEY,
	created INTEGER NOT NULL,
	commit_sha TEXT
);

CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY,
	path TEXT NOT NULL UNIQUE,
	content_hash TEXT NOT NULL,
	language TEXT NOT NULL,
	size INTEGER NOT NULL,
	modified_at INTEGER NOT NULL,
	deleted_version INTEGER,
	graph_version INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS symbols (
	id INTEGER PRIMARY KEY,
	file_id INTEGER NOT NULL,
	stable_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	qualname TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	start_col INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	end_col INTEGER NOT NULL,
	start_byte INTEGER NOT NULL,
	end_byte INTEGER NOT NULL,
	signature TEXT,
	docstring TEXT,
	graph_version INTEGER NOT NULL DEFAULT 1,
	commit_sha TEXT,
	FOREIGN KEY(file_id) REFERENCES files(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_qualname ON symbols(qualname);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_stable_id ON symbols(stable_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name_kind ON symbols(name, kind);
CREATE INDEX IF NOT EXISTS idx_symbols_graph_version ON symbols(graph_version);

CREATE TABLE IF NOT EXISTS edges (
	id INTEGER PRIMARY KEY,
	file_id INTEGER NOT NULL,
	source_symbol_id INTEGER,
	target_symbol_id INTEGER,
	kind TEXT NOT NULL,
	target_qualname TEXT,
	detail TEXT,
	evidence_snippet TEXT,
	evidence_start_line INTEGER,
	evidence_end_line INTEGER,
	confidence REAL,
	graph_version INTEGER NOT NULL DEFAULT 1,
	commit_sha TEXT,
	trace_id TEXT,
	span_id TEXT,
	event_ts INTEGER,
	FOREIGN KEY(file_id) REFERENCES files(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_symbol_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_symbol_id);
CREATE INDEX IF NOT EXISTS idx_edges_file ON edges(file_id);
CREATE INDEX IF NOT EXISTS idx_edges_graph_version ON edges(graph_version);
CREATE INDEX IF NOT EXISTS idx_edges_target_qualname ON edges(target_qualname);
CREATE INDEX IF NOT EXISTS idx_edges_trace ON edges(trace_id);
CREATE INDEX IF NOT EXISTS idx_edges_event_ts ON edges(event_ts);

CREATE TABLE IF NOT EXISTS file_metrics (
	id INTEGER PRIMARY KEY,
	file_id INTEGER NOT NULL UNIQUE,
	loc INTEGER NOT NULL,
	blank_lines INTEGER NOT NULL,
	comment_lines INTEGER NOT NULL,
	code_lines INTEGER NOT NULL,
	graph_version INTEGER NOT NULL DEFAULT 1,
	FOREIGN KEY(file_id) REFERENCES files(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_file_metrics_file ON file_metrics(file_id);

CREATE TABLE IF NOT EXISTS symbol_metrics (
	id INTEGER PRIMARY KEY,
	symbol_id INTEGER NOT NULL UNIQUE,
	file_id INTEGER NOT NULL,
	loc INTEGER NOT NULL,
	cyclomatic_complexity INTEGER NOT NULL,
	duplication_hash TEXT,
	graph_version INTEGER NOT NULL DEFAULT 1,
	FOREIGN KEY(symbol_id) REFERENCES symbols(id) ON DELETE CASCADE,
	FOREIGN KEY(file_id) REFERENCES files(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_symbol_metrics_file ON symbol_metrics(file_id);
CREATE INDEX IF NOT EXISTS idx_symbol_metrics_complexity ON symbol_metrics(cyclomatic_complexity);
CREATE INDEX IF NOT EXISTS idx_symbol_metrics_dup ON symbol_metrics(duplication_hash);

CREATE TABLE IF NOT EXISTS diagnostics (
	id INTEGER PRIMARY KEY,
	diagnostic_hash TEXT NOT NULL,
	path TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	severity TEXT NOT NULL,
	message TEXT NOT NULL,
	rule TEXT,
	tool TEXT NOT NULL,
	snippet TEXT,
	created_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_diagnostics_hash ON diagnostics(diagnostic_hash);
CREATE INDEX IF NOT EXISTS idx_diagnostics_path ON diagnostics(path);
CREATE INDEX IF NOT EXISTS idx_diagnostics_severity ON diagnostics(severity);
CREATE INDEX IF NOT EXISTS idx_diagnostics_rule ON diagnostics(rule);
CREATE INDEX IF NOT EXISTS idx_diagnostics_tool ON diagnostics(tool);

CREATE TABLE IF NOT EXISTS co_changes (
	id INTEGER PRIMARY KEY,
	file_a TEXT NOT NULL,
	file_b TEXT NOT NULL,
	co_change_count REAL NOT NULL DEFAULT 0,
	total_commits_a INTEGER NOT NULL DEFAULT 0,
	total_commits_b INTEGER NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 0.0,
	last_commit_sha TEXT,
	last_commit_ts INTEGER,
	mined_at INTEGER NOT NULL,
	UNIQUE(file_a, file_b)
);

CREATE INDEX IF NOT EXISTS idx_co_changes_file_a ON co_changes(file_a);
CREATE INDEX IF NOT EXISTS idx_co_changes_file_b ON co_changes(file_b);
CREATE INDEX IF NOT EXISTS idx_co_changes_confidence ON co_changes(confidence DESC);
`

// migrate creates the schema if absent and runs additive steps gated on
// meta.schema_version, mirroring the reference implementation's migration
// history (db/migrations.rs) collapsed into this binary's single understood
// version. A future schema change adds a new "if existing < N" block here;
// existing rows are never dropped, only backfilled or deduplicated by a new
// unique key.
func migrate(db *sqlx.DB) error {
	if _, err := db.Exec(initialSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	existing, err := schemaVersion(db)
	if err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	if existing > SchemaVersion {
		return fmt.Errorf("database schema_version %d is newer than this binary understands (%d)", existing, SchemaVersion)
	}

	if existing < SchemaVersion {
		_, err := db.Exec(
			`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			fmt.Sprintf("%d", SchemaVersion),
		)
		if err != nil {
			return fmt.Errorf("write schema_version: %w", err)
		}
	}

	return ensureGraphVersion(db)
}

func schemaVersion(db *sqlx.DB) (int64, error) {
	var value string
	err := db.Get(&value, `SELECT value FROM meta WHERE key = 'schema_version'`)
	if err != nil {
		return 0, nil
	}
	var version int64
	_, err = fmt.Sscanf(value, "%d", &version)
	return version, err
}

// ensureGraphVersion guarantees graph_versions has at least one row so
// CurrentGraphVersion() always has something to return on a fresh database.
func ensureGraphVersion(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM graph_versions`); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := db.Exec(`INSERT INTO graph_versions (id, created, commit_sha) VALUES (1, strftime('%s','now'), NULL)`)
	return err
}

// hasColumn reports whether a table has the named column, used by future
// additive migrations the same way the reference implementation's
// has_column helper is used.
func hasColumn(db *sqlx.DB, table, column string) (bool, error) {
	rows, err := db.Queryx(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		cols, err := rows.SliceScan()
		if err != nil {
			return false, err
		}
		if len(cols) > 1 {
			if name, ok := cols[1].(string); ok && name == column {
				return true, nil
			}
		}
	}
	return false, rows.Err()
}
