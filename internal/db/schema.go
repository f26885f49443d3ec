package db

import (
	"database/sql"
	"fmt"
)

// SchemaSQL is the complete schema for fresh index databases.
// This schema reflects the current state after all migrations.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. Tests load it
// through GetSchemaSQL() instead of declaring their own tables. When adding
// columns, add a migration in migrations.go and update SchemaSQL here.
const SchemaSQL = `
-- Index metadata (one row per database)
CREATE TABLE IF NOT EXISTS index_meta (
	id INTEGER PRIMARY KEY CHECK(id = 1),
	root TEXT NOT NULL,
	built_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Acquisitions (one row per dataset file)
CREATE TABLE IF NOT EXISTS acquisitions (
	rel_path TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	subject TEXT NOT NULL,
	session TEXT NOT NULL DEFAULT '',
	datatype TEXT NOT NULL,
	task TEXT NOT NULL DEFAULT '',
	acquisition TEXT NOT NULL DEFAULT '',
	run TEXT NOT NULL DEFAULT '',
	run_number INTEGER,
	direction TEXT NOT NULL DEFAULT '',
	suffix TEXT NOT NULL,
	extension TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_acquisitions_session ON acquisitions(subject, session);
CREATE INDEX IF NOT EXISTS idx_acquisitions_datatype ON acquisitions(datatype);
`

// InitSchema creates the database schema or migrates an existing one.
func InitSchema(db *sql.DB) error {
	var tableCount int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount > 0 {
		return RunMigrations(db)
	}

	// Fresh database - create the current schema and mark every migration applied.
	if _, err := db.Exec(SchemaSQL); err != nil {
		return err
	}
	if _, err := db.Exec(schemaVersionSQL); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
