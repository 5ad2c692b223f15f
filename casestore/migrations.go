package casestore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is a single, idempotent schema-restructuring step. Migrations
// never delete user data; they restructure it.
type migration struct {
	version     int
	description string
	apply       func(tx *sql.Tx) error
}

var migrations = []migration{
	{
		version:     1,
		description: "initial schema (applied via schemaSQL)",
		apply:       func(tx *sql.Tx) error { return nil },
	},
	{
		version:     2,
		description: "seed an empty case_map summary entry",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`INSERT OR IGNORE INTO case_map (key, value) VALUES ('summary', '{}')`)
			return err
		},
	},
}

// Migrate runs all pending schema migrations, recording each applied
// version in schema_version. If the database's recorded schema version is
// newer than the binary knows about, callers should treat that as the
// schema-version-future fatal error (checked by the registry before a
// case handle is even opened).
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		s.logger.Info("applying case schema migration", "version", m.version, "description", m.description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_version (version, description) VALUES (?, ?)",
			m.version, m.description); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.version, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&v); err != nil {
		slog.Debug("casestore: reading schema version failed, assuming 0", "error", err)
		return 0, err
	}
	return v, nil
}

// CurrentSchemaVersion is the schema version this build of casetrack
// understands. The registry fails startup loudly if a case or the
// registry database reports a version newer than this.
var CurrentSchemaVersion = len(migrations)
