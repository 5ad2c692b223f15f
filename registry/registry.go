// Package registry implements the process-wide case registry: the single
// database that tracks every case CaseTrack knows about, which case is
// currently active, and the schema version each case's database was last
// opened with. It is deliberately separate from casestore — the registry
// itself never holds document, chunk, or graph data, only bookkeeping.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/casetrack/casetrack/casestore"
)

// ErrSchemaVersionFuture is returned when a case (or the registry itself)
// reports a schema version newer than this build of casetrack understands.
// Opening such a case must fail loudly rather than silently truncate or
// misinterpret data it doesn't recognize.
var ErrSchemaVersionFuture = fmt.Errorf("registry: schema version is newer than this build supports")

// ErrCaseNotFound is returned by lookups for an unknown case id.
var ErrCaseNotFound = fmt.Errorf("registry: case not found")

// ErrNoActiveCase is returned when an operation requires an active case
// and none has been set.
var ErrNoActiveCase = fmt.Errorf("registry: no active case")

// Registry owns the registry.db database and the on-disk directory holding
// every case's casestore file.
type Registry struct {
	db      *sql.DB
	baseDir string
	logger  *slog.Logger
}

// Open opens (or creates) the registry at baseDir/registry.db, resolving
// baseDir the same way the underlying engine resolves its own storage
// directory: an explicit path if given, otherwise ~/.casetrack.
func Open(baseDir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			baseDir = ".casetrack"
		} else {
			baseDir = filepath.Join(home, ".casetrack")
		}
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "cases"), 0755); err != nil {
		return nil, fmt.Errorf("registry: creating base directory: %w", err)
	}

	dbPath := filepath.Join(baseDir, "registry.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("registry: opening registry database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: pinging registry database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: creating registry schema: %w", err)
	}

	var current int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: reading registry schema version: %w", err)
	}
	if current > registrySchemaVersion {
		db.Close()
		return nil, fmt.Errorf("%w: registry reports version %d, this build supports up to %d",
			ErrSchemaVersionFuture, current, registrySchemaVersion)
	}
	if current < registrySchemaVersion {
		if _, err := db.Exec("INSERT INTO schema_version (version, description) VALUES (?, ?)",
			registrySchemaVersion, "initial registry schema"); err != nil {
			db.Close()
			return nil, fmt.Errorf("registry: recording registry schema version: %w", err)
		}
	}

	return &Registry{db: db, baseDir: baseDir, logger: logger}, nil
}

// registrySchemaVersion is the schema version of the registry database
// itself (distinct from casestore.CurrentSchemaVersion, which governs
// individual case databases).
const registrySchemaVersion = 1

// Close closes the registry database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// BaseDir returns the directory the registry and all case files live under.
func (r *Registry) BaseDir() string {
	return r.baseDir
}

// CreateCase registers a new case and materializes its casestore database
// file at baseDir/cases/<id>.db. denseDim must match the configured dense
// embedding model dimension used by every case in this installation.
func (r *Registry) CreateCase(ctx context.Context, name, description string, denseDim int) (Case, error) {
	id := uuid.NewString()
	dbPath := filepath.Join(r.baseDir, "cases", id+".db")

	store, err := casestore.Open(dbPath, denseDim, r.logger)
	if err != nil {
		return Case{}, fmt.Errorf("registry: creating case database: %w", err)
	}
	if err := store.Close(); err != nil {
		return Case{}, fmt.Errorf("registry: closing freshly created case database: %w", err)
	}

	now := time.Now()
	c := Case{
		ID:            id,
		Name:          name,
		Description:   description,
		DBPath:        dbPath,
		SchemaVersion: casestore.CurrentSchemaVersion,
		Status:        "active",
		CreatedAt:     now,
		UpdatedAt:     now,
		LastAccessed:  now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cases (id, name, description, db_path, schema_version, status, created_at, updated_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Description, c.DBPath, c.SchemaVersion, c.Status, c.CreatedAt, c.UpdatedAt, c.LastAccessed)
	if err != nil {
		os.Remove(dbPath)
		return Case{}, fmt.Errorf("registry: recording case: %w", err)
	}

	r.logger.Info("case created", "case_id", c.ID, "name", c.Name)
	return c, nil
}

const caseColumns = `id, name, description, db_path, schema_version, status, created_at, updated_at, last_accessed`

func scanCase(row interface{ Scan(...any) error }) (Case, error) {
	var c Case
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.DBPath, &c.SchemaVersion, &c.Status,
		&c.CreatedAt, &c.UpdatedAt, &c.LastAccessed); err != nil {
		return Case{}, err
	}
	return c, nil
}

// GetCase fetches a case by id.
func (r *Registry) GetCase(ctx context.Context, id string) (Case, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+caseColumns+" FROM cases WHERE id = ?", id)
	c, err := scanCase(row)
	if err == sql.ErrNoRows {
		return Case{}, ErrCaseNotFound
	}
	if err != nil {
		return Case{}, err
	}
	return c, nil
}

// ListCases returns every known case, most recently accessed first.
func (r *Registry) ListCases(ctx context.Context) ([]Case, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+caseColumns+" FROM cases ORDER BY last_accessed DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RenameCase updates a case's display name and description.
func (r *Registry) RenameCase(ctx context.Context, id, name, description string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE cases SET name = ?, description = ?, updated_at = ? WHERE id = ?",
		name, description, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRowAffected(res, ErrCaseNotFound)
}

// ArchiveCase marks a case archived and compacts its database, shrinking
// it to the minimum footprint for long-term storage.
func (r *Registry) ArchiveCase(ctx context.Context, id string, denseDim int) error {
	c, err := r.GetCase(ctx, id)
	if err != nil {
		return err
	}
	store, err := casestore.Open(c.DBPath, denseDim, r.logger)
	if err != nil {
		return fmt.Errorf("registry: opening case for archival: %w", err)
	}
	defer store.Close()
	if err := store.Compact(ctx); err != nil {
		return fmt.Errorf("registry: compacting archived case: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE cases SET status = 'archived', updated_at = ? WHERE id = ?", time.Now(), id)
	if err != nil {
		return err
	}
	return requireRowAffected(res, ErrCaseNotFound)
}

// DeleteCase removes a case's registry entry and its on-disk database
// files (main file, WAL, and shared-memory index).
func (r *Registry) DeleteCase(ctx context.Context, id string) error {
	c, err := r.GetCase(ctx, id)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM cases WHERE id = ?", id); err != nil {
		return fmt.Errorf("registry: removing case record: %w", err)
	}

	var activeID sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT case_id FROM active_case WHERE id = 1").Scan(&activeID); err == nil {
		if activeID.Valid && activeID.String == id {
			r.db.ExecContext(ctx, "UPDATE active_case SET case_id = NULL WHERE id = 1")
		}
	}

	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(c.DBPath + suffix); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("registry: failed to remove case file", "path", c.DBPath+suffix, "error", err)
		}
	}
	return nil
}

// SetActiveCase marks a case as the active case for subsequent tool-surface
// operations.
func (r *Registry) SetActiveCase(ctx context.Context, id string) error {
	if _, err := r.GetCase(ctx, id); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, "UPDATE active_case SET case_id = ? WHERE id = 1", id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "UPDATE cases SET last_accessed = ? WHERE id = ?", time.Now(), id)
	return err
}

// ActiveCaseID returns the id of the currently active case, or
// ErrNoActiveCase if none has been set.
func (r *Registry) ActiveCaseID(ctx context.Context) (string, error) {
	var id sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT case_id FROM active_case WHERE id = 1").Scan(&id); err != nil {
		return "", err
	}
	if !id.Valid || id.String == "" {
		return "", ErrNoActiveCase
	}
	return id.String, nil
}

// OpenCase resolves a case id to a live casestore.Store, enforcing the
// schema-version-future invariant and transparently backing up and
// migrating databases left behind by an older build.
//
// If the case's recorded schema version is newer than
// casestore.CurrentSchemaVersion, this fails with ErrSchemaVersionFuture
// without touching the file — an older casetrack binary must never
// attempt to read or migrate a database written by a newer one.
//
// If the case's recorded schema version is older, the database file (and
// its WAL/SHM siblings) are copied to a "<path>.bak.v<old>" backup before
// casestore.Open runs the pending migrations, so a failed or unwanted
// migration can always be rolled back by hand.
func (r *Registry) OpenCase(ctx context.Context, id string, denseDim int) (*casestore.Store, error) {
	c, err := r.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.SchemaVersion > casestore.CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: case %s is at schema version %d, this build supports up to %d",
			ErrSchemaVersionFuture, id, c.SchemaVersion, casestore.CurrentSchemaVersion)
	}

	if c.SchemaVersion < casestore.CurrentSchemaVersion {
		if err := backupCaseFiles(c.DBPath, c.SchemaVersion); err != nil {
			return nil, fmt.Errorf("registry: backing up case before migration: %w", err)
		}
		r.logger.Info("migrating case schema",
			"case_id", id, "from_version", c.SchemaVersion, "to_version", casestore.CurrentSchemaVersion)
	}

	store, err := casestore.Open(c.DBPath, denseDim, r.logger)
	if err != nil {
		return nil, fmt.Errorf("registry: opening case database: %w", err)
	}

	if c.SchemaVersion != casestore.CurrentSchemaVersion {
		if _, err := r.db.ExecContext(ctx, "UPDATE cases SET schema_version = ? WHERE id = ?",
			casestore.CurrentSchemaVersion, id); err != nil {
			store.Close()
			return nil, fmt.Errorf("registry: recording migrated schema version: %w", err)
		}
	}
	if _, err := r.db.ExecContext(ctx, "UPDATE cases SET last_accessed = ? WHERE id = ?", time.Now(), id); err != nil {
		r.logger.Warn("registry: failed to update last_accessed", "case_id", id, "error", err)
	}

	return store, nil
}

// backupCaseFiles copies the case database and its WAL/SHM siblings to
// "<path>.bak.v<version>" files before a migration runs. Existing backups
// for the same version are left untouched rather than overwritten, so a
// repeated failed-open attempt cannot destroy the one good backup taken.
func backupCaseFiles(dbPath string, version int) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		src := dbPath + suffix
		info, err := os.Stat(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		dst := fmt.Sprintf("%s.bak.v%d%s", dbPath, version, suffix)
		if _, err := os.Stat(dst); err == nil {
			continue // backup for this version already exists
		}
		if err := copyFile(src, dst, info.Mode()); err != nil {
			return fmt.Errorf("backing up %s: %w", src, err)
		}
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, mode)
}

func requireRowAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
