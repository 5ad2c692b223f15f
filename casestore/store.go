// Package casestore implements the per-case storage engine: an embedded,
// column-family-structured key-value store (SQLite tables standing in
// for RocksDB-style column families, since every case already gets its
// own database file and is therefore physically isolated from every
// other case) with cascading delete, on-demand compaction, schema
// migration, and serialization.
package casestore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Store wraps the SQLite database backing a single case.
type Store struct {
	db       *sql.DB
	path     string
	denseDim int
	logger   *slog.Logger
}

// Open opens (or creates) the case database at path, creating the schema
// and running any pending migrations. denseDim must match the configured
// dense embedding model dimension.
func Open(path string, denseDim int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("casestore: creating case directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("casestore: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("casestore: pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(denseDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("casestore: creating schema: %w", err)
	}

	// Tuning targets: ~128MB memory budget per open case (block cache
	// ~64MB, write buffer ~32MB x2, LZ4 upper levels / Zstd bottom level,
	// two background threads) are RocksDB-column-family concepts; their
	// SQLite analogue is the page cache and mmap size.
	if _, err := db.Exec("PRAGMA cache_size = -65536"); err != nil {
		slog.Debug("casestore: setting cache_size", "error", err)
	}
	if _, err := db.Exec("PRAGMA mmap_size = 134217728"); err != nil {
		slog.Debug("casestore: setting mmap_size", "error", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, path: path, denseDim: denseDim, logger: logger}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("casestore: running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for packages (bm25, graph, retrieval)
// that need direct column-family access beyond the CRUD surface below.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the case database's file path on disk.
func (s *Store) Path() string {
	return s.path
}

// DenseDim returns the configured dense embedding dimension.
func (s *Store) DenseDim() int {
	return s.denseDim
}

// SizeBytes returns the on-disk size of the case database (main file, WAL
// and shared-memory file), used by the storage-summary surface (spec §6.5).
func (s *Store) SizeBytes() (int64, error) {
	var total int64
	for _, suffix := range []string{"", "-wal", "-shm"} {
		info, err := os.Stat(s.path + suffix)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// Compact compacts the whole database: it checkpoints and truncates the
// WAL, runs PRAGMA optimize, and VACUUMs every table. It has no per-table
// scope and runs only when a caller invokes it; nothing in this package
// calls it after a document delete.
func (s *Store) Compact(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("casestore: wal checkpoint: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		s.logger.Warn("casestore: PRAGMA optimize failed", "error", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("casestore: vacuum: %w", err)
	}
	return nil
}

// GetMetadata reads a single key from the metadata column family.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetMetadata writes a single key to the metadata column family.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
