package registry

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/casetrack/casetrack/casestore"
)

// ErrSchemaVersionIncompatible is returned by ImportCase when an archive's
// manifest reports a schema version this build cannot open.
var ErrSchemaVersionIncompatible = fmt.Errorf("registry: archive schema version is incompatible with this build")

// exportManifest describes a .ctcase archive's contents, per spec §6.4.
type exportManifest struct {
	SchemaVersion int      `json:"schema_version"`
	CaseName      string   `json:"case_name"`
	Description   string   `json:"description,omitempty"`
	EmbedderIDs   []string `json:"embedder_ids,omitempty"`
	ExportedAt    string   `json:"exported_at"`
}

// ExportCase writes case id as a single .ctcase archive (a ZIP containing
// case.db and manifest.json) to destPath. The case is compacted first so
// the exported database is at its minimum footprint.
func (r *Registry) ExportCase(ctx context.Context, id, destPath string) error {
	c, err := r.GetCase(ctx, id)
	if err != nil {
		return err
	}

	store, err := casestore.Open(c.DBPath, 0, r.logger)
	if err != nil {
		return fmt.Errorf("registry: opening case for export: %w", err)
	}
	if err := store.Compact(ctx); err != nil {
		store.Close()
		return fmt.Errorf("registry: compacting case before export: %w", err)
	}
	docs, err := store.ListDocuments(ctx)
	if err != nil {
		store.Close()
		return fmt.Errorf("registry: listing documents for manifest: %w", err)
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("registry: closing case before export: %w", err)
	}

	embedderSeen := map[string]bool{}
	var embedderIDs []string
	for _, d := range docs {
		for _, eid := range d.EmbedderIDs {
			if !embedderSeen[eid] {
				embedderSeen[eid] = true
				embedderIDs = append(embedderIDs, eid)
			}
		}
	}

	manifest := exportManifest{
		SchemaVersion: c.SchemaVersion,
		CaseName:      c.Name,
		Description:   c.Description,
		EmbedderIDs:   embedderIDs,
		ExportedAt:    time.Now().UTC().Format("2006-01-02T15:04:05Z"),
	}
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encoding manifest: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("registry: creating archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	if err := writeZipFile(zw, "manifest.json", manifestBytes); err != nil {
		zw.Close()
		return fmt.Errorf("registry: writing manifest: %w", err)
	}
	dbBytes, err := os.ReadFile(c.DBPath)
	if err != nil {
		zw.Close()
		return fmt.Errorf("registry: reading case database: %w", err)
	}
	if err := writeZipFile(zw, "case.db", dbBytes); err != nil {
		zw.Close()
		return fmt.Errorf("registry: writing case database: %w", err)
	}
	return zw.Close()
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ImportCase reads a .ctcase archive, validates its schema-version
// compatibility, assigns a fresh case id (so importing the same archive
// twice never collides with an existing case), and registers the
// resulting case.
func (r *Registry) ImportCase(ctx context.Context, archivePath string) (Case, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return Case{}, fmt.Errorf("registry: opening archive: %w", err)
	}
	defer zr.Close()

	var manifest exportManifest
	var dbBytes []byte
	for _, f := range zr.File {
		switch f.Name {
		case "manifest.json":
			manifest, err = readZipManifest(f)
		case "case.db":
			dbBytes, err = readZipFile(f)
		}
		if err != nil {
			return Case{}, fmt.Errorf("registry: reading %s from archive: %w", f.Name, err)
		}
	}
	if dbBytes == nil {
		return Case{}, fmt.Errorf("registry: archive missing case.db")
	}
	if manifest.SchemaVersion > casestore.CurrentSchemaVersion {
		return Case{}, fmt.Errorf("%w: archive is at schema version %d, this build supports up to %d",
			ErrSchemaVersionIncompatible, manifest.SchemaVersion, casestore.CurrentSchemaVersion)
	}

	id := uuid.NewString()
	dbPath := filepath.Join(r.baseDir, "cases", id+".db")
	if err := os.WriteFile(dbPath, dbBytes, 0644); err != nil {
		return Case{}, fmt.Errorf("registry: writing imported case database: %w", err)
	}

	store, err := casestore.Open(dbPath, 0, r.logger)
	if err != nil {
		os.Remove(dbPath)
		return Case{}, fmt.Errorf("registry: opening imported case database: %w", err)
	}
	if err := store.Close(); err != nil {
		os.Remove(dbPath)
		return Case{}, fmt.Errorf("registry: closing imported case database: %w", err)
	}

	now := time.Now()
	c := Case{
		ID:            id,
		Name:          manifest.CaseName,
		Description:   manifest.Description,
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
		return Case{}, fmt.Errorf("registry: recording imported case: %w", err)
	}

	r.logger.Info("case imported", "case_id", c.ID, "name", c.Name, "source_archive", archivePath)
	return c, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func readZipManifest(f *zip.File) (exportManifest, error) {
	data, err := readZipFile(f)
	if err != nil {
		return exportManifest{}, err
	}
	var m exportManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return exportManifest{}, fmt.Errorf("parsing manifest.json: %w", err)
	}
	return m, nil
}
