//go:build cgo

package registry

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExportThenImportRoundTrips(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	c, err := r.CreateCase(ctx, "Acme v. Widgets", "breach of contract", 4)
	require.NoError(t, err)

	archivePath := filepath.Join(t.TempDir(), "acme.ctcase")
	require.NoError(t, r.ExportCase(ctx, c.ID, archivePath))
	require.FileExists(t, archivePath)

	zr, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	require.NoError(t, zr.Close())
	require.True(t, names["manifest.json"])
	require.True(t, names["case.db"])

	imported, err := r.ImportCase(ctx, archivePath)
	require.NoError(t, err)
	require.NotEqual(t, c.ID, imported.ID, "import must assign a fresh case id")
	require.Equal(t, c.Name, imported.Name)
	require.FileExists(t, imported.DBPath)

	cases, err := r.ListCases(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 2)
}

func TestImportRejectsFutureSchemaVersion(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	c, err := r.CreateCase(ctx, "Acme v. Widgets", "", 4)
	require.NoError(t, err)
	archivePath := filepath.Join(t.TempDir(), "acme.ctcase")
	require.NoError(t, r.ExportCase(ctx, c.ID, archivePath))

	rewriteManifestSchemaVersion(t, archivePath, 999)

	_, err = r.ImportCase(ctx, archivePath)
	require.ErrorIs(t, err, ErrSchemaVersionIncompatible)
}

// rewriteManifestSchemaVersion patches an exported archive's manifest.json
// in place so tests can exercise the incompatible-schema-version path
// without needing a real future schema to exist.
func rewriteManifestSchemaVersion(t *testing.T, archivePath string, version int) {
	t.Helper()

	zr, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		data, err := readZipFile(f)
		require.NoError(t, err)
		files[f.Name] = data
	}
	require.NoError(t, zr.Close())

	var manifest exportManifest
	require.NoError(t, json.Unmarshal(files["manifest.json"], &manifest))
	manifest.SchemaVersion = version
	patched, err := json.Marshal(manifest)
	require.NoError(t, err)
	files["manifest.json"] = patched

	out, err := os.Create(archivePath)
	require.NoError(t, err)
	defer out.Close()
	zw := zip.NewWriter(out)
	for name, data := range files {
		require.NoError(t, writeZipFile(zw, name, data))
	}
	require.NoError(t, zw.Close())
}
