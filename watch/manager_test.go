//go:build cgo

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/embedding"
	"github.com/casetrack/casetrack/ingest"
	"github.com/casetrack/casetrack/parser"
)

func newTestManager(t *testing.T) (*Manager, *casestore.Store) {
	t.Helper()
	caseDir := t.TempDir()
	store, err := casestore.Open(filepath.Join(caseDir, "case.db"), 4, nil)
	if err != nil {
		t.Fatalf("casestore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	pipeline := ingest.New(store, parser.NewRegistry(nil), embedding.NewManager(embedding.ManagerConfig{}), 2, nil)
	resolve := func(caseID string) (*casestore.Store, *ingest.Pipeline, error) {
		return store, pipeline, nil
	}

	registry, err := Open(filepath.Join(caseDir, "watches.json"))
	if err != nil {
		t.Fatalf("Open registry: %v", err)
	}

	m, err := New(registry, resolve, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { m.Stop() })
	return m, store
}

func waitFor(t *testing.T, timeout time.Duration, check func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

func TestManagerIngestsNewFileOnCreate(t *testing.T) {
	root := t.TempDir()
	m, store := newTestManager(t)

	if _, err := m.AddWatch(Watch{CaseID: "case-1", RootPath: root, Schedule: OnChange, Extensions: []string{"txt"}}); err != nil {
		t.Fatalf("AddWatch: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	path := filepath.Join(root, "memo.txt")
	if err := os.WriteFile(path, []byte("Plaintiff Acme Corp alleges breach of contract."), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	absPath, _ := filepath.Abs(path)

	found := waitFor(t, 4*time.Second, func() bool {
		doc, ok, _ := store.GetDocumentByPath(context.Background(), absPath)
		return ok && doc.Status == "ready"
	})
	if !found {
		t.Fatal("timed out waiting for the new file to be ingested")
	}
}

func TestManagerIgnoresUnwatchedExtension(t *testing.T) {
	root := t.TempDir()
	m, store := newTestManager(t)

	if _, err := m.AddWatch(Watch{CaseID: "case-1", RootPath: root, Schedule: OnChange, Extensions: []string{"txt"}}); err != nil {
		t.Fatalf("AddWatch: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	path := filepath.Join(root, "notes.md")
	if err := os.WriteFile(path, []byte("not a watched format"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	absPath, _ := filepath.Abs(path)

	time.Sleep(1 * time.Second)
	if _, ok, _ := store.GetDocumentByPath(context.Background(), absPath); ok {
		t.Error("expected a file with an unwatched extension to never be ingested")
	}
}

func TestManagerRemovesDocumentOnDeleteWhenAutoRemoveEnabled(t *testing.T) {
	root := t.TempDir()
	m, store := newTestManager(t)

	if _, err := m.AddWatch(Watch{
		CaseID: "case-1", RootPath: root, Schedule: OnChange,
		Extensions: []string{"txt"}, AutoRemoveDeleted: true,
	}); err != nil {
		t.Fatalf("AddWatch: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	path := filepath.Join(root, "memo.txt")
	if err := os.WriteFile(path, []byte("Plaintiff Acme Corp alleges breach of contract."), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	absPath, _ := filepath.Abs(path)

	if !waitFor(t, 4*time.Second, func() bool {
		_, ok, _ := store.GetDocumentByPath(context.Background(), absPath)
		return ok
	}) {
		t.Fatal("expected the file to be ingested before testing deletion")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if !waitFor(t, 4*time.Second, func() bool {
		_, ok, _ := store.GetDocumentByPath(context.Background(), absPath)
		return !ok
	}) {
		t.Fatal("timed out waiting for the document to be removed after its file was deleted")
	}
}

func TestManagerKeepsDocumentOnDeleteWhenAutoRemoveDisabled(t *testing.T) {
	root := t.TempDir()
	m, store := newTestManager(t)

	if _, err := m.AddWatch(Watch{CaseID: "case-1", RootPath: root, Schedule: OnChange, Extensions: []string{"txt"}}); err != nil {
		t.Fatalf("AddWatch: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	path := filepath.Join(root, "memo.txt")
	if err := os.WriteFile(path, []byte("Plaintiff Acme Corp alleges breach of contract."), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	absPath, _ := filepath.Abs(path)

	if !waitFor(t, 4*time.Second, func() bool {
		_, ok, _ := store.GetDocumentByPath(context.Background(), absPath)
		return ok
	}) {
		t.Fatal("expected the file to be ingested before testing deletion")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	time.Sleep(3 * time.Second)

	if _, ok, _ := store.GetDocumentByPath(context.Background(), absPath); !ok {
		t.Error("expected the document to survive file deletion when auto_remove_deleted is false")
	}
}
