//go:build cgo

package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/casetrack/casetrack/casestore"
)

func TestSyncWatchClassifiesNewChangedUnchangedAndOrphaned(t *testing.T) {
	root := t.TempDir()
	m, store := newTestManager(t)
	ctx := context.Background()

	unchangedPath := filepath.Join(root, "unchanged.txt")
	if err := os.WriteFile(unchangedPath, []byte("Exhibit A remains unchanged."), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	changedPath := filepath.Join(root, "changed.txt")
	if err := os.WriteFile(changedPath, []byte("original content"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	newPath := filepath.Join(root, "new.txt")
	if err := os.WriteFile(newPath, []byte("This document was never ingested before."), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	orphanPath := filepath.Join(root, "gone.txt")

	absUnchanged, _ := filepath.Abs(unchangedPath)
	absChanged, _ := filepath.Abs(changedPath)
	absOrphan, _ := filepath.Abs(orphanPath)

	seedDocument(t, store, absUnchanged, "Exhibit A remains unchanged.")
	seedDocument(t, store, absChanged, "original content")
	seedDocument(t, store, absOrphan, "a document whose underlying file is now gone")

	// Now mutate changed.txt's content so its on-disk hash no longer
	// matches the seeded document's stored hash.
	if err := os.WriteFile(changedPath, []byte("this content has since changed"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := m.registry.Add(Watch{CaseID: "case-1", RootPath: root, Schedule: Manual, Extensions: []string{"txt"}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	result, err := m.SyncWatch(ctx, w.ID)
	if err != nil {
		t.Fatalf("SyncWatch: %v", err)
	}
	if result.New != 1 {
		t.Errorf("New = %d, want 1", result.New)
	}
	if result.Changed != 1 {
		t.Errorf("Changed = %d, want 1", result.Changed)
	}
	if result.Unchanged != 1 {
		t.Errorf("Unchanged = %d, want 1", result.Unchanged)
	}
	if result.Orphaned != 1 {
		t.Errorf("Orphaned = %d, want 1 (auto_remove_deleted is false)", result.Orphaned)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %v", result.Errors)
	}

	reloaded, ok := m.registry.Get(w.ID)
	if !ok || reloaded.LastSyncAt.IsZero() {
		t.Error("expected SyncWatch to record LastSyncAt")
	}

	if _, ok, _ := store.GetDocumentByPath(ctx, absOrphan); !ok {
		t.Error("expected the orphaned document to remain since auto_remove_deleted is false")
	}

	absNew, _ := filepath.Abs(newPath)
	if _, ok, _ := store.GetDocumentByPath(ctx, absNew); !ok {
		t.Error("expected the new file to have been ingested")
	}
}

func TestSyncWatchRemovesOrphansWhenAutoRemoveEnabled(t *testing.T) {
	root := t.TempDir()
	m, store := newTestManager(t)
	ctx := context.Background()

	orphanPath := filepath.Join(root, "gone.txt")
	absOrphan, _ := filepath.Abs(orphanPath)
	seedDocument(t, store, absOrphan, "a document whose file no longer exists")

	w, err := m.registry.Add(Watch{
		CaseID: "case-1", RootPath: root, Schedule: Manual,
		Extensions: []string{"txt"}, AutoRemoveDeleted: true,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	result, err := m.SyncWatch(ctx, w.ID)
	if err != nil {
		t.Fatalf("SyncWatch: %v", err)
	}
	if result.Removed != 1 {
		t.Errorf("Removed = %d, want 1", result.Removed)
	}
	if _, ok, _ := store.GetDocumentByPath(ctx, absOrphan); ok {
		t.Error("expected the orphaned document to have been removed")
	}
}

func TestSyncWatchUnknownWatchErrors(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.SyncWatch(context.Background(), "not-a-real-id"); err == nil {
		t.Error("expected an error for an unknown watch id")
	}
}

// contentHashForTest mirrors parser.HashFile's algorithm (sha256 of the
// raw bytes, hex-encoded) so a seeded document's stored hash matches
// what a diff-sync will compute from the file actually on disk.
func contentHashForTest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// seedDocument writes a document record directly, bypassing the
// ingestion pipeline, so its stored content hash can be controlled
// precisely for diff-sync classification tests.
func seedDocument(t *testing.T, s *casestore.Store, sourcePath, content string) {
	t.Helper()
	hash := contentHashForTest(content)
	now := time.Now()
	if err := s.PutDocument(context.Background(), casestore.Document{
		ID: sourcePath, Filename: filepath.Base(sourcePath), SourcePath: sourcePath,
		DocType: casestore.DocDefault, ContentHash: hash, Status: "ready",
		IngestedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seedDocument PutDocument: %v", err)
	}
}
