//go:build cgo

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/casetrack/casetrack/bm25"
	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/embedding"
	"github.com/casetrack/casetrack/parser"
)

func newTestPipeline(t *testing.T) (*Pipeline, *casestore.Store) {
	t.Helper()
	store, err := casestore.Open(filepath.Join(t.TempDir(), "case.db"), 4, nil)
	if err != nil {
		t.Fatalf("casestore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := parser.NewRegistry(nil)
	mgr := embedding.NewManager(embedding.ManagerConfig{})
	return New(store, reg, mgr, 2, nil), store
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestIngestStoresDocumentAndChunks(t *testing.T) {
	ctx := context.Background()
	p, store := newTestPipeline(t)

	path := writeTempFile(t, "complaint.txt",
		"Plaintiff Acme Corp brings this action against Defendant Widget Inc.\n\n"+
			"This action arises under 42 U.S.C. § 1983.")

	result, err := p.Ingest(ctx, path, Options{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Unchanged {
		t.Fatal("expected a fresh ingest, not unchanged")
	}
	if result.ChunkCount == 0 {
		t.Fatal("expected at least one chunk")
	}

	doc, found, err := store.GetDocument(ctx, result.DocumentID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if !found {
		t.Fatal("expected document to be persisted")
	}
	if doc.Status != "ready" {
		t.Errorf("Status = %q, want ready", doc.Status)
	}
	if doc.ContentHash == "" {
		t.Error("expected a non-empty content hash")
	}

	chunks, err := store.GetChunksByDocument(ctx, result.DocumentID)
	if err != nil {
		t.Fatalf("GetChunksByDocument: %v", err)
	}
	if len(chunks) != result.ChunkCount {
		t.Errorf("got %d chunks, want %d", len(chunks), result.ChunkCount)
	}

	scored, err := bm25.Score(ctx, store.DB(), "Acme", 10, nil)
	if err != nil {
		t.Fatalf("bm25.Score: %v", err)
	}
	if len(scored) == 0 {
		t.Error("expected bm25 postings to be searchable after ingest")
	}

	entity, ok, err := store.GetEntity(ctx, casestore.EntityParty, "acme corp")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if !ok {
		t.Fatal("expected the party entity extracted by the graph builder to be persisted")
	}
	if entity.MentionCount != 1 {
		t.Errorf("MentionCount = %d, want 1", entity.MentionCount)
	}
}

func TestIngestUnchangedFileIsNoOp(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(t)
	path := writeTempFile(t, "memo.txt", "A short memorandum with no legal content.")

	first, err := p.Ingest(ctx, path, Options{})
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}

	second, err := p.Ingest(ctx, path, Options{})
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if !second.Unchanged {
		t.Error("expected the second ingest of an unchanged file to be a no-op")
	}
	if second.DocumentID != first.DocumentID {
		t.Errorf("DocumentID changed across a no-op re-ingest: %q != %q", second.DocumentID, first.DocumentID)
	}
}

func TestIngestChangedFileReusesDocumentID(t *testing.T) {
	ctx := context.Background()
	p, store := newTestPipeline(t)
	path := writeTempFile(t, "brief.txt", "Original brief content.")

	first, err := p.Ingest(ctx, path, Options{})
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}

	if err := os.WriteFile(path, []byte("Revised brief content, now longer than before."), 0644); err != nil {
		t.Fatalf("rewriting file: %v", err)
	}

	second, err := p.Ingest(ctx, path, Options{})
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if second.Unchanged {
		t.Error("expected the changed file to be re-ingested, not treated as unchanged")
	}
	if second.DocumentID != first.DocumentID {
		t.Errorf("expected the same document id to be reused, got %q != %q", second.DocumentID, first.DocumentID)
	}

	chunks, err := store.GetChunksByDocument(ctx, second.DocumentID)
	if err != nil {
		t.Fatalf("GetChunksByDocument: %v", err)
	}
	for _, c := range chunks {
		if c.Text == "Original brief content." {
			t.Error("expected the old revision's chunk text to be gone after re-ingest")
		}
	}
}

func TestIngestUnsupportedFormatReturnsError(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(t)
	path := writeTempFile(t, "video.mp4", "not a real video")

	if _, err := p.Ingest(ctx, path, Options{}); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}
