//go:build cgo

package bm25

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/casetrack/casetrack/casestore"
)

func newTestDB(t *testing.T) *casestore.Store {
	t.Helper()
	s, err := casestore.Open(filepath.Join(t.TempDir(), "case.db"), 4, nil)
	if err != nil {
		t.Fatalf("casestore.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIndexChunkThenScoreFindsIt(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := IndexChunk(ctx, s.DB(), "doc-1", "chunk-1", "The indemnification clause survives termination of this Agreement."); err != nil {
		t.Fatalf("IndexChunk: %v", err)
	}

	results, err := Score(ctx, s.DB(), "indemnification clause", 10, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ChunkID != "chunk-1" {
		t.Errorf("ChunkID = %q, want chunk-1", results[0].ChunkID)
	}
	if results[0].Score <= 0 {
		t.Errorf("Score = %v, want > 0", results[0].Score)
	}
}

func TestScoreRanksMoreRelevantChunkHigher(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := IndexChunk(ctx, s.DB(), "doc-1", "chunk-1",
		"Indemnification. The indemnifying party shall indemnify and hold harmless the indemnified party against all claims arising from indemnification obligations."); err != nil {
		t.Fatalf("IndexChunk chunk-1: %v", err)
	}
	if err := IndexChunk(ctx, s.DB(), "doc-1", "chunk-2",
		"Governing Law. This agreement is governed by the laws of the State of Delaware without regard to conflict of law principles."); err != nil {
		t.Fatalf("IndexChunk chunk-2: %v", err)
	}

	results, err := Score(ctx, s.DB(), "indemnification", 10, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].ChunkID != "chunk-1" {
		t.Errorf("top result = %q, want chunk-1", results[0].ChunkID)
	}
}

func TestScoreEmptyQueryReturnsNil(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	results, err := Score(ctx, s.DB(), "the a of", 10, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results for all-stopword query, got %v", results)
	}
}

func TestScoreEmptyCorpusReturnsNil(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	results, err := Score(ctx, s.DB(), "contract dispute", 10, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results for empty corpus, got %v", results)
	}
}

func TestRemoveChunkDropsItFromScoring(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := IndexChunk(ctx, s.DB(), "doc-1", "chunk-1", "breach of contract damages"); err != nil {
		t.Fatalf("IndexChunk: %v", err)
	}
	if err := RemoveChunk(ctx, s.DB(), "doc-1", "chunk-1"); err != nil {
		t.Fatalf("RemoveChunk: %v", err)
	}

	results, err := Score(ctx, s.DB(), "breach contract", 10, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if results != nil {
		t.Errorf("expected no results after removal, got %v", results)
	}

	var totalChunks int
	row := s.DB().QueryRowContext(ctx, "SELECT total_chunks FROM bm25_stats WHERE id = 1")
	if err := row.Scan(&totalChunks); err != nil {
		t.Fatalf("reading bm25_stats: %v", err)
	}
	if totalChunks != 0 {
		t.Errorf("total_chunks = %d, want 0 after removal", totalChunks)
	}
}

func TestIndexChunkReindexIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := IndexChunk(ctx, s.DB(), "doc-1", "chunk-1", "original clause text about indemnification"); err != nil {
		t.Fatalf("IndexChunk (first): %v", err)
	}
	if err := IndexChunk(ctx, s.DB(), "doc-1", "chunk-1", "revised clause text about confidentiality"); err != nil {
		t.Fatalf("IndexChunk (second): %v", err)
	}

	var totalChunks int
	row := s.DB().QueryRowContext(ctx, "SELECT total_chunks FROM bm25_stats WHERE id = 1")
	if err := row.Scan(&totalChunks); err != nil {
		t.Fatalf("reading bm25_stats: %v", err)
	}
	if totalChunks != 1 {
		t.Errorf("total_chunks = %d, want 1 (reindex must not double-count)", totalChunks)
	}

	results, err := Score(ctx, s.DB(), "indemnification", 10, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if results != nil {
		t.Errorf("expected old term to no longer match after reindex, got %v", results)
	}

	results, err = Score(ctx, s.DB(), "confidentiality", 10, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected new term to match after reindex, got %v", results)
	}
}

func TestIndexChunkScoreLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	chunks := []string{"chunk-a", "chunk-b", "chunk-c"}
	for _, id := range chunks {
		if err := IndexChunk(ctx, s.DB(), "doc-1", id, "settlement negotiation and settlement terms"); err != nil {
			t.Fatalf("IndexChunk %s: %v", id, err)
		}
	}

	results, err := Score(ctx, s.DB(), "settlement", 2, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (limit)", len(results))
	}
}
