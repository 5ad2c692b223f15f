//go:build cgo

package retrieval

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/casetrack/casetrack/bm25"
	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/embedding"
	"github.com/casetrack/casetrack/graph"
	"github.com/casetrack/casetrack/provenance"
)

func newTestEngine(t *testing.T) (*Engine, *casestore.Store) {
	t.Helper()
	store, err := casestore.Open(filepath.Join(t.TempDir(), "case.db"), 4, nil)
	if err != nil {
		t.Fatalf("casestore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mgr := embedding.NewManager(embedding.ManagerConfig{})
	return New(store, mgr, nil), store
}

func putDocAndChunk(t *testing.T, s *casestore.Store, docID, chunkID string, sequence int, text string) {
	t.Helper()
	ctx := context.Background()
	if err := s.PutDocument(ctx, casestore.Document{
		ID: docID, Filename: docID + ".pdf", DocType: casestore.DocBrief,
		Status: "ready", IngestedAt: time.Now(), UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	if err := s.PutChunk(ctx, casestore.Chunk{
		ID: chunkID, DocumentID: docID, Sequence: sequence, Text: text, CharCount: len(text),
		Provenance: provenance.Record{
			DocumentID: docID, DocumentName: docID + ".pdf", Page: 8,
			ParagraphStart: 24, ParagraphEnd: 24, LineStart: 1, LineEnd: 6,
			CharStart: 0, CharEnd: len(text),
			ExtractionMethod: provenance.Native, ChunkSequence: sequence,
		},
	}); err != nil {
		t.Fatalf("PutChunk: %v", err)
	}
	if err := bm25.IndexChunk(ctx, s.DB(), docID, chunkID, text); err != nil {
		t.Fatalf("IndexChunk: %v", err)
	}
}

func TestSearchEmptyQueryReturnsNil(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	results, err := e.Search(ctx, "   ", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results for an empty query, got %v", results)
	}
}

func TestSearchEmptyCorpusReturnsEmptySlice(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	results, err := e.Search(ctx, "indemnification obligations", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results == nil {
		t.Fatal("expected a non-nil empty slice for an empty candidate set")
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSearchFindsChunkByLexicalRecall(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	putDocAndChunk(t, e.store, "doc-1", "chunk-1", 0,
		"Defendant shall satisfy all indemnification obligations owed to Plaintiff under this agreement.")
	putDocAndChunk(t, e.store, "doc-2", "chunk-2", 0,
		"This memorandum concerns an unrelated scheduling matter.")

	results, err := e.Search(ctx, "indemnification obligations", Options{TopK: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.ChunkID != "chunk-1" {
		t.Errorf("ChunkID = %q, want chunk-1", r.ChunkID)
	}
	if r.Provenance.DocumentName != "doc-1.pdf" || r.Provenance.Page != 8 {
		t.Errorf("unexpected provenance: %+v", r.Provenance)
	}
	wantLong := "doc-1.pdf, p. 8, para. 24, ll. 1-6"
	if r.CitationLong != wantLong {
		t.Errorf("CitationLong = %q, want %q", r.CitationLong, wantLong)
	}
	if r.CitationLegal != "doc-1.pdf at 8" {
		t.Errorf("CitationLegal = %q, want %q", r.CitationLegal, "doc-1.pdf at 8")
	}
	if r.CitationShort != "p. 8" {
		t.Errorf("CitationShort = %q, want %q", r.CitationShort, "p. 8")
	}
}

func TestSearchDocumentFilterRestrictsLexicalRecall(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	putDocAndChunk(t, e.store, "doc-1", "chunk-1", 0, "breach of contract damages analysis")
	putDocAndChunk(t, e.store, "doc-2", "chunk-2", 0, "breach of contract damages analysis")

	results, err := e.Search(ctx, "breach of contract", Options{DocumentIDs: []string{"doc-2"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.DocumentID != "doc-2" {
			t.Errorf("got result from document %q, want only doc-2", r.DocumentID)
		}
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 result restricted to doc-2, got %d", len(results))
	}
}

func TestSearchContextWindowIncludesNeighborChunks(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	putDocAndChunk(t, e.store, "doc-1", "chunk-0", 0, "Preceding paragraph about the parties.")
	putDocAndChunk(t, e.store, "doc-1", "chunk-1", 1, "Defendant shall indemnify Plaintiff for losses.")
	putDocAndChunk(t, e.store, "doc-1", "chunk-2", 2, "Following paragraph about notice requirements.")

	results, err := e.Search(ctx, "indemnify", Options{TopK: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ContextBefore == "" {
		t.Error("expected a non-empty preceding context chunk")
	}
	if results[0].ContextAfter == "" {
		t.Error("expected a non-empty following context chunk")
	}
}

func TestSearchCitationFastPathShortCircuits(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	const querySnippet = "Smith v. Jones, 410 U.S. 123 (1973)"
	putDocAndChunk(t, e.store, "doc-1", "chunk-1", 0,
		"As held in "+querySnippet+", the claim survives.")

	// Derive the normalized form the same way the graph builder would
	// have, rather than hand-writing it, so the test does not depend on
	// the extractor's exact punctuation/spacing choices.
	detected := graph.DetectCitations(querySnippet)
	if len(detected) != 1 {
		t.Fatalf("expected the query snippet to parse as exactly one citation, got %d", len(detected))
	}
	citation := detected[0]
	citation.MentionCount = 1

	if err := e.store.UpsertCitation(ctx, citation); err != nil {
		t.Fatalf("UpsertCitation: %v", err)
	}
	if err := e.store.PutCitationMention(ctx, casestore.CitationMention{
		CitationNormalized: citation.Normalized,
		ChunkID:            "chunk-1",
		DocumentID:         "doc-1",
		CharStart:          11,
		CharEnd:            11 + len(querySnippet),
	}); err != nil {
		t.Fatalf("PutCitationMention: %v", err)
	}

	results, err := e.Search(ctx, querySnippet, Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result from the citation fast path, got %d", len(results))
	}
	if results[0].Source != "citation" {
		t.Errorf("Source = %q, want citation", results[0].Source)
	}
	if results[0].ChunkID != "chunk-1" {
		t.Errorf("ChunkID = %q, want chunk-1", results[0].ChunkID)
	}
}

func TestSearchUnrecognizedCitationFallsThroughToLexicalRecall(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	putDocAndChunk(t, e.store, "doc-1", "chunk-1", 0, "Smith v. Jones settlement negotiations continued.")

	// "Smith v. Jones" alone (no reporter/volume/year) does not match the
	// case-law citation grammar, so the fast path should find nothing and
	// the query should fall through to ordinary lexical recall.
	results, err := e.Search(ctx, "Smith v. Jones settlement", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result via lexical recall, got %d", len(results))
	}
	if results[0].Source != "ranked" {
		t.Errorf("Source = %q, want ranked", results[0].Source)
	}
}
