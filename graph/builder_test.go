//go:build cgo

package graph

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/provenance"
)

func newTestStore(t *testing.T) *casestore.Store {
	t.Helper()
	s, err := casestore.Open(filepath.Join(t.TempDir(), "case.db"), 4, nil)
	if err != nil {
		t.Fatalf("casestore.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func putTestDocument(t *testing.T, s *casestore.Store, id string) {
	t.Helper()
	ctx := context.Background()
	if err := s.PutDocument(ctx, casestore.Document{
		ID: id, Filename: id + ".pdf", DocType: casestore.DocBrief,
		Status: "ingested", IngestedAt: time.Now(), UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
}

func putTestChunk(t *testing.T, s *casestore.Store, docID, chunkID string, sequence int, text string) {
	t.Helper()
	ctx := context.Background()
	if err := s.PutChunk(ctx, casestore.Chunk{
		ID: chunkID, DocumentID: docID, Sequence: sequence, Text: text, CharCount: len(text),
		Provenance: provenance.Record{
			DocumentID: docID, DocumentName: docID + ".pdf", Page: 1,
			ParagraphStart: 1, ParagraphEnd: 1, CharStart: 0, CharEnd: len(text),
			ExtractionMethod: provenance.Native, ChunkSequence: sequence,
		},
	}); err != nil {
		t.Fatalf("PutChunk: %v", err)
	}
}

func TestBuildWritesEntityAndCitationMentions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	putTestDocument(t, s, "doc-1")
	putTestChunk(t, s, "doc-1", "chunk-1", 0,
		"Defendant Acme Corp was sued under 42 U.S.C. § 1983 before Judge Jane Smith.")

	b := NewBuilder(s, 2)
	chunks, err := s.GetChunksByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetChunksByDocument: %v", err)
	}
	if err := b.Build(ctx, "doc-1", chunks); err != nil {
		t.Fatalf("Build: %v", err)
	}

	mentions, err := s.GetEntityMentionsByChunk(ctx, "chunk-1")
	if err != nil {
		t.Fatalf("GetEntityMentionsByChunk: %v", err)
	}
	if len(mentions) == 0 {
		t.Fatal("expected entity mentions to be written")
	}

	entity, found, err := s.GetEntity(ctx, casestore.EntityJudge, "jane smith")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if !found {
		t.Fatal("expected judge entity 'jane smith' to be persisted")
	}
	if entity.MentionCount != 1 {
		t.Errorf("MentionCount = %d, want 1", entity.MentionCount)
	}

	citation, found, err := s.GetCitation(ctx, "42 U.S.C. § 1983")
	if err != nil {
		t.Fatalf("GetCitation: %v", err)
	}
	if !found {
		t.Fatal("expected statute citation to be persisted")
	}
	if citation.Type != casestore.CitationStatute {
		t.Errorf("Type = %v, want statute", citation.Type)
	}
}

func TestBuildIsEmptyChunksNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	b := NewBuilder(s, 0)
	if err := b.Build(ctx, "doc-1", nil); err != nil {
		t.Fatalf("Build with no chunks: %v", err)
	}
}

func TestBuildCreatesSharedEntitiesDocEdge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	b := NewBuilder(s, 2)

	putTestDocument(t, s, "doc-1")
	putTestChunk(t, s, "doc-1", "chunk-1", 0, "Defendant Acme Corp breached the agreement.")
	chunks1, _ := s.GetChunksByDocument(ctx, "doc-1")
	if err := b.Build(ctx, "doc-1", chunks1); err != nil {
		t.Fatalf("Build doc-1: %v", err)
	}

	putTestDocument(t, s, "doc-2")
	putTestChunk(t, s, "doc-2", "chunk-2", 0, "Plaintiff Acme Corp seeks damages for the breach.")
	chunks2, _ := s.GetChunksByDocument(ctx, "doc-2")
	if err := b.Build(ctx, "doc-2", chunks2); err != nil {
		t.Fatalf("Build doc-2: %v", err)
	}

	edges, err := s.GetDocEdges(ctx, "doc-2")
	if err != nil {
		t.Fatalf("GetDocEdges: %v", err)
	}
	found := false
	for _, e := range edges {
		if e.Type == casestore.DocEdgeSharedEntities {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a shared_entities doc edge between doc-1 and doc-2, got %+v", edges)
	}
}

func TestCoOccurringChunksIntersectsEntitySets(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	b := NewBuilder(s, 2)

	putTestDocument(t, s, "doc-1")
	putTestChunk(t, s, "doc-1", "chunk-1", 0,
		"Defendant Acme Corp appeared before Judge Jane Smith in this chunk.")
	chunks, _ := s.GetChunksByDocument(ctx, "doc-1")
	if err := b.Build(ctx, "doc-1", chunks); err != nil {
		t.Fatalf("Build: %v", err)
	}

	acmeKey := EntityKey(casestore.EntityParty, "acme corp")
	judgeKey := EntityKey(casestore.EntityJudge, "jane smith")

	got, err := CoOccurringChunks(ctx, s, []string{acmeKey, judgeKey})
	if err != nil {
		t.Fatalf("CoOccurringChunks: %v", err)
	}
	if len(got) != 1 || got[0] != "chunk-1" {
		t.Errorf("got %v, want [chunk-1]", got)
	}
}

func TestExpandFromChunkFindsCoMentionedChunks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	b := NewBuilder(s, 2)

	putTestDocument(t, s, "doc-1")
	putTestChunk(t, s, "doc-1", "chunk-1", 0, "Defendant Acme Corp is named here.")
	putTestChunk(t, s, "doc-1", "chunk-2", 1, "Later, Defendant Acme Corp is named again.")
	chunks, _ := s.GetChunksByDocument(ctx, "doc-1")
	if err := b.Build(ctx, "doc-1", chunks); err != nil {
		t.Fatalf("Build: %v", err)
	}

	expanded, err := ExpandFromChunk(ctx, s, "chunk-1", 10)
	if err != nil {
		t.Fatalf("ExpandFromChunk: %v", err)
	}
	if len(expanded) != 1 || expanded[0].ChunkID != "chunk-2" {
		t.Errorf("got %+v, want chunk-2", expanded)
	}
}
