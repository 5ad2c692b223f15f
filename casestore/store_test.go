//go:build cgo

package casestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/casetrack/casetrack/provenance"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "case.db")
	s, err := Open(dbPath, 4, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := newTestStore(t)
	require.Equal(t, 4, s.DenseDim())

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, v)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	s, err := Open(filepath.Join(dir, "case.db"), 4, nil)
	require.NoError(t, err)
	defer s.Close()
}

func sampleProvenance(doc string, page int) provenance.Record {
	return provenance.Record{
		DocumentID:       doc,
		DocumentName:     "Complaint.pdf",
		SourcePath:       "/cases/acme/Complaint.pdf",
		Page:             page,
		ParagraphStart:   24,
		ParagraphEnd:     24,
		LineStart:        1,
		LineEnd:          6,
		CharStart:        0,
		CharEnd:          120,
		ExtractionMethod: provenance.Native,
		ChunkSequence:    0,
		CreatedAt:        time.Now(),
	}
}

func TestDocumentCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := Document{
		ID:               "doc-1",
		Filename:         "Complaint.pdf",
		SourcePath:       "/cases/acme/Complaint.pdf",
		DocType:          DocPleading,
		PageCount:        10,
		ChunkCount:       2,
		ContentHash:      "abc123",
		ByteSize:         4096,
		ExtractionMethod: "native",
		EmbedderIDs:      []string{"dense-v1"},
		Status:           "ingested",
		IngestedAt:       time.Now(),
		UpdatedAt:        time.Now(),
	}
	require.NoError(t, s.PutDocument(ctx, doc))

	got, ok, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Complaint.pdf", got.Filename)
	require.Equal(t, DocPleading, got.DocType)
	require.Equal(t, []string{"dense-v1"}, got.EmbedderIDs)

	byHash, ok, err := s.GetDocumentByHash(ctx, "abc123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "doc-1", byHash.ID)

	byPath, ok, err := s.GetDocumentByPath(ctx, "/cases/acme/Complaint.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "doc-1", byPath.ID)

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	_, ok, err = s.GetDocument(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestChunkSequenceOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutDocument(ctx, Document{ID: "doc-1", Filename: "f.pdf", DocType: DocDefault, IngestedAt: time.Now(), UpdatedAt: time.Now()}))

	for i := 0; i < 3; i++ {
		c := Chunk{
			ID:         "chunk-" + string(rune('a'+i)),
			DocumentID: "doc-1",
			Sequence:   i,
			Text:       "some text",
			CharCount:  9,
			Provenance: sampleProvenance("doc-1", 1),
		}
		require.NoError(t, s.PutChunk(ctx, c))
	}

	chunks, err := s.GetChunksByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		require.Equal(t, i, c.Sequence)
	}

	byCeq, ok, err := s.GetChunkBySequence(ctx, "doc-1", 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "chunk-b", byCeq.ID)
}

func TestEmbeddingRoundTripAndDenseSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutDocument(ctx, Document{ID: "doc-1", Filename: "f.pdf", DocType: DocDefault, IngestedAt: time.Now(), UpdatedAt: time.Now()}))
	require.NoError(t, s.PutChunk(ctx, Chunk{ID: "chunk-1", DocumentID: "doc-1", Sequence: 0, Text: "hello", CharCount: 5, Provenance: sampleProvenance("doc-1", 1)}))

	emb := EmbeddingRecord{
		ChunkID:    "chunk-1",
		Text:       "hello",
		Provenance: sampleProvenance("doc-1", 1),
		Dense:      []float32{1, 0, 0, 0},
		Sparse:     &SparseVectorRecord{Indices: []uint32{3, 1}, Weights: []float32{0.5, 0.9}},
	}
	require.NoError(t, s.PutEmbedding(ctx, emb))

	got, ok, err := s.GetEmbedding(ctx, "chunk-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{1, 0, 0, 0}, got.Dense)
	require.Equal(t, []uint32{1, 3}, got.Sparse.Indices) // sorted on write

	candidates, err := s.SearchDense(ctx, []float32{1, 0, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	require.Equal(t, "chunk-1", candidates[0].ChunkID)
}

func TestDeleteDocumentCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutDocument(ctx, Document{ID: "doc-1", Filename: "f.pdf", DocType: DocDefault, IngestedAt: time.Now(), UpdatedAt: time.Now()}))
	require.NoError(t, s.PutChunk(ctx, Chunk{ID: "chunk-1", DocumentID: "doc-1", Sequence: 0, Text: "hello world", CharCount: 11, Provenance: sampleProvenance("doc-1", 1)}))
	require.NoError(t, s.PutEmbedding(ctx, EmbeddingRecord{ChunkID: "chunk-1", Text: "hello world", Provenance: sampleProvenance("doc-1", 1), Dense: []float32{0, 1, 0, 0}}))
	require.NoError(t, s.PutEntityMention(ctx, EntityMention{EntityType: EntityParty, NormalizedName: "acme corp", ChunkID: "chunk-1", DocumentID: "doc-1", CharStart: 0, CharEnd: 5}))
	require.NoError(t, s.UpsertEntity(ctx, Entity{Type: EntityParty, NormalizedName: "acme corp", CanonicalName: "Acme Corp", MentionCount: 1, FirstSeenDocumentID: "doc-1", FirstSeenChunkID: "chunk-1"}))

	_, err := s.db.ExecContext(ctx, "INSERT INTO bm25_postings (term, chunk_id, document_id, term_freq) VALUES ('hello', 'chunk-1', 'doc-1', 1)")
	require.NoError(t, err)

	require.NoError(t, s.DeleteDocument(ctx, "doc-1"))

	_, ok, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = s.GetChunk(ctx, "chunk-1")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = s.GetEmbedding(ctx, "chunk-1")
	require.NoError(t, err)
	require.False(t, ok)

	entity, ok, err := s.GetEntity(ctx, EntityParty, "acme corp")
	require.NoError(t, err)
	require.True(t, ok, "entity itself survives delete, only its mention count drops")
	require.Equal(t, 0, entity.MentionCount)

	candidates, err := s.SearchDense(ctx, []float32{0, 1, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.Empty(t, candidates, "vec_chunks must not retain a deleted chunk's dense vector")
}

func TestCaseSummaryRebuild(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutDocument(ctx, Document{ID: "doc-1", Filename: "f.pdf", DocType: DocContract, ChunkCount: 1, IngestedAt: time.Now(), UpdatedAt: time.Now()}))
	require.NoError(t, s.UpsertEntity(ctx, Entity{Type: EntityParty, NormalizedName: "acme corp", CanonicalName: "Acme Corp", MentionCount: 3}))

	summary, err := s.RebuildCaseSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.TotalDocuments)
	require.Equal(t, 1, summary.DocumentCategoryCounts["contract"])
	require.Len(t, summary.KeyParties, 1)
	require.Equal(t, "Acme Corp", summary.KeyParties[0].Name)

	reread, err := s.GetCaseSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, summary.TotalDocuments, reread.TotalDocuments)
}

func TestMetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, found, err := s.GetMetadata(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.SetMetadata(ctx, "last_watch_sync", "2026-07-29T00:00:00Z"))
	v, found, err := s.GetMetadata(ctx, "last_watch_sync")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "2026-07-29T00:00:00Z", v)
}
