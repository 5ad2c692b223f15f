package ingest

import (
	"context"
	"fmt"

	"github.com/casetrack/casetrack/bm25"
	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/embedding"
)

// embedChunks is step 5: route every chunk's text through each
// configured embedding capability in fixed-size batches, and update the
// BM25 postings for every chunk. A capability that is not configured is
// skipped entirely; a capability that fails for a specific chunk leaves
// that chunk's EmbedderIDs without it rather than failing the chunk.
func (p *Pipeline) embedChunks(ctx context.Context, documentID string, chunks []casestore.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var denseVecs [][]float32
	denseFailed := map[int]bool{}
	if dense, err := p.embedMgr.Dense(); err == nil {
		var failed []int
		denseVecs, failed = embedding.EmbedDenseBatched(ctx, dense, texts)
		for _, i := range failed {
			denseFailed[i] = true
		}
	}

	var sparseVecs []embedding.SparseVector
	sparseFailed := map[int]bool{}
	if sparse, err := p.embedMgr.Sparse(); err == nil {
		var failed []int
		sparseVecs, failed = embedding.EmbedSparseBatched(ctx, sparse, texts)
		for _, i := range failed {
			sparseFailed[i] = true
		}
	}

	var tokenMatrices [][][]float32
	tokenFailed := map[int]bool{}
	if tm, err := p.embedMgr.TokenMatrix(); err == nil {
		var failed []int
		tokenMatrices, failed = embedding.EmbedTokenMatrixBatched(ctx, tm, texts)
		for _, i := range failed {
			tokenFailed[i] = true
		}
	}

	for i, c := range chunks {
		rec := casestore.EmbeddingRecord{ChunkID: c.ID, Text: c.Text, Provenance: c.Provenance}
		var embedderIDs []string

		if denseVecs != nil && !denseFailed[i] {
			rec.Dense = denseVecs[i]
			embedderIDs = append(embedderIDs, string(embedding.CapabilityDense))
		}
		if sparseVecs != nil && !sparseFailed[i] {
			sv := sparseVecs[i]
			rec.Sparse = &casestore.SparseVectorRecord{Indices: sv.Indices, Weights: sv.Weights}
			embedderIDs = append(embedderIDs, string(embedding.CapabilitySparse))
		}
		if tokenMatrices != nil && !tokenFailed[i] {
			rec.TokenMatrix = tokenMatrices[i]
			embedderIDs = append(embedderIDs, string(embedding.CapabilityTokenMatrix))
		}

		if err := p.store.PutEmbedding(ctx, rec); err != nil {
			return fmt.Errorf("storing embedding for chunk %s: %w", c.ID, err)
		}

		chunks[i].EmbedderIDs = embedderIDs
		if err := p.store.PutChunk(ctx, chunks[i]); err != nil {
			return fmt.Errorf("updating embedder coverage for chunk %s: %w", c.ID, err)
		}

		if err := bm25.IndexChunk(ctx, p.store.DB(), documentID, c.ID, c.Text); err != nil {
			return fmt.Errorf("indexing bm25 postings for chunk %s: %w", c.ID, err)
		}
	}
	return nil
}
