package embedding

import (
	"context"
	"log/slog"
)

// BatchSize is the spec's fixed batch width for every embedding
// inference call: large enough to amortize request overhead, small
// enough that one suspension point covers a bounded amount of work.
const BatchSize = 32

// chunkBatches splits texts into BatchSize-sized slices, the last one
// possibly shorter.
func chunkBatches(texts []string) [][]string {
	var batches [][]string
	for i := 0; i < len(texts); i += BatchSize {
		end := i + BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[i:end])
	}
	return batches
}

// EmbedDenseBatched embeds texts in fixed-size batches. A failing batch
// does not abort the call: its chunks are reported in failed and every
// other batch still embeds, matching the pipeline's per-chunk
// embedder-coverage model (a chunk missing one embedder is still stored
// with the embedders that succeeded).
func EmbedDenseBatched(ctx context.Context, d Dense, texts []string) (vectors [][]float32, failed []int) {
	vectors = make([][]float32, len(texts))
	offset := 0
	for _, batch := range chunkBatches(texts) {
		out, err := d.EmbedDense(ctx, batch)
		if err != nil {
			slog.Warn("embedding: dense batch failed", "batch_size", len(batch), "error", err)
			for i := range batch {
				failed = append(failed, offset+i)
			}
		} else {
			for i, v := range out {
				vectors[offset+i] = v
			}
		}
		offset += len(batch)
	}
	return vectors, failed
}

// EmbedSparseBatched is EmbedDenseBatched's counterpart for the sparse
// capability.
func EmbedSparseBatched(ctx context.Context, s Sparse, texts []string) (vectors []SparseVector, failed []int) {
	vectors = make([]SparseVector, len(texts))
	offset := 0
	for _, batch := range chunkBatches(texts) {
		out, err := s.EmbedSparse(ctx, batch)
		if err != nil {
			slog.Warn("embedding: sparse batch failed", "batch_size", len(batch), "error", err)
			for i := range batch {
				failed = append(failed, offset+i)
			}
		} else {
			for i, v := range out {
				vectors[offset+i] = v
			}
		}
		offset += len(batch)
	}
	return vectors, failed
}

// EmbedTokenMatrixBatched is EmbedDenseBatched's counterpart for the
// late-interaction capability.
func EmbedTokenMatrixBatched(ctx context.Context, tm TokenMatrix, texts []string) (matrices [][][]float32, failed []int) {
	matrices = make([][][]float32, len(texts))
	offset := 0
	for _, batch := range chunkBatches(texts) {
		out, err := tm.EmbedTokens(ctx, batch)
		if err != nil {
			slog.Warn("embedding: token-matrix batch failed", "batch_size", len(batch), "error", err)
			for i := range batch {
				failed = append(failed, offset+i)
			}
		} else {
			for i, v := range out {
				matrices[offset+i] = v
			}
		}
		offset += len(batch)
	}
	return matrices, failed
}
