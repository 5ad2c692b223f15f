package retrieval

import (
	"sort"

	"github.com/casetrack/casetrack/bm25"
	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/serialize"
)

// scoredCandidate is a stage-1 chunk carrying its stage-2 (or later,
// stage-3) score, ordered independently of the original BM25 ranking.
type scoredCandidate struct {
	ChunkID    string
	DocumentID string
	Score      float64
}

// fuse computes each stage-1 candidate's semantic score by fusing its
// dense cosine and sparse dot product against the query, RRF-shaped per
// embedder contribution: weight / (K + 1/score) for score > 0, else 0.
// A candidate missing a vector for one embedder simply receives 0 for
// that embedder's contribution rather than being dropped.
func fuse(stage1 []bm25.ScoredChunk, embeddings map[string]casestore.EmbeddingRecord, denseQuery []float32, sparseQuery *serialize.SparseVector) []scoredCandidate {
	out := make([]scoredCandidate, 0, len(stage1))
	for _, s := range stage1 {
		rec, ok := embeddings[s.ChunkID]

		var total float64
		if ok && denseQuery != nil && len(rec.Dense) > 0 {
			total += fusionContribution(denseWeight, serialize.CosineDense(denseQuery, rec.Dense))
		}
		if ok && sparseQuery != nil && rec.Sparse != nil {
			sv := serialize.SparseVector{Indices: rec.Sparse.Indices, Weights: rec.Sparse.Weights}
			total += fusionContribution(sparseWeight, serialize.DotSparse(*sparseQuery, sv))
		}

		out = append(out, scoredCandidate{ChunkID: s.ChunkID, DocumentID: s.DocumentID, Score: total})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}

// fusionContribution is one embedder's RRF-shaped contribution to a
// candidate's fused score: weight / (K + 1/score) for a positive score,
// 0 otherwise (a non-positive similarity contributes nothing rather
// than being allowed to drag the fused score negative).
func fusionContribution(weight, score float64) float64 {
	if score <= 0 {
		return 0
	}
	return weight / (fusionK + 1/score)
}
