package retrieval

import (
	"context"
	"sort"

	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/serialize"
)

// rerank runs the stage-3 token-level MaxSim rerank over stage2's
// candidates. It degrades gracefully to the unmodified stage2 ranking
// whenever the token-matrix capability is unavailable or the query fails
// to embed into per-token vectors; an individual candidate with no stored
// token matrix keeps its stage2 score while the others are rescored. None
// of these are treated as a hard failure, since late-interaction
// reranking is an optional refinement.
func (e *Engine) rerank(ctx context.Context, query string, stage2 []scoredCandidate, embeddings map[string]casestore.EmbeddingRecord) []scoredCandidate {
	tm, err := e.embedMgr.TokenMatrix()
	if err != nil {
		e.logger.Info("retrieval: token-matrix capability unavailable, using stage 2 ranking", "error", err)
		return stage2
	}

	matrices, err := tm.EmbedTokens(ctx, []string{query})
	if err != nil || len(matrices) == 0 || len(matrices[0]) == 0 {
		e.logger.Warn("retrieval: query token embedding failed, using stage 2 ranking", "error", err)
		return stage2
	}
	queryTokens := matrices[0]

	out := make([]scoredCandidate, len(stage2))
	for i, c := range stage2 {
		rec, ok := embeddings[c.ChunkID]
		if !ok || len(rec.TokenMatrix) == 0 {
			out[i] = c
			continue
		}
		sim := maxSim(queryTokens, rec.TokenMatrix)
		out[i] = scoredCandidate{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Score:      rerankStage2Weight*c.Score + rerankMaxSimWeight*sim,
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}

// maxSim computes late-interaction MaxSim between a query's per-token
// vectors and a chunk's per-token vectors: for every query token, the
// highest cosine against any chunk token, averaged across query tokens.
func maxSim(queryTokens, chunkTokens [][]float32) float64 {
	if len(queryTokens) == 0 || len(chunkTokens) == 0 {
		return 0
	}
	var sum float64
	for _, q := range queryTokens {
		best := 0.0
		for _, ct := range chunkTokens {
			if sim := serialize.CosineDense(q, ct); sim > best {
				best = sim
			}
		}
		sum += best
	}
	return sum / float64(len(queryTokens))
}
