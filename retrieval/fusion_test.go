package retrieval

import (
	"testing"

	"github.com/casetrack/casetrack/bm25"
	"github.com/casetrack/casetrack/casestore"
)

func TestFusionContributionZeroForNonPositiveScore(t *testing.T) {
	if got := fusionContribution(denseWeight, 0); got != 0 {
		t.Errorf("fusionContribution(weight, 0) = %v, want 0", got)
	}
	if got := fusionContribution(denseWeight, -0.5); got != 0 {
		t.Errorf("fusionContribution(weight, -0.5) = %v, want 0", got)
	}
}

func TestFusionContributionPositiveScore(t *testing.T) {
	got := fusionContribution(1.0, 1.0)
	want := 1.0 / (fusionK + 1.0)
	if got != want {
		t.Errorf("fusionContribution(1, 1) = %v, want %v", got, want)
	}
}

func TestFuseRanksHigherCosineAboveMissingVector(t *testing.T) {
	stage1 := []bm25.ScoredChunk{
		{ChunkID: "has-vector", DocumentID: "doc-1", Score: 1},
		{ChunkID: "missing-vector", DocumentID: "doc-1", Score: 2},
	}
	embeddings := map[string]casestore.EmbeddingRecord{
		"has-vector": {ChunkID: "has-vector", Dense: []float32{1, 0, 0}},
	}
	queryVec := []float32{1, 0, 0}

	out := fuse(stage1, embeddings, queryVec, nil)
	if len(out) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(out))
	}
	if out[0].ChunkID != "has-vector" {
		t.Errorf("top candidate = %q, want has-vector (a missing vector contributes 0)", out[0].ChunkID)
	}
	if out[1].Score != 0 {
		t.Errorf("missing-vector candidate score = %v, want 0", out[1].Score)
	}
}

func TestMaxSimAveragesPerQueryTokenBest(t *testing.T) {
	query := [][]float32{{1, 0}, {0, 1}}
	chunk := [][]float32{{1, 0}, {0, 1}}

	got := maxSim(query, chunk)
	if got < 0.99 || got > 1.01 {
		t.Errorf("maxSim with identical token sets = %v, want ~1.0", got)
	}
}

func TestMaxSimEmptyInputsReturnZero(t *testing.T) {
	if got := maxSim(nil, [][]float32{{1, 0}}); got != 0 {
		t.Errorf("maxSim(nil, ...) = %v, want 0", got)
	}
	if got := maxSim([][]float32{{1, 0}}, nil); got != 0 {
		t.Errorf("maxSim(..., nil) = %v, want 0", got)
	}
}
