package embedding

import (
	"context"
	"errors"
	"testing"
)

type stubDense struct {
	failModel string // if set, any call returns an error
	calls     [][]string
}

func (s *stubDense) EmbedDense(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls = append(s.calls, texts)
	if s.failModel != "" {
		return nil, errors.New(s.failModel)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func TestChunkBatchesSplitsEvenly(t *testing.T) {
	texts := make([]string, 65)
	batches := chunkBatches(texts)
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	if len(batches[0]) != 32 || len(batches[1]) != 32 || len(batches[2]) != 1 {
		t.Errorf("batch sizes = %d, %d, %d", len(batches[0]), len(batches[1]), len(batches[2]))
	}
}

func TestEmbedDenseBatchedAllSucceed(t *testing.T) {
	texts := make([]string, 40)
	for i := range texts {
		texts[i] = "chunk text"
	}
	d := &stubDense{}
	vectors, failed := EmbedDenseBatched(context.Background(), d, texts)
	if len(failed) != 0 {
		t.Errorf("unexpected failures: %v", failed)
	}
	if len(vectors) != 40 {
		t.Fatalf("got %d vectors, want 40", len(vectors))
	}
	if len(d.calls) != 2 {
		t.Errorf("expected 2 batch calls for 40 texts, got %d", len(d.calls))
	}
}

func TestEmbedDenseBatchedPartialFailureIsolatesChunks(t *testing.T) {
	texts := make([]string, 33)
	d := &stubDense{failModel: "model unavailable"}
	vectors, failed := EmbedDenseBatched(context.Background(), d, texts)
	if len(failed) != 33 {
		t.Fatalf("expected all 33 chunks marked failed, got %d", len(failed))
	}
	for _, v := range vectors {
		if v != nil {
			t.Error("expected nil vector for failed chunk")
		}
	}
}
