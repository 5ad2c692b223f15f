package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaDenseEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := ollamaEmbedResponse{
			Embeddings: make([][]float64, len(req.Input)),
		}
		for i := range req.Input {
			resp.Embeddings[i] = []float64{0.1, 0.2, 0.3}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	d := newOllamaDense(Config{Model: "legal-embed", BaseURL: srv.URL})
	out, err := d.EmbedDense(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedDense: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d vectors, want 2", len(out))
	}
	if len(out[0]) != 3 || out[0][0] != float32(0.1) {
		t.Errorf("vector = %v, want [0.1 0.2 0.3]", out[0])
	}
}

func TestOllamaDenseEmbedEmptyInput(t *testing.T) {
	d := newOllamaDense(Config{Model: "m", BaseURL: "http://unused"})
	out, err := d.EmbedDense(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedDense(nil): %v", err)
	}
	if out != nil {
		t.Errorf("expected nil result for empty input, got %v", out)
	}
}

func TestOllamaDenseEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("model not found"))
	}))
	defer srv.Close()

	d := newOllamaDense(Config{Model: "missing", BaseURL: srv.URL})
	_, err := d.EmbedDense(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error for non-retryable status, got nil")
	}
}

func TestToSparseVectorDropsNonPositive(t *testing.T) {
	dense := []float64{0, -0.5, 2.0, 0.00001}
	sv := toSparseVector(dense)
	if len(sv.Indices) != 1 {
		t.Fatalf("expected 1 surviving index, got %d: %v", len(sv.Indices), sv.Indices)
	}
	if sv.Indices[0] != 2 {
		t.Errorf("surviving index = %d, want 2", sv.Indices[0])
	}
}

func TestToSparseVectorSortedByIndex(t *testing.T) {
	dense := make([]float64, 10)
	for i := range dense {
		dense[i] = float64(i) + 1
	}
	sv := toSparseVector(dense)
	for i := 1; i < len(sv.Indices); i++ {
		if sv.Indices[i] <= sv.Indices[i-1] {
			t.Fatalf("indices not ascending: %v", sv.Indices)
		}
	}
}

func TestOllamaSparseEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := ollamaEmbedResponse{Embeddings: [][]float64{{0, 1.5, -1, 0.2}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	s := newOllamaSparse(Config{Model: "splade", BaseURL: srv.URL})
	out, err := s.EmbedSparse(context.Background(), []string{"clause text"})
	if err != nil {
		t.Fatalf("EmbedSparse: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d sparse vectors, want 1", len(out))
	}
	if len(out[0].Indices) == 0 {
		t.Error("expected non-empty sparse vector")
	}
}

func TestOllamaTokenMatrixEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed_tokens" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		resp := ollamaTokenMatrixResponse{
			Matrices: [][][]float64{{{0.1, 0.2}, {0.3, 0.4}}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	tm := newOllamaTokenMatrix(Config{Model: "colbert", BaseURL: srv.URL})
	out, err := tm.EmbedTokens(context.Background(), []string{"clause text"})
	if err != nil {
		t.Fatalf("EmbedTokens: %v", err)
	}
	if len(out) != 1 || len(out[0]) != 2 {
		t.Fatalf("unexpected shape: %v", out)
	}
}

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusOK, false},
	}
	for _, tt := range tests {
		if got := retryableStatus(tt.code); got != tt.want {
			t.Errorf("retryableStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
