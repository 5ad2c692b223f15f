package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// ollamaDense calls Ollama's native /api/embed endpoint, the same one
// the original chat provider used for its single Embed method, now
// split out as a narrow Dense port.
type ollamaDense struct {
	http  *httpClient
	model string
}

func newOllamaDense(cfg Config) *ollamaDense {
	return &ollamaDense{http: newHTTPClient(cfg), model: cfg.Model}
}

type ollamaEmbedRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	KeepAlive string   `json:"keep_alive,omitempty"`
}

// unloadRequest asks Ollama to evict a model immediately by sending an
// empty input with keep_alive "0", Ollama's documented unload signal.
type unloadRequest struct {
	Model     string `json:"model"`
	KeepAlive string `json:"keep_alive"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Unload tells the Ollama server to evict this model from memory
// immediately, used by the manager when load pressure requires freeing
// a non-dense capability.
func (o *ollamaDense) Unload(ctx context.Context) error {
	_, err := o.http.doPost(ctx, "/api/embed", unloadRequest{Model: o.model, KeepAlive: "0"})
	return err
}

func (o *ollamaDense) EmbedDense(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body := ollamaEmbedRequest{Model: o.model, Input: texts}
	respBody, err := o.http.doPost(ctx, "/api/embed", body)
	if err != nil {
		return nil, fmt.Errorf("ollama dense embed: %w", err)
	}
	var resp ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding ollama embed response: %w", err)
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = float64sToFloat32s(e)
	}
	return out, nil
}

// ollamaSparse calls the same native embed endpoint against a masked-
// language-model head whose raw output is a full vocabulary-width
// vector, then reduces that vector to the spec's (index, weight) sparse
// representation: ReLU to drop negative activations, log1p to compress
// the long tail, and a small fixed floor to keep postings bounded.
type ollamaSparse struct {
	http  *httpClient
	model string
}

func newOllamaSparse(cfg Config) *ollamaSparse {
	return &ollamaSparse{http: newHTTPClient(cfg), model: cfg.Model}
}

const sparseWeightFloor = 1e-4

// Unload tells the Ollama server to evict this model from memory.
func (o *ollamaSparse) Unload(ctx context.Context) error {
	_, err := o.http.doPost(ctx, "/api/embed", unloadRequest{Model: o.model, KeepAlive: "0"})
	return err
}

func (o *ollamaSparse) EmbedSparse(ctx context.Context, texts []string) ([]SparseVector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body := ollamaEmbedRequest{Model: o.model, Input: texts}
	respBody, err := o.http.doPost(ctx, "/api/embed", body)
	if err != nil {
		return nil, fmt.Errorf("ollama sparse embed: %w", err)
	}
	var resp ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding ollama embed response: %w", err)
	}

	out := make([]SparseVector, len(resp.Embeddings))
	for i, dense := range resp.Embeddings {
		out[i] = toSparseVector(dense)
	}
	return out, nil
}

// toSparseVector applies ReLU+log to a dense vector and keeps only the
// surviving non-zero entries, already sorted by index ascending since
// it walks the input in index order.
func toSparseVector(dense []float64) SparseVector {
	var sv SparseVector
	for idx, v := range dense {
		if v <= 0 {
			continue
		}
		weight := math.Log1p(v)
		if weight < sparseWeightFloor {
			continue
		}
		sv.Indices = append(sv.Indices, uint32(idx))
		sv.Weights = append(sv.Weights, float32(weight))
	}
	return sv
}

// ollamaTokenMatrix calls a per-token embedding endpoint for the
// optional late-interaction capability. Ollama does not natively expose
// per-token matrices through /api/embed, so this targets a model server
// configured to return one vector per input token under the tier-gated
// "/api/embed_tokens" path; deployments that don't run such a model
// simply never configure this capability and the manager never loads it.
type ollamaTokenMatrix struct {
	http  *httpClient
	model string
}

func newOllamaTokenMatrix(cfg Config) *ollamaTokenMatrix {
	return &ollamaTokenMatrix{http: newHTTPClient(cfg), model: cfg.Model}
}

type ollamaTokenMatrixResponse struct {
	Matrices [][][]float64 `json:"matrices"`
}

// Unload tells the Ollama server to evict this model from memory.
func (o *ollamaTokenMatrix) Unload(ctx context.Context) error {
	_, err := o.http.doPost(ctx, "/api/embed_tokens", unloadRequest{Model: o.model, KeepAlive: "0"})
	return err
}

func (o *ollamaTokenMatrix) EmbedTokens(ctx context.Context, texts []string) ([][][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body := ollamaEmbedRequest{Model: o.model, Input: texts}
	respBody, err := o.http.doPost(ctx, "/api/embed_tokens", body)
	if err != nil {
		return nil, fmt.Errorf("ollama token-matrix embed: %w", err)
	}
	var resp ollamaTokenMatrixResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding ollama token-matrix response: %w", err)
	}
	out := make([][][]float32, len(resp.Matrices))
	for i, matrix := range resp.Matrices {
		rows := make([][]float32, len(matrix))
		for j, row := range matrix {
			rows[j] = float64sToFloat32s(row)
		}
		out[i] = rows
	}
	return out, nil
}

func float64sToFloat32s(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
