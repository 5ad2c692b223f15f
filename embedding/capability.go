// Package embedding adapts the chat/vision provider abstraction in the
// original llm package into three narrower capability ports — dense,
// sparse, and per-token late-interaction — plus a load-strategy manager
// that decides which of them stay resident in memory.
//
// The pipeline only ever talks to these interfaces; swapping the model
// behind Dense or Sparse never touches ingest or retrieval code.
package embedding

import "context"

// Dense produces a single mean-pooled sentence vector per input text.
// The production model is a 768-dim legal-domain transformer; tests use
// a deterministic stub.
type Dense interface {
	EmbedDense(ctx context.Context, texts []string) ([][]float32, error)
}

// Sparse produces a vocabulary-sized sparse vector per input text, as
// (index, weight) pairs, from a masked-language-model head (max-pool
// over positions, ReLU+log).
type Sparse interface {
	EmbedSparse(ctx context.Context, texts []string) ([]SparseVector, error)
}

// TokenMatrix produces a per-token matrix for later MaxSim late-interaction
// scoring. This capability is tier-gated: not every deployment loads it.
type TokenMatrix interface {
	EmbedTokens(ctx context.Context, texts []string) ([][][]float32, error)
}

// SparseVector is a single text's sparse lexical-expansion embedding,
// already sorted by Indices ascending.
type SparseVector struct {
	Indices []uint32
	Weights []float32
}

// Capability names the three model-backed ports a load strategy reasons
// about. Algorithmic BM25 is not a capability here: it is always on and
// lives in the bm25 package, not the embedding manager.
type Capability string

const (
	CapabilityDense       Capability = "dense"
	CapabilitySparse      Capability = "sparse"
	CapabilityTokenMatrix Capability = "token_matrix"
)
