package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const defaultEagerLoadThresholdMB = 16 * 1024

// unloader is implemented by every capability's Ollama client so the
// manager can evict it under memory pressure without caring which
// capability it is.
type unloader interface {
	Unload(ctx context.Context) error
}

// Manager owns the three capability ports and decides, based on free
// host memory at startup, whether to load all configured capabilities
// eagerly or keep everything but dense on demand. Model quality is
// never downgraded by this decision — only when a model's weights are
// resident changes.
type Manager struct {
	cfg ManagerConfig

	mu          sync.Mutex
	dense       Dense
	sparse      Sparse
	tokenMatrix TokenMatrix
	eager       bool
}

// NewManager builds a Manager and performs the eager/lazy decision
// immediately, logging which strategy was chosen and why.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.EagerLoadThresholdMB == 0 {
		cfg.EagerLoadThresholdMB = defaultEagerLoadThresholdMB
	}
	m := &Manager{cfg: cfg}

	freeMB, ok := freeMemoryMB()
	m.eager = ok && freeMB >= cfg.EagerLoadThresholdMB
	if m.eager {
		slog.Info("embedding: eager load strategy", "free_mb", freeMB, "threshold_mb", cfg.EagerLoadThresholdMB)
		m.loadAll()
	} else {
		slog.Info("embedding: constrained load strategy, dense eager, rest on demand", "free_mb", freeMB, "meminfo_ok", ok)
		m.loadDense()
	}
	return m
}

func (m *Manager) loadDense() {
	if m.cfg.Dense.empty() {
		return
	}
	m.dense = newOllamaDense(m.cfg.Dense)
}

func (m *Manager) loadAll() {
	m.loadDense()
	if !m.cfg.Sparse.empty() {
		m.sparse = newOllamaSparse(m.cfg.Sparse)
	}
	if !m.cfg.TokenMatrix.empty() {
		m.tokenMatrix = newOllamaTokenMatrix(m.cfg.TokenMatrix)
	}
}

// Dense returns the dense capability port, loading it on first use if
// the constrained strategy deferred it (dense itself always loads
// eagerly per the spec, so this is normally already populated).
func (m *Manager) Dense() (Dense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dense == nil {
		if m.cfg.Dense.empty() {
			return nil, fmt.Errorf("embedding: dense capability not configured")
		}
		m.dense = newOllamaDense(m.cfg.Dense)
	}
	return m.dense, nil
}

// Sparse returns the sparse capability port, loading it on demand under
// the constrained strategy.
func (m *Manager) Sparse() (Sparse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.Sparse.empty() {
		return nil, fmt.Errorf("embedding: sparse capability not configured")
	}
	if m.sparse == nil {
		m.sparse = newOllamaSparse(m.cfg.Sparse)
	}
	return m.sparse, nil
}

// TokenMatrix returns the late-interaction capability port, loading it
// on demand under the constrained strategy. Callers should treat a
// "not configured" error as "this capability tier is unavailable here"
// rather than a fatal condition: late-interaction reranking is optional.
func (m *Manager) TokenMatrix() (TokenMatrix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.TokenMatrix.empty() {
		return nil, fmt.Errorf("embedding: token-matrix capability not configured")
	}
	if m.tokenMatrix == nil {
		m.tokenMatrix = newOllamaTokenMatrix(m.cfg.TokenMatrix)
	}
	return m.tokenMatrix, nil
}

// UnloadUnderPressure evicts the non-dense capabilities from memory,
// leaving dense (the always-primary capability) resident. It is safe to
// call repeatedly or when a capability was never loaded.
func (m *Manager) UnloadUnderPressure(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.eager {
		// An eager-strategy host decided it had headroom; if pressure
		// shows up anyway, fall back to the constrained policy from now on.
		m.eager = false
	}

	if u, ok := m.sparse.(unloader); ok && m.sparse != nil {
		if err := u.Unload(ctx); err != nil {
			slog.Warn("embedding: failed to unload sparse capability", "error", err)
		}
		m.sparse = nil
	}
	if u, ok := m.tokenMatrix.(unloader); ok && m.tokenMatrix != nil {
		if err := u.Unload(ctx); err != nil {
			slog.Warn("embedding: failed to unload token-matrix capability", "error", err)
		}
		m.tokenMatrix = nil
	}
}

// Strategy reports whether the manager is currently operating in eager
// (all capabilities resident) mode.
func (m *Manager) Strategy() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.eager {
		return "eager"
	}
	return "constrained"
}
