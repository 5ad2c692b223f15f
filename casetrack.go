// Package casetrack is a local-first document store, retrieval engine,
// and knowledge graph for legal case files, exposed as a single
// dispatch surface of named tool operations over stdio.
package casetrack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/casetrack/casetrack/registry"
	"github.com/casetrack/casetrack/toolsurface"
)

// Engine is the top-level handle a host process builds once at startup:
// it owns the case registry and the tool-dispatch surface built on top
// of it, and is the only thing cmd/casetrackd talks to.
type Engine struct {
	cfg    Config
	reg    *registry.Registry
	surf   *toolsurface.Surface
	logger *slog.Logger
}

// New opens (creating if necessary) the registry and case databases
// under cfg's storage directory and builds the tool-dispatch surface
// bound to them. If cfg.Watch.Enabled, folder watching starts
// immediately against <storage dir>/watches.json.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := cfg.resolveStorageDir()

	reg, err := registry.Open(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("casetrack: opening registry: %w", err)
	}

	surf := toolsurface.New(reg, toolsurface.Config{
		DenseDim:         cfg.DenseDim,
		GraphConcurrency: cfg.GraphConcurrency,
		Embedding:        cfg.Embedding,
	}, logger)

	e := &Engine{cfg: cfg, reg: reg, surf: surf, logger: logger}

	if cfg.Watch.Enabled {
		watchPath := filepath.Join(dir, "watches.json")
		if err := surf.StartWatching(ctx, watchPath); err != nil {
			reg.Close()
			return nil, fmt.Errorf("casetrack: starting watch manager: %w", err)
		}
	}

	return e, nil
}

// Result is what Dispatch returns for every invocation, successful or
// not: a content array a caller can render directly, plus IsError so a
// caller can distinguish a real failure from a successful response
// that merely happens to describe an empty result set.
type Result = toolsurface.Result

// ContentBlock is one unit of a Result's content array.
type ContentBlock = toolsurface.ContentBlock

// Dispatch runs one named tool operation against raw JSON arguments and
// returns its content blocks. It never returns a Go error for a tool
// failure — a failed operation comes back as a Result with IsError set
// and a TaggedError-shaped message, per the closed error taxonomy.
func (e *Engine) Dispatch(ctx context.Context, name string, args json.RawMessage) Result {
	return e.surf.Dispatch(ctx, name, args)
}

// ToolNames lists every registered tool operation, for a host process
// that wants to advertise its capability surface.
func (e *Engine) ToolNames() []string {
	return toolsurface.Names()
}

// Describe returns one tool's registered definition (name, description,
// argument schema), for building a capability listing.
func Describe(name string) (toolsurface.ToolDef, bool) {
	return toolsurface.Describe(name)
}

// Close releases every open case database and the registry itself.
func (e *Engine) Close() error {
	if err := e.surf.Close(); err != nil {
		e.logger.Warn("casetrack: closing tool surface", "error", err)
	}
	return e.reg.Close()
}
