package toolsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/embedding"
	"github.com/casetrack/casetrack/ingest"
	"github.com/casetrack/casetrack/parser"
	"github.com/casetrack/casetrack/registry"
	"github.com/casetrack/casetrack/retrieval"
	"github.com/casetrack/casetrack/watch"
)

// Config configures a Surface: the embedding capabilities every case in
// this installation shares, the dense vector dimension every case's
// database was opened with, how many goroutines the graph builder may
// run concurrently during ingestion, and an optional OCR recognizer for
// scanned PDF pages.
type Config struct {
	DenseDim         int
	GraphConcurrency int
	Embedding        embedding.ManagerConfig
	OCR              parser.OCRRecognizer
}

// caseHandle bundles the per-case live objects a resolved case needs:
// the store itself, the ingestion pipeline bound to it, and the search
// engine bound to it. Caching these per case id avoids reopening the
// SQLite connection (and its WAL/shm siblings) on every tool call.
type caseHandle struct {
	store  *casestore.Store
	ingest *ingest.Pipeline
	search *retrieval.Engine
}

// Surface is the single stateful object backing every tool operation:
// the case registry, a shared embedding manager and parser registry
// used to build each case's pipeline on first access, and a mutex-
// guarded cache of open case handles.
type Surface struct {
	reg      *registry.Registry
	embedMgr *embedding.Manager
	parsers  *parser.Registry
	cfg      Config
	logger   *slog.Logger

	mu      sync.Mutex
	handles map[string]*caseHandle
	watches *watch.Manager
}

// New builds a Surface bound to an already-open registry. Call
// StartWatching once the Surface is constructed if folder watching
// should run for this process.
func New(reg *registry.Registry, cfg Config, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Surface{
		reg:      reg,
		embedMgr: embedding.NewManager(cfg.Embedding),
		parsers:  parser.NewRegistry(cfg.OCR),
		cfg:      cfg,
		logger:   logger,
		handles:  make(map[string]*caseHandle),
	}
	return s
}

// StartWatching wires a watch.Manager bound to this Surface's case
// resolver and starts it. watchRegistryPath is the watches.json path,
// typically <registry base dir>/watches.json.
func (s *Surface) StartWatching(ctx context.Context, watchRegistryPath string) error {
	wreg, err := watch.Open(watchRegistryPath)
	if err != nil {
		return fmt.Errorf("toolsurface: opening watch registry: %w", err)
	}
	mgr, err := watch.New(wreg, s.resolveForWatch, s.logger)
	if err != nil {
		return fmt.Errorf("toolsurface: constructing watch manager: %w", err)
	}
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("toolsurface: starting watch manager: %w", err)
	}
	s.watches = mgr
	return nil
}

// resolveForWatch implements watch.CaseAccessor in terms of the same
// per-case handle cache every tool operation uses, so a filesystem event
// and a search tool call against the same case never race over two
// independent SQLite connections.
func (s *Surface) resolveForWatch(caseID string) (*casestore.Store, *ingest.Pipeline, error) {
	h, err := s.resolveCase(context.Background(), caseID)
	if err != nil {
		return nil, nil, err
	}
	return h.store, h.ingest, nil
}

// resolveCase returns the cached handle for caseID, opening and
// constructing it on first access.
func (s *Surface) resolveCase(ctx context.Context, caseID string) (*caseHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.handles[caseID]; ok {
		return h, nil
	}

	store, err := s.reg.OpenCase(ctx, caseID, s.cfg.DenseDim)
	if err != nil {
		return nil, err
	}
	h := &caseHandle{
		store:  store,
		ingest: ingest.New(store, s.parsers, s.embedMgr, s.cfg.GraphConcurrency, s.logger),
		search: retrieval.New(store, s.embedMgr, s.logger),
	}
	s.handles[caseID] = h
	return h, nil
}

// forgetCase evicts and closes a cached handle, used after archiving or
// deleting a case so the next access reopens a
// fresh connection instead of serving stale state.
func (s *Surface) forgetCase(caseID string) {
	s.mu.Lock()
	h, ok := s.handles[caseID]
	delete(s.handles, caseID)
	s.mu.Unlock()
	if ok {
		if err := h.store.Close(); err != nil {
			s.logger.Warn("toolsurface: closing evicted case handle", "case_id", caseID, "error", err)
		}
	}
}

// Close shuts down the watch manager (if started) and every cached case
// handle, then closes the registry.
func (s *Surface) Close() error {
	if s.watches != nil {
		if err := s.watches.Stop(); err != nil {
			s.logger.Warn("toolsurface: stopping watch manager", "error", err)
		}
	}
	s.mu.Lock()
	for id, h := range s.handles {
		if err := h.store.Close(); err != nil {
			s.logger.Warn("toolsurface: closing case handle", "case_id", id, "error", err)
		}
	}
	s.handles = make(map[string]*caseHandle)
	s.mu.Unlock()
	return s.reg.Close()
}

// invocationContext carries the request context and resolved active
// case handle (when required) into a Handler.
type invocationContext struct {
	ctx    context.Context
	sfc    *Surface
	caseID string
	handle *caseHandle
}

// withCase resolves fields["case_id"] (falling back to the registry's
// active case when absent) to a live case handle and returns an
// invocationContext carrying it. Every handler whose operation needs a
// case calls this first; an absent case_id with no active case set
// surfaces as the no-active-case error kind via mapError.
func (ic invocationContext) withCase(fields map[string]interface{}) (invocationContext, error) {
	caseID := stringArg(fields, "case_id")
	if caseID == "" {
		id, err := ic.sfc.reg.ActiveCaseID(ic.ctx)
		if err != nil {
			return ic, err
		}
		caseID = id
	}
	h, err := ic.sfc.resolveCase(ic.ctx, caseID)
	if err != nil {
		return ic, err
	}
	ic.caseID, ic.handle = caseID, h
	return ic, nil
}

// Dispatch validates args against name's declared schema and runs its
// handler, normalizing any panic-free failure into the isError result
// shape. An unknown tool name is itself reported as an isError result
// rather than a Go error, since the caller is a protocol loop that
// always expects a Result back.
func (s *Surface) Dispatch(ctx context.Context, name string, args json.RawMessage) Result {
	def, ok := roster[name]
	if !ok {
		return errorResult(tagged(KindInvalidArgument, fmt.Sprintf("unknown tool %q", name)))
	}
	fields, err := validateArgs(def.Schema, args)
	if err != nil {
		return errorResult(tagged(KindInvalidArgument, err.Error()))
	}
	ic := invocationContext{ctx: ctx, sfc: s}
	return def.Handler(ic, fields)
}
