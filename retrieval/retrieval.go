// Package retrieval implements the four-stage search pipeline: a
// citation fast path, BM25 lexical recall, dense+sparse semantic
// fusion, and an optional token-level MaxSim rerank, finishing with
// provenance- and context-window-bearing result assembly. An optional
// graph-expansion post-processor can widen the final result set through
// co-mentioned entities.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/casetrack/casetrack/bm25"
	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/embedding"
	"github.com/casetrack/casetrack/graph"
	"github.com/casetrack/casetrack/provenance"
	"github.com/casetrack/casetrack/serialize"
)

// Tuning constants fixed by the retrieval contract: stage 1 recall
// width, the candidate count carried into reranking, the RRF-shaped
// fusion constant and per-embedder weights, and the stage-2/MaxSim
// blend the token rerank uses.
const (
	defaultTopK          = 10
	stage1RecallLimit    = 500
	stage2KeepCount      = 100
	fusionK              = 60.0
	denseWeight          = 1.0
	sparseWeight         = 0.8
	rerankStage2Weight   = 0.4
	rerankMaxSimWeight   = 0.6
	defaultMaxExpansions = 5
)

// Engine runs the retrieval pipeline against a single case store.
type Engine struct {
	store    *casestore.Store
	embedMgr *embedding.Manager
	logger   *slog.Logger
}

// New builds an Engine. logger defaults to slog.Default() when nil.
func New(store *casestore.Store, embedMgr *embedding.Manager, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, embedMgr: embedMgr, logger: logger}
}

// Options configures a single Search call.
type Options struct {
	// TopK bounds the number of ranked results returned; defaults to 10.
	TopK int
	// DocumentIDs restricts lexical recall and the citation fast path to
	// a subset of the case's documents. Empty means unrestricted.
	DocumentIDs []string
	// ExpandGraph turns on the graph-expansion post-processor, which
	// widens the final result set with chunks co-mentioning the same
	// entities as a top result. Off by default: it is a discovery aid,
	// not part of the core ranked answer.
	ExpandGraph bool
	// MaxExpansions bounds how many extra chunks ExpandGraph adds per
	// seed result; defaults to 5.
	MaxExpansions int
}

// Result is one ranked passage, carrying its text, score, full
// provenance, pre-formatted citation strings, and its immediate
// sequence-neighbour context.
type Result struct {
	ChunkID       string
	DocumentID    string
	Text          string
	Score         float64
	Provenance    provenance.Record
	CitationLong  string
	CitationLegal string
	CitationShort string
	ContextBefore string
	ContextAfter  string
	// Snippet is the one or two sentences of Text with the highest
	// overlap against the query's significant words, for callers that
	// want a short excerpt instead of the full chunk.
	Snippet string
	// Source distinguishes how a result entered the set: "citation",
	// "ranked", or "graph_expansion".
	Source string
}

// Search runs the retrieval pipeline for query. An empty or
// all-whitespace query returns nil, not an error; an entirely empty
// candidate set at any later stage returns an empty, non-nil slice.
// Every non-blank invocation is recorded to the case's query log with
// per-stage timings, win or lose, for operator diagnostics.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}

	timings := make(map[string]int64, 4)
	started := time.Now()
	results, err := e.runSearch(ctx, query, opts, timings)
	timings["total_ms"] = time.Since(started).Milliseconds()
	e.logQuery(ctx, query, len(results), timings)
	return results, err
}

func (e *Engine) runSearch(ctx context.Context, query string, opts Options, timings map[string]int64) ([]Result, error) {
	queryWords := significantWords(query)

	t0 := time.Now()
	fastPath, matched, err := e.citationFastPath(ctx, query, opts)
	timings["citation_fastpath_ms"] = time.Since(t0).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("retrieval: citation fast path: %w", err)
	}
	if matched {
		return fastPath, nil
	}

	t0 = time.Now()
	stage1, err := bm25.Score(ctx, e.store.DB(), query, stage1RecallLimit, opts.DocumentIDs)
	timings["lexical_recall_ms"] = time.Since(t0).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("retrieval: lexical recall: %w", err)
	}
	if len(stage1) == 0 {
		return []Result{}, nil
	}

	chunkIDs := make([]string, len(stage1))
	for i, s := range stage1 {
		chunkIDs[i] = s.ChunkID
	}
	embeddings, err := e.store.GetEmbeddingsByChunkIDs(ctx, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("retrieval: hydrating candidate embeddings: %w", err)
	}

	denseQuery, sparseQuery := e.embedQuery(ctx, query)

	t0 = time.Now()
	stage2 := fuse(stage1, embeddings, denseQuery, sparseQuery)
	if len(stage2) > stage2KeepCount {
		stage2 = stage2[:stage2KeepCount]
	}
	final := e.rerank(ctx, query, stage2, embeddings)
	timings["fusion_rerank_ms"] = time.Since(t0).Milliseconds()
	if len(final) > opts.TopK {
		final = final[:opts.TopK]
	}

	order := make([]string, len(final))
	scores := make(map[string]float64, len(final))
	for i, c := range final {
		order[i] = c.ChunkID
		scores[c.ChunkID] = c.Score
	}

	t0 = time.Now()
	results, err := e.assemble(ctx, order, scores, "ranked", queryWords)
	timings["assemble_ms"] = time.Since(t0).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("retrieval: assembling results: %w", err)
	}

	if opts.ExpandGraph {
		results = e.expandWithGraph(ctx, results, opts, queryWords)
	}
	return results, nil
}

// logQuery best-effort records the invocation to the case's query log.
// A logging failure is a warning, never an error returned to the caller.
func (e *Engine) logQuery(ctx context.Context, query string, resultCount int, timings map[string]int64) {
	_, err := e.store.PutQueryLogEntry(ctx, casestore.QueryLogEntry{
		QueryText:    query,
		ResultCount:  resultCount,
		StageTimings: timings,
	})
	if err != nil {
		e.logger.Warn("retrieval: recording query log entry failed", "error", err)
	}
}

// embedQuery embeds the query once with whichever of the dense and
// sparse capabilities are configured, logging and returning a nil
// vector for any capability that is unavailable or fails — callers
// treat a nil vector as "contributes nothing" rather than aborting.
func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, *serialize.SparseVector) {
	var dense []float32
	if d, err := e.embedMgr.Dense(); err == nil {
		vecs, embErr := d.EmbedDense(ctx, []string{query})
		if embErr != nil || len(vecs) == 0 {
			e.logger.Warn("retrieval: query dense embedding failed", "error", embErr)
		} else {
			dense = vecs[0]
		}
	}

	var sparse *serialize.SparseVector
	if s, err := e.embedMgr.Sparse(); err == nil {
		vecs, embErr := s.EmbedSparse(ctx, []string{query})
		if embErr != nil || len(vecs) == 0 {
			e.logger.Warn("retrieval: query sparse embedding failed", "error", embErr)
		} else {
			sv := serialize.SparseVector{Indices: vecs[0].Indices, Weights: vecs[0].Weights}
			sv.Sort()
			sparse = &sv
		}
	}
	return dense, sparse
}

// assemble hydrates chunkIDs (in the given order) into full Results:
// chunk text, provenance, the three citation formats, and the
// sequence-neighbour context window. An id with no stored chunk (a
// stale reference) is silently skipped rather than failing the call.
func (e *Engine) assemble(ctx context.Context, chunkIDs []string, scores map[string]float64, source string, queryWords map[string]bool) ([]Result, error) {
	chunks, err := e.store.GetChunksByIDs(ctx, chunkIDs)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		c, ok := chunks[id]
		if !ok {
			continue
		}
		results = append(results, Result{
			ChunkID:       c.ID,
			DocumentID:    c.DocumentID,
			Text:          c.Text,
			Score:         scores[id],
			Provenance:    c.Provenance,
			CitationLong:  c.Provenance.Citation(),
			CitationLegal: c.Provenance.CitationLegal(),
			CitationShort: c.Provenance.CitationShort(),
			ContextBefore: e.neighborText(ctx, c.DocumentID, c.Sequence-1),
			ContextAfter:  e.neighborText(ctx, c.DocumentID, c.Sequence+1),
			Snippet:       bestSnippet(c.Text, queryWords),
			Source:        source,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// neighborText fetches the text of the chunk at (documentID, sequence),
// returning "" for an out-of-range or missing neighbour rather than
// erroring — a result at the start or end of a document simply has no
// context on that side.
func (e *Engine) neighborText(ctx context.Context, documentID string, sequence int) string {
	if sequence < 0 {
		return ""
	}
	c, found, err := e.store.GetChunkBySequence(ctx, documentID, sequence)
	if err != nil || !found {
		return ""
	}
	return c.Text
}

// expandWithGraph runs the graph-expansion post-processor over each
// seed result and appends any newly discovered chunks, ranked by their
// combined entity-co-mention edge weight. Results already present in
// the seed set are never duplicated.
func (e *Engine) expandWithGraph(ctx context.Context, results []Result, opts Options, queryWords map[string]bool) []Result {
	maxExpansions := opts.MaxExpansions
	if maxExpansions <= 0 {
		maxExpansions = defaultMaxExpansions
	}

	seen := make(map[string]bool, len(results))
	for _, r := range results {
		seen[r.ChunkID] = true
	}

	var extraIDs []string
	extraScores := make(map[string]float64)
	for _, r := range results {
		expanded, err := graph.ExpandFromChunk(ctx, e.store, r.ChunkID, maxExpansions)
		if err != nil {
			e.logger.Warn("retrieval: graph expansion failed", "chunk_id", r.ChunkID, "error", err)
			continue
		}
		for _, ex := range expanded {
			if seen[ex.ChunkID] {
				continue
			}
			seen[ex.ChunkID] = true
			extraIDs = append(extraIDs, ex.ChunkID)
			extraScores[ex.ChunkID] = ex.Weight
		}
	}
	if len(extraIDs) == 0 {
		return results
	}

	expandedResults, err := e.assemble(ctx, extraIDs, extraScores, "graph_expansion", queryWords)
	if err != nil {
		e.logger.Warn("retrieval: assembling graph-expanded results failed", "error", err)
		return results
	}
	return append(results, expandedResults...)
}
