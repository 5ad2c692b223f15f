// Package ingest wires the parser, chunker, embedding, graph, bm25, and
// casestore packages into the fixed nine-step ingestion pipeline:
// validate, parse, classify, chunk, embed, extract entities, extract
// citations, build graph deltas, store. Steps 6-8 happen inside a single
// graph.Builder.Build call since the graph package already combines
// entity/citation extraction with edge writing.
//
// A validation failure aborts before anything is written to the store.
// The document row is written with status "processing" before parsing,
// so a failure from parse onward marks the document errored; the store's
// own DeleteDocument gives a later re-ingest or explicit delete a clean
// cascade of whatever was written.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/chunker"
	"github.com/casetrack/casetrack/embedding"
	"github.com/casetrack/casetrack/graph"
	"github.com/casetrack/casetrack/parser"
	"github.com/casetrack/casetrack/provenance"
)

// Pipeline runs the nine-step ingestion sequence against one case store.
type Pipeline struct {
	store    *casestore.Store
	parsers  *parser.Registry
	embedMgr *embedding.Manager
	graphB   *graph.Builder
	logger   *slog.Logger
}

// New builds a Pipeline. graphConcurrency is passed straight through to
// graph.NewBuilder; logger defaults to slog.Default() when nil.
func New(store *casestore.Store, parsers *parser.Registry, embedMgr *embedding.Manager, graphConcurrency int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    store,
		parsers:  parsers,
		embedMgr: embedMgr,
		graphB:   graph.NewBuilder(store, graphConcurrency),
		logger:   logger,
	}
}

// Options controls one Ingest call.
type Options struct {
	// Force re-ingests even when the content hash matches an existing
	// document, instead of short-circuiting as a no-op.
	Force bool
	// SkipGraph skips entity/citation extraction and graph-delta writes
	// (steps 6-8), for callers that want fast bulk ingestion and will
	// backfill the graph separately.
	SkipGraph bool
}

// Result reports what Ingest did, so callers (and the tool surface) can
// tell a true no-op from a freshly ingested or re-ingested document.
type Result struct {
	DocumentID string
	Unchanged  bool
	ChunkCount int
}

// Ingest runs the nine-step pipeline against a single file. On a changed
// file already present under the same path, the existing document id is
// reused (delete-then-ingest under the same slot) rather than minted
// fresh, per the idempotence law in spec §8.
func (p *Pipeline) Ingest(ctx context.Context, path string, opts Options) (Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: resolving path: %w", err)
	}
	filename := filepath.Base(absPath)

	// Step 1: validate.
	hash, byteSize, err := validateFile(absPath)
	if err != nil {
		return Result{}, err
	}

	existing, found, err := p.store.GetDocumentByPath(ctx, absPath)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: looking up existing document: %w", err)
	}
	var docID string
	if found {
		docID = existing.ID
		if !opts.Force && existing.ContentHash == hash {
			return Result{DocumentID: docID, Unchanged: true, ChunkCount: existing.ChunkCount}, nil
		}
		// delete-then-ingest under the same document slot: every piece of
		// derived state for the old revision is removed up front so a
		// failure partway through this ingest never leaves stale and
		// fresh state mixed together.
		if err := p.store.DeleteDocument(ctx, docID); err != nil {
			return Result{}, fmt.Errorf("ingest: clearing previous revision: %w", err)
		}
	} else {
		docID = uuid.NewString()
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(absPath), "."))
	now := time.Now()
	if err := p.store.PutDocument(ctx, casestore.Document{
		ID:         docID,
		Filename:   filename,
		SourcePath: absPath,
		DocType:    casestore.DocDefault,
		ContentHash: hash,
		ByteSize:   byteSize,
		Status:     "processing",
		IngestedAt: now,
		UpdatedAt:  now,
	}); err != nil {
		return Result{}, fmt.Errorf("ingest: upserting document: %w", err)
	}

	// Step 2: parse.
	p.logger.Info("ingest: parsing document", "file", filename, "format", ext, "doc_id", docID)
	parseStart := time.Now()

	prs, err := p.parsers.Get(ext)
	if err != nil {
		p.markError(ctx, docID)
		return Result{}, fmt.Errorf("ingest: %w", err)
	}
	parsed, err := prs.Parse(ctx, absPath)
	if err != nil {
		p.markError(ctx, docID)
		return Result{}, fmt.Errorf("ingest: parsing %s: %w", filename, err)
	}
	p.logger.Info("ingest: parsing complete", "file", filename, "pages", len(parsed.Pages),
		"elapsed", time.Since(parseStart).Round(time.Millisecond))

	// Step 3: classify.
	category := chunker.Classify(filename, parsed.FullText())
	p.logger.Info("ingest: classified", "file", filename, "category", category)

	// Step 4: chunk.
	chunkStart := time.Now()
	candidates := chunker.ChunkDocument(parsed, category)
	p.logger.Info("ingest: chunking complete", "file", filename, "chunks", len(candidates),
		"elapsed", time.Since(chunkStart).Round(time.Millisecond))

	chunks := make([]casestore.Chunk, len(candidates))
	for i, c := range candidates {
		chunks[i] = casestore.Chunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Sequence:   c.Sequence,
			Text:       c.Text,
			CharCount:  len(c.Text),
			Provenance: candidateProvenance(docID, filename, absPath, c),
		}
		if err := p.store.PutChunk(ctx, chunks[i]); err != nil {
			p.markError(ctx, docID)
			return Result{}, fmt.Errorf("ingest: writing chunk %d: %w", i, err)
		}
	}

	// Step 5: embed.
	p.logger.Info("ingest: generating embeddings", "file", filename, "chunks", len(chunks))
	embedStart := time.Now()
	if err := p.embedChunks(ctx, docID, chunks); err != nil {
		p.markError(ctx, docID)
		return Result{}, fmt.Errorf("ingest: embedding: %w", err)
	}
	p.logger.Info("ingest: embeddings complete", "file", filename,
		"elapsed", time.Since(embedStart).Round(time.Millisecond))

	// Steps 6-8: entities, citations, graph deltas.
	if !opts.SkipGraph {
		graphStart := time.Now()
		p.logger.Info("ingest: building knowledge graph", "file", filename, "chunks", len(chunks))
		if err := p.graphB.Build(ctx, docID, chunks); err != nil {
			p.logger.Warn("ingest: graph build had errors (non-fatal)", "doc_id", docID, "error", err)
		}
		p.logger.Info("ingest: graph build complete", "file", filename,
			"elapsed", time.Since(graphStart).Round(time.Millisecond))
	} else {
		p.logger.Info("ingest: graph build skipped", "doc_id", docID)
	}

	// Step 9: store — finalize document metadata and the per-case summary.
	if err := p.store.PutDocument(ctx, casestore.Document{
		ID: docID, Filename: filename, SourcePath: absPath, DocType: casestore.DocumentType(category),
		PageCount: len(parsed.Pages), ChunkCount: len(chunks), ContentHash: hash, ByteSize: byteSize,
		Status: "ready", IngestedAt: now, UpdatedAt: time.Now(),
	}); err != nil {
		return Result{}, fmt.Errorf("ingest: finalizing document: %w", err)
	}
	if _, err := p.store.RebuildCaseSummary(ctx); err != nil {
		p.logger.Warn("ingest: rebuilding case summary failed (non-fatal)", "error", err)
	}

	p.logger.Info("ingest: document ready", "file", filename, "doc_id", docID,
		"total_elapsed", time.Since(parseStart).Round(time.Millisecond))
	return Result{DocumentID: docID, ChunkCount: len(chunks)}, nil
}

// markError sets the document to error status without aborting the
// caller's own error path; the write's own failure is logged, not
// propagated, since the caller already has a more specific error to
// return.
func (p *Pipeline) markError(ctx context.Context, docID string) {
	if err := p.store.UpdateDocumentStatus(ctx, docID, "error"); err != nil {
		p.logger.Warn("ingest: failed to mark document errored", "doc_id", docID, "error", err)
	}
}

// candidateProvenance builds the source-location record for one chunk
// candidate, rooted at the document and source path it was cut from.
func candidateProvenance(docID, filename, sourcePath string, c chunker.Candidate) provenance.Record {
	now := time.Now()
	return provenance.Record{
		DocumentID:       docID,
		DocumentName:     filename,
		SourcePath:       sourcePath,
		Page:             c.Page,
		ParagraphStart:   c.ParagraphStart,
		ParagraphEnd:     c.ParagraphEnd,
		LineStart:        c.LineStart,
		LineEnd:          c.LineEnd,
		CharStart:        c.CharStart,
		CharEnd:          c.CharEnd,
		SectionLabel:     c.SectionLabel,
		ExtractionMethod: c.ExtractionMethod,
		OCRConfidence:    c.OCRConfidence,
		ChunkSequence:    c.Sequence,
		CreatedAt:        now,
	}
}
