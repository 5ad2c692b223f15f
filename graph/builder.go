package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/serialize"
)

// defaultConcurrency bounds the number of chunks processed in parallel,
// mirroring the teacher's LLM-call concurrency cap — kept even though
// regex extraction no longer waits on a network round trip, since the
// store writes it feeds still benefit from being pipelined rather than
// serialized.
const defaultConcurrency = 16

// perChunkTimeout bounds how long a single chunk's extraction+write may
// take before Build gives up on it and moves on.
const perChunkTimeout = 10 * time.Second

// Builder extracts entities and citations from a document's chunks and
// writes the resulting graph deltas (entity->chunk, citation->chunk,
// document->document edges) into the case store.
type Builder struct {
	store       *casestore.Store
	concurrency int
}

// NewBuilder constructs a Builder over store, using defaultConcurrency
// unless concurrency is positive.
func NewBuilder(store *casestore.Store, concurrency int) *Builder {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Builder{store: store, concurrency: concurrency}
}

// Build runs entity and citation extraction over every chunk of a
// document, in chunk-sequence order for citation short-form resolution,
// and writes the resulting entities, citations and knowledge-graph edges.
// It fails only if every chunk's extraction-and-write step errors;
// individual chunk failures are logged and otherwise tolerated, matching
// the teacher's "don't let one bad chunk sink the whole document" policy.
func (b *Builder) Build(ctx context.Context, documentID string, chunks []casestore.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ordered := make([]casestore.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	slog.Info("graph: starting extraction", "document_id", documentID, "chunks", len(ordered))

	extractions := make([]chunkExtraction, len(ordered))
	lastCitation := ""
	for i, c := range ordered {
		mentions := ExtractEntities(c.Text)
		for j := range mentions {
			mentions[j].ChunkID = c.ID
			mentions[j].DocumentID = documentID
		}
		citations, updated := ExtractCitations(c.Text, lastCitation)
		lastCitation = updated
		extractions[i] = chunkExtraction{
			chunkID:        c.ID,
			documentID:     documentID,
			entityMentions: mentions,
			citations:      citations,
		}
	}

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, failed int

	for i := range extractions {
		wg.Add(1)
		sem <- struct{}{}
		go func(ex chunkExtraction) {
			defer wg.Done()
			defer func() { <-sem }()

			chunkCtx, cancel := context.WithTimeout(ctx, perChunkTimeout)
			defer cancel()

			if err := b.writeChunkExtraction(chunkCtx, ex); err != nil {
				slog.Warn("graph: chunk extraction write failed",
					"document_id", documentID, "chunk_id", ex.chunkID, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
			slog.Info("graph: chunk processed",
				"document_id", documentID, "chunk_id", ex.chunkID,
				"entities", len(ex.entityMentions), "citations", len(ex.citations))
		}(extractions[i])
	}
	wg.Wait()

	if succeeded == 0 && failed > 0 {
		return fmt.Errorf("graph: all %d chunks failed extraction write for document %s", failed, documentID)
	}

	if err := b.buildDocumentEdges(ctx, documentID); err != nil {
		slog.Warn("graph: document edge build failed", "document_id", documentID, "error", err)
	}

	slog.Info("graph: extraction complete", "document_id", documentID, "succeeded", succeeded, "failed", failed)
	return nil
}

// writeChunkExtraction persists one chunk's entity mentions and citation
// mentions, including the entity->chunk and citation->chunk knowledge
// graph edges (spec §4.2 step 8).
func (b *Builder) writeChunkExtraction(ctx context.Context, ex chunkExtraction) error {
	for _, m := range ex.entityMentions {
		entity := casestore.Entity{
			Type:                m.EntityType,
			NormalizedName:      m.NormalizedName,
			CanonicalName:       m.NormalizedName,
			MentionCount:        1,
			FirstSeenDocumentID: ex.documentID,
			FirstSeenChunkID:    ex.chunkID,
		}
		if err := b.store.UpsertEntity(ctx, entity); err != nil {
			return fmt.Errorf("upserting entity %s/%s: %w", m.EntityType, m.NormalizedName, err)
		}
		if err := b.store.PutEntityMention(ctx, m); err != nil {
			return fmt.Errorf("writing entity mention: %w", err)
		}
		edgeKey := string(m.EntityType) + ":" + m.NormalizedName
		if err := b.store.PutKGEdge(ctx, casestore.KGEdge{Kind: "entity_chunk", Src: edgeKey, Dst: ex.chunkID, Weight: 1}); err != nil {
			return fmt.Errorf("writing entity->chunk edge: %w", err)
		}
	}

	for _, cm := range ex.citations {
		cm.citation.MentionCount = 1
		if err := b.store.UpsertCitation(ctx, cm.citation); err != nil {
			return fmt.Errorf("upserting citation %s: %w", cm.citation.Normalized, err)
		}
		if err := b.store.PutCitationMention(ctx, casestore.CitationMention{
			CitationNormalized: cm.citation.Normalized,
			ChunkID:            ex.chunkID,
			DocumentID:         ex.documentID,
			CharStart:          cm.charStart,
			CharEnd:            cm.charEnd,
		}); err != nil {
			return fmt.Errorf("writing citation mention: %w", err)
		}
		if err := b.store.PutCitationEdge(ctx, cm.citation.Normalized, ex.chunkID, 1); err != nil {
			return fmt.Errorf("writing citation->chunk edge: %w", err)
		}
		if cm.shortForm {
			if err := b.store.PutShortFormReference(ctx, ex.chunkID, cm.shortText, cm.citation.Normalized); err != nil {
				return fmt.Errorf("writing short-form reference: %w", err)
			}
		}
	}

	return nil
}

// buildDocumentEdges computes document-to-document shared-entities and
// shared-citations edges for documentID against every other document
// already in the case, via incremental index intersection (spec §4.2
// step 8), and a semantic-similar edge against recently ingested
// documents using document-level mean dense vectors.
func (b *Builder) buildDocumentEdges(ctx context.Context, documentID string) error {
	sharedEntities, err := b.store.DocumentsSharingEntities(ctx, documentID)
	if err != nil {
		return fmt.Errorf("computing shared-entities edges: %w", err)
	}
	for other, count := range sharedEntities {
		if err := b.store.PutDocEdge(ctx, casestore.DocEdge{
			DocA: documentID, DocB: other, Type: casestore.DocEdgeSharedEntities, Weight: float64(count),
		}); err != nil {
			return fmt.Errorf("writing shared-entities edge %s<->%s: %w", documentID, other, err)
		}
	}

	sharedCitations, err := b.store.DocumentsSharingCitations(ctx, documentID)
	if err != nil {
		return fmt.Errorf("computing shared-citations edges: %w", err)
	}
	for other, count := range sharedCitations {
		if err := b.store.PutDocEdge(ctx, casestore.DocEdge{
			DocA: documentID, DocB: other, Type: casestore.DocEdgeSharedCitations, Weight: float64(count),
		}); err != nil {
			return fmt.Errorf("writing shared-citations edge %s<->%s: %w", documentID, other, err)
		}
	}

	return b.buildSemanticSimilarEdges(ctx, documentID)
}

// recentDocumentsForSimilarity bounds how many other documents a newly
// ingested document is compared against for semantic-similar edges,
// keeping graph delta construction O(recent) rather than O(corpus).
const recentDocumentsForSimilarity = 50

// similarityThreshold is the cosine bar a document pair must clear to
// earn a semantic-similar doc edge, reusing the spec's 0.7 chunk-edge
// threshold since no separate document-level bar is named.
const similarityThreshold = 0.7

// buildSemanticSimilarEdges compares documentID's mean chunk dense
// vector against that of each recently ingested document and records an
// edge for every pair clearing similarityThreshold.
func (b *Builder) buildSemanticSimilarEdges(ctx context.Context, documentID string) error {
	docs, err := b.store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("listing documents for semantic similarity: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].IngestedAt.After(docs[j].IngestedAt) })

	mine, ok, err := b.documentMeanVector(ctx, documentID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	compared := 0
	for _, d := range docs {
		if d.ID == documentID || compared >= recentDocumentsForSimilarity {
			continue
		}
		compared++
		theirs, ok, err := b.documentMeanVector(ctx, d.ID)
		if err != nil || !ok {
			continue
		}
		sim := serialize.CosineDense(mine, theirs)
		if sim >= similarityThreshold {
			if err := b.store.PutDocEdge(ctx, casestore.DocEdge{
				DocA: documentID, DocB: d.ID, Type: casestore.DocEdgeSemanticSimilar, Weight: sim,
			}); err != nil {
				return fmt.Errorf("writing semantic-similar edge %s<->%s: %w", documentID, d.ID, err)
			}
		}
	}
	return nil
}

// documentMeanVector averages the dense embedding of every chunk in a
// document, giving a cheap document-level representation without a
// dedicated document-embedding column family.
func (b *Builder) documentMeanVector(ctx context.Context, documentID string) ([]float32, bool, error) {
	chunks, err := b.store.GetChunksByDocument(ctx, documentID)
	if err != nil {
		return nil, false, fmt.Errorf("listing chunks for document %s: %w", documentID, err)
	}
	if len(chunks) == 0 {
		return nil, false, nil
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	embeddings, err := b.store.GetEmbeddingsByChunkIDs(ctx, ids)
	if err != nil {
		return nil, false, fmt.Errorf("fetching embeddings for document %s: %w", documentID, err)
	}

	var sum []float32
	var n int
	for _, e := range embeddings {
		if len(e.Dense) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float32, len(e.Dense))
		}
		for i, v := range e.Dense {
			sum[i] += v
		}
		n++
	}
	if n == 0 {
		return nil, false, nil
	}
	for i := range sum {
		sum[i] /= float32(n)
	}
	return sum, true, nil
}

