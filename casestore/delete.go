package casestore

import (
	"context"
	"database/sql"
	"fmt"
)

// DeleteDocument removes a document and every piece of derived state that
// references it: bm25 postings, entity and citation mentions, citation and
// knowledge-graph edges, chunk and doc edges, short-form references, the
// dense vectors held in the vec_chunks virtual table, and finally the
// chunks themselves (which cascade to embeddings via the foreign key —
// vec_chunks is a vec0 virtual table, which SQLite foreign keys do not
// reach, so it is deleted explicitly). bm25_stats is recomputed so
// avg_doc_len stays accurate for every surviving document.
//
// The whole operation runs in a single transaction: either the document
// and all its derived state disappear together, or nothing changes.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("casestore: begin delete document: %w", err)
	}
	defer tx.Rollback()

	chunkIDs, err := chunkIDsForDocument(ctx, tx, documentID)
	if err != nil {
		return err
	}

	var removedTokens, removedChunks int
	row := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(term_freq), 0), COUNT(DISTINCT chunk_id)
		FROM bm25_postings WHERE document_id = ?
	`, documentID)
	if err := row.Scan(&removedTokens, &removedChunks); err != nil {
		return fmt.Errorf("casestore: summing bm25 postings for delete: %w", err)
	}

	entityCounts, err := entityMentionCountsForDocument(ctx, tx, documentID)
	if err != nil {
		return err
	}
	citationCounts, err := citationMentionCountsForDocument(ctx, tx, documentID)
	if err != nil {
		return err
	}

	deletes := []struct {
		label string
		query string
		args  []any
	}{
		{"bm25_postings", "DELETE FROM bm25_postings WHERE document_id = ?", []any{documentID}},
		{"bm25_doc_len", "DELETE FROM bm25_doc_len WHERE document_id = ?", []any{documentID}},
		{"entity_mentions", "DELETE FROM entity_mentions WHERE document_id = ?", []any{documentID}},
		{"citation_mentions", "DELETE FROM citation_mentions WHERE document_id = ?", []any{documentID}},
		{"doc_edges", "DELETE FROM doc_edges WHERE doc_a = ? OR doc_b = ?", []any{documentID, documentID}},
	}
	for _, d := range deletes {
		if _, err := tx.ExecContext(ctx, d.query, d.args...); err != nil {
			return fmt.Errorf("casestore: deleting %s for document %s: %w", d.label, documentID, err)
		}
	}

	if err := deleteChunkScopedState(ctx, tx, chunkIDs); err != nil {
		return err
	}

	if len(chunkIDs) > 0 {
		placeholders, args := inClause(chunkIDs)
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM citation_edges WHERE chunk_id IN ("+placeholders+")", args...); err != nil {
			return fmt.Errorf("casestore: deleting citation_edges for document %s: %w", documentID, err)
		}
		srcDstArgs := append(append([]any{}, args...), args...)
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM knowledge_graph_edges WHERE src IN ("+placeholders+") OR dst IN ("+placeholders+")",
			srcDstArgs...); err != nil {
			return fmt.Errorf("casestore: deleting knowledge_graph_edges for document %s: %w", documentID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("casestore: deleting chunks for document %s: %w", documentID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID); err != nil {
		return fmt.Errorf("casestore: deleting document %s: %w", documentID, err)
	}

	if err := recomputeBM25Stats(ctx, tx, -removedChunks, -removedTokens); err != nil {
		return err
	}

	// Entities and citations whose mention_count drops to zero are kept
	// rather than pruned: a party or authority that loses its only mention
	// should still resolve by canonical name if the document is
	// re-ingested a moment later.
	if err := decrementEntityMentionCounts(ctx, tx, entityCounts); err != nil {
		return err
	}
	if err := decrementCitationMentionCounts(ctx, tx, citationCounts); err != nil {
		return err
	}

	return tx.Commit()
}

func chunkIDsForDocument(ctx context.Context, tx *sql.Tx, documentID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return nil, fmt.Errorf("casestore: listing chunk ids for delete: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type entityKey struct {
	entityType     string
	normalizedName string
}

func entityMentionCountsForDocument(ctx context.Context, tx *sql.Tx, documentID string) (map[entityKey]int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT entity_type, normalized_name, COUNT(*) FROM entity_mentions
		WHERE document_id = ? GROUP BY entity_type, normalized_name
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("casestore: counting entity mentions for delete: %w", err)
	}
	defer rows.Close()

	out := map[entityKey]int{}
	for rows.Next() {
		var k entityKey
		var count int
		if err := rows.Scan(&k.entityType, &k.normalizedName, &count); err != nil {
			return nil, err
		}
		out[k] = count
	}
	return out, rows.Err()
}

func citationMentionCountsForDocument(ctx context.Context, tx *sql.Tx, documentID string) (map[string]int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT citation_normalized, COUNT(*) FROM citation_mentions
		WHERE document_id = ? GROUP BY citation_normalized
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("casestore: counting citation mentions for delete: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var normalized string
		var count int
		if err := rows.Scan(&normalized, &count); err != nil {
			return nil, err
		}
		out[normalized] = count
	}
	return out, rows.Err()
}

func deleteChunkScopedState(ctx context.Context, tx *sql.Tx, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	placeholders, args := inClause(chunkIDs)

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM short_form_references WHERE chunk_id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("casestore: deleting short_form_references: %w", err)
	}

	bothSides := append(append([]any{}, args...), args...)
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunk_edges WHERE chunk_a IN ("+placeholders+") OR chunk_b IN ("+placeholders+")",
		bothSides...); err != nil {
		return fmt.Errorf("casestore: deleting chunk_edges: %w", err)
	}

	// vec_chunks is a vec0 virtual table; SQLite foreign keys do not
	// apply to virtual tables, so its rows must be deleted explicitly
	// or they outlive the chunks and embeddings rows that owned them.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM vec_chunks WHERE chunk_id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("casestore: deleting vec_chunks: %w", err)
	}
	return nil
}

func recomputeBM25Stats(ctx context.Context, tx *sql.Tx, deltaChunks, deltaTokens int) error {
	var totalChunks, totalTokens int
	row := tx.QueryRowContext(ctx, "SELECT total_chunks, total_tokens FROM bm25_stats WHERE id = 1")
	if err := row.Scan(&totalChunks, &totalTokens); err != nil {
		return fmt.Errorf("casestore: reading bm25_stats: %w", err)
	}
	totalChunks += deltaChunks
	totalTokens += deltaTokens
	if totalChunks < 0 {
		totalChunks = 0
	}
	if totalTokens < 0 {
		totalTokens = 0
	}
	avgDocLen := 0.0
	if totalChunks > 0 {
		avgDocLen = float64(totalTokens) / float64(totalChunks)
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE bm25_stats SET total_chunks = ?, total_tokens = ?, avg_doc_len = ? WHERE id = 1
	`, totalChunks, totalTokens, avgDocLen)
	return err
}

func decrementEntityMentionCounts(ctx context.Context, tx *sql.Tx, counts map[entityKey]int) error {
	for k, count := range counts {
		if _, err := tx.ExecContext(ctx, `
			UPDATE entities SET mention_count = MAX(0, mention_count - ?)
			WHERE entity_type = ? AND normalized_name = ?
		`, count, k.entityType, k.normalizedName); err != nil {
			return fmt.Errorf("casestore: decrementing entity mention count: %w", err)
		}
	}
	return nil
}

func decrementCitationMentionCounts(ctx context.Context, tx *sql.Tx, counts map[string]int) error {
	for normalized, count := range counts {
		if _, err := tx.ExecContext(ctx, `
			UPDATE citations SET mention_count = MAX(0, mention_count - ?)
			WHERE normalized = ?
		`, count, normalized); err != nil {
			return fmt.Errorf("casestore: decrementing citation mention count: %w", err)
		}
	}
	return nil
}
