package casestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PutChunk inserts or replaces a chunk. Callers are expected to assign
// Sequence densely and without gaps within a document; the chunker and
// ingest pipeline enforce that invariant, not the store.
func (s *Store) PutChunk(ctx context.Context, c Chunk) error {
	embedderIDs, err := json.Marshal(c.EmbedderIDs)
	if err != nil {
		return fmt.Errorf("casestore: marshaling chunk embedder ids: %w", err)
	}
	prov, err := json.Marshal(c.Provenance)
	if err != nil {
		return fmt.Errorf("casestore: marshaling chunk provenance: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, document_id, sequence, text, char_count, embedder_ids, provenance)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			sequence = excluded.sequence,
			text = excluded.text,
			char_count = excluded.char_count,
			embedder_ids = excluded.embedder_ids,
			provenance = excluded.provenance
	`, c.ID, c.DocumentID, c.Sequence, c.Text, c.CharCount, string(embedderIDs), string(prov))
	return err
}

const chunkColumns = `id, document_id, sequence, text, char_count, embedder_ids, provenance`

func scanChunk(row interface{ Scan(...any) error }) (Chunk, error) {
	var c Chunk
	var embedderIDs, prov string
	if err := row.Scan(&c.ID, &c.DocumentID, &c.Sequence, &c.Text, &c.CharCount, &embedderIDs, &prov); err != nil {
		return Chunk{}, err
	}
	_ = json.Unmarshal([]byte(embedderIDs), &c.EmbedderIDs)
	if err := json.Unmarshal([]byte(prov), &c.Provenance); err != nil {
		return Chunk{}, fmt.Errorf("casestore: unmarshaling chunk provenance: %w", err)
	}
	return c, nil
}

// GetChunk fetches a single chunk by id.
func (s *Store) GetChunk(ctx context.Context, id string) (Chunk, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE id = ?", id)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return Chunk{}, false, nil
	}
	if err != nil {
		return Chunk{}, false, err
	}
	return c, true, nil
}

// GetChunksByDocument returns every chunk of a document, in sequence order.
func (s *Store) GetChunksByDocument(ctx context.Context, documentID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE document_id = ? ORDER BY sequence ASC", documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetChunkBySequence fetches the chunk at a specific (document, sequence)
// position, used to assemble context-window neighbor chunks during result
// assembly (spec §5.4).
func (s *Store) GetChunkBySequence(ctx context.Context, documentID string, sequence int) (Chunk, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE document_id = ? AND sequence = ?", documentID, sequence)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return Chunk{}, false, nil
	}
	if err != nil {
		return Chunk{}, false, err
	}
	return c, true, nil
}

// GetChunksByIDs batch-fetches chunks, tolerating missing ids by simply
// omitting them from the result rather than erroring.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) (map[string]Chunk, error) {
	out := make(map[string]Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// inClause builds a "?,?,?" placeholder string and the matching []any
// argument slice for a variable-length IN clause.
func inClause(ids []string) (string, []any) {
	placeholders := ""
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}
	return placeholders, args
}
