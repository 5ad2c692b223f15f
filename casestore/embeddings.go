package casestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/casetrack/casetrack/serialize"
)

// PutEmbedding writes an embedding row and keeps the vec_chunks virtual
// table (used for approximate nearest-neighbour dense search) in sync.
// Sparse and token-matrix embeddings have no ANN index; they are scanned
// directly by the bm25/retrieval packages.
func (s *Store) PutEmbedding(ctx context.Context, e EmbeddingRecord) error {
	prov, err := json.Marshal(e.Provenance)
	if err != nil {
		return fmt.Errorf("casestore: marshaling embedding provenance: %w", err)
	}

	var denseBytes, sparseBytes, tokenBytes []byte
	if e.Dense != nil {
		if len(e.Dense) != s.denseDim {
			return fmt.Errorf("casestore: dense embedding has %d dims, store expects %d", len(e.Dense), s.denseDim)
		}
		denseBytes = serialize.DenseToBytes(e.Dense)
	}
	if e.Sparse != nil {
		sv := serialize.SparseVector{Indices: e.Sparse.Indices, Weights: e.Sparse.Weights}
		sv.Sort()
		sparseBytes = serialize.SparseToBytes(sv)
	}
	if e.TokenMatrix != nil {
		tokenBytes = serialize.TokenMatrixToBytes(e.TokenMatrix)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("casestore: begin put embedding: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, text, provenance, dense, sparse, token_matrix)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			text = excluded.text,
			provenance = excluded.provenance,
			dense = excluded.dense,
			sparse = excluded.sparse,
			token_matrix = excluded.token_matrix
	`, e.ChunkID, e.Text, string(prov), denseBytes, sparseBytes, tokenBytes)
	if err != nil {
		return fmt.Errorf("casestore: writing embedding: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM vec_chunks WHERE chunk_id = ?", e.ChunkID); err != nil {
		return fmt.Errorf("casestore: clearing stale vec_chunks row: %w", err)
	}
	if e.Dense != nil {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)", e.ChunkID, denseBytes); err != nil {
			return fmt.Errorf("casestore: indexing dense embedding: %w", err)
		}
	}

	return tx.Commit()
}

func scanEmbedding(row interface{ Scan(...any) error }) (EmbeddingRecord, error) {
	var e EmbeddingRecord
	var prov string
	var dense, sparse, tokenMatrix []byte
	if err := row.Scan(&e.ChunkID, &e.Text, &prov, &dense, &sparse, &tokenMatrix); err != nil {
		return EmbeddingRecord{}, err
	}
	if err := json.Unmarshal([]byte(prov), &e.Provenance); err != nil {
		return EmbeddingRecord{}, fmt.Errorf("casestore: unmarshaling embedding provenance: %w", err)
	}
	if dense != nil {
		d, err := serialize.BytesToDense(dense)
		if err != nil {
			return EmbeddingRecord{}, fmt.Errorf("casestore: decoding dense embedding: %w", err)
		}
		e.Dense = d
	}
	if sparse != nil {
		sv, err := serialize.BytesToSparse(sparse)
		if err != nil {
			return EmbeddingRecord{}, fmt.Errorf("casestore: decoding sparse embedding: %w", err)
		}
		e.Sparse = &SparseVectorRecord{Indices: sv.Indices, Weights: sv.Weights}
	}
	if tokenMatrix != nil {
		tm, err := serialize.BytesToTokenMatrix(tokenMatrix)
		if err != nil {
			return EmbeddingRecord{}, fmt.Errorf("casestore: decoding token matrix embedding: %w", err)
		}
		e.TokenMatrix = tm
	}
	return e, nil
}

const embeddingColumns = `chunk_id, text, provenance, dense, sparse, token_matrix`

// GetEmbedding fetches a single chunk's embedding record.
func (s *Store) GetEmbedding(ctx context.Context, chunkID string) (EmbeddingRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+embeddingColumns+" FROM embeddings WHERE chunk_id = ?", chunkID)
	e, err := scanEmbedding(row)
	if err == sql.ErrNoRows {
		return EmbeddingRecord{}, false, nil
	}
	if err != nil {
		return EmbeddingRecord{}, false, err
	}
	return e, true, nil
}

// GetEmbeddingsByChunkIDs batch-fetches embeddings, used by the retrieval
// package's fusion and rerank stages to hydrate candidate sets.
func (s *Store) GetEmbeddingsByChunkIDs(ctx context.Context, chunkIDs []string) (map[string]EmbeddingRecord, error) {
	out := make(map[string]EmbeddingRecord, len(chunkIDs))
	if len(chunkIDs) == 0 {
		return out, nil
	}
	placeholders, args := inClause(chunkIDs)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+embeddingColumns+" FROM embeddings WHERE chunk_id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEmbedding(rows)
		if err != nil {
			return nil, err
		}
		out[e.ChunkID] = e
	}
	return out, rows.Err()
}

// DenseCandidate is a result row from an approximate nearest-neighbour
// dense scan against vec_chunks.
type DenseCandidate struct {
	ChunkID  string
	Distance float64
}

// SearchDense runs a vec0 k-nearest-neighbour query over the dense index,
// optionally restricted to a set of document ids. A nil/empty
// documentIDs restricts nothing.
func (s *Store) SearchDense(ctx context.Context, query []float32, k int, documentIDs []string) ([]DenseCandidate, error) {
	queryBytes := serialize.DenseToBytes(query)

	sqlText := `
		SELECT vec_chunks.chunk_id, vec_chunks.distance
		FROM vec_chunks
		WHERE embedding MATCH ? AND k = ?
	`
	args := []any{queryBytes, k}
	if len(documentIDs) > 0 {
		placeholders, idArgs := inClause(documentIDs)
		sqlText = `
			SELECT vec_chunks.chunk_id, vec_chunks.distance
			FROM vec_chunks
			JOIN chunks ON chunks.id = vec_chunks.chunk_id
			WHERE embedding MATCH ? AND k = ? AND chunks.document_id IN (` + placeholders + `)
		`
		args = append(args, idArgs...)
	}
	sqlText += " ORDER BY vec_chunks.distance"

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("casestore: dense search: %w", err)
	}
	defer rows.Close()

	var out []DenseCandidate
	for rows.Next() {
		var c DenseCandidate
		if err := rows.Scan(&c.ChunkID, &c.Distance); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
