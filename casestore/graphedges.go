package casestore

import "context"

// PutDocEdge records or replaces a typed document-to-document edge.
func (s *Store) PutDocEdge(ctx context.Context, e DocEdge) error {
	a, b := e.DocA, e.DocB
	if a > b {
		a, b = b, a
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO doc_edges (doc_a, doc_b, edge_type, weight)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(doc_a, doc_b, edge_type) DO UPDATE SET weight = excluded.weight
	`, a, b, string(e.Type), e.Weight)
	return err
}

// AllDocEdges returns every document-to-document edge in the case,
// used by the graph package's document relatedness clustering which
// needs the whole edge set rather than one document's neighbourhood.
func (s *Store) AllDocEdges(ctx context.Context) ([]DocEdge, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT doc_a, doc_b, edge_type, weight FROM doc_edges")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DocEdge
	for rows.Next() {
		var e DocEdge
		var edgeType string
		if err := rows.Scan(&e.DocA, &e.DocB, &edgeType, &e.Weight); err != nil {
			return nil, err
		}
		e.Type = DocEdgeType(edgeType)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetDocEdges returns every edge touching a document, in either position.
func (s *Store) GetDocEdges(ctx context.Context, documentID string) ([]DocEdge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_a, doc_b, edge_type, weight FROM doc_edges
		WHERE doc_a = ? OR doc_b = ?
		ORDER BY weight DESC
	`, documentID, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DocEdge
	for rows.Next() {
		var e DocEdge
		var edgeType string
		if err := rows.Scan(&e.DocA, &e.DocB, &edgeType, &e.Weight); err != nil {
			return nil, err
		}
		e.Type = DocEdgeType(edgeType)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PutChunkEdge records a chunk-to-chunk similarity or coreference edge.
// Callers (graph package) are responsible for only calling this once
// weight clears the 0.7 similarity threshold.
func (s *Store) PutChunkEdge(ctx context.Context, e ChunkEdge) error {
	a, b := e.ChunkA, e.ChunkB
	if a > b {
		a, b = b, a
	}
	edgeType := e.Type
	if edgeType == "" {
		edgeType = "similar"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunk_edges (chunk_a, chunk_b, weight, edge_type)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chunk_a, chunk_b) DO UPDATE SET weight = excluded.weight, edge_type = excluded.edge_type
	`, a, b, e.Weight, edgeType)
	return err
}

// GetChunkEdges returns every edge touching a chunk.
func (s *Store) GetChunkEdges(ctx context.Context, chunkID string) ([]ChunkEdge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_a, chunk_b, weight, edge_type FROM chunk_edges
		WHERE chunk_a = ? OR chunk_b = ?
		ORDER BY weight DESC
	`, chunkID, chunkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChunkEdge
	for rows.Next() {
		var e ChunkEdge
		if err := rows.Scan(&e.ChunkA, &e.ChunkB, &e.Weight, &e.Type); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// KGEdge is a row of the flat typed knowledge-graph edge union used for
// uniform prefix-scan traversal (entity->chunk, citation->chunk,
// doc->doc, chunk->chunk all share this shape).
type KGEdge struct {
	Kind   string
	Src    string
	Dst    string
	Weight float64
}

// PutKGEdge appends an edge to the flat knowledge-graph edge table.
func (s *Store) PutKGEdge(ctx context.Context, e KGEdge) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO knowledge_graph_edges (kind, src, dst, weight) VALUES (?, ?, ?, ?)",
		e.Kind, e.Src, e.Dst, e.Weight)
	return err
}

// EdgesFrom returns every edge of a given kind originating at src, the
// traversal package's basic one-hop expansion primitive.
func (s *Store) EdgesFrom(ctx context.Context, kind, src string) ([]KGEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT kind, src, dst, weight FROM knowledge_graph_edges WHERE kind = ? AND src = ?", kind, src)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KGEdge
	for rows.Next() {
		var e KGEdge
		if err := rows.Scan(&e.Kind, &e.Src, &e.Dst, &e.Weight); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EdgesTo returns every edge of a given kind ending at dst, used to
// traverse entity/citation -> chunk edges backwards.
func (s *Store) EdgesTo(ctx context.Context, kind, dst string) ([]KGEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT kind, src, dst, weight FROM knowledge_graph_edges WHERE kind = ? AND dst = ?", kind, dst)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KGEdge
	for rows.Next() {
		var e KGEdge
		if err := rows.Scan(&e.Kind, &e.Src, &e.Dst, &e.Weight); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
