package casestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PutDocument inserts or replaces a document record.
func (s *Store) PutDocument(ctx context.Context, d Document) error {
	embedderIDs, err := json.Marshal(d.EmbedderIDs)
	if err != nil {
		return fmt.Errorf("casestore: marshaling embedder ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, source_path, doc_type, page_count, chunk_count,
			content_hash, byte_size, extraction_method, embedder_ids, entity_count, citation_count,
			status, ingested_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			source_path = excluded.source_path,
			doc_type = excluded.doc_type,
			page_count = excluded.page_count,
			chunk_count = excluded.chunk_count,
			content_hash = excluded.content_hash,
			byte_size = excluded.byte_size,
			extraction_method = excluded.extraction_method,
			embedder_ids = excluded.embedder_ids,
			entity_count = excluded.entity_count,
			citation_count = excluded.citation_count,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, d.ID, d.Filename, d.SourcePath, string(d.DocType), d.PageCount, d.ChunkCount,
		d.ContentHash, d.ByteSize, d.ExtractionMethod, string(embedderIDs), d.EntityCount, d.CitationCount,
		d.Status, d.IngestedAt, d.UpdatedAt)
	return err
}

func scanDocument(row interface{ Scan(...any) error }) (Document, error) {
	var d Document
	var docType, embedderIDs string
	if err := row.Scan(&d.ID, &d.Filename, &d.SourcePath, &docType, &d.PageCount, &d.ChunkCount,
		&d.ContentHash, &d.ByteSize, &d.ExtractionMethod, &embedderIDs, &d.EntityCount, &d.CitationCount,
		&d.Status, &d.IngestedAt, &d.UpdatedAt); err != nil {
		return Document{}, err
	}
	d.DocType = DocumentType(docType)
	_ = json.Unmarshal([]byte(embedderIDs), &d.EmbedderIDs)
	return d, nil
}

const documentColumns = `id, filename, source_path, doc_type, page_count, chunk_count,
	content_hash, byte_size, extraction_method, embedder_ids, entity_count, citation_count,
	status, ingested_at, updated_at`

// GetDocument fetches a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (Document, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, err
	}
	return d, true, nil
}

// GetDocumentByHash looks up a document by its content hash, used for
// ingestion idempotence (spec §4.2 step 1 duplicate detection).
func (s *Store) GetDocumentByHash(ctx context.Context, hash string) (Document, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE content_hash = ?", hash)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, err
	}
	return d, true, nil
}

// GetDocumentByPath looks up a document by its source path, used by the
// watch/sync manager's diff sync and by modify-in-place re-ingestion.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (Document, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE source_path = ?", path)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, err
	}
	return d, true, nil
}

// ListDocuments returns every document in the case, most recently
// ingested first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY ingested_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// TouchDocument updates UpdatedAt to now.
func (s *Store) TouchDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE documents SET updated_at = ? WHERE id = ?", time.Now(), id)
	return err
}

// UpdateDocumentStatus sets a document's lifecycle status ("processing",
// "ready", "error") without touching any of its other fields, letting the
// ingest pipeline mark failures mid-pipeline without re-supplying the
// whole row.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, updated_at = ? WHERE id = ?", status, time.Now(), id)
	return err
}
