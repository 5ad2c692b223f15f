package casestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// UpsertCitation inserts a new citation or merges mention counts into an
// existing one keyed by its normalized form.
func (s *Store) UpsertCitation(ctx context.Context, c Citation) error {
	existing, found, err := s.GetCitation(ctx, c.Normalized)
	if err != nil {
		return err
	}
	mentionCount := c.MentionCount
	if found {
		mentionCount = existing.MentionCount + c.MentionCount
	}

	fields, err := json.Marshal(c.Fields)
	if err != nil {
		return fmt.Errorf("casestore: marshaling citation fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO citations (normalized, full_text, citation_type, fields, mention_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(normalized) DO UPDATE SET
			full_text = excluded.full_text,
			citation_type = excluded.citation_type,
			fields = excluded.fields,
			mention_count = excluded.mention_count
	`, c.Normalized, c.FullText, string(c.Type), string(fields), mentionCount)
	return err
}

const citationColumns = `normalized, full_text, citation_type, fields, mention_count`

func scanCitation(row interface{ Scan(...any) error }) (Citation, error) {
	var c Citation
	var citationType, fields string
	if err := row.Scan(&c.Normalized, &c.FullText, &citationType, &fields, &c.MentionCount); err != nil {
		return Citation{}, err
	}
	c.Type = CitationType(citationType)
	c.Fields = map[string]string{}
	_ = json.Unmarshal([]byte(fields), &c.Fields)
	return c, nil
}

// GetCitation fetches a citation by its normalized form.
func (s *Store) GetCitation(ctx context.Context, normalized string) (Citation, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+citationColumns+" FROM citations WHERE normalized = ?", normalized)
	c, err := scanCitation(row)
	if err == sql.ErrNoRows {
		return Citation{}, false, nil
	}
	if err != nil {
		return Citation{}, false, err
	}
	return c, true, nil
}

// MostCitedAuthorities returns the top citations by mention count, used
// by the case summary's most_cited_authorities rollup.
func (s *Store) MostCitedAuthorities(ctx context.Context, limit int) ([]Citation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+citationColumns+" FROM citations ORDER BY mention_count DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Citation
	for rows.Next() {
		c, err := scanCitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PutCitationMention records a single occurrence of a citation within a chunk.
func (s *Store) PutCitationMention(ctx context.Context, m CitationMention) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO citation_mentions (citation_normalized, chunk_id, document_id, char_start, char_end)
		VALUES (?, ?, ?, ?, ?)
	`, m.CitationNormalized, m.ChunkID, m.DocumentID, m.CharStart, m.CharEnd)
	return err
}

// GetCitationMentions returns every recorded occurrence of a citation.
func (s *Store) GetCitationMentions(ctx context.Context, normalized string) ([]CitationMention, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT citation_normalized, chunk_id, document_id, char_start, char_end
		FROM citation_mentions WHERE citation_normalized = ?
	`, normalized)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CitationMention
	for rows.Next() {
		var m CitationMention
		if err := rows.Scan(&m.CitationNormalized, &m.ChunkID, &m.DocumentID, &m.CharStart, &m.CharEnd); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PutCitationEdge records or strengthens a citation -> chunk treatment edge.
func (s *Store) PutCitationEdge(ctx context.Context, normalized, chunkID string, weight float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO citation_edges (citation_normalized, chunk_id, weight)
		VALUES (?, ?, ?)
		ON CONFLICT(citation_normalized, chunk_id) DO UPDATE SET weight = excluded.weight
	`, normalized, chunkID, weight)
	return err
}

// PutShortFormReference records a short-form citation (e.g. "Id. at 12")
// resolved against the nearest preceding full citation within the chunk.
func (s *Store) PutShortFormReference(ctx context.Context, chunkID, shortForm, resolved string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO short_form_references (chunk_id, short_form_text, resolved_citation)
		VALUES (?, ?, ?)
		ON CONFLICT(chunk_id, short_form_text) DO UPDATE SET resolved_citation = excluded.resolved_citation
	`, chunkID, shortForm, resolved)
	return err
}

// DocumentsSharingCitations mirrors DocumentsSharingEntities for the
// shared_citations doc_edge: for a given document, returns other document
// ids that cite at least one of the same normalized authorities.
func (s *Store) DocumentsSharingCitations(ctx context.Context, documentID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT other.document_id, COUNT(DISTINCT other.citation_normalized)
		FROM citation_mentions AS mine
		JOIN citation_mentions AS other
			ON mine.citation_normalized = other.citation_normalized
			AND other.document_id != mine.document_id
		WHERE mine.document_id = ?
		GROUP BY other.document_id
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var docID string
		var n int
		if err := rows.Scan(&docID, &n); err != nil {
			return nil, err
		}
		out[docID] = n
	}
	return out, rows.Err()
}
