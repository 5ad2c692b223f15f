package casestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// UpsertEntity inserts a new entity or, if one already exists for the
// (type, normalized_name) key, merges aliases and increments the mention
// count. FirstSeen fields are only set on first insert.
func (s *Store) UpsertEntity(ctx context.Context, e Entity) error {
	existing, found, err := s.GetEntity(ctx, e.Type, e.NormalizedName)
	if err != nil {
		return err
	}

	aliases := e.Aliases
	mentionCount := e.MentionCount
	firstDoc, firstChunk := e.FirstSeenDocumentID, e.FirstSeenChunkID
	canonical := e.CanonicalName

	if found {
		aliases = mergeAliases(existing.Aliases, e.Aliases)
		mentionCount = existing.MentionCount + e.MentionCount
		firstDoc, firstChunk = existing.FirstSeenDocumentID, existing.FirstSeenChunkID
		if canonical == "" {
			canonical = existing.CanonicalName
		}
	}

	aliasJSON, err := json.Marshal(aliases)
	if err != nil {
		return fmt.Errorf("casestore: marshaling entity aliases: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (entity_type, normalized_name, canonical_name, aliases, mention_count,
			first_seen_document_id, first_seen_chunk_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, normalized_name) DO UPDATE SET
			canonical_name = excluded.canonical_name,
			aliases = excluded.aliases,
			mention_count = excluded.mention_count
	`, string(e.Type), e.NormalizedName, canonical, string(aliasJSON), mentionCount, firstDoc, firstChunk)
	return err
}

func mergeAliases(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, a := range existing {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	for _, a := range incoming {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

const entityColumns = `entity_type, normalized_name, canonical_name, aliases, mention_count,
	first_seen_document_id, first_seen_chunk_id`

func scanEntity(row interface{ Scan(...any) error }) (Entity, error) {
	var e Entity
	var entityType, aliases string
	var firstDoc, firstChunk sql.NullString
	if err := row.Scan(&entityType, &e.NormalizedName, &e.CanonicalName, &aliases, &e.MentionCount,
		&firstDoc, &firstChunk); err != nil {
		return Entity{}, err
	}
	e.Type = EntityType(entityType)
	e.FirstSeenDocumentID = firstDoc.String
	e.FirstSeenChunkID = firstChunk.String
	_ = json.Unmarshal([]byte(aliases), &e.Aliases)
	return e, nil
}

// GetEntity fetches a single entity by its (type, normalized name) key.
func (s *Store) GetEntity(ctx context.Context, entityType EntityType, normalizedName string) (Entity, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entityColumns+" FROM entities WHERE entity_type = ? AND normalized_name = ?",
		string(entityType), normalizedName)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return Entity{}, false, nil
	}
	if err != nil {
		return Entity{}, false, err
	}
	return e, true, nil
}

// ListEntitiesByType returns every entity of a given type, most-mentioned
// first, used by the case summary rebuild for key parties / legal issues.
func (s *Store) ListEntitiesByType(ctx context.Context, entityType EntityType) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entityColumns+" FROM entities WHERE entity_type = ? ORDER BY mention_count DESC",
		string(entityType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EntityTypeCounts returns the number of distinct entities tracked per
// type, used by the case summary's entity_type_counts rollup.
func (s *Store) EntityTypeCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT entity_type, COUNT(*) FROM entities GROUP BY entity_type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, rows.Err()
}

// PutEntityMention records a single occurrence of an entity within a chunk.
func (s *Store) PutEntityMention(ctx context.Context, m EntityMention) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entity_mentions (entity_type, normalized_name, chunk_id, document_id, char_start, char_end, context)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(m.EntityType), m.NormalizedName, m.ChunkID, m.DocumentID, m.CharStart, m.CharEnd, m.Context)
	return err
}

// GetEntityMentionsByChunk returns every entity mention located in a
// specific chunk.
func (s *Store) GetEntityMentionsByChunk(ctx context.Context, chunkID string) ([]EntityMention, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_type, normalized_name, chunk_id, document_id, char_start, char_end, context
		FROM entity_mentions WHERE chunk_id = ?
	`, chunkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EntityMention
	for rows.Next() {
		var m EntityMention
		var entityType string
		if err := rows.Scan(&entityType, &m.NormalizedName, &m.ChunkID, &m.DocumentID, &m.CharStart, &m.CharEnd, &m.Context); err != nil {
			return nil, err
		}
		m.EntityType = EntityType(entityType)
		out = append(out, m)
	}
	return out, rows.Err()
}

// DocumentsSharingEntities returns, for a given document, the set of other
// document ids that mention at least one of the same normalized entities,
// along with the count of shared entities — the basis of the
// shared_entities doc_edge (spec supplemental relatedness graph).
func (s *Store) DocumentsSharingEntities(ctx context.Context, documentID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT other.document_id, COUNT(DISTINCT other.entity_type || ':' || other.normalized_name)
		FROM entity_mentions AS mine
		JOIN entity_mentions AS other
			ON mine.entity_type = other.entity_type
			AND mine.normalized_name = other.normalized_name
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
