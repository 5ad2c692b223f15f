package casestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GetCaseSummary reads the cached case_map summary row. Callers that need
// a fresh summary after mutation should call RebuildCaseSummary first.
func (s *Store) GetCaseSummary(ctx context.Context) (CaseSummary, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM case_map WHERE key = 'summary'").Scan(&raw)
	if err != nil {
		return CaseSummary{}, err
	}
	var summary CaseSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return CaseSummary{}, fmt.Errorf("casestore: unmarshaling case summary: %w", err)
	}
	return summary, nil
}

// RebuildCaseSummary recomputes the derived per-case rollup from the
// underlying column families and persists it to case_map. It is invoked
// after every ingestion or deletion (spec §4.3).
func (s *Store) RebuildCaseSummary(ctx context.Context) (CaseSummary, error) {
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return CaseSummary{}, fmt.Errorf("casestore: listing documents for summary: %w", err)
	}

	var totalChunks int
	categoryCounts := map[string]int{}
	for _, d := range docs {
		totalChunks += d.ChunkCount
		categoryCounts[string(d.DocType)]++
	}

	entityTypeCounts, err := s.EntityTypeCounts(ctx)
	if err != nil {
		return CaseSummary{}, fmt.Errorf("casestore: entity type counts: %w", err)
	}

	parties, err := s.topEntities(ctx, EntityParty, 10)
	if err != nil {
		return CaseSummary{}, err
	}
	issues, err := s.topEntities(ctx, EntityLegalConcept, 10)
	if err != nil {
		return CaseSummary{}, err
	}
	dates, err := s.ListEntitiesByType(ctx, EntityDate)
	if err != nil {
		return CaseSummary{}, err
	}
	var keyDates []string
	for i, d := range dates {
		if i >= 20 {
			break
		}
		keyDates = append(keyDates, d.CanonicalName)
	}

	topics, err := s.topEntities(ctx, EntityOrganization, 10)
	if err != nil {
		return CaseSummary{}, err
	}

	authorities, err := s.MostCitedAuthorities(ctx, 10)
	if err != nil {
		return CaseSummary{}, fmt.Errorf("casestore: most cited authorities: %w", err)
	}
	var citationCounts []NamedCount
	for _, a := range authorities {
		citationCounts = append(citationCounts, NamedCount{Name: a.FullText, Count: a.MentionCount})
	}

	summary := CaseSummary{
		KeyParties:             parties,
		KeyDates:               keyDates,
		TopTopics:              topics,
		LegalIssues:            issues,
		MostCitedAuthorities:   citationCounts,
		DocumentCategoryCounts: categoryCounts,
		EntityTypeCounts:       entityTypeCounts,
		TotalDocuments:         len(docs),
		TotalChunks:            totalChunks,
		UpdatedAt:              time.Now(),
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return CaseSummary{}, fmt.Errorf("casestore: marshaling case summary: %w", err)
	}
	if err := s.SetCaseMap(ctx, "summary", string(raw)); err != nil {
		return CaseSummary{}, err
	}
	return summary, nil
}

func (s *Store) topEntities(ctx context.Context, entityType EntityType, limit int) ([]NamedCount, error) {
	entities, err := s.ListEntitiesByType(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("casestore: listing entities of type %s: %w", entityType, err)
	}
	var out []NamedCount
	for i, e := range entities {
		if i >= limit {
			break
		}
		out = append(out, NamedCount{Name: e.CanonicalName, Count: e.MentionCount})
	}
	return out, nil
}

// SetCaseMap writes a key into the case_map column family directly,
// without going through the rebuild path, for low-level callers (e.g.
// migrations seeding the initial empty summary).
func (s *Store) SetCaseMap(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO case_map (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
