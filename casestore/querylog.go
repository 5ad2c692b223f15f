package casestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// QueryLogEntry is one recorded search invocation, kept per case for
// operator diagnostics: what was searched, how many results came back,
// and how long each pipeline stage took.
type QueryLogEntry struct {
	ID           string
	QueryText    string
	ResultCount  int
	StageTimings map[string]int64 // stage name -> milliseconds
	CreatedAt    string
}

// PutQueryLogEntry records a single search invocation. It assigns an id
// if entry.ID is empty.
func (s *Store) PutQueryLogEntry(ctx context.Context, entry QueryLogEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	timings := entry.StageTimings
	if timings == nil {
		timings = map[string]int64{}
	}
	raw, err := json.Marshal(timings)
	if err != nil {
		return "", fmt.Errorf("casestore: marshaling query log stage timings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_log (id, query_text, result_count, stage_timings)
		VALUES (?, ?, ?, ?)
	`, entry.ID, entry.QueryText, entry.ResultCount, string(raw))
	if err != nil {
		return "", fmt.Errorf("casestore: inserting query log entry: %w", err)
	}
	return entry.ID, nil
}

// ListQueryLog returns the most recent query log entries, newest first,
// bounded by limit (a non-positive limit defaults to 50).
func (s *Store) ListQueryLog(ctx context.Context, limit int) ([]QueryLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query_text, result_count, stage_timings, created_at
		FROM query_log
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("casestore: listing query log: %w", err)
	}
	defer rows.Close()

	var entries []QueryLogEntry
	for rows.Next() {
		var e QueryLogEntry
		var raw string
		if err := rows.Scan(&e.ID, &e.QueryText, &e.ResultCount, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("casestore: scanning query log row: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &e.StageTimings); err != nil {
			return nil, fmt.Errorf("casestore: unmarshaling query log stage timings: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
