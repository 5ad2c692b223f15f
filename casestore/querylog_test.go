//go:build cgo

package casestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryLogRecordsAndLists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.PutQueryLogEntry(ctx, QueryLogEntry{
		QueryText:    "breach of contract",
		ResultCount:  5,
		StageTimings: map[string]int64{"lexical_recall_ms": 3, "total_ms": 12},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = s.PutQueryLogEntry(ctx, QueryLogEntry{QueryText: "injunctive relief", ResultCount: 0})
	require.NoError(t, err)

	entries, err := s.ListQueryLog(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Most recent first.
	require.Equal(t, "injunctive relief", entries[0].QueryText)
	require.Equal(t, "breach of contract", entries[1].QueryText)
	require.Equal(t, int64(12), entries[1].StageTimings["total_ms"])
}

func TestQueryLogDefaultLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.PutQueryLogEntry(ctx, QueryLogEntry{QueryText: "q"})
		require.NoError(t, err)
	}
	entries, err := s.ListQueryLog(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}
