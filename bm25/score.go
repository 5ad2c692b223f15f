package bm25

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
)

// k1 and b are the classical BM25 hyperparameters the spec fixes.
const (
	k1 = 1.2
	b  = 0.75
)

// ScoredChunk is one lexically-ranked result, carrying only the chunk
// id and document id: callers join against casestore.Chunks for text
// and provenance.
type ScoredChunk struct {
	ChunkID    string
	DocumentID string
	Score      float64
}

// Score runs classical BM25 over the case's inverted index for query,
// returning up to limit results ordered by descending score, ties
// broken by chunk id ascending for determinism. An empty or
// all-stopword query, or a corpus with no indexed chunks, returns nil.
// A non-empty documentIDs restricts the postings scanned to those
// documents; the filter is applied inside the posting traversal itself
// rather than against the finished result set, so a query scoped to a
// handful of documents never pays for scoring chunks it will discard.
func Score(ctx context.Context, db *sql.DB, query string, limit int, documentIDs []string) ([]ScoredChunk, error) {
	terms := uniqueTerms(Tokenize(query))
	if len(terms) == 0 {
		return nil, nil
	}

	totalChunks, avgDocLen, err := readStats(ctx, db)
	if err != nil {
		return nil, err
	}
	if totalChunks == 0 {
		return nil, nil
	}

	var docFilter string
	var docArgs []any
	if len(documentIDs) > 0 {
		placeholders := make([]byte, 0, len(documentIDs)*2)
		docArgs = make([]any, len(documentIDs))
		for i, id := range documentIDs {
			if i > 0 {
				placeholders = append(placeholders, ',')
			}
			placeholders = append(placeholders, '?')
			docArgs[i] = id
		}
		docFilter = " AND document_id IN (" + string(placeholders) + ")"
	}

	type posting struct {
		chunkID    string
		documentID string
		termFreq   int
	}
	termPostings := make(map[string][]posting, len(terms))
	documentOf := make(map[string]string)

	for _, term := range terms {
		args := append([]any{term}, docArgs...)
		rows, err := db.QueryContext(ctx, `
			SELECT chunk_id, document_id, term_freq FROM bm25_postings WHERE term = ?`+docFilter,
			args...)
		if err != nil {
			return nil, fmt.Errorf("bm25: querying postings for term %q: %w", term, err)
		}
		var list []posting
		for rows.Next() {
			var p posting
			if err := rows.Scan(&p.chunkID, &p.documentID, &p.termFreq); err != nil {
				rows.Close()
				return nil, fmt.Errorf("bm25: scanning posting for term %q: %w", term, err)
			}
			list = append(list, p)
			documentOf[p.chunkID] = p.documentID
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
		termPostings[term] = list
	}

	candidateIDs := make([]string, 0, len(documentOf))
	for chunkID := range documentOf {
		candidateIDs = append(candidateIDs, chunkID)
	}
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	chunkLen, err := chunkLengths(ctx, db, candidateIDs)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(candidateIDs))
	for term, postings := range termPostings {
		df := len(postings)
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (float64(totalChunks)-float64(df)+0.5)/(float64(df)+0.5))
		for _, p := range postings {
			dl := float64(chunkLen[p.chunkID])
			denom := float64(p.termFreq) + k1*(1-b+b*dl/avgDocLen)
			contribution := idf * (float64(p.termFreq) * (k1 + 1) / denom)
			scores[p.chunkID] += contribution
		}
	}

	out := make([]ScoredChunk, 0, len(scores))
	for chunkID, score := range scores {
		out = append(out, ScoredChunk{
			ChunkID:    chunkID,
			DocumentID: documentOf[chunkID],
			Score:      score,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func readStats(ctx context.Context, db *sql.DB) (totalChunks int, avgDocLen float64, err error) {
	row := db.QueryRowContext(ctx, "SELECT total_chunks, avg_doc_len FROM bm25_stats WHERE id = 1")
	if err := row.Scan(&totalChunks, &avgDocLen); err != nil {
		return 0, 0, fmt.Errorf("bm25: reading bm25_stats: %w", err)
	}
	if avgDocLen == 0 {
		avgDocLen = 1 // avoid division by zero when the corpus is otherwise non-empty
	}
	return totalChunks, avgDocLen, nil
}

// chunkLengths returns each candidate chunk's indexed token count (the
// sum of term_freq across all its postings, not just the query terms),
// since BM25 normalization needs the chunk's true length.
func chunkLengths(ctx context.Context, db *sql.DB, chunkIDs []string) (map[string]int, error) {
	placeholders := make([]byte, 0, len(chunkIDs)*2)
	args := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT chunk_id, SUM(term_freq) FROM bm25_postings
		WHERE chunk_id IN (%s) GROUP BY chunk_id
	`, string(placeholders)), args...)
	if err != nil {
		return nil, fmt.Errorf("bm25: querying chunk lengths: %w", err)
	}
	defer rows.Close()

	lengths := make(map[string]int, len(chunkIDs))
	for rows.Next() {
		var id string
		var length int
		if err := rows.Scan(&id, &length); err != nil {
			return nil, err
		}
		lengths[id] = length
	}
	return lengths, rows.Err()
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var out []string
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
