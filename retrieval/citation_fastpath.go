package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/casetrack/casetrack/graph"
)

// citationFastPath implements stage 0: if the query itself contains a
// recognizable Bluebook citation, look up its mentions directly and
// short-circuit the rest of the pipeline, matching the teacher's own
// identifier-aware query routing (detectIdentifiers) but resolving
// straight to mention contexts instead of just reweighting later
// stages. It returns matched=false, not an error, when the query has no
// detectable citation or none of the detected citations are on record.
func (e *Engine) citationFastPath(ctx context.Context, query string, opts Options) ([]Result, bool, error) {
	citations := graph.DetectCitations(query)
	if len(citations) == 0 {
		return nil, false, nil
	}

	docFilter := make(map[string]bool, len(opts.DocumentIDs))
	for _, id := range opts.DocumentIDs {
		docFilter[id] = true
	}

	chunkScores := make(map[string]float64)
	var order []string
	for _, c := range citations {
		stored, found, err := e.store.GetCitation(ctx, c.Normalized)
		if err != nil {
			return nil, false, fmt.Errorf("looking up citation %s: %w", c.Normalized, err)
		}
		if !found {
			continue
		}
		mentions, err := e.store.GetCitationMentions(ctx, c.Normalized)
		if err != nil {
			return nil, false, fmt.Errorf("loading mentions for citation %s: %w", c.Normalized, err)
		}
		for _, m := range mentions {
			if len(docFilter) > 0 && !docFilter[m.DocumentID] {
				continue
			}
			if _, seen := chunkScores[m.ChunkID]; !seen {
				order = append(order, m.ChunkID)
			}
			chunkScores[m.ChunkID] += float64(stored.MentionCount)
		}
	}
	if len(order) == 0 {
		return nil, false, nil
	}

	sort.SliceStable(order, func(i, j int) bool {
		if chunkScores[order[i]] != chunkScores[order[j]] {
			return chunkScores[order[i]] > chunkScores[order[j]]
		}
		return order[i] < order[j]
	})
	if len(order) > opts.TopK {
		order = order[:opts.TopK]
	}

	results, err := e.assemble(ctx, order, chunkScores, "citation", significantWords(query))
	if err != nil {
		return nil, false, err
	}
	return results, true, nil
}
