package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/casetrack/casetrack/casestore"
)

// entityChunkEdgeKind is the KGEdge.Kind written by Builder for every
// entity mention, keyed by "type:normalized_name" on the src side.
const entityChunkEdgeKind = "entity_chunk"

// EntityKey returns the flat knowledge-graph edge key for an entity,
// matching what Builder writes via PutKGEdge.
func EntityKey(entityType casestore.EntityType, normalizedName string) string {
	return string(entityType) + ":" + normalizedName
}

// CoOccurringChunks returns the set of chunk ids that mention every one
// of the given entity keys (spec §4.6 query shape (ii), multi-entity
// co-occurrence), found by intersecting each entity's entity->chunk edge
// set rather than loading the whole graph into memory.
func CoOccurringChunks(ctx context.Context, store *casestore.Store, entityKeys []string) ([]string, error) {
	if len(entityKeys) == 0 {
		return nil, nil
	}

	var common map[string]bool
	for _, key := range entityKeys {
		edges, err := store.EdgesFrom(ctx, entityChunkEdgeKind, key)
		if err != nil {
			return nil, fmt.Errorf("graph: looking up edges for entity %s: %w", key, err)
		}
		current := make(map[string]bool, len(edges))
		for _, e := range edges {
			current[e.Dst] = true
		}
		if common == nil {
			common = current
		} else {
			for chunkID := range common {
				if !current[chunkID] {
					delete(common, chunkID)
				}
			}
		}
		if len(common) == 0 {
			return nil, nil
		}
	}

	out := make([]string, 0, len(common))
	for chunkID := range common {
		out = append(out, chunkID)
	}
	sort.Strings(out)
	return out, nil
}

// ExpandedChunk is one result of ExpandFromChunk: a chunk related to the
// seed chunk through at least one co-mentioned entity, with the combined
// edge weight (sum of shared entities' mention counts) used for ranking.
type ExpandedChunk struct {
	ChunkID string
	Weight  float64
}

// ExpandFromChunk implements the graph-expansion post-processor (spec
// §4.5): for a result chunk, it looks up every entity mentioned in that
// chunk, finds every other chunk mentioning at least one of the same
// entities, and returns up to maxExpansions of them ranked by combined
// edge weight, descending.
func ExpandFromChunk(ctx context.Context, store *casestore.Store, chunkID string, maxExpansions int) ([]ExpandedChunk, error) {
	mentions, err := store.GetEntityMentionsByChunk(ctx, chunkID)
	if err != nil {
		return nil, fmt.Errorf("graph: loading entity mentions for chunk %s: %w", chunkID, err)
	}
	if len(mentions) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, len(mentions))
	weights := make(map[string]float64)
	for _, m := range mentions {
		key := EntityKey(m.EntityType, m.NormalizedName)
		if seen[key] {
			continue
		}
		seen[key] = true

		edges, err := store.EdgesFrom(ctx, entityChunkEdgeKind, key)
		if err != nil {
			return nil, fmt.Errorf("graph: loading edges for entity %s: %w", key, err)
		}
		for _, e := range edges {
			if e.Dst == chunkID {
				continue
			}
			weights[e.Dst] += e.Weight
		}
	}

	out := make([]ExpandedChunk, 0, len(weights))
	for cid, w := range weights {
		out = append(out, ExpandedChunk{ChunkID: cid, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if maxExpansions > 0 && len(out) > maxExpansions {
		out = out[:maxExpansions]
	}
	return out, nil
}
