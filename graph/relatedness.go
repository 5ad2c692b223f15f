package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/casetrack/casetrack/casestore"
)

// minComponentSplit is the minimum component size eligible for further
// modularity-based splitting.
const minComponentSplit = 6

// maxModularityNodes caps the node count for the modularity optimisation.
// Components larger than this are kept as a single cluster.
const maxModularityNodes = 200

// docEdge represents a weighted edge in the in-memory adjacency list over
// document indices.
type docEdge struct {
	to     int
	weight float64
}

// DocumentCluster is a group of related documents discovered via
// connected-components and, for larger groups, greedy modularity
// splitting over the shared-entities/shared-citations/semantic-similar
// doc_edges (spec §4.6's "document relatedness" query, computed in bulk
// rather than per-lookup).
type DocumentCluster struct {
	DocumentIDs []string
	Level       int // 0 = connected component, 1 = modularity sub-split
}

// DetectDocumentClusters groups a case's documents by relatedness, using
// the same connected-components-then-modularity-split approach the
// teacher used for entity communities, applied here to the document
// graph instead.
func DetectDocumentClusters(ctx context.Context, store *casestore.Store) ([]DocumentCluster, error) {
	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: listing documents for clustering: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	edges, err := store.AllDocEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: loading doc edges: %w", err)
	}

	idIndex := make(map[string]int, len(docs))
	for i, d := range docs {
		idIndex[d.ID] = i
	}

	adj := make([][]docEdge, len(docs))
	totalWeight := 0.0
	for _, e := range edges {
		si, okA := idIndex[e.DocA]
		ti, okB := idIndex[e.DocB]
		if !okA || !okB || si == ti {
			continue
		}
		adj[si] = append(adj[si], docEdge{to: ti, weight: e.Weight})
		adj[ti] = append(adj[ti], docEdge{to: si, weight: e.Weight})
		totalWeight += e.Weight
	}

	visited := make([]bool, len(docs))
	var components [][]int
	for i := range docs {
		if visited[i] {
			continue
		}
		var comp []int
		queue := []int{i}
		visited[i] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			comp = append(comp, node)
			for _, e := range adj[node] {
				if !visited[e.to] {
					visited[e.to] = true
					queue = append(queue, e.to)
				}
			}
		}
		components = append(components, comp)
	}

	slog.Info("graph: document clustering found components",
		"components", len(components), "documents", len(docs))

	var clusters []DocumentCluster
	for _, comp := range components {
		clusters = append(clusters, DocumentCluster{DocumentIDs: componentDocIDs(comp, docs), Level: 0})

		if len(comp) >= minComponentSplit && len(comp) <= maxModularityNodes && totalWeight > 0 {
			for _, sub := range modularitySplit(comp, adj, totalWeight) {
				clusters = append(clusters, DocumentCluster{DocumentIDs: componentDocIDs(sub, docs), Level: 1})
			}
		}
	}

	return clusters, nil
}

func componentDocIDs(comp []int, docs []casestore.Document) []string {
	ids := make([]string, len(comp))
	for i, idx := range comp {
		ids[i] = docs[idx].ID
	}
	sort.Strings(ids)
	return ids
}

// modularitySplit applies a greedy modularity optimisation (simplified
// Louvain) to split a connected component into two or more
// sub-clusters. If the split does not improve modularity the original
// component is returned as-is.
func modularitySplit(comp []int, adj [][]docEdge, totalWeight float64) [][]int {
	n := len(comp)
	if n < minComponentSplit {
		return [][]int{comp}
	}

	localIdx := make(map[int]int, n)
	for i, node := range comp {
		localIdx[node] = i
	}

	community := make([]int, n)
	for i := range community {
		community[i] = i
	}

	strength := make([]float64, n)
	for i, node := range comp {
		for _, e := range adj[node] {
			if _, ok := localIdx[e.to]; ok {
				strength[i] += e.weight
			}
		}
	}

	m2 := 2.0 * totalWeight
	if m2 == 0 {
		return [][]int{comp}
	}

	commStrength := make(map[int]float64, n)
	for i := range comp {
		commStrength[community[i]] += strength[i]
	}

	const maxPasses = 20
	for pass := 0; pass < maxPasses; pass++ {
		moved := false
		for i, node := range comp {
			commWeights := make(map[int]float64)
			for _, e := range adj[node] {
				li, ok := localIdx[e.to]
				if !ok {
					continue
				}
				commWeights[community[li]] += e.weight
			}

			currentComm := community[i]
			kiIn := commWeights[currentComm]
			ki := strength[i]
			sigmaCurrent := commStrength[currentComm]
			removeDelta := kiIn/m2 - (sigmaCurrent*ki)/(m2*m2)

			bestComm := currentComm
			bestGain := 0.0
			for c, wic := range commWeights {
				if c == currentComm {
					continue
				}
				sigmaC := commStrength[c]
				gain := (wic/m2 - (sigmaC*ki)/(m2*m2)) - removeDelta
				if gain > bestGain {
					bestGain = gain
					bestComm = c
				}
			}

			if bestComm != currentComm {
				commStrength[currentComm] -= ki
				commStrength[bestComm] += ki
				community[i] = bestComm
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	groups := make(map[int][]int)
	for i, node := range comp {
		groups[community[i]] = append(groups[community[i]], node)
	}

	result := make([][]int, 0, len(groups))
	for _, g := range groups {
		result = append(result, g)
	}
	if len(result) <= 1 {
		return [][]int{comp}
	}
	return result
}
