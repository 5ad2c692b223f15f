//go:build cgo

package graph

import (
	"context"
	"testing"
)

func TestDetectDocumentClustersUnconnectedDocumentsAreSingletons(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	putTestDocument(t, s, "doc-1")
	putTestDocument(t, s, "doc-2")
	putTestDocument(t, s, "doc-3")

	clusters, err := DetectDocumentClusters(ctx, s)
	if err != nil {
		t.Fatalf("DetectDocumentClusters: %v", err)
	}
	if len(clusters) != 3 {
		t.Fatalf("expected 3 singleton clusters with no edges, got %d: %+v", len(clusters), clusters)
	}
}

func TestDetectDocumentClustersNoDocumentsReturnsNil(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	clusters, err := DetectDocumentClusters(ctx, s)
	if err != nil {
		t.Fatalf("DetectDocumentClusters: %v", err)
	}
	if clusters != nil {
		t.Errorf("expected nil clusters for empty case, got %v", clusters)
	}
}
