package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/ingest"
	"github.com/casetrack/casetrack/parser"
)

// SyncResult reports what a diff-sync found and did.
type SyncResult struct {
	WatchID   string
	New       int
	Changed   int
	Unchanged int
	Removed   int
	Orphaned  int
	Errors    []error
}

// syncPlan is the outcome of the enumerate-and-diff pass, computed in
// full before anything is applied, per spec §4.7's "apply changes in a
// single batch."
type syncPlan struct {
	toIngest []string             // new or changed paths
	orphans  []casestore.Document // stored documents whose file is gone
}

// SyncWatch performs one diff-sync for watchID: enumerate supported
// files under its root, compare each against its stored content hash,
// classify new/changed/unchanged, find orphaned stored documents whose
// path no longer exists under the root, then apply every change in one
// pass. It records LastSyncAt on success.
func (m *Manager) SyncWatch(ctx context.Context, watchID string) (SyncResult, error) {
	w, ok := m.registry.Get(watchID)
	if !ok {
		return SyncResult{}, fmt.Errorf("watch: unknown watch %s", watchID)
	}

	store, pipeline, err := m.resolve(w.CaseID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("watch: resolving case %s: %w", w.CaseID, err)
	}

	plan, result, err := buildSyncPlan(ctx, store, w)
	if err != nil {
		return SyncResult{}, err
	}

	for _, path := range plan.toIngest {
		if _, err := pipeline.Ingest(ctx, path, ingest.Options{}); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("ingesting %s: %w", path, err))
		}
	}
	for _, doc := range plan.orphans {
		if !w.AutoRemoveDeleted {
			result.Orphaned++
			continue
		}
		if err := store.DeleteDocument(ctx, doc.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("removing orphan %s: %w", doc.SourcePath, err))
			continue
		}
		result.Removed++
	}

	if err := m.registry.touchLastSync(w.ID, time.Now()); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("recording last sync time: %w", err))
	}
	return result, nil
}

// buildSyncPlan enumerates the root, hashes each candidate file, and
// diffs against the case's stored documents, without mutating anything.
func buildSyncPlan(ctx context.Context, store *casestore.Store, w Watch) (syncPlan, SyncResult, error) {
	result := SyncResult{WatchID: w.ID}

	root, err := filepath.Abs(w.RootPath)
	if err != nil {
		return syncPlan{}, result, fmt.Errorf("watch: resolving root %s: %w", w.RootPath, err)
	}

	onDisk, err := enumerateSupportedFiles(root, w.Extensions)
	if err != nil {
		return syncPlan{}, result, fmt.Errorf("watch: enumerating %s: %w", root, err)
	}

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return syncPlan{}, result, fmt.Errorf("watch: listing documents: %w", err)
	}
	byPath := make(map[string]casestore.Document, len(docs))
	for _, d := range docs {
		if isUnder(d.SourcePath, root) {
			byPath[d.SourcePath] = d
		}
	}

	var plan syncPlan
	for _, path := range onDisk {
		existing, found := byPath[path]
		delete(byPath, path)

		if !found {
			plan.toIngest = append(plan.toIngest, path)
			result.New++
			continue
		}
		hash, err := parser.HashFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("hashing %s: %w", path, err))
			continue
		}
		if hash != existing.ContentHash {
			plan.toIngest = append(plan.toIngest, path)
			result.Changed++
		} else {
			result.Unchanged++
		}
	}

	for _, d := range byPath {
		plan.orphans = append(plan.orphans, d)
	}
	return plan, result, nil
}

// enumerateSupportedFiles walks root recursively, returning every
// regular file whose extension is in extensions, skipping hidden
// directories the same way the fsnotify watch setup does.
func enumerateSupportedFiles(root string, extensions []string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			base := filepath.Base(path)
			if base != "." && strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if matchesExtension(path, extensions) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// isUnder reports whether path is root itself or nested under it.
func isUnder(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
