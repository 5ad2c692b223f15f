package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/casetrack/casetrack/casestore"
	"github.com/casetrack/casetrack/ingest"
)

// eventChannelBuffer is the initial capacity of the manager's map of
// pending events; it does not bound how many are buffered, and no event
// is dropped.
const eventChannelBuffer = 500

// debounceInterval coalesces rapid edits to the same path into a
// single processing pass.
const debounceInterval = 2 * time.Second

// scheduledRunnerInterval is how often the manager checks whether any
// interval/daily watch is due for a diff-sync.
const scheduledRunnerInterval = 60 * time.Second

// CaseAccessor resolves a case id to its open store and ingestion
// pipeline. The manager does not own case lifecycle — opening,
// caching, and closing casestore handles is the caller's job; this is
// just how the manager reaches the right one for a given event.
type CaseAccessor func(caseID string) (*casestore.Store, *ingest.Pipeline, error)

// Manager owns the single fsnotify watcher backing every registered
// watch, debounces its events, and drains them on one goroutine,
// alongside a second goroutine running the scheduled diff-sync check.
type Manager struct {
	registry *Registry
	resolve  CaseAccessor
	logger   *slog.Logger
	fsw      *fsnotify.Watcher

	mu         sync.Mutex
	watchedDir map[string]string // absolute directory -> owning watch id

	pendingMu sync.Mutex
	pending   map[string]pendingChange // absolute file path -> accumulated op

	stop chan struct{}
	wg   sync.WaitGroup
}

type pendingChange struct {
	watchID string
	op      fsnotify.Op
}

// New builds a Manager over the given registry. logger defaults to
// slog.Default() when nil.
func New(registry *Registry, resolve CaseAccessor, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Manager{
		registry:   registry,
		resolve:    resolve,
		logger:     logger,
		fsw:        fsw,
		watchedDir: make(map[string]string),
		pending:    make(map[string]pendingChange, eventChannelBuffer),
		stop:       make(chan struct{}),
	}, nil
}

// Start adds filesystem watches for every already-registered watch and
// begins the event-processing and scheduled-runner goroutines. It
// returns once every existing watch's root has been added (a root that
// no longer exists on disk is logged and skipped, not fatal).
func (m *Manager) Start(ctx context.Context) error {
	for _, w := range m.registry.List() {
		if err := m.addRootWatch(w); err != nil {
			m.logger.Warn("watch: failed to add root watch", "watch_id", w.ID, "root", w.RootPath, "error", err)
		}
	}

	m.wg.Add(2)
	go m.processEvents(ctx)
	go m.runScheduledSync(ctx)
	return nil
}

// Stop closes the underlying fsnotify watcher and waits for both
// background goroutines to exit.
func (m *Manager) Stop() error {
	close(m.stop)
	err := m.fsw.Close()
	m.wg.Wait()
	return err
}

// AddWatch registers a new watch, adds filesystem watches under its
// root, and persists the registry.
func (m *Manager) AddWatch(w Watch) (Watch, error) {
	info, err := os.Stat(w.RootPath)
	if err != nil {
		return Watch{}, err
	}
	if !info.IsDir() {
		return Watch{}, &os.PathError{Op: "watch", Path: w.RootPath, Err: os.ErrInvalid}
	}

	saved, err := m.registry.Add(w)
	if err != nil {
		return Watch{}, err
	}
	if err := m.addRootWatch(saved); err != nil {
		m.logger.Warn("watch: failed to add root watch", "watch_id", saved.ID, "root", saved.RootPath, "error", err)
	}
	return saved, nil
}

// RemoveWatch stops watching a watch's directories and removes it from
// the registry.
func (m *Manager) RemoveWatch(id string) error {
	m.mu.Lock()
	for dir, owner := range m.watchedDir {
		if owner == id {
			m.fsw.Remove(dir)
			delete(m.watchedDir, dir)
		}
	}
	m.mu.Unlock()
	return m.registry.Remove(id)
}

// ListWatches returns every registered watch.
func (m *Manager) ListWatches() []Watch {
	return m.registry.List()
}

// addRootWatch recursively adds fsnotify watches under w.RootPath,
// skipping hidden directories, mirroring the teacher's own recursive
// watch setup.
func (m *Manager) addRootWatch(w Watch) error {
	root, err := filepath.Abs(w.RootPath)
	if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if base != "." && strings.HasPrefix(base, ".") {
			return filepath.SkipDir
		}
		if addErr := m.fsw.Add(path); addErr != nil {
			m.logger.Warn("watch: failed to watch directory", "path", path, "error", addErr)
			return nil
		}
		m.mu.Lock()
		m.watchedDir[path] = w.ID
		m.mu.Unlock()
		return nil
	})
}

// findOwner returns the watch id whose root contains path, preferring
// the longest (most specific) matching root when watches nest.
func (m *Manager) findOwner(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best string
	var bestLen int
	for dir, owner := range m.watchedDir {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			if len(dir) > bestLen {
				best, bestLen = owner, len(dir)
			}
		}
	}
	return best, best != ""
}

// processEvents drains fsnotify events and ticks the debounce flush,
// the manager's single consumer of the one owned fsnotify.Watcher.
func (m *Manager) processEvents(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(debounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case event, ok := <-m.fsw.Events:
			if !ok {
				return
			}
			m.handleFSEvent(event)
		case err, ok := <-m.fsw.Errors:
			if !ok {
				return
			}
			m.logger.Error("watch: fsnotify error", "error", err)
		case <-ticker.C:
			m.flushPending(ctx)
		}
	}
}

func (m *Manager) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if owner, ok := m.findOwner(filepath.Dir(path)); ok {
				w, _ := m.registry.Get(owner)
				if err := m.addRootWatch(Watch{ID: owner, RootPath: path, CaseID: w.CaseID}); err != nil {
					m.logger.Warn("watch: failed to watch new directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	owner, ok := m.findOwner(path)
	if !ok {
		return
	}
	w, ok := m.registry.Get(owner)
	if !ok {
		return
	}
	if !matchesExtension(path, w.Extensions) {
		return
	}

	m.pendingMu.Lock()
	pc := m.pending[path]
	pc.watchID = owner
	pc.op |= event.Op
	m.pending[path] = pc
	m.pendingMu.Unlock()
}

func matchesExtension(path string, extensions []string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, e := range extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// flushPending applies every path's accumulated op since the last
// flush: Created/Modified paths are (re-)ingested; Deleted paths are
// removed from the case iff the owning watch has auto_remove_deleted
// set, per spec §4.7's event-processing rules.
func (m *Manager) flushPending(ctx context.Context) {
	m.pendingMu.Lock()
	if len(m.pending) == 0 {
		m.pendingMu.Unlock()
		return
	}
	toProcess := m.pending
	m.pending = make(map[string]pendingChange, eventChannelBuffer)
	m.pendingMu.Unlock()

	for path, pc := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}
		m.applyChange(ctx, pc.watchID, path, pc.op)
	}
}

func (m *Manager) applyChange(ctx context.Context, watchID, path string, op fsnotify.Op) {
	w, ok := m.registry.Get(watchID)
	if !ok {
		return
	}
	store, pipeline, err := m.resolve(w.CaseID)
	if err != nil {
		m.logger.Warn("watch: resolving case failed", "case_id", w.CaseID, "error", err)
		return
	}

	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		m.handleDelete(ctx, store, w, path)
		return
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		m.handleDelete(ctx, store, w, path)
		return
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		m.logger.Warn("watch: resolving absolute path failed", "path", path, "error", err)
		return
	}
	if _, err := pipeline.Ingest(ctx, absPath, ingest.Options{}); err != nil {
		m.logger.Warn("watch: ingest failed", "path", absPath, "case_id", w.CaseID, "error", err)
	}
}

func (m *Manager) handleDelete(ctx context.Context, store *casestore.Store, w Watch, path string) {
	if !w.AutoRemoveDeleted {
		return
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}
	doc, found, err := store.GetDocumentByPath(ctx, absPath)
	if err != nil {
		m.logger.Warn("watch: looking up deleted document failed", "path", absPath, "error", err)
		return
	}
	if !found {
		return
	}
	if err := store.DeleteDocument(ctx, doc.ID); err != nil {
		m.logger.Warn("watch: removing deleted document failed", "path", absPath, "doc_id", doc.ID, "error", err)
	}
}

// runScheduledSync checks every 60 seconds whether any interval/daily
// watch is due and, for each due watch, runs a diff-sync.
func (m *Manager) runScheduledSync(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(scheduledRunnerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.checkDueWatches(ctx)
		}
	}
}

func (m *Manager) checkDueWatches(ctx context.Context) {
	now := time.Now()
	for _, w := range m.registry.List() {
		if !w.Due(now) {
			continue
		}
		if _, err := m.SyncWatch(ctx, w.ID); err != nil {
			m.logger.Warn("watch: scheduled diff-sync failed", "watch_id", w.ID, "error", err)
		}
	}
}
