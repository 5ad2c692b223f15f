package watch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the JSON-persisted set of registered folder watches,
// restored from disk on startup and rewritten atomically on every
// mutation so a crash mid-write never leaves watches.json truncated.
type Registry struct {
	mu      sync.RWMutex
	path    string
	watches map[string]Watch
}

// Open loads the registry from path, creating an empty one in memory
// if the file doesn't exist yet (it is created on the first mutation).
func Open(path string) (*Registry, error) {
	r := &Registry{path: path, watches: make(map[string]Watch)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("watch: reading registry: %w", err)
	}
	if len(data) == 0 {
		return r, nil
	}

	var list []Watch
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("watch: parsing registry: %w", err)
	}
	for _, w := range list {
		r.watches[w.ID] = w
	}
	return r, nil
}

// Add registers a new watch, assigning it an id and defaulting its
// extension filter when none is given, and persists the registry.
func (r *Registry) Add(w Watch) (Watch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	if len(w.Extensions) == 0 {
		w.Extensions = append([]string(nil), defaultExtensions...)
	}

	r.watches[w.ID] = w
	if err := r.saveLocked(); err != nil {
		return Watch{}, err
	}
	return w, nil
}

// Remove deletes a watch by id and persists the registry. Removing an
// unknown id is a no-op, not an error, so callers can remove idempotently.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.watches, id)
	return r.saveLocked()
}

// Get returns the watch with the given id.
func (r *Registry) Get(id string) (Watch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.watches[id]
	return w, ok
}

// List returns every registered watch, ordered by id for determinism.
func (r *Registry) List() []Watch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Watch, 0, len(r.watches))
	for _, w := range r.watches {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// touchLastSync records when a watch's scheduled diff-sync last ran.
func (r *Registry) touchLastSync(id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watches[id]
	if !ok {
		return nil
	}
	w.LastSyncAt = at
	r.watches[id] = w
	return r.saveLocked()
}

// saveLocked writes the registry to disk: encode to a temp file in the
// same directory, then rename over the real path, so readers never see
// a partially-written watches.json. Callers must hold r.mu.
func (r *Registry) saveLocked() error {
	list := make([]Watch, 0, len(r.watches))
	for _, w := range r.watches {
		list = append(list, w)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("watch: encoding registry: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("watch: creating registry directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".watches-*.json")
	if err != nil {
		return fmt.Errorf("watch: creating temp registry file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("watch: writing temp registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("watch: closing temp registry file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("watch: installing registry file: %w", err)
	}
	return nil
}
