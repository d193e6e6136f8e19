package plugin

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ModuleIDSeparator joins the segments of a module identifier.
const ModuleIDSeparator = "/"

// Module is a materialized plugin module: an identifier bound to the
// directory it lives in, plus the capability bindings its descriptor
// declares.
type Module struct {
	ID           string
	Path         string
	Capabilities []CapabilityBinding
}

// ModuleRegistry resolves module identifiers against an ordered list of
// search paths and caches what it materializes. It is the explicit stand-in
// for ambient loader state: callers register paths, import modules, and evict
// stale entries without any global side effects.
type ModuleRegistry struct {
	mu      sync.RWMutex
	paths   []string
	modules map[string]*Module
	log     logrus.FieldLogger
}

// NewModuleRegistry creates an empty registry.
func NewModuleRegistry(log logrus.FieldLogger) *ModuleRegistry {
	return &ModuleRegistry{
		modules: make(map[string]*Module),
		log:     fieldLogger(log),
	}
}

// InsertPath prepends a search path so it takes priority over earlier ones.
// Re-inserting an existing path moves it to the front.
func (r *ModuleRegistry) InsertPath(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	paths := make([]string, 0, len(r.paths)+1)
	paths = append(paths, abs)
	for _, p := range r.paths {
		if p != abs {
			paths = append(paths, p)
		}
	}
	r.paths = paths
}

// RemovePath drops a search path. Modules already imported from it stay
// cached until evicted.
func (r *ModuleRegistry) RemovePath(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	paths := r.paths[:0]
	for _, p := range r.paths {
		if p != abs {
			paths = append(paths, p)
		}
	}
	r.paths = paths
}

// Paths returns the current search paths in priority order.
func (r *ModuleRegistry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}

// Import resolves a module identifier to a directory under one of the search
// paths and materializes it, reading capability bindings from the descriptor
// when one is present. Cached entries are returned as-is. Returns a
// *ModuleNotFoundError when no search path contains the module.
func (r *ModuleRegistry) Import(id string) (*Module, error) {
	if id == "" {
		return nil, &ModuleNotFoundError{Module: id}
	}

	r.mu.RLock()
	if mod, ok := r.modules[id]; ok {
		r.mu.RUnlock()
		return mod, nil
	}
	paths := make([]string, len(r.paths))
	copy(paths, r.paths)
	r.mu.RUnlock()

	rel := filepath.Join(strings.Split(id, ModuleIDSeparator)...)
	for _, base := range paths {
		dir := filepath.Join(base, rel)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}

		mod := &Module{ID: id, Path: dir}
		if data, err := os.ReadFile(filepath.Join(dir, DescriptorName)); err == nil {
			if d, err := ParseDescriptor(data); err == nil {
				mod.Capabilities = d.Capabilities
			} else {
				r.log.WithField("module", id).WithError(err).Warn("unreadable descriptor during import")
			}
		}

		r.mu.Lock()
		// Another caller may have raced us; keep the first import.
		if cached, ok := r.modules[id]; ok {
			r.mu.Unlock()
			return cached, nil
		}
		r.modules[id] = mod
		r.mu.Unlock()
		return mod, nil
	}

	return nil, &ModuleNotFoundError{Module: id}
}

// Evict drops a cached module so the next Import re-reads it from disk.
// Returns true when an entry was removed.
func (r *ModuleRegistry) Evict(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[id]; !ok {
		return false
	}
	delete(r.modules, id)
	return true
}

// Imported reports whether a module identifier is currently cached.
func (r *ModuleRegistry) Imported(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[id]
	return ok
}
