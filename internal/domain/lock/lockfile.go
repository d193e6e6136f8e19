// Package lock persists approved plugin state: which versions, sources,
// pins, and checksums are allowed to load.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/modkit-io/modkit/internal/domain/plugin"
	"github.com/modkit-io/modkit/internal/domain/version"
)

// DefaultName is the lockfile's conventional filename.
const DefaultName = "plugins.lock"

// Entry is the locked state of one plugin.
type Entry struct {
	// Version is the approved version.
	Version string `json:"version"`
	// Source is where the plugin was acquired from.
	Source string `json:"source"`
	// Pin bounds future upgrades; empty means unconstrained.
	Pin string `json:"pin,omitempty"`
	// Checksum is the approved content digest.
	Checksum string `json:"checksum,omitempty"`
}

// document is the on-disk schema.
type document struct {
	Plugins map[string]Entry `json:"plugins"`
}

// DowngradeError indicates an add would lower a locked version.
type DowngradeError struct {
	Plugin string
	Locked string
	New    string
}

func (e *DowngradeError) Error() string {
	return fmt.Sprintf("refusing to downgrade %q from %s to %s", e.Plugin, e.Locked, e.New)
}

// IsDowngrade returns true if the error is a rejected downgrade.
func IsDowngrade(err error) bool {
	var dgErr *DowngradeError
	return errors.As(err, &dgErr)
}

// PinViolationError indicates an add would break the locked pin.
type PinViolationError struct {
	Plugin  string
	Pin     string
	Version string
}

func (e *PinViolationError) Error() string {
	return fmt.Sprintf("version %s of %q violates locked pin %s", e.Version, e.Plugin, e.Pin)
}

// IsPinViolation returns true if the error is a rejected pin violation.
func IsPinViolation(err error) bool {
	var pvErr *PinViolationError
	return errors.As(err, &pvErr)
}

// Lockfile reads and writes one lock document. Every mutation re-reads the
// document, applies the change, and atomically replaces the file, so the
// on-disk state is always a complete document. Concurrent writers are not
// supported; serialize invocations at the process boundary.
type Lockfile struct {
	path string
	mu   sync.Mutex
}

// New creates a lockfile handle at path. The file itself is created on the
// first write.
func New(path string) *Lockfile {
	return &Lockfile{path: path}
}

// Path returns the lockfile location.
func (l *Lockfile) Path() string {
	return l.path
}

// read loads the document; a missing or corrupt file yields an empty one.
func (l *Lockfile) read() document {
	doc := document{Plugins: map[string]Entry{}}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return doc
	}
	if err := json.Unmarshal(data, &doc); err != nil || doc.Plugins == nil {
		return document{Plugins: map[string]Entry{}}
	}
	return doc
}

// write atomically replaces the document via a temp file and rename.
func (l *Lockfile) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding lockfile: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating lockfile directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".plugins-lock-*")
	if err != nil {
		return fmt.Errorf("creating lockfile temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing lockfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing lockfile temp: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing lockfile: %w", err)
	}
	return nil
}

// Add records or updates an entry. Without force it rejects a downgrade
// against the locked version and rejects a version violating the locked pin,
// before any write happens. An update that carries no pin of its own inherits
// the locked one.
func (l *Lockfile) Add(name string, entry Entry, force bool) error {
	if name == "" {
		return plugin.ErrEmptyPluginName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	doc := l.read()
	if current, ok := doc.Plugins[name]; ok {
		if !force {
			if isDowngrade(current.Version, entry.Version) {
				return &DowngradeError{Plugin: name, Locked: current.Version, New: entry.Version}
			}
			if current.Pin != "" && !version.Match(entry.Version, current.Pin) {
				return &PinViolationError{Plugin: name, Pin: current.Pin, Version: entry.Version}
			}
		}
		if entry.Pin == "" {
			entry.Pin = current.Pin
		}
	}

	doc.Plugins[name] = entry
	return l.write(doc)
}

// Delete removes an entry, reporting whether one existed.
func (l *Lockfile) Delete(name string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc := l.read()
	if _, ok := doc.Plugins[name]; !ok {
		return false, nil
	}
	delete(doc.Plugins, name)
	if err := l.write(doc); err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the entry for a plugin name.
func (l *Lockfile) Get(name string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.read().Plugins[name]
	return entry, ok
}

// Entries returns the full document keyed by plugin name.
func (l *Lockfile) Entries() map[string]Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.read().Plugins
}

// Locked materializes every entry as plugin metadata, sorted by name, for
// validator use.
func (l *Lockfile) Locked() []plugin.Metadata {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc := l.read()
	names := make([]string, 0, len(doc.Plugins))
	for name := range doc.Plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	metas := make([]plugin.Metadata, 0, len(names))
	for _, name := range names {
		entry := doc.Plugins[name]
		metas = append(metas, plugin.Metadata{
			Name:     name,
			Version:  entry.Version,
			Source:   entry.Source,
			Pin:      entry.Pin,
			Checksum: entry.Checksum,
			Requires: []string{},
			Official: plugin.IsOfficialName(name),
		})
	}
	return metas
}

// Checksum returns the approved digest for a plugin name.
func (l *Lockfile) Checksum(name string) (string, bool) {
	entry, ok := l.Get(name)
	if !ok {
		return "", false
	}
	return entry.Checksum, true
}

// isDowngrade reports whether candidate is strictly lower than locked.
// Unknown versions never count as a downgrade.
func isDowngrade(locked, candidate string) bool {
	if locked == "" || candidate == "" || locked == version.Unknown || candidate == version.Unknown {
		return false
	}
	return version.Compare(candidate, locked) < 0
}

// Lockfile is the approved-checksum source for load-time validation.
var _ plugin.LockReader = (*Lockfile)(nil)
