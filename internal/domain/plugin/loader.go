package plugin

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/modkit-io/modkit/internal/domain/host"
)

// abstractMarker is the naming-convention prefix distinguishing a capability
// contract from its implementation ("IReportRenderer" vs "ReportRenderer").
const abstractMarker = "I"

// Outcome records what happened to a single plugin during a batch load.
type Outcome struct {
	Plugin Metadata
	Err    error
}

// LoadResult aggregates a batch load: what loaded, what was skipped and why,
// and the discovery errors encountered along the way.
type LoadResult struct {
	Loaded    []Metadata
	Skipped   []Outcome
	Discovery []DiscoveryError
}

// Loader drives plugins from discovered to loaded. Validation failures skip
// the single plugin; only a dependency cycle aborts a batch.
type Loader struct {
	discoverer Discoverer
	validators []Validator
	registry   *ModuleRegistry
	container  host.Container
	log        logrus.FieldLogger

	mu       sync.Mutex
	loaded   map[string]Metadata
	bindings map[string][]string
}

// NewLoader wires the loader to its collaborators.
func NewLoader(discoverer Discoverer, validators []Validator, registry *ModuleRegistry, container host.Container, log logrus.FieldLogger) *Loader {
	return &Loader{
		discoverer: discoverer,
		validators: validators,
		registry:   registry,
		container:  container,
		log:        fieldLogger(log),
		loaded:     make(map[string]Metadata),
		bindings:   make(map[string][]string),
	}
}

// LoadAll discovers every plugin, orders them so dependencies load first, and
// loads each in turn. Per-plugin failures are captured in the result; a
// circular dependency fails the whole batch before anything loads. Host
// singletons are started once after the batch.
func (l *Loader) LoadAll(ctx context.Context) (*LoadResult, error) {
	discovered, err := l.discoverer.Discover(ctx)
	if err != nil {
		return nil, err
	}
	for _, derr := range discovered.Errors {
		l.log.WithError(&derr).Warn("discovery error")
	}

	ordered, err := SortByDependencies(discovered.Plugins)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{Discovery: discovered.Errors}
	for _, meta := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := l.Load(ctx, meta); err != nil {
			l.log.WithField("plugin", meta.Name).WithError(err).Warn("plugin not loaded")
			result.Skipped = append(result.Skipped, Outcome{Plugin: meta, Err: err})
			continue
		}
		result.Loaded = append(result.Loaded, meta)
	}

	if l.container != nil {
		if err := l.container.StartSingletons(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Load validates and activates one plugin. Loading an already-loaded plugin
// is a no-op. Validation failure returns the validator's typed error without
// touching the registry; capability registration problems are logged per
// capability and never fail the load.
func (l *Loader) Load(ctx context.Context, meta Metadata) error {
	l.mu.Lock()
	if _, ok := l.loaded[meta.Name]; ok {
		l.mu.Unlock()
		return nil
	}
	snapshot := make(map[string]Metadata, len(l.loaded))
	for k, v := range l.loaded {
		snapshot[k] = v
	}
	l.mu.Unlock()

	for _, v := range l.validators {
		if err := v.Validate(meta, snapshot); err != nil {
			return err
		}
	}

	module, err := l.importModule(ctx, meta)
	if err != nil {
		return err
	}

	capabilities := meta.Capabilities
	if len(capabilities) == 0 && module != nil {
		capabilities = module.Capabilities
	}
	registered := l.registerCapabilities(meta.Name, capabilities)

	l.mu.Lock()
	l.loaded[meta.Name] = meta
	if len(registered) > 0 {
		l.bindings[meta.Name] = registered
	}
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"plugin":  meta.Name,
		"version": meta.Version,
		"module":  meta.Module,
	}).Info("plugin loaded")
	return nil
}

// importModule resolves the plugin's module, falling back to a re-discovery
// rooted at the plugin's source when the first import misses. The source's
// parent is on the search path only for the duration of the fallback.
func (l *Loader) importModule(ctx context.Context, meta Metadata) (*Module, error) {
	if l.registry == nil || meta.Module == "" {
		return nil, nil
	}
	module, err := l.registry.Import(meta.Module)
	if err == nil {
		return module, nil
	}
	if meta.Source == "" || meta.Source == VersionUnknown {
		return nil, err
	}

	parent := filepath.Dir(meta.Source)
	l.registry.InsertPath(parent)
	defer l.registry.RemovePath(parent)

	rediscovery := NewFilesystemDiscoverer([]string{meta.Source}, l.registry, l.log)
	if found, ferr := rediscovery.Find(ctx, meta.Name); ferr == nil {
		if module, merr := l.registry.Import(found.Module); merr == nil {
			return module, nil
		}
	}
	if module, merr := l.registry.Import(filepath.Base(meta.Source)); merr == nil {
		return module, nil
	}
	if module, merr := l.registry.Import(normalizeSegment(filepath.Base(meta.Source))); merr == nil {
		return module, nil
	}
	return nil, err
}

// registerCapabilities binds each declared capability with the host
// container, deriving a missing implementation name by convention. Returns
// the capabilities actually registered.
func (l *Loader) registerCapabilities(plugin string, capabilities []CapabilityBinding) []string {
	if l.container == nil || len(capabilities) == 0 {
		return nil
	}

	var registered []string
	for _, binding := range capabilities {
		impl := binding.Implementation
		if impl == "" {
			impl = strings.TrimPrefix(binding.Capability, abstractMarker)
		}
		lifetime, err := host.ParseLifetime(binding.Lifetime)
		if err != nil {
			l.log.WithFields(logrus.Fields{
				"plugin":     plugin,
				"capability": binding.Capability,
			}).WithError(err).Warn("capability not registered")
			continue
		}
		if err := l.container.Register(binding.Capability, impl, lifetime); err != nil {
			l.log.WithFields(logrus.Fields{
				"plugin":     plugin,
				"capability": binding.Capability,
			}).WithError(err).Warn("capability not registered")
			continue
		}
		registered = append(registered, binding.Capability)
	}
	return registered
}

// Unload removes a plugin from the registry, releases its host capabilities,
// and evicts its module so the next load re-imports fresh code. Unloading a
// plugin that is not loaded is a no-op returning false.
func (l *Loader) Unload(name string) bool {
	l.mu.Lock()
	meta, ok := l.loaded[name]
	if !ok {
		l.mu.Unlock()
		return false
	}
	delete(l.loaded, name)
	released := l.bindings[name]
	delete(l.bindings, name)
	l.mu.Unlock()

	if l.container != nil {
		for _, capability := range released {
			l.container.Release(capability)
		}
	}
	if l.registry != nil {
		l.registry.Evict(meta.Module)
	}
	l.log.WithField("plugin", name).Info("plugin unloaded")
	return true
}

// DiscoverAll runs a full discovery pass without loading anything.
func (l *Loader) DiscoverAll(ctx context.Context) (*DiscoveryResult, error) {
	return l.discoverer.Discover(ctx)
}

// DiscoverPlugin resolves a flexible identifier (name, module, or source
// path) to a discovered plugin.
func (l *Loader) DiscoverPlugin(ctx context.Context, identifier string) (*Metadata, error) {
	return l.discoverer.Find(ctx, identifier)
}

// IsLoaded reports whether a plugin is in the load registry.
func (l *Loader) IsLoaded(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.loaded[name]
	return ok
}

// Loaded returns a snapshot of the load registry.
func (l *Loader) Loaded() map[string]Metadata {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Metadata, len(l.loaded))
	for k, v := range l.loaded {
		out[k] = v.Clone()
	}
	return out
}
