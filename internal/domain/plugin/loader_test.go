package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modkit-io/modkit/internal/domain/host"
)

func newTestLoader(t *testing.T, discovered []Metadata, validators ...Validator) (*Loader, *host.MemoryContainer, *ModuleRegistry) {
	t.Helper()

	root := t.TempDir()
	for i := range discovered {
		if discovered[i].Source == "" {
			dir := writeModule(t, root, discovered[i].Label(), `{"name":"`+discovered[i].Name+`"}`)
			discovered[i].Source = dir
			discovered[i].Module = discovered[i].Label()
		}
	}

	registry := NewModuleRegistry(nil)
	registry.InsertPath(root)
	container := host.NewMemoryContainer()
	discoverer := &stubDiscoverer{result: &DiscoveryResult{Plugins: discovered}}
	return NewLoader(discoverer, validators, registry, container, nil), container, registry
}

func TestLoaderLoadAll(t *testing.T) {
	t.Parallel()

	t.Run("loads dependencies before dependents", func(t *testing.T) {
		t.Parallel()

		l, container, _ := newTestLoader(t, []Metadata{
			{Name: "app", Version: "1.0.0", Requires: []string{"core"}},
			{Name: "core", Version: "1.0.0"},
		}, DependencyValidator{})

		result, err := l.LoadAll(context.Background())
		require.NoError(t, err)
		require.Len(t, result.Loaded, 2)
		assert.Equal(t, "core", result.Loaded[0].Name)
		assert.Equal(t, "app", result.Loaded[1].Name)
		assert.True(t, container.Started())
	})

	t.Run("validation failure skips one plugin only", func(t *testing.T) {
		t.Parallel()

		l, _, _ := newTestLoader(t, []Metadata{
			{Name: "orphan", Version: "1.0.0", Requires: []string{"missing"}},
			{Name: "fine", Version: "1.0.0"},
		}, DependencyValidator{})

		result, err := l.LoadAll(context.Background())
		require.NoError(t, err)
		require.Len(t, result.Loaded, 1)
		assert.Equal(t, "fine", result.Loaded[0].Name)
		require.Len(t, result.Skipped, 1)
		assert.Equal(t, "orphan", result.Skipped[0].Plugin.Name)
		assert.True(t, IsDependencyError(result.Skipped[0].Err))
	})

	t.Run("skipped dependency cascades to dependents", func(t *testing.T) {
		t.Parallel()

		l, _, _ := newTestLoader(t, []Metadata{
			{Name: "base", Version: "1.0.0", Requires: []string{"missing"}},
			{Name: "child", Version: "1.0.0", Requires: []string{"base"}},
		}, DependencyValidator{})

		result, err := l.LoadAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, result.Loaded)
		assert.Len(t, result.Skipped, 2)
	})

	t.Run("circular dependency aborts the batch", func(t *testing.T) {
		t.Parallel()

		l, container, _ := newTestLoader(t, []Metadata{
			{Name: "a", Version: "1.0.0", Requires: []string{"b"}},
			{Name: "b", Version: "1.0.0", Requires: []string{"a"}},
		})

		_, err := l.LoadAll(context.Background())
		require.Error(t, err)
		assert.True(t, IsCircularDependency(err))
		assert.False(t, l.IsLoaded("a"))
		assert.False(t, container.Started())
	})
}

func TestLoaderLoad(t *testing.T) {
	t.Parallel()

	t.Run("registers declared capabilities", func(t *testing.T) {
		t.Parallel()

		l, container, _ := newTestLoader(t, nil)
		meta := Metadata{
			Name:    "demo",
			Version: "1.0.0",
			Capabilities: []CapabilityBinding{
				{Capability: "IRenderer"},
				{Capability: "IExporter", Implementation: "CSVExporter", Lifetime: "transient"},
			},
		}

		require.NoError(t, l.Load(context.Background(), meta))

		regs := container.Registrations()
		require.Len(t, regs, 2)
		assert.Equal(t, "CSVExporter", regs[0].Implementation)
		assert.Equal(t, host.LifetimeTransient, regs[0].Lifetime)
		// Implementation name derived by stripping the abstract marker.
		assert.Equal(t, "Renderer", regs[1].Implementation)
		assert.Equal(t, host.LifetimeSingleton, regs[1].Lifetime)
	})

	t.Run("duplicate capability logged not fatal", func(t *testing.T) {
		t.Parallel()

		l, container, _ := newTestLoader(t, nil)
		require.NoError(t, container.Register("IRenderer", "Other", host.LifetimeSingleton))

		meta := Metadata{
			Name:         "demo",
			Version:      "1.0.0",
			Capabilities: []CapabilityBinding{{Capability: "IRenderer"}},
		}
		require.NoError(t, l.Load(context.Background(), meta))
		assert.True(t, l.IsLoaded("demo"))
	})

	t.Run("already loaded is a no-op", func(t *testing.T) {
		t.Parallel()

		l, container, _ := newTestLoader(t, nil)
		meta := Metadata{
			Name:         "demo",
			Version:      "1.0.0",
			Capabilities: []CapabilityBinding{{Capability: "IRenderer"}},
		}
		require.NoError(t, l.Load(context.Background(), meta))
		require.NoError(t, l.Load(context.Background(), meta))
		assert.Len(t, container.Registrations(), 1)
	})

	t.Run("filesystem fallback when module unresolved", func(t *testing.T) {
		t.Parallel()

		elsewhere := t.TempDir()
		source := writeModule(t, elsewhere, "stray_plugin", `{"name":"stray","version":"1.0.0"}`)

		l, _, registry := newTestLoader(t, nil)
		meta := Metadata{Name: "stray", Version: "1.0.0", Module: "stray_plugin", Source: source}

		require.NoError(t, l.Load(context.Background(), meta))
		assert.True(t, l.IsLoaded("stray"))
		// The fallback path is removed again after the import.
		assert.NotContains(t, registry.Paths(), elsewhere)
	})

	t.Run("unresolvable module fails the load", func(t *testing.T) {
		t.Parallel()

		l, _, _ := newTestLoader(t, nil)
		meta := Metadata{Name: "ghost", Version: "1.0.0", Module: "ghost"}

		err := l.Load(context.Background(), meta)
		require.Error(t, err)
		assert.True(t, IsModuleNotFound(err))
		assert.False(t, l.IsLoaded("ghost"))
	})
}

func TestLoaderUnload(t *testing.T) {
	t.Parallel()

	l, container, registry := newTestLoader(t, []Metadata{
		{Name: "demo", Version: "1.0.0", Capabilities: []CapabilityBinding{{Capability: "IRenderer"}}},
	})

	result, err := l.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Loaded, 1)
	module := result.Loaded[0].Module
	require.True(t, registry.Imported(module))
	require.Len(t, container.Registrations(), 1)

	assert.True(t, l.Unload("demo"))
	assert.False(t, l.IsLoaded("demo"))
	assert.Empty(t, container.Registrations())
	assert.False(t, registry.Imported(module))

	// Second unload is a no-op.
	assert.False(t, l.Unload("demo"))
}

func TestLoaderDiscoverPlugin(t *testing.T) {
	t.Parallel()

	l, _, _ := newTestLoader(t, []Metadata{{Name: "demo", Version: "1.0.0"}})

	found, err := l.DiscoverPlugin(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", found.Name)

	_, err = l.DiscoverPlugin(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, IsPluginNotFound(err))
}
