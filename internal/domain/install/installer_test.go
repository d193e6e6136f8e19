package install

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modkit-io/modkit/internal/domain/host"
	"github.com/modkit-io/modkit/internal/domain/lock"
	"github.com/modkit-io/modkit/internal/domain/plugin"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		want   sourceKind
	}{
		{name: "git url", source: "https://example.com/org/plugin.git", want: sourceVCS},
		{name: "plain url", source: "https://example.com/demo-1.0.0.zip", want: sourceRemote},
		{name: "http url", source: "http://example.com/demo.zip", want: sourceRemote},
		{name: "local archive", source: "./downloads/demo-1.0.0.zip", want: sourceArchive},
		{name: "package name", source: "modkit-reports", want: sourceIndex},
		{name: "constrained requirement", source: "modkit-reports>=1.2", want: sourceIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, classify(tt.source))
		})
	}
}

type installHarness struct {
	installer *Installer
	locks     *lock.Lockfile
	loader    *plugin.Loader
	pluginDir string
}

func newInstallHarness(t *testing.T) *installHarness {
	t.Helper()

	pluginDir := filepath.Join(t.TempDir(), "plugins")
	locks := lock.New(filepath.Join(t.TempDir(), lock.DefaultName))
	registry := plugin.NewModuleRegistry(nil)
	discoverer := plugin.NewFilesystemDiscoverer([]string{pluginDir}, registry, nil)
	loader := plugin.NewLoader(discoverer, nil, registry, host.NewMemoryContainer(), nil)
	installer := NewInstaller(pluginDir, locks, loader, registry, NewIndexClient("mpm"), nil)

	return &installHarness{
		installer: installer,
		locks:     locks,
		loader:    loader,
		pluginDir: pluginDir,
	}
}

func TestInstallArchive(t *testing.T) {
	t.Parallel()

	t.Run("archive install locks and loads", func(t *testing.T) {
		t.Parallel()

		h := newInstallHarness(t)
		archive := writeArchive(t, "demo-1.0.0.zip", map[string]string{
			"demo_plugin/plugin.json": `{"name":"demo","version":"1.0.0"}`,
			"demo_plugin/lib.txt":     "code",
		})

		meta, err := h.installer.Install(context.Background(), archive, "")
		require.NoError(t, err)
		assert.Equal(t, "demo", meta.Name)
		assert.Equal(t, "1.0.0", meta.Version)

		entry, ok := h.locks.Get("demo")
		require.True(t, ok)
		assert.Equal(t, "1.0.0", entry.Version)
		assert.True(t, strings.HasSuffix(entry.Source, "demo_plugin"))
		assert.True(t, strings.HasPrefix(entry.Checksum, plugin.ChecksumPrefix))
		assert.Equal(t, "==1.0.0", entry.Pin)

		assert.True(t, h.loader.IsLoaded("demo"))
	})

	t.Run("downgrade rejected leaves lockfile untouched", func(t *testing.T) {
		t.Parallel()

		h := newInstallHarness(t)
		require.NoError(t, h.locks.Add("demo", lock.Entry{Version: "2.0.0"}, false))

		archive := writeArchive(t, "demo-1.0.0.zip", map[string]string{
			"demo_plugin/plugin.json": `{"name":"demo","version":"1.0.0"}`,
		})

		_, err := h.installer.Install(context.Background(), archive, "")
		require.Error(t, err)
		assert.True(t, lock.IsDowngrade(err))

		entry, _ := h.locks.Get("demo")
		assert.Equal(t, "2.0.0", entry.Version)
		assert.False(t, h.loader.IsLoaded("demo"))
	})

	t.Run("force overrides the downgrade check", func(t *testing.T) {
		t.Parallel()

		h := newInstallHarness(t)
		require.NoError(t, h.locks.Add("demo", lock.Entry{Version: "2.0.0"}, false))
		h.installer.Force = true

		archive := writeArchive(t, "demo-1.0.0.zip", map[string]string{
			"demo_plugin/plugin.json": `{"name":"demo","version":"1.0.0"}`,
		})

		meta, err := h.installer.Install(context.Background(), archive, "")
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", meta.Version)

		entry, _ := h.locks.Get("demo")
		assert.Equal(t, "1.0.0", entry.Version)
	})

	t.Run("archive without descriptor leaves no side effects", func(t *testing.T) {
		t.Parallel()

		h := newInstallHarness(t)
		archive := writeArchive(t, "empty.zip", map[string]string{
			"empty_plugin/readme.txt": "nothing here",
		})

		_, err := h.installer.Install(context.Background(), archive, "")
		require.Error(t, err)
		assert.True(t, IsNotInstalled(err))
		assert.Empty(t, h.locks.Entries())
	})

	t.Run("bad archive shape surfaces", func(t *testing.T) {
		t.Parallel()

		h := newInstallHarness(t)
		archive := writeArchive(t, "multi.zip", map[string]string{
			"one/plugin.json": `{}`,
			"two/plugin.json": `{}`,
		})

		_, err := h.installer.Install(context.Background(), archive, "")
		require.Error(t, err)
		assert.True(t, IsArchiveShape(err))
		assert.Empty(t, h.locks.Entries())
	})
}

func TestUninstall(t *testing.T) {
	t.Parallel()

	t.Run("removes lock entry, registry entry, and source", func(t *testing.T) {
		t.Parallel()

		h := newInstallHarness(t)
		archive := writeArchive(t, "demo-1.0.0.zip", map[string]string{
			"demo_plugin/plugin.json": `{"name":"demo","version":"1.0.0"}`,
		})
		_, err := h.installer.Install(context.Background(), archive, "")
		require.NoError(t, err)

		require.NoError(t, h.installer.Uninstall(context.Background(), "demo"))

		_, ok := h.locks.Get("demo")
		assert.False(t, ok)
		assert.False(t, h.loader.IsLoaded("demo"))
		assert.NoDirExists(t, filepath.Join(h.pluginDir, "demo_plugin"))
	})

	t.Run("unknown plugin fails", func(t *testing.T) {
		t.Parallel()

		h := newInstallHarness(t)
		err := h.installer.Uninstall(context.Background(), "ghost")
		require.Error(t, err)
		assert.True(t, plugin.IsPluginNotFound(err))
	})
}
