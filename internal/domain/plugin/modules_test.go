package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModule(t *testing.T, base, rel string, descriptor string) string {
	t.Helper()

	dir := filepath.Join(base, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if descriptor != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, DescriptorName), []byte(descriptor), 0o644))
	}
	return dir
}

func TestModuleRegistryPaths(t *testing.T) {
	t.Parallel()

	r := NewModuleRegistry(nil)
	r.InsertPath("/a")
	r.InsertPath("/b")
	assert.Equal(t, []string{"/b", "/a"}, r.Paths())

	// Re-inserting moves to the front instead of duplicating.
	r.InsertPath("/a")
	assert.Equal(t, []string{"/a", "/b"}, r.Paths())

	r.RemovePath("/b")
	assert.Equal(t, []string{"/a"}, r.Paths())
}

func TestModuleRegistryImport(t *testing.T) {
	t.Parallel()

	t.Run("materializes module with capabilities", func(t *testing.T) {
		t.Parallel()

		base := t.TempDir()
		dir := writeModule(t, base, "demo", `{"name":"demo","capabilities":[{"capability":"IRenderer"}]}`)

		r := NewModuleRegistry(nil)
		r.InsertPath(base)

		mod, err := r.Import("demo")
		require.NoError(t, err)
		assert.Equal(t, "demo", mod.ID)
		assert.Equal(t, dir, mod.Path)
		require.Len(t, mod.Capabilities, 1)
		assert.Equal(t, "IRenderer", mod.Capabilities[0].Capability)
		assert.True(t, r.Imported("demo"))
	})

	t.Run("namespaced identifier resolves nested directory", func(t *testing.T) {
		t.Parallel()

		base := t.TempDir()
		writeModule(t, base, "modkit/reports", `{"name":"modkit-reports"}`)

		r := NewModuleRegistry(nil)
		r.InsertPath(base)

		mod, err := r.Import("modkit/reports")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "modkit", "reports"), mod.Path)
	})

	t.Run("earlier path wins", func(t *testing.T) {
		t.Parallel()

		older := t.TempDir()
		newer := t.TempDir()
		writeModule(t, older, "demo", `{"name":"demo"}`)
		winner := writeModule(t, newer, "demo", `{"name":"demo"}`)

		r := NewModuleRegistry(nil)
		r.InsertPath(older)
		r.InsertPath(newer)

		mod, err := r.Import("demo")
		require.NoError(t, err)
		assert.Equal(t, winner, mod.Path)
	})

	t.Run("module without descriptor still imports", func(t *testing.T) {
		t.Parallel()

		base := t.TempDir()
		writeModule(t, base, "bare", "")

		r := NewModuleRegistry(nil)
		r.InsertPath(base)

		mod, err := r.Import("bare")
		require.NoError(t, err)
		assert.Empty(t, mod.Capabilities)
	})

	t.Run("unresolvable module", func(t *testing.T) {
		t.Parallel()

		r := NewModuleRegistry(nil)
		r.InsertPath(t.TempDir())

		_, err := r.Import("ghost")
		require.Error(t, err)
		assert.True(t, IsModuleNotFound(err))
	})
}

func TestModuleRegistryEvict(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeModule(t, base, "demo", `{"name":"demo"}`)

	r := NewModuleRegistry(nil)
	r.InsertPath(base)

	_, err := r.Import("demo")
	require.NoError(t, err)

	assert.True(t, r.Evict("demo"))
	assert.False(t, r.Imported("demo"))
	assert.False(t, r.Evict("demo"))

	// A fresh import after eviction re-reads the directory.
	_, err = r.Import("demo")
	require.NoError(t, err)
}
