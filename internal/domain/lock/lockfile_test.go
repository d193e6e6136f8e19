package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLockfile(t *testing.T) *Lockfile {
	t.Helper()
	return New(filepath.Join(t.TempDir(), DefaultName))
}

func TestLockfileRoundTrip(t *testing.T) {
	t.Parallel()

	l := newTestLockfile(t)
	entry := Entry{
		Version:  "1.2.3",
		Source:   "/plugins/demo_plugin",
		Pin:      "==1.2.3",
		Checksum: "sha256:abc",
	}
	require.NoError(t, l.Add("demo", entry, false))

	got, ok := l.Get("demo")
	require.True(t, ok)
	assert.Equal(t, entry, got)

	metas := l.Locked()
	require.Len(t, metas, 1)
	assert.Equal(t, "demo", metas[0].Name)
	assert.Equal(t, "1.2.3", metas[0].Version)
	assert.Equal(t, "/plugins/demo_plugin", metas[0].Source)
	assert.Equal(t, "==1.2.3", metas[0].Pin)
	assert.Equal(t, "sha256:abc", metas[0].Checksum)
}

func TestLockfileMissingFile(t *testing.T) {
	t.Parallel()

	l := newTestLockfile(t)
	assert.Empty(t, l.Entries())
	assert.Empty(t, l.Locked())

	_, ok := l.Get("demo")
	assert.False(t, ok)
}

func TestLockfileCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l := New(path)
	assert.Empty(t, l.Entries())

	// A corrupt file is recoverable: the next write replaces it wholesale.
	require.NoError(t, l.Add("demo", Entry{Version: "1.0.0"}, false))
	got, ok := l.Get("demo")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", got.Version)
}

func TestLockfileAdd(t *testing.T) {
	t.Parallel()

	t.Run("downgrade rejected without force", func(t *testing.T) {
		t.Parallel()

		l := newTestLockfile(t)
		require.NoError(t, l.Add("demo", Entry{Version: "2.0.0"}, false))

		err := l.Add("demo", Entry{Version: "1.0.0"}, false)
		require.Error(t, err)
		assert.True(t, IsDowngrade(err))

		// Rejected before any write: the lockfile is untouched.
		got, _ := l.Get("demo")
		assert.Equal(t, "2.0.0", got.Version)
	})

	t.Run("downgrade allowed with force", func(t *testing.T) {
		t.Parallel()

		l := newTestLockfile(t)
		require.NoError(t, l.Add("demo", Entry{Version: "2.0.0"}, false))
		require.NoError(t, l.Add("demo", Entry{Version: "1.0.0"}, true))

		got, _ := l.Get("demo")
		assert.Equal(t, "1.0.0", got.Version)
	})

	t.Run("pin violation rejected without force", func(t *testing.T) {
		t.Parallel()

		l := newTestLockfile(t)
		require.NoError(t, l.Add("demo", Entry{Version: "1.0.0", Pin: "==1.0.0"}, false))

		err := l.Add("demo", Entry{Version: "1.1.0"}, false)
		require.Error(t, err)
		assert.True(t, IsPinViolation(err))
	})

	t.Run("pin inherited when update carries none", func(t *testing.T) {
		t.Parallel()

		l := newTestLockfile(t)
		require.NoError(t, l.Add("demo", Entry{Version: "1.0.0", Pin: ">=1.0.0"}, false))
		require.NoError(t, l.Add("demo", Entry{Version: "1.1.0"}, false))

		got, _ := l.Get("demo")
		assert.Equal(t, ">=1.0.0", got.Pin)
		assert.Equal(t, "1.1.0", got.Version)
	})

	t.Run("unknown versions never count as downgrade", func(t *testing.T) {
		t.Parallel()

		l := newTestLockfile(t)
		require.NoError(t, l.Add("demo", Entry{Version: "unknown"}, false))
		require.NoError(t, l.Add("demo", Entry{Version: "0.0.1"}, false))
	})

	t.Run("empty name rejected", func(t *testing.T) {
		t.Parallel()

		l := newTestLockfile(t)
		require.Error(t, l.Add("", Entry{Version: "1.0.0"}, false))
	})

	t.Run("creates parent directory", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "dir", DefaultName)
		require.NoError(t, New(path).Add("demo", Entry{Version: "1.0.0"}, false))
		assert.FileExists(t, path)
	})
}

func TestLockfileDelete(t *testing.T) {
	t.Parallel()

	l := newTestLockfile(t)
	require.NoError(t, l.Add("demo", Entry{Version: "1.0.0"}, false))

	existed, err := l.Delete("demo")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = l.Delete("demo")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestLockfileChecksum(t *testing.T) {
	t.Parallel()

	l := newTestLockfile(t)
	require.NoError(t, l.Add("demo", Entry{Version: "1.0.0", Checksum: "sha256:abc"}, false))

	sum, ok := l.Checksum("demo")
	require.True(t, ok)
	assert.Equal(t, "sha256:abc", sum)

	_, ok = l.Checksum("ghost")
	assert.False(t, ok)
}
