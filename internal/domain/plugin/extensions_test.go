package plugin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modkit-io/modkit/internal/domain/version"
)

func TestChecksumExtension(t *testing.T) {
	t.Parallel()

	t.Run("backfills digest from source tree", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.mod"), []byte("content"), 0o644))

		got := NewChecksumExtension(nil).Apply(Metadata{Name: "demo", Source: dir})
		assert.True(t, strings.HasPrefix(got.Checksum, ChecksumPrefix))
	})

	t.Run("existing digest untouched", func(t *testing.T) {
		t.Parallel()

		got := NewChecksumExtension(nil).Apply(Metadata{Name: "demo", Source: t.TempDir(), Checksum: "sha256:keep"})
		assert.Equal(t, "sha256:keep", got.Checksum)
	})

	t.Run("missing source leaves record unchanged", func(t *testing.T) {
		t.Parallel()

		got := NewChecksumExtension(nil).Apply(Metadata{Name: "demo", Source: filepath.Join(t.TempDir(), "gone")})
		assert.Empty(t, got.Checksum)
	})
}

func TestPinExtension(t *testing.T) {
	t.Parallel()

	t.Run("manual override wins", func(t *testing.T) {
		t.Parallel()

		ext := NewPinExtension(map[string]string{"demo": ">=1.0.0,<2.0.0"})
		got := ext.Apply(Metadata{Name: "demo", Version: "1.2.3"})
		assert.Equal(t, ">=1.0.0,<2.0.0", got.Pin)
	})

	t.Run("defaults to exact pin", func(t *testing.T) {
		t.Parallel()

		got := NewPinExtension(nil).Apply(Metadata{Name: "demo", Version: "1.2.3"})
		assert.Equal(t, version.Exact("1.2.3"), got.Pin)
	})

	t.Run("unknown version is not pinned", func(t *testing.T) {
		t.Parallel()

		got := NewPinExtension(nil).Apply(Metadata{Name: "demo", Version: VersionUnknown})
		assert.Empty(t, got.Pin)
	})
}

func TestValidationExtension(t *testing.T) {
	t.Parallel()

	t.Run("fills missing fields", func(t *testing.T) {
		t.Parallel()

		got := NewValidationExtension(nil).Apply(Metadata{})
		assert.Equal(t, "unnamed-plugin", got.Name)
		assert.Equal(t, VersionUnknown, got.Version)
		assert.Equal(t, VersionUnknown, got.Source)
		assert.NotNil(t, got.Requires)
	})

	t.Run("complete record unchanged", func(t *testing.T) {
		t.Parallel()

		in := Metadata{Name: "demo", Version: "1.0.0", Source: "/p", Requires: []string{"core"}}
		assert.Equal(t, in, NewValidationExtension(nil).Apply(in))
	})
}

func TestDefaultExtensionsOrder(t *testing.T) {
	t.Parallel()

	// Pipeline order matters: the record is hashed and pinned before the
	// validation fallbacks rewrite missing fields.
	exts := DefaultExtensions(nil, nil)
	require.Len(t, exts, 3)
	assert.IsType(t, &ChecksumExtension{}, exts[0])
	assert.IsType(t, &PinExtension{}, exts[1])
	assert.IsType(t, &ValidationExtension{}, exts[2])

	got := applyExtensions(Metadata{}, exts)
	assert.Equal(t, "unnamed-plugin", got.Name)
	assert.Empty(t, got.Pin)
}
