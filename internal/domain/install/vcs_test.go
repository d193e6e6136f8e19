package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitClonerDefaults(t *testing.T) {
	t.Parallel()

	g := NewGitCloner()
	assert.Equal(t, 1, g.MaxCloneDepth)
	assert.Equal(t, 60, g.Timeout)
	assert.Equal(t, "git", g.GitPath)
}

func TestGitClonerMissingBinary(t *testing.T) {
	t.Parallel()

	g := NewGitCloner()
	g.GitPath = filepath.Join(t.TempDir(), "no-git")

	err := g.Clone(context.Background(), "https://example.com/repo.git", "", t.TempDir())
	require.Error(t, err)
	assert.True(t, IsGitNotFound(err))
}

func TestGitClonerFailureLeavesNoPartialClone(t *testing.T) {
	t.Parallel()

	if _, err := os.Stat("/usr/bin/git"); err != nil {
		t.Skip("git not available")
	}

	g := NewGitCloner()
	g.Timeout = 10
	target := filepath.Join(t.TempDir(), "clone")

	// file:// path that does not exist fails fast without the network.
	err := g.Clone(context.Background(), "file:///nonexistent/repo.git", "", target)
	require.Error(t, err)

	var cloneErr *GitCloneError
	require.ErrorAs(t, err, &cloneErr)
	assert.NoDirExists(t, target)
}

func TestOriginURL(t *testing.T) {
	t.Parallel()

	t.Run("reads origin from git config", func(t *testing.T) {
		t.Parallel()

		checkout := t.TempDir()
		gitDir := filepath.Join(checkout, ".git")
		require.NoError(t, os.MkdirAll(gitDir, 0o755))

		config := `[core]
	repositoryformatversion = 0
[remote "origin"]
	url = https://example.com/org/plugin.git
	fetch = +refs/heads/*:refs/remotes/origin/*
`
		require.NoError(t, os.WriteFile(filepath.Join(gitDir, "config"), []byte(config), 0o644))

		url, err := OriginURL(checkout)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/org/plugin.git", url)
	})

	t.Run("not a checkout", func(t *testing.T) {
		t.Parallel()

		_, err := OriginURL(t.TempDir())
		require.Error(t, err)
	})

	t.Run("no origin remote", func(t *testing.T) {
		t.Parallel()

		checkout := t.TempDir()
		gitDir := filepath.Join(checkout, ".git")
		require.NoError(t, os.MkdirAll(gitDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(gitDir, "config"), []byte("[core]\n"), 0o644))

		_, err := OriginURL(checkout)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no origin remote")
	})
}
