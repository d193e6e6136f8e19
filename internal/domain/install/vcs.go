package install

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// GitCloner acquires plugins from git repositories.
type GitCloner struct {
	// MaxCloneDepth sets shallow clone depth (1 = shallow, 0 = full).
	MaxCloneDepth int
	// Timeout bounds each git invocation in seconds.
	Timeout int
	// GitPath is the git binary (defaults to "git").
	GitPath string
}

// NewGitCloner creates a cloner with shallow-clone defaults.
func NewGitCloner() *GitCloner {
	return &GitCloner{
		MaxCloneDepth: 1,
		Timeout:       60,
		GitPath:       "git",
	}
}

// Clone clones a single branch of repoURL into targetPath, replacing any
// existing folder there. A failed clone leaves no partial checkout behind.
func (g *GitCloner) Clone(ctx context.Context, repoURL, branch, targetPath string) error {
	if err := g.checkGitAvailable(ctx); err != nil {
		return err
	}

	if err := os.RemoveAll(targetPath); err != nil {
		return fmt.Errorf("removing existing folder %s: %w", targetPath, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout())
	defer cancel()

	args := []string{"clone", "--single-branch"}
	if g.MaxCloneDepth > 0 {
		args = append(args, "--depth", fmt.Sprintf("%d", g.MaxCloneDepth))
	}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, repoURL, targetPath)

	cmd := exec.CommandContext(ctx, g.gitPath(), args...)
	cmd.Env = g.safeEnv()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(targetPath)

		if ctx.Err() == context.DeadlineExceeded {
			return &GitCloneError{URL: repoURL, Reason: "clone timed out"}
		}
		return &GitCloneError{URL: repoURL, Reason: strings.TrimSpace(stderr.String())}
	}
	return nil
}

// OriginURL reads the origin remote URL from a checkout's git configuration.
func OriginURL(checkoutPath string) (string, error) {
	cfgPath := filepath.Join(checkoutPath, ".git", "config")
	cfg, err := ini.Load(cfgPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", cfgPath, err)
	}
	section, err := cfg.GetSection(`remote "origin"`)
	if err != nil {
		return "", fmt.Errorf("no origin remote in %s", cfgPath)
	}
	url := section.Key("url").String()
	if url == "" {
		return "", fmt.Errorf("origin remote in %s has no url", cfgPath)
	}
	return url, nil
}

// checkGitAvailable verifies git is installed and accessible.
func (g *GitCloner) checkGitAvailable(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, g.gitPath(), "--version")
	if err := cmd.Run(); err != nil {
		return &GitNotFoundError{}
	}
	return nil
}

func (g *GitCloner) gitPath() string {
	if g.GitPath != "" {
		return g.GitPath
	}
	return "git"
}

func (g *GitCloner) timeout() time.Duration {
	if g.Timeout > 0 {
		return time.Duration(g.Timeout) * time.Second
	}
	return 60 * time.Second
}

// safeEnv returns a minimal environment so git never prompts for input.
func (g *GitCloner) safeEnv() []string {
	env := []string{
		"GIT_TERMINAL_PROMPT=0",
		"GIT_ASKPASS=",
		"LC_ALL=C",
	}
	for _, key := range []string{"HOME", "PATH", "USER", "LANG", "SSH_AUTH_SOCK"} {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
		}
	}
	return env
}
