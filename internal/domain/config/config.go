// Package config loads the modkit workspace configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the workspace configuration file looked up when no
// explicit path is given.
const DefaultFileName = "modkit.yaml"

// Config holds everything the plugin pipeline needs to run against one
// workspace. All paths are relative to the working directory unless absolute.
type Config struct {
	// PluginDir is where installed plugins are placed and discovered.
	PluginDir string `yaml:"pluginDir"`
	// Lockfile is the approved-plugin state document.
	Lockfile string `yaml:"lockfile"`
	// SearchPaths are additional discovery roots beyond PluginDir.
	SearchPaths []string `yaml:"searchPaths,omitempty"`
	// IndexBinary is the package index executable used for index installs.
	IndexBinary string `yaml:"indexBinary"`
	// Pins are manual version-pin overrides keyed by plugin name.
	Pins map[string]string `yaml:"pins,omitempty"`
	// MergeStrategy picks how duplicate discoveries collapse
	// (latest, first, filesystem).
	MergeStrategy string `yaml:"mergeStrategy,omitempty"`
	// DefaultBranch is the branch cloned for VCS installs.
	DefaultBranch string `yaml:"defaultBranch"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		PluginDir:     ".plugins",
		Lockfile:      "plugins.lock",
		IndexBinary:   "mpm",
		DefaultBranch: "main",
	}
}

// Load reads configuration from path. An empty path falls back to the
// default filename in the working directory; a missing default file yields
// Default() rather than an error, while an explicitly named missing file is
// reported.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Roots returns every discovery root, plugin directory first.
func (c *Config) Roots() []string {
	roots := make([]string, 0, len(c.SearchPaths)+1)
	roots = append(roots, c.PluginDir)
	for _, p := range c.SearchPaths {
		if p != c.PluginDir {
			roots = append(roots, p)
		}
	}
	return roots
}

// LockfilePath resolves the lockfile location to an absolute path.
func (c *Config) LockfilePath() string {
	if abs, err := filepath.Abs(c.Lockfile); err == nil {
		return abs
	}
	return c.Lockfile
}
