package install

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/modkit-io/modkit/internal/domain/plugin"
)

// IndexClient drives the package index executable. Every operation is a
// subprocess invocation; JSON listing output is decoded into distributions.
type IndexClient struct {
	// Binary is the index executable (defaults to "mpm").
	Binary string
	// Timeout bounds each invocation in seconds.
	Timeout int
}

// NewIndexClient creates a client for the given index executable.
func NewIndexClient(binary string) *IndexClient {
	if binary == "" {
		binary = "mpm"
	}
	return &IndexClient{Binary: binary, Timeout: 300}
}

// listedDistribution is the index executable's JSON listing schema.
type listedDistribution struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Location    string   `json:"location"`
	TopLevel    []string `json:"top_level"`
	EntryPoints []struct {
		Name   string `json:"name"`
		Module string `json:"module"`
	} `json:"entry_points"`
	Receipt string `json:"receipt"`
}

// OutdatedPackage is one row of the index's outdated listing.
type OutdatedPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Latest  string `json:"latest"`
}

// Install installs a package by name.
func (c *IndexClient) Install(ctx context.Context, name string) error {
	_, err := c.run(ctx, "install", name)
	return err
}

// Upgrade upgrades a package, optionally bounded by a version constraint
// appended to the requirement (e.g., "demo>=1.2,<2.0").
func (c *IndexClient) Upgrade(ctx context.Context, name, constraint string) error {
	requirement := name
	if constraint != "" {
		requirement += constraint
	}
	_, err := c.run(ctx, "install", "--upgrade", requirement)
	return err
}

// Uninstall removes a package by name.
func (c *IndexClient) Uninstall(ctx context.Context, name string) error {
	_, err := c.run(ctx, "uninstall", "--yes", name)
	return err
}

// Version returns the installed version of a package, or an empty string
// when the package is not installed.
func (c *IndexClient) Version(ctx context.Context, name string) (string, error) {
	dists, err := c.Installed(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range dists {
		if strings.EqualFold(d.Name, name) {
			return d.Version, nil
		}
	}
	return "", nil
}

// Installed lists every installed distribution.
func (c *IndexClient) Installed(ctx context.Context) ([]plugin.Distribution, error) {
	out, err := c.run(ctx, "list", "--format", "json")
	if err != nil {
		return nil, err
	}

	var listed []listedDistribution
	if err := json.Unmarshal(out, &listed); err != nil {
		return nil, fmt.Errorf("parsing index listing: %w", err)
	}

	dists := make([]plugin.Distribution, 0, len(listed))
	for _, l := range listed {
		dist := plugin.Distribution{
			Name:     l.Name,
			Version:  l.Version,
			Location: l.Location,
			TopLevel: l.TopLevel,
			Receipt:  l.Receipt,
		}
		for _, ep := range l.EntryPoints {
			dist.EntryPoints = append(dist.EntryPoints, plugin.EntryPoint{
				Name:   ep.Name,
				Module: ep.Module,
			})
		}
		dists = append(dists, dist)
	}
	return dists, nil
}

// Outdated lists installed packages with a newer version available.
func (c *IndexClient) Outdated(ctx context.Context) ([]OutdatedPackage, error) {
	out, err := c.run(ctx, "list", "--outdated", "--format", "json")
	if err != nil {
		return nil, err
	}

	var outdated []OutdatedPackage
	if err := json.Unmarshal(out, &outdated); err != nil {
		return nil, fmt.Errorf("parsing outdated listing: %w", err)
	}
	return outdated, nil
}

// run invokes the index executable, returning stdout. A non-zero exit is
// surfaced as an IndexCommandError carrying the captured error stream.
func (c *IndexClient) run(ctx context.Context, args ...string) ([]byte, error) {
	timeout := time.Duration(c.Timeout) * time.Second
	if timeout == 0 {
		timeout = 300 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary(), args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &IndexCommandError{
			Command: c.binary() + " " + strings.Join(args, " "),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.Bytes(), nil
}

func (c *IndexClient) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return "mpm"
}

// IndexClient backs the distribution-based discoverers.
var _ plugin.DistributionLister = (*IndexClient)(nil)
