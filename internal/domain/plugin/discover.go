package plugin

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Discoverer finds plugins from one kind of source. Discover collects every
// reachable plugin along with per-source errors; Find resolves a single
// identifier, which may match a name, a module identifier, or a source path.
type Discoverer interface {
	Discover(ctx context.Context) (*DiscoveryResult, error)
	Find(ctx context.Context, identifier string) (*Metadata, error)
}

// FilesystemDiscoverer scans root directories for descriptor files. Every
// installable folder it discovers is registered with the module registry so a
// later import of the resolved module identifier succeeds.
type FilesystemDiscoverer struct {
	roots    []string
	registry *ModuleRegistry
	log      logrus.FieldLogger
}

// NewFilesystemDiscoverer creates a discoverer over the given roots.
func NewFilesystemDiscoverer(roots []string, registry *ModuleRegistry, log logrus.FieldLogger) *FilesystemDiscoverer {
	return &FilesystemDiscoverer{
		roots:    roots,
		registry: registry,
		log:      fieldLogger(log),
	}
}

// Discover walks each root for descriptor files. Folders are de-duplicated by
// their top-level installable path: multiple descriptors under one folder
// collapse to the first one seen. A malformed descriptor is recorded as a
// per-source error and skipped, never aborting the scan.
func (d *FilesystemDiscoverer) Discover(ctx context.Context) (*DiscoveryResult, error) {
	result := &DiscoveryResult{}
	seen := make(map[string]bool)

	for _, root := range d.roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			result.Errors = append(result.Errors, DiscoveryError{Path: root, Err: err})
			continue
		}
		if _, err := os.Stat(absRoot); err != nil {
			// A configured-but-absent root is normal before first install.
			d.log.WithField("root", root).Debug("skipping missing plugin root")
			continue
		}

		walkErr := filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				result.Errors = append(result.Errors, DiscoveryError{Path: path, Err: err})
				return nil
			}
			if entry.IsDir() || entry.Name() != DescriptorName {
				return nil
			}

			installable, ok := installableFolder(absRoot, path)
			if !ok || seen[installable] {
				return nil
			}
			seen[installable] = true

			meta, err := d.readDescriptor(absRoot, installable, path)
			if err != nil {
				result.Errors = append(result.Errors, DiscoveryError{Path: path, Err: err})
				return nil
			}
			result.Plugins = append(result.Plugins, meta)
			return nil
		})
		if walkErr != nil {
			result.Errors = append(result.Errors, DiscoveryError{Path: root, Err: walkErr})
		}
	}
	return result, nil
}

// Find resolves an identifier against a fresh scan.
func (d *FilesystemDiscoverer) Find(ctx context.Context, identifier string) (*Metadata, error) {
	result, err := d.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return findIn(result.Plugins, identifier)
}

// readDescriptor materializes metadata from one descriptor file and registers
// its search base with the module registry.
func (d *FilesystemDiscoverer) readDescriptor(root, installable, descriptorPath string) (Metadata, error) {
	data, err := os.ReadFile(descriptorPath)
	if err != nil {
		return Metadata{}, err
	}
	desc, err := ParseDescriptor(data)
	if err != nil {
		return Metadata{}, err
	}

	module, searchBase := resolveModule(root, descriptorPath)
	if d.registry != nil {
		d.registry.InsertPath(searchBase)
	}
	return desc.Metadata(installable, module), nil
}

// installableFolder returns the top-level folder under root that contains the
// descriptor at path.
func installableFolder(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	segments := strings.Split(rel, string(filepath.Separator))
	return filepath.Join(root, segments[0]), true
}

// resolveModule derives the importable module identifier for the descriptor's
// directory, plus the search base the identifier resolves under. When a
// nested segment matches the reserved namespace token, the identifier is the
// namespaced path from that segment onward; otherwise it is the normalized
// top folder name.
func resolveModule(root, descriptorPath string) (module, searchBase string) {
	rel, err := filepath.Rel(root, filepath.Dir(descriptorPath))
	if err != nil || rel == "." {
		return normalizeSegment(filepath.Base(filepath.Dir(descriptorPath))), root
	}
	segments := strings.Split(rel, string(filepath.Separator))

	for i, seg := range segments {
		if strings.EqualFold(seg, NamespaceToken) {
			parts := make([]string, 0, len(segments)-i)
			for _, s := range segments[i:] {
				parts = append(parts, normalizeSegment(s))
			}
			base := root
			if i > 0 {
				base = filepath.Join(append([]string{root}, segments[:i]...)...)
			}
			return strings.Join(parts, ModuleIDSeparator), base
		}
	}
	return normalizeSegment(segments[0]), root
}

// normalizeSegment maps a folder name to a module identifier segment.
func normalizeSegment(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// findIn resolves an identifier against discovered records: exact name match
// first, then exact match on resolved source path, then case-insensitive
// partial match against name, module, or source.
func findIn(plugins []Metadata, identifier string) (*Metadata, error) {
	for i := range plugins {
		if plugins[i].Name == identifier {
			return &plugins[i], nil
		}
	}

	if abs, err := filepath.Abs(identifier); err == nil {
		if _, statErr := os.Stat(abs); statErr == nil {
			for i := range plugins {
				if src, err := filepath.Abs(plugins[i].Source); err == nil && src == abs {
					return &plugins[i], nil
				}
			}
		}
	}

	needle := strings.ToLower(identifier)
	for i := range plugins {
		p := &plugins[i]
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Module), needle) ||
			strings.Contains(strings.ToLower(p.Source), needle) {
			return p, nil
		}
	}
	return nil, &PluginNotFoundError{Identifier: identifier}
}

var _ Discoverer = (*FilesystemDiscoverer)(nil)
