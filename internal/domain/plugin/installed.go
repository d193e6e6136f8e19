package plugin

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// EntryPoint is a plugin hook a distribution declares explicitly: a plugin
// name bound to the module identifier that provides it.
type EntryPoint struct {
	Name   string
	Module string
}

// Distribution describes one package already installed in the environment,
// as reported by the package index.
type Distribution struct {
	// Name is the distribution's declared name.
	Name string
	// Version is the installed version.
	Version string
	// Location is the directory the distribution's files live under.
	Location string
	// TopLevel lists the module identifiers the distribution declares.
	TopLevel []string
	// EntryPoints lists explicitly declared plugin hooks.
	EntryPoints []EntryPoint
	// Receipt is the path to the distribution's install receipt, if any.
	Receipt string
}

// ModuleIdentity derives the loadable module identifier for a distribution.
// Priority: a declared module already under the reserved namespace; a
// declared module remapped under the namespace when the namespace itself is
// declared; the first declared module; the normalized distribution name.
func (d Distribution) ModuleIdentity() string {
	nsPrefix := NamespaceToken + ModuleIDSeparator
	hasNamespace := false
	for _, tl := range d.TopLevel {
		if tl == NamespaceToken || strings.HasPrefix(tl, nsPrefix) {
			if tl != NamespaceToken {
				return tl
			}
			hasNamespace = true
		}
	}
	for _, tl := range d.TopLevel {
		if tl == NamespaceToken {
			continue
		}
		if hasNamespace {
			return nsPrefix + normalizeSegment(tl)
		}
		return normalizeSegment(tl)
	}
	return normalizeSegment(d.Name)
}

// Checksum computes the distribution's integrity digest, preferring the
// install receipt and falling back to hashing the installed tree.
func (d Distribution) Checksum() (string, error) {
	if d.Receipt != "" {
		if f, err := os.Open(d.Receipt); err == nil {
			sum := ReceiptChecksum(f)
			_ = f.Close()
			if sum != "" {
				return sum, nil
			}
		}
	}
	if d.Location == "" {
		return "", nil
	}
	return TreeChecksum(d.Location)
}

// DistributionLister enumerates installed distributions. The package index
// client implements it.
type DistributionLister interface {
	Installed(ctx context.Context) ([]Distribution, error)
}

// PackageDiscoverer surfaces installed distributions whose names carry the
// reserved prefix as plugins.
type PackageDiscoverer struct {
	lister DistributionLister
	log    logrus.FieldLogger
}

// NewPackageDiscoverer creates a discoverer over installed distributions.
func NewPackageDiscoverer(lister DistributionLister, log logrus.FieldLogger) *PackageDiscoverer {
	return &PackageDiscoverer{lister: lister, log: fieldLogger(log)}
}

// Discover returns one record per reserved-prefix distribution. A
// distribution whose checksum cannot be computed is recorded as an error and
// skipped.
func (d *PackageDiscoverer) Discover(ctx context.Context) (*DiscoveryResult, error) {
	dists, err := d.lister.Installed(ctx)
	if err != nil {
		return nil, err
	}

	result := &DiscoveryResult{}
	for _, dist := range dists {
		if !IsOfficialName(dist.Name) {
			continue
		}
		meta, err := distributionMetadata(dist)
		if err != nil {
			result.Errors = append(result.Errors, DiscoveryError{Path: dist.Location, Err: err})
			continue
		}
		result.Plugins = append(result.Plugins, meta)
	}
	return result, nil
}

// Find resolves an identifier against a fresh enumeration.
func (d *PackageDiscoverer) Find(ctx context.Context, identifier string) (*Metadata, error) {
	result, err := d.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return findIn(result.Plugins, identifier)
}

// EntryPointDiscoverer surfaces plugins any distribution declares through
// explicit entry-point hooks, regardless of the distribution's name.
type EntryPointDiscoverer struct {
	lister DistributionLister
	log    logrus.FieldLogger
}

// NewEntryPointDiscoverer creates a discoverer over declared entry points.
func NewEntryPointDiscoverer(lister DistributionLister, log logrus.FieldLogger) *EntryPointDiscoverer {
	return &EntryPointDiscoverer{lister: lister, log: fieldLogger(log)}
}

// Discover returns one record per declared entry point.
func (d *EntryPointDiscoverer) Discover(ctx context.Context) (*DiscoveryResult, error) {
	dists, err := d.lister.Installed(ctx)
	if err != nil {
		return nil, err
	}

	result := &DiscoveryResult{}
	for _, dist := range dists {
		for _, ep := range dist.EntryPoints {
			meta, err := distributionMetadata(dist)
			if err != nil {
				result.Errors = append(result.Errors, DiscoveryError{Path: dist.Location, Err: err})
				continue
			}
			meta.Name = ep.Name
			meta.Module = ep.Module
			meta.Official = IsOfficialName(ep.Name)
			result.Plugins = append(result.Plugins, meta)
		}
	}
	return result, nil
}

// Find resolves an identifier against a fresh enumeration.
func (d *EntryPointDiscoverer) Find(ctx context.Context, identifier string) (*Metadata, error) {
	result, err := d.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return findIn(result.Plugins, identifier)
}

// distributionMetadata builds the base record shared by both
// distribution-backed discoverers.
func distributionMetadata(dist Distribution) (Metadata, error) {
	sum, err := dist.Checksum()
	if err != nil {
		return Metadata{}, err
	}
	version := dist.Version
	if version == "" {
		version = VersionUnknown
	}
	return Metadata{
		Name:     dist.Name,
		Source:   dist.Location,
		Module:   dist.ModuleIdentity(),
		Version:  version,
		Requires: []string{},
		Checksum: sum,
		Official: IsOfficialName(dist.Name),
	}, nil
}

var (
	_ Discoverer = (*PackageDiscoverer)(nil)
	_ Discoverer = (*EntryPointDiscoverer)(nil)
)
