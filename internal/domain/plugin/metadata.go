// Package plugin provides plugin discovery, validation, loading, and the
// metadata model shared by the lockfile and installer.
package plugin

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/modkit-io/modkit/internal/domain/version"
)

const (
	// DescriptorName is the per-plugin manifest file consumed by filesystem
	// discovery.
	DescriptorName = "plugin.json"
	// NamespaceToken is the reserved namespace segment official plugins live
	// under.
	NamespaceToken = "modkit"
	// VersionUnknown is recorded when a plugin does not report a version.
	VersionUnknown = version.Unknown
)

// officialPattern matches names claimed by the platform itself
// ("modkit", "modkit-foo", "modkit_foo").
var officialPattern = regexp.MustCompile(`(?i)^modkit([_-]|$)`)

// IsOfficialName reports whether a plugin name carries the reserved prefix.
func IsOfficialName(name string) bool {
	return officialPattern.MatchString(name)
}

// CapabilityBinding declares one capability a plugin module exposes to the
// host container. Implementation may be empty, in which case it is derived by
// convention from the capability name (abstract marker prefix stripped).
type CapabilityBinding struct {
	Capability     string `json:"capability"`
	Implementation string `json:"implementation,omitempty"`
	Lifetime       string `json:"lifetime,omitempty"`
}

// Metadata describes one discovered plugin. Records are constructed fresh on
// every scan and treated as immutable: updates go through the With* methods,
// which return new records.
type Metadata struct {
	// Name uniquely identifies the plugin; it is the join key across
	// discovery, validation, and the lockfile.
	Name string `json:"name"`
	// Source is the filesystem path or opaque location the plugin came from.
	Source string `json:"source"`
	// Module is the loadable module identifier, distinct from Name.
	Module string `json:"module"`
	// Version is a free-form version string, "unknown" if absent.
	Version string `json:"version"`
	// Author is the plugin author.
	Author string `json:"author,omitempty"`
	// AuthorEmail is the author contact address.
	AuthorEmail string `json:"author_email,omitempty"`
	// Requires lists dependency specifiers ("name" or "name constraint").
	Requires []string `json:"requires"`
	// Pin is an optional version constraint bounding upgrades.
	Pin string `json:"pin,omitempty"`
	// Checksum is an algorithm-tagged content digest (e.g., "sha256:...").
	Checksum string `json:"checksum,omitempty"`
	// Official marks plugins shipped under the reserved prefix.
	Official bool `json:"official"`
	// Capabilities are the host bindings the plugin module declares.
	Capabilities []CapabilityBinding `json:"capabilities,omitempty"`
}

// Label returns a normalized identifier (hyphens replaced by underscores).
func (m Metadata) Label() string {
	return strings.ReplaceAll(m.Name, "-", "_")
}

// String returns a human-readable plugin description.
func (m Metadata) String() string {
	return fmt.Sprintf("%s@%s", m.Name, m.Version)
}

// Dependencies returns the parsed form of Requires.
func (m Metadata) Dependencies() []Dependency {
	deps := make([]Dependency, 0, len(m.Requires))
	for _, r := range m.Requires {
		deps = append(deps, ParseDependency(r))
	}
	return deps
}

// Clone returns a deep copy of the record.
func (m Metadata) Clone() Metadata {
	clone := m
	if m.Requires != nil {
		clone.Requires = make([]string, len(m.Requires))
		copy(clone.Requires, m.Requires)
	}
	if m.Capabilities != nil {
		clone.Capabilities = make([]CapabilityBinding, len(m.Capabilities))
		copy(clone.Capabilities, m.Capabilities)
	}
	return clone
}

// WithVersion returns a copy with an updated version.
func (m Metadata) WithVersion(v string) Metadata {
	clone := m.Clone()
	clone.Version = v
	return clone
}

// WithPin returns a copy with an updated pin.
func (m Metadata) WithPin(pin string) Metadata {
	clone := m.Clone()
	clone.Pin = pin
	return clone
}

// WithChecksum returns a copy with an updated checksum.
func (m Metadata) WithChecksum(sum string) Metadata {
	clone := m.Clone()
	clone.Checksum = sum
	return clone
}

// Dependency is a parsed dependency specifier.
type Dependency struct {
	// Name is the required plugin name.
	Name string
	// Constraint is an optional version constraint (e.g., ">=1.2.0").
	Constraint string
}

// ParseDependency parses a specifier of the form "name" or "name constraint".
func ParseDependency(spec string) Dependency {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return Dependency{}
	}
	if len(fields) == 1 {
		return Dependency{Name: fields[0]}
	}
	return Dependency{
		Name:       fields[0],
		Constraint: strings.Join(fields[1:], ""),
	}
}

// Descriptor is the plugin.json schema. Source and Module are injected by
// discovery; Official is tri-state so an omitted flag can be auto-derived.
type Descriptor struct {
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Author       string              `json:"author,omitempty"`
	AuthorEmail  string              `json:"author_email,omitempty"`
	Requires     []string            `json:"requires,omitempty"`
	Pin          string              `json:"pin,omitempty"`
	Checksum     string              `json:"checksum,omitempty"`
	Official     *bool               `json:"official,omitempty"`
	Capabilities []CapabilityBinding `json:"capabilities,omitempty"`
}

// ParseDescriptor decodes a plugin.json document.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", DescriptorName, err)
	}
	return &d, nil
}

// Metadata materializes a full record from the descriptor, injecting the
// source location and module identifier discovery resolved.
func (d *Descriptor) Metadata(source, module string) Metadata {
	m := Metadata{
		Name:         d.Name,
		Source:       source,
		Module:       module,
		Version:      d.Version,
		Author:       d.Author,
		AuthorEmail:  d.AuthorEmail,
		Requires:     d.Requires,
		Pin:          d.Pin,
		Checksum:     d.Checksum,
		Capabilities: d.Capabilities,
	}
	if m.Version == "" {
		m.Version = VersionUnknown
	}
	if m.Requires == nil {
		m.Requires = []string{}
	}
	if d.Official != nil {
		m.Official = *d.Official
	} else {
		m.Official = IsOfficialName(m.Name)
	}
	return m
}
