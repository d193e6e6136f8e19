package plugin

import (
	"github.com/modkit-io/modkit/internal/domain/version"
)

// Validator gates a single plugin before it is loaded. Implementations return
// a typed error describing exactly what failed.
type Validator interface {
	Validate(m Metadata, loaded map[string]Metadata) error
}

// DependencyValidator checks that every required plugin is already loaded and
// satisfies its version constraint.
type DependencyValidator struct{}

// Validate returns a *DependencyError on the first unmet requirement.
// A loaded dependency with an unknown version satisfies any constraint; the
// validator refuses to fail a plugin over a version nobody reported.
func (DependencyValidator) Validate(m Metadata, loaded map[string]Metadata) error {
	for _, dep := range m.Dependencies() {
		found, ok := loaded[dep.Name]
		if !ok {
			return &DependencyError{Plugin: m.Name, Dependency: dep.Name, Constraint: dep.Constraint}
		}
		if dep.Constraint == "" || found.Version == VersionUnknown {
			continue
		}
		if !version.Match(found.Version, dep.Constraint) {
			return &DependencyError{
				Plugin:     m.Name,
				Dependency: dep.Name,
				Constraint: dep.Constraint,
				Found:      found.Version,
			}
		}
	}
	return nil
}

// LockReader exposes the approved checksum recorded for a plugin. The
// lockfile implements it; validation depends only on this narrow view.
type LockReader interface {
	Checksum(name string) (string, bool)
}

// ChecksumValidator approves a plugin only when its content digest matches
// the digest recorded in the lockfile.
type ChecksumValidator struct {
	Locks LockReader
}

// Validate returns a *ChecksumRejectedError when the plugin has no lockfile
// entry, the entry carries no digest, or the digests differ. Plugins without
// a computed checksum of their own are rejected too.
func (v ChecksumValidator) Validate(m Metadata, _ map[string]Metadata) error {
	if v.Locks == nil {
		return &ChecksumRejectedError{Plugin: m.Name}
	}
	want, ok := v.Locks.Checksum(m.Name)
	if !ok || want == "" || m.Checksum == "" || m.Checksum != want {
		return &ChecksumRejectedError{Plugin: m.Name}
	}
	return nil
}

var (
	_ Validator = DependencyValidator{}
	_ Validator = ChecksumValidator{}
)
