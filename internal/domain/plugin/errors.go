package plugin

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrEmptyPluginName indicates a plugin name was empty.
	ErrEmptyPluginName = errors.New("plugin name cannot be empty")
	// ErrDescriptorNotFound indicates plugin.json was not found.
	ErrDescriptorNotFound = errors.New("plugin.json not found")
)

// DiscoveryError represents a failure to read one plugin source.
// Discovery never aborts on a single bad source; errors are collected.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovering plugin at %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// DiscoveryResult captures both successful discoveries and per-source errors.
type DiscoveryResult struct {
	Plugins []Metadata
	Errors  []DiscoveryError
}

// HasErrors returns true if any source failed during discovery.
func (r *DiscoveryResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// DependencyError indicates a plugin's dependency is missing or incompatible.
type DependencyError struct {
	Plugin     string
	Dependency string
	Constraint string
	Found      string
}

func (e *DependencyError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("plugin %q requires missing plugin %q", e.Plugin, e.Dependency)
	}
	return fmt.Sprintf("plugin %q requires %q with version %s, but found incompatible version %s",
		e.Plugin, e.Dependency, e.Constraint, e.Found)
}

// IsDependencyError returns true if the error is a dependency validation failure.
func IsDependencyError(err error) bool {
	var depErr *DependencyError
	return errors.As(err, &depErr)
}

// ChecksumRejectedError indicates a plugin's content digest was not approved
// against the lockfile (missing or mismatched entry).
type ChecksumRejectedError struct {
	Plugin string
}

func (e *ChecksumRejectedError) Error() string {
	return fmt.Sprintf("plugin %q checksum not approved by lockfile", e.Plugin)
}

// IsChecksumRejected returns true if the error is a checksum validation failure.
func IsChecksumRejected(err error) bool {
	var sumErr *ChecksumRejectedError
	return errors.As(err, &sumErr)
}

// CircularDependencyError indicates the requires graph contains a cycle.
// Remaining holds every plugin that could not be ordered: the cycle members
// plus anything that depends only on them.
type CircularDependencyError struct {
	Remaining []string
}

func (e *CircularDependencyError) Error() string {
	names := make([]string, len(e.Remaining))
	copy(names, e.Remaining)
	sort.Strings(names)
	return fmt.Sprintf("circular dependency detected among: %s", strings.Join(names, ", "))
}

// IsCircularDependency returns true if the error is a dependency cycle.
func IsCircularDependency(err error) bool {
	var cycErr *CircularDependencyError
	return errors.As(err, &cycErr)
}

// ModuleNotFoundError indicates the module registry could not resolve a
// module identifier.
type ModuleNotFoundError struct {
	Module string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module %q not found", e.Module)
}

// IsModuleNotFound returns true if the error indicates an unresolvable module.
func IsModuleNotFound(err error) bool {
	var modErr *ModuleNotFoundError
	return errors.As(err, &modErr)
}

// PluginNotFoundError indicates no discovered plugin matched an identifier.
//
//nolint:revive // Name mirrors the identifier-resolution contract.
type PluginNotFoundError struct {
	Identifier string
}

func (e *PluginNotFoundError) Error() string {
	return fmt.Sprintf("no plugin matches %q", e.Identifier)
}

// IsPluginNotFound returns true if the error indicates an unmatched identifier.
func IsPluginNotFound(err error) bool {
	var nfErr *PluginNotFoundError
	return errors.As(err, &nfErr)
}
