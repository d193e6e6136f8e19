// Package version provides semantic version comparison and constraint matching.
package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Unknown is the placeholder version used when a plugin does not report one.
const Unknown = "unknown"

// constraint operators, longest first so two-character operators win.
var operators = []string{"==", "!=", ">=", "<=", ">", "<", "~", "^"}

// Constraint is a parsed version constraint such as ">=1.2.0".
// An empty operator means exact equality.
type Constraint struct {
	// Op is the comparison operator ("==", "!=", ">=", "<=", ">", "<", "~", "^").
	Op string
	// Version is the version the operator compares against.
	Version string
}

// String returns the canonical constraint form.
func (c Constraint) String() string {
	if c.Op == "" {
		return "==" + c.Version
	}
	return c.Op + c.Version
}

// ParseConstraint parses a constraint string such as ">= 1.2.0" or "==1.0.0".
// A bare version is treated as exact equality.
func ParseConstraint(s string) (Constraint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Constraint{}, fmt.Errorf("empty constraint")
	}

	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			v := strings.TrimSpace(strings.TrimPrefix(s, op))
			if v == "" {
				return Constraint{}, fmt.Errorf("constraint %q has no version", s)
			}
			return Constraint{Op: op, Version: v}, nil
		}
	}

	return Constraint{Version: s}, nil
}

// Exact returns an exact-equality constraint string for a version.
func Exact(v string) string {
	return "==" + v
}

// Compare compares two version strings.
// Valid semantic versions are compared with semver precedence; anything else
// falls back to lexical ordering so the comparison stays total.
func Compare(a, b string) int {
	av, bv := normalize(a), normalize(b)
	if semver.IsValid(av) && semver.IsValid(bv) {
		return semver.Compare(av, bv)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Match reports whether a version satisfies a constraint string. A
// comma-separated list (">=1.0.0,<2.0.0") must be satisfied in full.
// An empty constraint always matches. An unparseable constraint falls back to
// string equality against the raw constraint, mirroring lenient inputs from
// hand-written descriptors.
func Match(version, constraint string) bool {
	if constraint == "" {
		return true
	}
	if strings.Contains(constraint, ",") {
		for _, part := range strings.Split(constraint, ",") {
			if part = strings.TrimSpace(part); part != "" && !matchOne(version, part) {
				return false
			}
		}
		return true
	}
	return matchOne(version, constraint)
}

// matchOne evaluates a single-operator constraint.
func matchOne(version, constraint string) bool {
	c, err := ParseConstraint(constraint)
	if err != nil {
		return version == constraint
	}

	// Tilde and caret ranges need valid semver on both sides.
	nv, nc := normalize(version), normalize(c.Version)
	switch c.Op {
	case "~":
		if !semver.IsValid(nv) || !semver.IsValid(nc) {
			return version == c.Version
		}
		return semver.Compare(nv, nc) >= 0 && semver.MajorMinor(nv) == semver.MajorMinor(nc)
	case "^":
		if !semver.IsValid(nv) || !semver.IsValid(nc) {
			return version == c.Version
		}
		return semver.Compare(nv, nc) >= 0 && semver.Major(nv) == semver.Major(nc)
	}

	cmp := Compare(version, c.Version)
	switch c.Op {
	case "", "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	}
	return false
}

// IsValid reports whether v is a valid semantic version (with or without the
// leading "v").
func IsValid(v string) bool {
	return semver.IsValid(normalize(v))
}

// normalize ensures the "v" prefix golang.org/x/mod/semver expects.
func normalize(v string) string {
	if v == "" {
		return ""
	}
	if v[0] != 'v' && v[0] != 'V' {
		return "v" + v
	}
	if v[0] == 'V' {
		return "v" + v[1:]
	}
	return v
}
