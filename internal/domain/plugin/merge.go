package plugin

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MergeStrategy decides which of two records wins when the same plugin name
// is reported by more than one source.
type MergeStrategy interface {
	Merge(existing, incoming Metadata) Metadata
}

// LatestMerge keeps the record with the greater (major, minor, patch) tuple.
// Versions are parsed leniently: pre-release and build suffixes are stripped
// and non-numeric components default to zero. Ties keep the existing record,
// which makes equal-version picks scan-order-dependent; that ambiguity is
// inherited from unstable discoverer ordering and is documented rather than
// resolved.
type LatestMerge struct{}

// Merge returns the newer of the two records.
func (LatestMerge) Merge(existing, incoming Metadata) Metadata {
	ev := parseLenientVersion(existing.Version)
	nv := parseLenientVersion(incoming.Version)
	if greaterTuple(nv, ev) {
		return incoming
	}
	return existing
}

// FirstWinsMerge always keeps the record discovered first.
type FirstWinsMerge struct{}

// Merge returns the existing record.
func (FirstWinsMerge) Merge(existing, _ Metadata) Metadata {
	return existing
}

// FilesystemFirstMerge prefers the incoming record when its source path
// exists on disk.
type FilesystemFirstMerge struct{}

// Merge returns the incoming record iff its source is present.
func (FilesystemFirstMerge) Merge(existing, incoming Metadata) Metadata {
	if incoming.Source != "" {
		if _, err := os.Stat(incoming.Source); err == nil {
			return incoming
		}
	}
	return existing
}

// Merge strategy names accepted in configuration.
const (
	MergeLatest          = "latest"
	MergeFirstWins       = "first"
	MergeFilesystemFirst = "filesystem"
)

// MergeStrategyByName resolves a configured strategy name.
func MergeStrategyByName(name string) (MergeStrategy, error) {
	switch name {
	case "", MergeLatest:
		return LatestMerge{}, nil
	case MergeFirstWins:
		return FirstWinsMerge{}, nil
	case MergeFilesystemFirst:
		return FilesystemFirstMerge{}, nil
	default:
		return nil, fmt.Errorf("unknown merge strategy %q", name)
	}
}

// versionTuple is a leniently parsed (major, minor, patch).
type versionTuple [3]int

// parseLenientVersion extracts numeric components, dropping pre-release and
// build metadata. Anything unparseable becomes zero.
func parseLenientVersion(v string) versionTuple {
	var t versionTuple
	if v == "" {
		return t
	}

	v = strings.SplitN(v, "-", 2)[0]
	v = strings.SplitN(v, "+", 2)[0]
	v = strings.TrimPrefix(v, "v")

	parts := strings.Split(v, ".")
	for i := 0; i < len(parts) && i < 3; i++ {
		if n, err := strconv.Atoi(parts[i]); err == nil {
			t[i] = n
		}
	}
	return t
}

// greaterTuple reports whether a > b.
func greaterTuple(a, b versionTuple) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}
