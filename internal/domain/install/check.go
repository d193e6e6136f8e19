package install

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modkit-io/modkit/internal/domain/lock"
	"github.com/modkit-io/modkit/internal/domain/plugin"
	"github.com/modkit-io/modkit/internal/domain/version"
)

// Problem is one finding from an environment check.
type Problem struct {
	// Plugin is the affected plugin or package name.
	Plugin string
	// Detail describes the drift.
	Detail string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Plugin, p.Detail)
}

// Report aggregates environment-check findings. Errors are locked plugins
// whose environment state drifted; warnings are reserved-prefix packages the
// lockfile does not track.
type Report struct {
	Errors   []Problem
	Warnings []Problem
}

// Clean reports whether the environment matches the lockfile exactly.
func (r *Report) Clean() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

// Check compares the lockfile against the installed environment, detecting
// drift in both directions.
func Check(ctx context.Context, locks *lock.Lockfile, lister plugin.DistributionLister) (*Report, error) {
	dists, err := lister.Installed(ctx)
	if err != nil {
		return nil, err
	}

	installed := make(map[string]string, len(dists))
	for _, d := range dists {
		installed[strings.ToLower(d.Name)] = d.Version
	}

	report := &Report{}
	entries := locks.Entries()
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := entries[name]
		current, ok := installed[strings.ToLower(name)]
		switch {
		case !ok:
			report.Errors = append(report.Errors, Problem{
				Plugin: name,
				Detail: fmt.Sprintf("locked at %s but not installed", entry.Version),
			})
		case entry.Pin != "" && !version.Match(current, entry.Pin):
			report.Errors = append(report.Errors, Problem{
				Plugin: name,
				Detail: fmt.Sprintf("installed version %s violates pin %s", current, entry.Pin),
			})
		case versionsDiffer(entry.Version, current):
			report.Errors = append(report.Errors, Problem{
				Plugin: name,
				Detail: fmt.Sprintf("locked at %s but %s is installed", entry.Version, current),
			})
		}
	}

	for _, d := range dists {
		if !plugin.IsOfficialName(d.Name) {
			continue
		}
		if _, ok := entries[d.Name]; ok {
			continue
		}
		report.Warnings = append(report.Warnings, Problem{
			Plugin: d.Name,
			Detail: fmt.Sprintf("installed at %s but not tracked by the lockfile", d.Version),
		})
	}
	return report, nil
}

// versionsDiffer compares locked and installed versions, ignoring unknowns.
func versionsDiffer(locked, current string) bool {
	if locked == "" || locked == version.Unknown || current == "" || current == version.Unknown {
		return false
	}
	return version.Compare(locked, current) != 0
}
