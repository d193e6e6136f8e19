package plugin

import "sort"

// SortByDependencies orders plugins so every dependency appears strictly
// before the plugins that require it. Requirements on plugins outside the
// input set are ignored here; the dependency validator reports those.
// Ties break alphabetically so the order is deterministic.
// Returns a *CircularDependencyError when the requires graph has a cycle.
func SortByDependencies(plugins []Metadata) ([]Metadata, error) {
	byName := make(map[string]Metadata, len(plugins))
	for _, p := range plugins {
		byName[p.Name] = p
	}

	// Kahn's algorithm over the in-set dependency edges.
	inDegree := make(map[string]int, len(plugins))
	dependents := make(map[string][]string, len(plugins))
	for _, p := range plugins {
		if _, ok := inDegree[p.Name]; !ok {
			inDegree[p.Name] = 0
		}
		for _, dep := range p.Dependencies() {
			if _, ok := byName[dep.Name]; !ok {
				continue
			}
			inDegree[p.Name]++
			dependents[dep.Name] = append(dependents[dep.Name], p.Name)
		}
	}

	var ready []string
	for name, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	ordered := make([]Metadata, 0, len(plugins))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[name])

		var unlocked []string
		for _, dependent := range dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				unlocked = append(unlocked, dependent)
			}
		}
		if len(unlocked) > 0 {
			sort.Strings(unlocked)
			ready = mergeSorted(ready, unlocked)
		}
	}

	if len(ordered) != len(plugins) {
		remaining := make([]string, 0, len(plugins)-len(ordered))
		for name, deg := range inDegree {
			if deg > 0 {
				remaining = append(remaining, name)
			}
		}
		return nil, &CircularDependencyError{Remaining: remaining}
	}
	return ordered, nil
}

// mergeSorted merges two sorted string slices.
func mergeSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
