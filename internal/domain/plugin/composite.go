package plugin

import (
	"context"

	"github.com/sirupsen/logrus"
)

// CompositeDiscoverer fans out to a configured list of discoverers, applies
// the extension pipeline to every record, and collapses duplicate names
// through a merge strategy. The result holds one record per distinct name,
// in first-seen order.
type CompositeDiscoverer struct {
	discoverers []Discoverer
	extensions  []Extension
	merge       MergeStrategy
	log         logrus.FieldLogger
}

// NewCompositeDiscoverer assembles the full discovery front end. A nil merge
// strategy defaults to latest-wins.
func NewCompositeDiscoverer(discoverers []Discoverer, extensions []Extension, merge MergeStrategy, log logrus.FieldLogger) *CompositeDiscoverer {
	if merge == nil {
		merge = LatestMerge{}
	}
	return &CompositeDiscoverer{
		discoverers: discoverers,
		extensions:  extensions,
		merge:       merge,
		log:         fieldLogger(log),
	}
}

// Discover runs every discoverer in order. A discoverer failing wholesale is
// recorded as an error alongside the per-source errors the others report; it
// never aborts the remaining discoverers.
func (d *CompositeDiscoverer) Discover(ctx context.Context) (*DiscoveryResult, error) {
	merged := &DiscoveryResult{}
	index := make(map[string]int)

	for _, disc := range d.discoverers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := disc.Discover(ctx)
		if err != nil {
			d.log.WithError(err).Warn("discoverer failed")
			merged.Errors = append(merged.Errors, DiscoveryError{Err: err})
			continue
		}
		merged.Errors = append(merged.Errors, result.Errors...)

		for _, raw := range result.Plugins {
			meta := applyExtensions(raw, d.extensions)
			if pos, ok := index[meta.Name]; ok {
				merged.Plugins[pos] = d.merge.Merge(merged.Plugins[pos], meta)
				continue
			}
			index[meta.Name] = len(merged.Plugins)
			merged.Plugins = append(merged.Plugins, meta)
		}
	}
	return merged, nil
}

// Find resolves an identifier against the merged view of all sources.
func (d *CompositeDiscoverer) Find(ctx context.Context, identifier string) (*Metadata, error) {
	result, err := d.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return findIn(result.Plugins, identifier)
}

var _ Discoverer = (*CompositeDiscoverer)(nil)
