package plugin

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/modkit-io/modkit/internal/domain/version"
)

// Extension enriches or transforms freshly discovered metadata.
// Implementations must be idempotent and free of side effects beyond the
// returned record.
type Extension interface {
	Apply(m Metadata) Metadata
}

// ChecksumExtension backfills a content digest for records that lack one.
type ChecksumExtension struct {
	log logrus.FieldLogger
}

// NewChecksumExtension creates a checksum-backfill extension.
func NewChecksumExtension(log logrus.FieldLogger) *ChecksumExtension {
	return &ChecksumExtension{log: fieldLogger(log)}
}

// Apply computes a source-tree digest when the record has no checksum and its
// source exists on disk.
func (e *ChecksumExtension) Apply(m Metadata) Metadata {
	if m.Checksum != "" || m.Source == "" {
		return m
	}
	if _, err := os.Stat(m.Source); err != nil {
		return m
	}
	sum, err := TreeChecksum(m.Source)
	if err != nil {
		e.log.WithField("plugin", m.Name).WithError(err).Warn("checksum computation failed")
		return m
	}
	return m.WithChecksum(sum)
}

// PinExtension derives a version pin: a manual override wins, otherwise the
// record is pinned exactly to its discovered version.
type PinExtension struct {
	pins map[string]string
}

// NewPinExtension creates a pin-derivation extension with optional manual
// overrides keyed by plugin name.
func NewPinExtension(pins map[string]string) *PinExtension {
	return &PinExtension{pins: pins}
}

// Apply sets the pin on the returned record.
func (e *PinExtension) Apply(m Metadata) Metadata {
	if pin, ok := e.pins[m.Name]; ok {
		return m.WithPin(pin)
	}
	if m.Version != "" && m.Version != VersionUnknown {
		return m.WithPin(version.Exact(m.Version))
	}
	return m
}

// ValidationExtension fills required-but-missing fields with documented
// fallbacks. It logs problems instead of failing; discovery must not abort on
// a sloppy descriptor.
type ValidationExtension struct {
	defaults map[string]string
	log      logrus.FieldLogger
}

// NewValidationExtension creates a field-defaulting extension.
func NewValidationExtension(log logrus.FieldLogger) *ValidationExtension {
	return &ValidationExtension{
		defaults: map[string]string{
			"version": VersionUnknown,
			"source":  VersionUnknown,
		},
		log: fieldLogger(log),
	}
}

// Apply normalizes the record, logging a warning for any missing field.
func (e *ValidationExtension) Apply(m Metadata) Metadata {
	var problems []string

	if m.Name == "" {
		problems = append(problems, "missing name")
		m.Name = "unnamed-plugin"
	}
	if m.Version == "" {
		problems = append(problems, "missing version")
		m.Version = e.defaults["version"]
	}
	if m.Source == "" {
		m.Source = e.defaults["source"]
	}
	if m.Requires == nil {
		m.Requires = []string{}
	}

	if len(problems) > 0 {
		e.log.WithField("plugin", m.Name).
			Warnf("validation issues: %s", strings.Join(problems, ", "))
	}
	return m
}

// DefaultExtensions returns the standard enrichment pipeline in its required
// order: checksum, pin, validation.
func DefaultExtensions(pins map[string]string, log logrus.FieldLogger) []Extension {
	return []Extension{
		NewChecksumExtension(log),
		NewPinExtension(pins),
		NewValidationExtension(log),
	}
}

// applyExtensions runs the pipeline over one record.
func applyExtensions(m Metadata, extensions []Extension) Metadata {
	for _, ext := range extensions {
		m = ext.Apply(m)
	}
	return m
}

// fieldLogger guards against nil loggers so components stay usable in tests.
func fieldLogger(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	return logrus.StandardLogger()
}
