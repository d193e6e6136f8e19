package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/modkit-io/modkit/internal/domain/lock"
	"github.com/modkit-io/modkit/internal/domain/plugin"
	"github.com/modkit-io/modkit/internal/domain/version"
)

// sourceKind classifies an install source.
type sourceKind int

const (
	sourceVCS sourceKind = iota
	sourceRemote
	sourceArchive
	sourceIndex
)

// classify picks the acquisition strategy for a source, in priority order:
// VCS URL, plain URL, local archive, package index requirement.
func classify(source string) sourceKind {
	lower := strings.ToLower(source)
	isURL := strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")

	switch {
	case isURL && strings.HasSuffix(lower, ".git"):
		return sourceVCS
	case isURL:
		return sourceRemote
	case strings.HasSuffix(lower, ArchiveSuffix):
		return sourceArchive
	default:
		return sourceIndex
	}
}

// strategy acquires a plugin from one kind of source and returns the
// discovered record, without touching the lockfile or load registry.
type strategy func(ctx context.Context, source, name string) (*plugin.Metadata, error)

// Installer acquires plugins and keeps the lockfile and load registry
// consistent: every successful acquisition goes through the same finalize
// step, and a failed acquisition leaves neither behind.
type Installer struct {
	// PluginDir is where acquired plugins are placed.
	PluginDir string
	// Branch overrides the default branch for VCS installs.
	Branch string
	// Force bypasses downgrade and pin checks when locking.
	Force bool

	locks      *lock.Lockfile
	loader     *plugin.Loader
	registry   *plugin.ModuleRegistry
	index      *IndexClient
	cloner     *GitCloner
	downloader *Downloader
	strategies map[sourceKind]strategy
	log        logrus.FieldLogger
}

// NewInstaller wires the installer to its collaborators.
func NewInstaller(pluginDir string, locks *lock.Lockfile, loader *plugin.Loader, registry *plugin.ModuleRegistry, index *IndexClient, log logrus.FieldLogger) *Installer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	inst := &Installer{
		PluginDir:  pluginDir,
		locks:      locks,
		loader:     loader,
		registry:   registry,
		index:      index,
		cloner:     NewGitCloner(),
		downloader: NewDownloader(),
		log:        log,
	}
	inst.strategies = map[sourceKind]strategy{
		sourceVCS:     inst.installVCS,
		sourceRemote:  inst.installRemote,
		sourceArchive: inst.installArchive,
		sourceIndex:   inst.installIndex,
	}
	return inst
}

// Install acquires a plugin from source and activates it. The optional name
// narrows post-acquisition discovery when the source does not carry one.
func (i *Installer) Install(ctx context.Context, source, name string) (*plugin.Metadata, error) {
	kind := classify(source)
	meta, err := i.strategies[kind](ctx, source, name)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, &NotInstalledError{Source: source}
	}
	if err := i.finalize(ctx, *meta, i.Force); err != nil {
		return nil, err
	}
	return meta, nil
}

// installVCS shallow-clones a repository branch into the plugin directory.
func (i *Installer) installVCS(ctx context.Context, source, name string) (*plugin.Metadata, error) {
	folder := name
	if folder == "" {
		folder = strings.TrimSuffix(filepath.Base(source), ".git")
	}
	folder = strings.ReplaceAll(folder, "-", "_")
	target := filepath.Join(i.PluginDir, folder)

	if err := os.MkdirAll(i.PluginDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating plugin directory: %w", err)
	}
	if err := i.cloner.Clone(ctx, source, i.Branch, target); err != nil {
		return nil, err
	}
	return i.discoverAt(ctx, target, name)
}

// installRemote downloads an archive and delegates to the archive strategy.
// The temporary download is removed even when extraction fails.
func (i *Installer) installRemote(ctx context.Context, source, name string) (*plugin.Metadata, error) {
	archive, cleanup, err := i.downloader.Download(ctx, source)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return i.installArchive(ctx, archive, name)
}

// installArchive extracts a local archive into the plugin directory.
func (i *Installer) installArchive(ctx context.Context, source, name string) (*plugin.Metadata, error) {
	target, err := ExtractArchive(source, i.PluginDir)
	if err != nil {
		return nil, err
	}
	return i.discoverAt(ctx, target, name)
}

// installIndex delegates acquisition to the package index executable, then
// discovers the now-installed plugin.
func (i *Installer) installIndex(ctx context.Context, source, name string) (*plugin.Metadata, error) {
	if err := i.index.Install(ctx, source); err != nil {
		return nil, err
	}
	identifier := name
	if identifier == "" {
		identifier = source
	}
	meta, err := plugin.NewPackageDiscoverer(i.index, i.log).Find(ctx, identifier)
	if plugin.IsPluginNotFound(err) {
		return nil, &NotInstalledError{Source: source}
	}
	return meta, err
}

// discoverAt resolves the freshly placed plugin folder to a metadata record,
// registering the plugin directory as a discovery root.
func (i *Installer) discoverAt(ctx context.Context, target, name string) (*plugin.Metadata, error) {
	discoverer := plugin.NewFilesystemDiscoverer([]string{i.PluginDir}, i.registry, i.log)
	identifier := name
	if identifier == "" {
		identifier = target
	}
	meta, err := discoverer.Find(ctx, identifier)
	if plugin.IsPluginNotFound(err) {
		return nil, &NotInstalledError{Source: target}
	}
	return meta, err
}

// finalize records the plugin in the lockfile, backfilling checksum and pin,
// then loads it. The lockfile rejection (downgrade, pin violation) happens
// before any write, so a refused install leaves the previous entry intact.
func (i *Installer) finalize(ctx context.Context, meta plugin.Metadata, force bool) error {
	if meta.Checksum == "" && meta.Source != "" && meta.Source != plugin.VersionUnknown {
		if sum, err := plugin.TreeChecksum(meta.Source); err == nil {
			meta.Checksum = sum
		} else {
			i.log.WithField("plugin", meta.Name).WithError(err).Warn("checksum backfill failed")
		}
	}
	if meta.Pin == "" && meta.Version != "" && meta.Version != plugin.VersionUnknown {
		meta.Pin = version.Exact(meta.Version)
	}

	entry := lock.Entry{
		Version:  meta.Version,
		Source:   meta.Source,
		Pin:      meta.Pin,
		Checksum: meta.Checksum,
	}
	if err := i.locks.Add(meta.Name, entry, force); err != nil {
		return err
	}
	if err := i.loader.Load(ctx, meta); err != nil {
		return fmt.Errorf("loading %s: %w", meta.Name, err)
	}
	return nil
}

// Upgrade re-resolves a plugin, upgrades it through the package index with an
// optional version constraint, and rewrites its lockfile entry with the
// version actually installed. Running code is not reloaded; a process restart
// picks up the new module.
func (i *Installer) Upgrade(ctx context.Context, identifier, constraint string) (*plugin.Metadata, error) {
	meta, err := i.loader.DiscoverPlugin(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if isGitCheckout(meta.Source) {
		return i.upgradeVCS(ctx, meta)
	}
	if err := i.index.Upgrade(ctx, meta.Name, constraint); err != nil {
		return nil, err
	}

	installed, err := i.index.Version(ctx, meta.Name)
	if err != nil {
		return nil, err
	}
	updated := *meta
	if installed != "" {
		updated = meta.WithVersion(installed)
	}
	if refreshed, err := i.loader.DiscoverPlugin(ctx, meta.Name); err == nil {
		updated.Source = refreshed.Source
		updated.Checksum = refreshed.Checksum
	}
	if updated.Version != "" && updated.Version != plugin.VersionUnknown {
		updated.Pin = version.Exact(updated.Version)
	}

	entry := lock.Entry{
		Version:  updated.Version,
		Source:   updated.Source,
		Pin:      updated.Pin,
		Checksum: updated.Checksum,
	}
	// The upgrade already happened; the lockfile follows reality.
	if err := i.locks.Add(updated.Name, entry, true); err != nil {
		return nil, err
	}
	return &updated, nil
}

// upgradeVCS refreshes a git-sourced plugin by re-cloning its origin remote,
// then rewrites the lockfile entry from the fresh checkout.
func (i *Installer) upgradeVCS(ctx context.Context, meta *plugin.Metadata) (*plugin.Metadata, error) {
	origin, err := OriginURL(meta.Source)
	if err != nil {
		return nil, err
	}
	if err := i.cloner.Clone(ctx, origin, i.Branch, meta.Source); err != nil {
		return nil, err
	}

	updated, err := i.discoverAt(ctx, meta.Source, meta.Name)
	if err != nil {
		return nil, err
	}
	if updated.Version != "" && updated.Version != plugin.VersionUnknown {
		updated.Pin = version.Exact(updated.Version)
	}
	if err := i.finalize(ctx, *updated, true); err != nil {
		return nil, err
	}
	return updated, nil
}

// isGitCheckout reports whether a plugin source is a git working tree.
func isGitCheckout(source string) bool {
	if source == "" || source == plugin.VersionUnknown {
		return false
	}
	info, err := os.Stat(filepath.Join(source, ".git"))
	return err == nil && info.IsDir()
}

// UpgradeAll upgrades every locked plugin, continuing past individual
// failures and reporting them together.
func (i *Installer) UpgradeAll(ctx context.Context) ([]plugin.Metadata, []error) {
	var upgraded []plugin.Metadata
	var errs []error
	for _, meta := range i.locks.Locked() {
		updated, err := i.Upgrade(ctx, meta.Name, "")
		if err != nil {
			errs = append(errs, fmt.Errorf("upgrading %s: %w", meta.Name, err))
			continue
		}
		upgraded = append(upgraded, *updated)
	}
	return upgraded, errs
}

// Uninstall removes a plugin: package index removal and source-directory
// removal are best-effort, the lockfile deletion decides overall success,
// and the plugin is unloaded from the registry.
func (i *Installer) Uninstall(ctx context.Context, identifier string) error {
	name := identifier
	var source string
	if meta, err := i.loader.DiscoverPlugin(ctx, identifier); err == nil {
		name = meta.Name
		source = meta.Source
	} else if entry, ok := i.locks.Get(identifier); ok {
		source = entry.Source
	}

	if err := i.index.Uninstall(ctx, name); err != nil {
		i.log.WithField("plugin", name).WithError(err).Debug("index removal skipped")
	}
	if source != "" && source != plugin.VersionUnknown && withinDir(i.PluginDir, source) {
		if err := os.RemoveAll(source); err != nil {
			i.log.WithField("plugin", name).WithError(err).Warn("source removal failed")
		}
	}

	existed, err := i.locks.Delete(name)
	if err != nil {
		return err
	}
	if !existed {
		return &plugin.PluginNotFoundError{Identifier: identifier}
	}
	i.loader.Unload(name)
	return nil
}

// Outdated lists locked or reserved-prefix packages with newer versions
// available in the index.
func (i *Installer) Outdated(ctx context.Context) ([]OutdatedPackage, error) {
	rows, err := i.index.Outdated(ctx)
	if err != nil {
		return nil, err
	}

	locked := i.locks.Entries()
	var relevant []OutdatedPackage
	for _, row := range rows {
		if _, ok := locked[row.Name]; ok || plugin.IsOfficialName(row.Name) {
			relevant = append(relevant, row)
		}
	}
	return relevant, nil
}

// withinDir reports whether path sits under dir.
func withinDir(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
