package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/modkit-io/modkit/internal/domain/config"
	"github.com/modkit-io/modkit/internal/domain/host"
	"github.com/modkit-io/modkit/internal/domain/install"
	"github.com/modkit-io/modkit/internal/domain/lock"
	"github.com/modkit-io/modkit/internal/domain/plugin"
)

var (
	// Global flags
	cfgFile  string
	verbose  bool
	logLevel string
)

// Status styles shared by all commands.
var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"})
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"})
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"})
)

var rootCmd = &cobra.Command{
	Use:   "modkit",
	Short: "Plugin manager for the modkit platform",
	Long: `Modkit discovers, installs, and manages platform plugins.

Plugins are acquired from archives, URLs, git repositories, or the package
index, recorded in a lockfile, and loaded with their dependencies resolved:
  Discover → Merge → Validate → Order → Load`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: modkit.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warning", "log level (debug, info, warning, error)")

	rootCmd.AddCommand(versionCmd)
}

// setupLogger builds the process logger from the global flags.
func setupLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	if verbose && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}

// runtime is the assembled plugin pipeline every command runs against.
type runtime struct {
	cfg       *config.Config
	log       *logrus.Logger
	locks     *lock.Lockfile
	registry  *plugin.ModuleRegistry
	container *host.MemoryContainer
	loader    *plugin.Loader
	index     *install.IndexClient
	installer *install.Installer
}

// newRuntime loads configuration and wires the discovery, lock, load, and
// install components together.
func newRuntime() (*runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	log := setupLogger()

	merge, err := plugin.MergeStrategyByName(cfg.MergeStrategy)
	if err != nil {
		return nil, err
	}

	locks := lock.New(cfg.LockfilePath())
	registry := plugin.NewModuleRegistry(log)
	index := install.NewIndexClient(cfg.IndexBinary)

	discoverer := plugin.NewCompositeDiscoverer(
		[]plugin.Discoverer{
			plugin.NewFilesystemDiscoverer(cfg.Roots(), registry, log),
			plugin.NewPackageDiscoverer(index, log),
			plugin.NewEntryPointDiscoverer(index, log),
		},
		plugin.DefaultExtensions(cfg.Pins, log),
		merge,
		log,
	)

	container := host.NewMemoryContainer()
	loader := plugin.NewLoader(
		discoverer,
		[]plugin.Validator{
			plugin.DependencyValidator{},
			plugin.ChecksumValidator{Locks: locks},
		},
		registry,
		container,
		log,
	)
	installer := install.NewInstaller(cfg.PluginDir, locks, loader, registry, index, log)
	installer.Branch = cfg.DefaultBranch

	return &runtime{
		cfg:       cfg,
		log:       log,
		locks:     locks,
		registry:  registry,
		container: container,
		loader:    loader,
		index:     index,
		installer: installer,
	}, nil
}

// formatError returns a user-friendly error message; verbose mode keeps the
// full error chain.
func formatError(err error) string {
	if verbose {
		return fmt.Sprintf("%+v", err)
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "%s %s\n", errorStyle.Render("Error:"), formatError(err))
}
