package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Inspect discovered plugins",
	Long:  `List and inspect the plugins discovery can see across all sources.`,
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered plugins",
	Long:  `Display every discoverable plugin with its version and lock status.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPluginList(cmd)
	},
}

var pluginInfoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show plugin details",
	Long:  `Display detailed information about a plugin, resolved by name, module, or source path.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPluginInfo(cmd, args[0])
	},
}

var pluginLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load every discoverable plugin",
	Long: `Run the full pipeline: discover, validate, order by dependencies, and load.
Individual plugin failures are reported and skipped; a dependency cycle
aborts the batch.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPluginLoad(cmd)
	},
}

func init() {
	rootCmd.AddCommand(pluginCmd)
	pluginCmd.AddCommand(pluginListCmd)
	pluginCmd.AddCommand(pluginInfoCmd)
	pluginCmd.AddCommand(pluginLoadCmd)
}

func runPluginLoad(cmd *cobra.Command) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	result, err := rt.loader.LoadAll(cmd.Context())
	if err != nil {
		return err
	}

	for _, p := range result.Loaded {
		fmt.Printf("%s loaded %s\n", successStyle.Render("✓"), p)
	}
	for _, skipped := range result.Skipped {
		fmt.Printf("%s skipped %s: %s\n", warningStyle.Render("•"), skipped.Plugin.Name, skipped.Err)
	}
	if len(result.Loaded) == 0 && len(result.Skipped) == 0 {
		fmt.Println("No plugins found.")
	}
	return nil
}

func runPluginList(cmd *cobra.Command) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	result, err := rt.loader.DiscoverAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("discovering plugins: %w", err)
	}
	for _, derr := range result.Errors {
		fmt.Fprintln(os.Stderr, warningStyle.Render("warning:"), derr.Error())
	}

	if len(result.Plugins) == 0 {
		fmt.Println("No plugins found.")
		fmt.Println("")
		fmt.Println("Install plugins using:")
		fmt.Println("  modkit install <archive|url|git-url|package>")
		return nil
	}

	locked := rt.locks.Entries()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tVERSION\tSTATUS\tSOURCE")
	_, _ = fmt.Fprintln(w, "────\t───────\t──────\t──────")
	for _, p := range result.Plugins {
		status := "untracked"
		if entry, ok := locked[p.Name]; ok {
			status = "locked"
			if entry.Version != p.Version {
				status = "drifted"
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Version, status, p.Source)
	}
	return w.Flush()
}

func runPluginInfo(cmd *cobra.Command, identifier string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	meta, err := rt.loader.DiscoverPlugin(cmd.Context(), identifier)
	if err != nil {
		return err
	}

	fmt.Printf("Name:     %s\n", meta.Name)
	fmt.Printf("Version:  %s\n", meta.Version)
	fmt.Printf("Module:   %s\n", meta.Module)
	fmt.Printf("Source:   %s\n", meta.Source)
	if meta.Author != "" {
		author := meta.Author
		if meta.AuthorEmail != "" {
			author += " <" + meta.AuthorEmail + ">"
		}
		fmt.Printf("Author:   %s\n", author)
	}
	if meta.Pin != "" {
		fmt.Printf("Pin:      %s\n", meta.Pin)
	}
	if meta.Checksum != "" {
		fmt.Printf("Checksum: %s\n", meta.Checksum)
	}
	fmt.Printf("Official: %t\n", meta.Official)
	if len(meta.Requires) > 0 {
		fmt.Printf("Requires: %s\n", strings.Join(meta.Requires, ", "))
	}
	if len(meta.Capabilities) > 0 {
		fmt.Println("Capabilities:")
		for _, c := range meta.Capabilities {
			line := "  " + c.Capability
			if c.Implementation != "" {
				line += " → " + c.Implementation
			}
			if c.Lifetime != "" {
				line += " (" + c.Lifetime + ")"
			}
			fmt.Println(line)
		}
	}

	if entry, ok := rt.locks.Get(meta.Name); ok {
		fmt.Printf("Locked:   %s", entry.Version)
		if entry.Pin != "" {
			fmt.Printf(" (pin %s)", entry.Pin)
		}
		fmt.Println()
	} else {
		fmt.Println(mutedStyle.Render("Locked:   no"))
	}
	return nil
}
