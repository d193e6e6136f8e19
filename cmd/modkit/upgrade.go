package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	upgradeAll        bool
	upgradeConstraint string
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [name]",
	Short: "Upgrade plugins through the package index",
	Long: `Upgrade a plugin and rewrite its lockfile entry with the version actually
installed. Running code is not reloaded; restart the process to pick up the
new module.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if upgradeAll {
			if len(args) > 0 {
				return errors.New("--all cannot be combined with a plugin name")
			}
			return runUpgradeAll(cmd)
		}
		if len(args) == 0 {
			return errors.New("a plugin name or --all is required")
		}
		return runUpgrade(cmd, args[0])
	},
}

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "List plugins with newer versions available",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOutdated(cmd)
	},
}

func init() {
	upgradeCmd.Flags().BoolVar(&upgradeAll, "all", false, "upgrade every locked plugin")
	upgradeCmd.Flags().StringVar(&upgradeConstraint, "version", "", "version constraint (e.g. '>=1.2,<2.0')")
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(outdatedCmd)
}

func runUpgrade(cmd *cobra.Command, identifier string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	meta, err := rt.installer.Upgrade(cmd.Context(), identifier, upgradeConstraint)
	if err != nil {
		return err
	}
	fmt.Printf("%s upgraded to %s\n", successStyle.Render("✓"), meta)
	fmt.Println(mutedStyle.Render("Restart the process to pick up the new module."))
	return nil
}

func runUpgradeAll(cmd *cobra.Command) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	upgraded, errs := rt.installer.UpgradeAll(cmd.Context())
	for _, meta := range upgraded {
		fmt.Printf("%s upgraded to %s\n", successStyle.Render("✓"), meta)
	}
	for _, uerr := range errs {
		printError(uerr)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d upgrades failed", len(errs), len(errs)+len(upgraded))
	}
	if len(upgraded) == 0 {
		fmt.Println("Nothing to upgrade.")
	}
	return nil
}

func runOutdated(cmd *cobra.Command) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	rows, err := rt.installer.Outdated(cmd.Context())
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("Everything is up to date.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tINSTALLED\tLATEST")
	_, _ = fmt.Fprintln(w, "────\t─────────\t──────")
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", row.Name, row.Version, row.Latest)
	}
	return w.Flush()
}
