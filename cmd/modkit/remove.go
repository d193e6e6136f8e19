package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"uninstall", "rm"},
	Short:   "Remove a plugin",
	Long:    `Remove a plugin: package index removal, source cleanup, lockfile entry, and load registry.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemove(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, identifier string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	if err := rt.installer.Uninstall(cmd.Context(), identifier); err != nil {
		return err
	}
	fmt.Printf("%s removed %s\n", successStyle.Render("✓"), identifier)
	return nil
}
