package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modkit-io/modkit/internal/domain/install"
)

var publishOut string

var publishCmd = &cobra.Command{
	Use:   "publish <path>",
	Short: "Package a plugin folder into an installable archive",
	Long: `Package a plugin folder into a <name>-<version>.zip archive with the single
top-level folder layout the installer requires. The archive is written to the
output directory; uploading it is up to you.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runPublish(args[0])
	},
}

func init() {
	publishCmd.Flags().StringVarP(&publishOut, "out", "o", ".", "output directory for the archive")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(path string) error {
	archive, err := install.Publish(path, publishOut)
	if err != nil {
		return err
	}
	fmt.Printf("%s published %s\n", successStyle.Render("✓"), archive)
	return nil
}
