package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	installForce  bool
	installBranch string
)

var installCmd = &cobra.Command{
	Use:   "install <source> [name]",
	Short: "Install a plugin",
	Long: `Install a plugin from an archive, URL, git repository, or the package index.

The source decides the strategy:
  modkit install ./demo-1.0.0.zip
  modkit install https://example.com/demo-1.0.0.zip
  modkit install https://github.com/example/modkit-demo.git
  modkit install modkit-demo

The optional name narrows discovery when the source carries several plugins.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		return runInstall(cmd, args[0], name)
	},
}

func init() {
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "bypass downgrade and pin checks")
	installCmd.Flags().StringVar(&installBranch, "branch", "", "branch to clone for git sources")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, source, name string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	rt.installer.Force = installForce
	if installBranch != "" {
		rt.installer.Branch = installBranch
	}

	meta, err := rt.installer.Install(cmd.Context(), source, name)
	if err != nil {
		return err
	}
	fmt.Printf("%s installed %s\n", successStyle.Render("✓"), meta)
	return nil
}
