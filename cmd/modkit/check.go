package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modkit-io/modkit/internal/domain/install"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the environment against the lockfile",
	Long: `Compare the lockfile against installed packages and report drift in both
directions. Exits non-zero when any error is found.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCheck(cmd)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	report, err := install.Check(cmd.Context(), rt.locks, rt.index)
	if err != nil {
		return err
	}

	for _, warning := range report.Warnings {
		fmt.Printf("%s %s\n", warningStyle.Render("warning:"), warning)
	}
	for _, problem := range report.Errors {
		fmt.Printf("%s %s\n", errorStyle.Render("error:"), problem)
	}

	if len(report.Errors) > 0 {
		return fmt.Errorf("%d plugin(s) out of sync with the lockfile", len(report.Errors))
	}
	if report.Clean() {
		fmt.Printf("%s environment matches the lockfile\n", successStyle.Render("✓"))
	}
	return nil
}
