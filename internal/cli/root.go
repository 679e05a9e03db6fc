// Package cli assembles the cobra command tree for the stacker binary.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the root command and wires every subcommand.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stacker",
		Short: "stacker manages stacked Git branches and their pull requests",
		Long: `stacker tracks parent/child relationships between branches, keeps a
stack restacked onto trunk as it moves, and submits pull requests for an
entire stack in one pass.`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newInitCmd(),
		newTrackCmd(),
		newUntrackCmd(),
		newValidateCmd(),
		newRestackCmd(),
		newSyncCmd(),
		newSubmitCmd(),
		newContinueCmd(),
		newAbortCmd(),
		newLogCmd(),
	)

	return rootCmd
}
