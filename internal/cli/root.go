// Package cli wires the command-line surface using Cobra.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "statsync",
		Short: "statsync - checkpointed upload of sports statistics into MongoDB",
		Long: `statsync loads normalized sports statistics (season, weekly and roster
lanes) into MongoDB using batched, resumable upserts. Progress is
checkpointed after every batch, so an interrupted run picks up where it
left off without re-uploading completed work.`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newPurgeCmd())

	return rootCmd
}
