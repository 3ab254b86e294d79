package cmd

import "github.com/spf13/cobra"

// SetupCommands assembles the command tree and returns the root command,
// ready for Execute().
func SetupCommands() *cobra.Command {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	return rootCmd
}
