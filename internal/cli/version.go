package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
//
//nolint:gochecknoglobals // build-time variable
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vswallet version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println("vswallet", Version)
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
}
