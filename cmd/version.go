package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/denysvitali/ipos-browser-go/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ipos-browser %s (commit %s, ui %s)\n", version.Version, version.GitCommit, version.UIVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
