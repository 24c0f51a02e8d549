package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "redsheet",
	Short: "RedSheet is a pentest engagement workspace",
	Long: `RedSheet keeps a team's engagement material in one place: payload
library, target tracker, practice boxes, tool cheatsheets, wiki and an
aggregated security news feed, served as a single binary with an embedded
web UI.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
