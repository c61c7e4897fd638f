package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=..."
var version = "dev"

// timeNow is the clock used by one-shot commands.
var timeNow = time.Now

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("expiry-tracker version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
