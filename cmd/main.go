package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sourcerer-app/sourcerer/internal/build"
	"github.com/sourcerer-app/sourcerer/internal/cmd"
)

var rootCmd = &cobra.Command{
	Use:   build.Slug,
	Short: "Sourcerer manages LLM provider settings and credentials",
	Long: `Sourcerer is the configuration service for LLM providers.

It keeps generation defaults, provider endpoints, and API credentials in
an encrypted local store, and serves them over a small REST API. Secret
values are encrypted at rest and never appear in logs, exports, or API
responses in the clear.
`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(cmd.CmdServer())
	rootCmd.AddCommand(cmd.CmdDoctor())
	rootCmd.AddCommand(cmd.CmdProviders())
	rootCmd.AddCommand(cmd.CmdExport())
	rootCmd.AddCommand(cmd.CmdImport())
	rootCmd.AddCommand(cmd.CmdMigrate())
	rootCmd.AddCommand(cmd.CmdVersion())

	build.Version = version
}

// version is overridden via -ldflags at release time.
var version = "0.0.0"
