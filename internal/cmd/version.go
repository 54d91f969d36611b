package cmd

import (
	"github.com/sourcerer-app/sourcerer/internal/build"
	"github.com/spf13/cobra"
)

func CmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the binary version",
		Long:  `Print the current version of the Sourcerer executable.`,
		Run: func(_ *cobra.Command, _ []string) {
			println(build.Version)
		},
	}
}
