package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Default values for the server.
const (
	defaultHost = "127.0.0.1"
	defaultPort = "8000"
)

type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
	required                             bool
	isBool                               bool
}

var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file (default is $HOME/.config/sourcerer/config.yaml)",
	}
	quietFlag = commandLineFlag{
		name:      "quiet",
		shorthand: "q",
		usage:     "suppress console output",
		isBool:    true,
	}
	cpuProfileFlag = commandLineFlag{
		name:   "cpu-profile",
		usage:  "enable CPU profiling (writes cpu.prof)",
		isBool: true,
	}
	hostFlag = commandLineFlag{
		name:         "host",
		shorthand:    "s",
		defaultValue: defaultHost,
		usage:        "server host",
	}
	portFlag = commandLineFlag{
		name:         "port",
		shorthand:    "p",
		defaultValue: defaultPort,
		usage:        "server port",
	}
	dataDirFlag = commandLineFlag{
		name:      "data-dir",
		shorthand: "d",
		usage:     "location of the configuration data directory",
	}
	secretsFlag = commandLineFlag{
		name:   "secrets",
		usage:  "include provider credentials in the export (requires --passphrase-file)",
		isBool: true,
	}
	passphraseFileFlag = commandLineFlag{
		name:  "passphrase-file",
		usage: "file containing the passphrase for encrypted bundles",
	}
)

func initFlags(cmd *cobra.Command, additionalFlags ...commandLineFlag) {
	flags := append([]commandLineFlag{configFlag, quietFlag, cpuProfileFlag}, additionalFlags...)
	for _, flag := range flags {
		if flag.isBool {
			cmd.Flags().BoolP(flag.name, flag.shorthand, false, flag.usage)
		} else {
			cmd.Flags().StringP(flag.name, flag.shorthand, flag.defaultValue, flag.usage)
		}
		if flag.required {
			if err := cmd.MarkFlagRequired(flag.name); err != nil {
				fmt.Printf("failed to mark flag %s as required: %v\n", flag.name, err)
			}
		}
	}
}

func bindFlags(cmd *cobra.Command, additionalFlags ...commandLineFlag) {
	flags := append([]commandLineFlag{configFlag}, additionalFlags...)
	for _, flag := range flags {
		if err := viper.BindPFlag(flag.name, cmd.Flags().Lookup(flag.name)); err != nil {
			fmt.Printf("failed to bind flag %s: %v\n", flag.name, err)
		}
	}
}
