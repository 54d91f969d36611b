package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sourcerer-app/sourcerer/internal/fileutil"
	"github.com/sourcerer-app/sourcerer/internal/logger"
	"github.com/sourcerer-app/sourcerer/internal/logger/tag"
)

func CmdExport() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "export [file]",
			Short: "Export the configuration as a portable bundle",
			Long: `Write the configuration document as a bundle, to a file or stdout.

Without --secrets the bundle is plain YAML and carries no credentials.
With --secrets the bundle is sealed with a passphrase read from
--passphrase-file, and provider credentials travel inside it.

Example:
  sourcerer export settings.yaml
  sourcerer export --secrets --passphrase-file=pass.txt settings.enc
`,
			Args: cobra.MaximumNArgs(1),
		}, exportFlags, runExport,
	)
}

var exportFlags = []commandLineFlag{dataDirFlag, secretsFlag, passphraseFileFlag}

func runExport(ctx *Context, args []string) error {
	includeSecrets, _ := ctx.Command.Flags().GetBool("secrets")

	passphrase, err := readPassphraseFlag(ctx)
	if err != nil {
		return err
	}
	if includeSecrets && passphrase == "" {
		return fmt.Errorf("--secrets requires --passphrase-file")
	}

	store, err := ctx.OpenStore()
	if err != nil {
		return err
	}

	bundle, err := store.Export(ctx, passphrase, includeSecrets)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if len(args) == 0 {
		fmt.Fprintln(ctx.Command.OutOrStdout(), string(bundle))
		return nil
	}

	path, err := fileutil.ResolvePath(args[0])
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, bundle, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info(ctx, "Export complete", tag.Path(path))
	return nil
}

// readPassphraseFlag reads the passphrase from the file named by
// --passphrase-file. Trailing newlines are stripped so `echo pass >
// file` round-trips.
func readPassphraseFlag(ctx *Context) (string, error) {
	file, _ := ctx.Command.Flags().GetString("passphrase-file")
	if file == "" {
		return "", nil
	}
	resolved, err := fileutil.ResolvePath(file)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved) //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase file: %w", err)
	}
	passphrase := strings.TrimRight(string(data), "\r\n")
	if passphrase == "" {
		return "", fmt.Errorf("passphrase file %s is empty", file)
	}
	return passphrase, nil
}
