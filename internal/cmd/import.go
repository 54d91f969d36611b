package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sourcerer-app/sourcerer/internal/fileutil"
	"github.com/sourcerer-app/sourcerer/internal/logger"
	"github.com/sourcerer-app/sourcerer/internal/logger/tag"
)

func CmdImport() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "import <file>",
			Short: "Import a configuration bundle",
			Long: `Replace the configuration with the contents of an exported bundle.

Encrypted bundles need the original passphrase via --passphrase-file.
A timestamped backup of the current files is taken before anything is
replaced, and bundles from older builds are migrated on the way in.

Example:
  sourcerer import settings.yaml
  sourcerer import --passphrase-file=pass.txt settings.enc
`,
			Args: cobra.ExactArgs(1),
		}, importFlags, runImport,
	)
}

var importFlags = []commandLineFlag{dataDirFlag, passphraseFileFlag}

func runImport(ctx *Context, args []string) error {
	passphrase, err := readPassphraseFlag(ctx)
	if err != nil {
		return err
	}

	path, err := fileutil.ResolvePath(args[0])
	if err != nil {
		return err
	}
	payload, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	store, err := ctx.OpenStore()
	if err != nil {
		return err
	}
	if err := store.Import(ctx, payload, passphrase); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cfg, err := store.Load(ctx)
	if err != nil {
		return err
	}
	logger.Info(ctx, "Import complete", tag.Count(len(cfg.Providers)))
	return nil
}
