package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sourcerer-app/sourcerer/internal/logger"
	"github.com/sourcerer-app/sourcerer/internal/logger/tag"
	"github.com/sourcerer-app/sourcerer/internal/settings"
)

func CmdMigrate() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Run pending schema migrations",
			Long: `Lift the configuration document to the current schema version.

Loading the configuration migrates on demand; this command performs the
same step explicitly, which is useful before rolling out a new build.
The pre-migration files are snapshotted into the backups directory
first.

Example:
  sourcerer migrate
`,
		}, migrateFlags, runMigrate,
	)
}

var migrateFlags = []commandLineFlag{dataDirFlag}

func runMigrate(ctx *Context, _ []string) error {
	store, err := ctx.OpenStore()
	if err != nil {
		return err
	}

	if store.FirstRun() {
		logger.Info(ctx, "No configuration document found; nothing to migrate")
		return nil
	}

	version, err := store.SchemaVersion()
	if err != nil {
		return err
	}
	if version == settings.CurrentVersion {
		logger.Info(ctx, "Schema is current", tag.SchemaVersion(version))
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
