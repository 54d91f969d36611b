package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sourcerer-app/sourcerer/internal/logger"
	"github.com/sourcerer-app/sourcerer/internal/settings"
)

func CmdProviders() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "providers",
			Short: "List configured LLM providers",
			Long: `Print a table of configured providers.

API keys are shown in masked form only; the clear text never leaves the
encrypted secret store.

Example:
  sourcerer providers
`,
		}, providersFlags, runProviders,
	)
}

var providersFlags = []commandLineFlag{dataDirFlag}

var providerHeader = table.Row{
	"ID",
	"Alias",
	"Type",
	"Base URL",
	"API Key",
	"Models",
	"Last Check",
	"Active",
}

func runProviders(ctx *Context, _ []string) error {
	store, err := ctx.OpenStore()
	if err != nil {
		return err
	}

	cfg, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ids := make([]string, 0, len(cfg.Providers))
	for id := range cfg.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	providerTable := table.NewWriter()
	providerTable.AppendHeader(providerHeader)
	for _, id := range ids {
		rec := cfg.Providers[id]

		masked := ""
		if cred, err := store.Secret(ctx, id); err == nil {
			masked = settings.ObfuscateKey(cred.APIKey)
		}
		lastCheck := ""
		if rec.LastAuthCheck != nil {
			lastCheck = rec.LastAuthCheck.Format(time.RFC3339)
		}
		active := ""
		if cfg.ActiveProvider == id {
			active = "*"
		}

		providerTable.AppendRow(table.Row{
			rec.ID,
			rec.Alias,
			string(rec.Type),
			rec.BaseURL,
			masked,
			len(rec.Models),
			lastCheck,
			active,
		})
	}
	fmt.Fprintln(ctx.Command.OutOrStdout(), providerTable.Render())

	if len(ids) == 0 {
		logger.Info(ctx, "No providers configured")
	}
	return nil
}
