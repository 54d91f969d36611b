package cmd_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcerer-app/sourcerer/internal/cmd"
	"github.com/sourcerer-app/sourcerer/internal/llm"
	"github.com/sourcerer-app/sourcerer/internal/settings"
	"github.com/sourcerer-app/sourcerer/internal/test"
)

func TestExportCommand(t *testing.T) {
	th := test.SetupCommand(t)

	err := th.Store.SetProvider(th.Context, settings.ProviderRecord{
		ID:            "corp-llm",
		Alias:         "Corp LLM",
		Type:          settings.TypeCustom,
		BaseURL:       "https://llm.corp.example.com/v1",
		PayloadSchema: llm.SchemaOpenAIChat,
	}, settings.Credential{APIKey: "key-abcdef-123456"})
	require.NoError(t, err)

	t.Run("ExportToStdout", func(t *testing.T) {
		th.RunCommand(t, cmd.CmdExport(), test.CmdTest{
			Args:        []string{"export"},
			ExpectedOut: []string{"sourcerer-export", "corp-llm"},
		})
	})

	t.Run("ExportToFile", func(t *testing.T) {
		bundleFile := filepath.Join(t.TempDir(), "bundle.yaml")
		th.RunCommand(t, cmd.CmdExport(), test.CmdTest{
			Args:        []string{"export", bundleFile},
			ExpectedOut: []string{"Export complete"},
		})

		bundle, err := os.ReadFile(bundleFile)
		require.NoError(t, err)
		require.Contains(t, string(bundle), "corp-llm")
		require.NotContains(t, string(bundle), "key-abcdef-123456")
	})
}
