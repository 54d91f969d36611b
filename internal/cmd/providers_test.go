package cmd_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcerer-app/sourcerer/internal/cmd"
	"github.com/sourcerer-app/sourcerer/internal/llm"
	"github.com/sourcerer-app/sourcerer/internal/settings"
	"github.com/sourcerer-app/sourcerer/internal/test"
)

func TestProvidersCommand(t *testing.T) {
	t.Run("EmptyStore", func(t *testing.T) {
		th := test.SetupCommand(t)
		th.RunCommand(t, cmd.CmdProviders(), test.CmdTest{
			Args:        []string{"providers"},
			ExpectedOut: []string{"No providers configured"},
		})
	})

	t.Run("MasksAPIKeys", func(t *testing.T) {
		th := test.SetupCommand(t)

		err := th.Store.SetProvider(th.Context, settings.ProviderRecord{
			ID:            "corp-llm",
			Alias:         "Corp LLM",
			Type:          settings.TypeCustom,
			BaseURL:       "https://llm.corp.example.com/v1",
			PayloadSchema: llm.SchemaOpenAIChat,
		}, settings.Credential{APIKey: "key-abcdef-123456"})
		require.NoError(t, err)

		th.RunCommand(t, cmd.CmdProviders(), test.CmdTest{
			Args:        []string{"providers"},
			ExpectedOut: []string{"corp-llm", "ke****3456"},
		})
	})
}
