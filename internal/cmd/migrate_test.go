package cmd_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcerer-app/sourcerer/internal/cmd"
	"github.com/sourcerer-app/sourcerer/internal/settings"
	"github.com/sourcerer-app/sourcerer/internal/test"
)

func TestMigrateCommand(t *testing.T) {
	th := test.SetupCommand(t)

	// A version 1 document still carries provider keys inline.
	v1Document := `version: 1
active_provider: openai
providers:
  openai:
    id: openai
    alias: OpenAI
    type: built_in
    base_url: https://api.openai.com/v1/
    api_key: sk-inline-abcdef-123456
`
	docPath := th.Store.DocumentPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(docPath), 0750))
	require.NoError(t, os.WriteFile(docPath, []byte(v1Document), 0600))

	th.RunCommand(t, cmd.CmdMigrate(), test.CmdTest{
		Args:        []string{"migrate"},
		ExpectedOut: []string{"Migration complete"},
	})

	version, err := th.Store.SchemaVersion()
	require.NoError(t, err)
	require.Equal(t, settings.CurrentVersion, version)

	// The inline key moved into the encrypted secret store.
	cred, err := th.Store.Secret(th.Context, "openai")
	require.NoError(t, err)
	require.Equal(t, "sk-inline-abcdef-123456", cred.APIKey)

	cfg, err := th.Store.Load(th.Context)
	require.NoError(t, err)
	require.Equal(t, "https://api.openai.com/v1", cfg.Providers["openai"].BaseURL)

	th.RunCommand(t, cmd.CmdMigrate(), test.CmdTest{
		Args:        []string{"migrate"},
		ExpectedOut: []string{"Schema is current"},
	})
}

func TestMigrateCommandFirstRun(t *testing.T) {
	th := test.SetupCommand(t)
	th.RunCommand(t, cmd.CmdMigrate(), test.CmdTest{
		Args:        []string{"migrate"},
		ExpectedOut: []string{"nothing to migrate"},
	})
}
