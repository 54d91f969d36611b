package settings

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProviders(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SetProvider(ctx, ProviderRecord{ID: "openai", Type: TypeBuiltIn},
		Credential{APIKey: "sk-live-1234567890"}))
	require.NoError(t, store.SetProvider(ctx, ProviderRecord{
		Type: TypeCustom, Alias: "Local Relay",
		BaseURL: "https://relay.example.com/v1", PayloadSchema: "openai_chat",
	}, Credential{APIKey: "relay-key-42", Headers: map[string]string{"X-Org": "acme"}}))
	require.NoError(t, store.SetActiveProvider(ctx, "openai", "gpt-4o"))
}

func TestExportImportWithSecrets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := newStore(t)
	seedProviders(t, src)

	payload, err := src.Export(ctx, "correct horse battery", true)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "sk-live-1234567890",
		"secret material must never appear in the export payload")
	assert.NotContains(t, string(payload), "relay-key-42")

	dst := newStore(t)
	require.NoError(t, dst.Import(ctx, payload, "correct horse battery"))

	cfg, err := dst.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.ActiveProvider)
	assert.Equal(t, "gpt-4o", cfg.ActiveModel)
	assert.Len(t, cfg.Providers, 2)
	assert.Contains(t, cfg.Providers, "local-relay")

	cred, err := dst.Secret(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-live-1234567890", cred.APIKey)

	cred, err = dst.Secret(ctx, "local-relay")
	require.NoError(t, err)
	assert.Equal(t, "relay-key-42", cred.APIKey)
	assert.Equal(t, "acme", cred.Headers["X-Org"])

	// Secrets are re-encrypted under the destination's own master key.
	srcKey, err := os.ReadFile(src.KeyPath())
	require.NoError(t, err)
	dstKey, err := os.ReadFile(dst.KeyPath())
	require.NoError(t, err)
	assert.NotEqual(t, srcKey, dstKey)
}

func TestExportPlain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := newStore(t)
	seedProviders(t, src)

	payload, err := src.Export(ctx, "", false)
	require.NoError(t, err)
	text := string(payload)
	assert.Contains(t, text, "format: sourcerer-export")
	assert.Contains(t, text, "openai")
	assert.NotContains(t, text, "sk-live-1234567890")
	assert.NotContains(t, text, "secrets:")
}

func TestExportSecretsRequiresPassphrase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := newStore(t)
	seedProviders(t, src)

	_, err := src.Export(ctx, "", true)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestImportWrongPassphrase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := newStore(t)
	seedProviders(t, src)

	payload, err := src.Export(ctx, "right", true)
	require.NoError(t, err)

	dst := newStore(t)
	err = dst.Import(ctx, payload, "wrong")
	assert.ErrorIs(t, err, ErrDecryption)
	assert.True(t, dst.FirstRun(), "nothing may be written on a failed import")
}

func TestImportRejectsGarbage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dst := newStore(t)

	err := dst.Import(ctx, []byte("::: not yaml :::"), "")
	assert.ErrorIs(t, err, ErrValidation)

	err = dst.Import(ctx, []byte("format: something-else\nconfig: {}\n"), "")
	assert.ErrorIs(t, err, ErrValidation)

	err = dst.Import(ctx, []byte("AAAA"), "passphrase")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestImportPlainKeepsLocalSecrets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := newStore(t)
	require.NoError(t, src.SetProvider(ctx, ProviderRecord{ID: "openai", Type: TypeBuiltIn},
		Credential{APIKey: "ignored"}))
	payload, err := src.Export(ctx, "", false)
	require.NoError(t, err)

	dst := newStore(t)
	require.NoError(t, dst.SetProvider(ctx, ProviderRecord{ID: "openai", Type: TypeBuiltIn},
		Credential{APIKey: "sk-local"}))
	require.NoError(t, dst.SetProvider(ctx, ProviderRecord{ID: "anthropic", Type: TypeBuiltIn},
		Credential{APIKey: "sk-dropped"}))

	require.NoError(t, dst.Import(ctx, payload, ""))

	cfg, err := dst.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, cfg.Providers, 1)
	assert.Contains(t, cfg.Providers, "openai")

	// The surviving provider keeps its local credential; the removed
	// provider loses its secret in the same transaction.
	cred, err := dst.Secret(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-local", cred.APIKey)
	_, err = dst.Secret(ctx, "anthropic")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportMigratesOldBundle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dst := newStore(t)

	// A bundle written by a version-1 installation carries the inline
	// credential layout.
	bundle := `format: sourcerer-export
bundle_id: 00000000-0000-0000-0000-000000000000
app_version: 0.1.0
created_at: 2024-01-01T00:00:00Z
config:
  version: 1
  active_provider: openai
  providers:
    openai:
      id: openai
      type: built_in
      alias: OpenAI
      base_url: https://api.openai.com/v1/
      api_key: sk-from-v1-bundle
`
	require.NoError(t, dst.Import(ctx, []byte(bundle), ""))

	cfg, err := dst.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Providers["openai"].BaseURL)

	cred, err := dst.Secret(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-v1-bundle", cred.APIKey,
		"inline credentials must be lifted into the secret store")

	raw, err := os.ReadFile(dst.DocumentPath())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-from-v1-bundle")
}
