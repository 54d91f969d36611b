package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcerer-app/sourcerer/internal/settings"
)

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	require.Nil(t, ts.parse(t, w, &data))
	assert.Equal(t, "healthy", data.Status)
	assert.NotEmpty(t, data.Version)
}

func TestFirstRunEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var data map[string]bool
	w := ts.request(t, http.MethodGet, "/api/v1/config/first-run", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, ts.parse(t, w, &data))
	assert.True(t, data["first_run"])

	ts.createCustomProvider(t, "corp-llm", "key-abcdef-123456")

	w = ts.request(t, http.MethodGet, "/api/v1/config/first-run", nil)
	require.Nil(t, ts.parse(t, w, &data))
	assert.False(t, data["first_run"])
}

func TestGetConfigMasksSecrets(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.store.SetProvider(context.Background(),
		settings.ProviderRecord{ID: "openai", Type: settings.TypeBuiltIn},
		settings.Credential{APIKey: "sk-super-secret-0042"},
	))

	w := ts.request(t, http.MethodGet, "/api/v1/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-super-secret-0042")

	var data struct {
		Version   int `json:"version"`
		Providers map[string]struct {
			APIKeyDisplay string `json:"api_key_display"`
		} `json:"providers"`
	}
	require.Nil(t, ts.parse(t, w, &data))
	assert.Equal(t, settings.CurrentVersion, data.Version)
	assert.Equal(t, "sk****0042", data.Providers["openai"].APIKeyDisplay)
}

func TestValidateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.createCustomProvider(t, "corp-llm", "key-abcdef-123456")

	w := ts.request(t, http.MethodGet, "/api/v1/config/validate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	require.Nil(t, ts.parse(t, w, &data))
	assert.True(t, data.Valid)
	assert.Empty(t, data.Errors)
}

func TestSetActiveProviderEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.createCustomProvider(t, "corp-llm", "key-abcdef-123456")

	t.Run("known provider", func(t *testing.T) {
		w := ts.request(t, http.MethodPut, "/api/v1/config/active-provider", map[string]string{
			"provider_id": "corp-llm",
			"model_id":    "corp-model-1",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var data map[string]string
		require.Nil(t, ts.parse(t, w, &data))
		assert.Equal(t, "corp-llm", data["active_provider"])
		assert.Equal(t, "corp-model-1", data["active_model"])
	})

	t.Run("unknown provider", func(t *testing.T) {
		w := ts.request(t, http.MethodPut, "/api/v1/config/active-provider", map[string]string{
			"provider_id": "ghost",
		})
		require.Equal(t, http.StatusNotFound, w.Code)

		apiErr := ts.parse(t, w, nil)
		require.NotNil(t, apiErr)
		assert.Equal(t, codeNotFound, apiErr.Code)
	})
}

func TestUpdateInferenceEndpoint(t *testing.T) {
	ts := newTestServer(t)

	t.Run("explicit zero survives the merge", func(t *testing.T) {
		w := ts.request(t, http.MethodPut, "/api/v1/config/inference", map[string]any{
			"temperature": 0,
			"max_tokens":  2048,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var data settings.Inference
		require.Nil(t, ts.parse(t, w, &data))
		assert.Zero(t, data.Temperature)
		assert.Equal(t, 2048, data.MaxTokens)
		assert.Equal(t, 1.0, data.TopP)
		assert.True(t, data.Streaming)
	})

	t.Run("omitted fields keep prior values", func(t *testing.T) {
		w := ts.request(t, http.MethodPut, "/api/v1/config/inference", map[string]any{
			"streaming": false,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var data settings.Inference
		require.Nil(t, ts.parse(t, w, &data))
		assert.False(t, data.Streaming)
		assert.Zero(t, data.Temperature)
		assert.Equal(t, 2048, data.MaxTokens)
	})
}

func TestUpdateImageGenerationEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodPut, "/api/v1/config/image-generation", map[string]any{
		"enabled": true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var data settings.ImageGeneration
	require.Nil(t, ts.parse(t, w, &data))
	assert.True(t, data.Enabled)
	assert.Equal(t, "openai", data.Provider)
	assert.Equal(t, "dall-e-3", data.Model)
}

func TestOnboardingCompleteEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodPut, "/api/v1/config/onboarding-complete", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data map[string]bool
	require.Nil(t, ts.parse(t, w, &data))
	assert.True(t, data["onboarding_complete"])

	var view struct {
		OnboardingComplete bool `json:"onboarding_complete"`
	}
	w = ts.request(t, http.MethodGet, "/api/v1/config", nil)
	require.Nil(t, ts.parse(t, w, &view))
	assert.True(t, view.OnboardingComplete)
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	w := ts.requestRaw(t, http.MethodPut, "/api/v1/config/inference", strings.NewReader("{not json"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	apiErr := ts.parse(t, w, nil)
	require.NotNil(t, apiErr)
	assert.Equal(t, codeBadRequest, apiErr.Code)
}
