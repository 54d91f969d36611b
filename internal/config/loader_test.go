package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoad(t *testing.T, opts ...ConfigLoaderOption) *Config {
	t.Helper()
	cfg, err := NewConfigLoader(viper.New(), opts...).Load()
	require.NoError(t, err)
	return cfg
}

func testLoadWithError(t *testing.T, opts ...ConfigLoaderOption) error {
	t.Helper()
	_, err := NewConfigLoader(viper.New(), opts...).Load()
	return err
}

func TestLoadDefaults(t *testing.T) {
	appHome := t.TempDir()
	cfg := testLoad(t, WithAppHomeDir(appHome))

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Empty(t, cfg.Server.BasePath)
	assert.Equal(t, "/api/v1", cfg.Server.APIBasePath)
	assert.Equal(t, 2*time.Minute, cfg.Server.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Server.Auth.Enabled())
	assert.Nil(t, cfg.Server.TLS)
	assert.False(t, cfg.Server.CORS.Enabled)

	assert.Equal(t, "text", cfg.Core.LogFormat)
	assert.False(t, cfg.Core.Debug)

	assert.Equal(t, appHome, cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(appHome, "logs"), cfg.Paths.LogDir)
	assert.Equal(t, filepath.Join(appHome, "cache"), cfg.Paths.CacheDir)

	assert.Equal(t, 10*time.Second, cfg.Store.LockTimeout)
	assert.Equal(t, 20, cfg.Store.BackupRetention)
	assert.Equal(t, 30*time.Second, cfg.Probe.Timeout)
}

func TestLoad_Env(t *testing.T) {
	appHome := t.TempDir()

	testEnvs := map[string]string{
		"SOURCERER_HOST":                "0.0.0.0",
		"SOURCERER_PORT":                "9876",
		"SOURCERER_DEBUG":               "true",
		"SOURCERER_LOG_FORMAT":          "json",
		"SOURCERER_BASE_PATH":           "/apps/sourcerer",
		"SOURCERER_AUTH_BASIC_USERNAME": "admin",
		"SOURCERER_AUTH_BASIC_PASSWORD": "hunter2",
		"SOURCERER_AUTH_TOKEN":          "secret-token",
		"SOURCERER_STORE_LOCK_TIMEOUT":  "250ms",
		"SOURCERER_PROBE_TIMEOUT":       "5s",
	}
	for key, val := range testEnvs {
		t.Setenv(key, val)
	}

	cfg := testLoad(t, WithAppHomeDir(appHome))

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9876, cfg.Server.Port)
	assert.True(t, cfg.Core.Debug)
	assert.Equal(t, "json", cfg.Core.LogFormat)
	assert.Equal(t, "/apps/sourcerer", cfg.Server.BasePath)
	assert.Equal(t, "admin", cfg.Server.Auth.Basic.Username)
	assert.Equal(t, "hunter2", cfg.Server.Auth.Basic.Password)
	assert.Equal(t, "secret-token", cfg.Server.Auth.Token.Value)
	assert.True(t, cfg.Server.Auth.Enabled())
	assert.Equal(t, 250*time.Millisecond, cfg.Store.LockTimeout)
	assert.Equal(t, 5*time.Second, cfg.Probe.Timeout)
}

func TestLoadConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")
	configContent := `
host: 192.168.1.10
port: 7000
logFormat: json
basePath: dashboard
requestTimeout: 45s
auth:
  token:
    value: file-token
cors:
  enabled: true
paths:
  dataDir: ` + filepath.Join(tempDir, "data") + `
store:
  lockTimeout: 1m
  backupRetention: 5
probe:
  timeout: 90s
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0600))

	cfg := testLoad(t, WithConfigFile(configFile))

	assert.Equal(t, "192.168.1.10", cfg.Server.Host)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Core.LogFormat)
	assert.Equal(t, "/dashboard", cfg.Server.BasePath, "relative base paths are rooted")
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "file-token", cfg.Server.Auth.Token.Value)
	assert.True(t, cfg.Server.CORS.Enabled)
	assert.Equal(t, []string{"*"}, cfg.Server.CORS.AllowedOrigins)
	assert.Equal(t, filepath.Join(tempDir, "data"), cfg.Paths.DataDir)
	assert.Equal(t, time.Minute, cfg.Store.LockTimeout)
	assert.Equal(t, 5, cfg.Store.BackupRetention)
	assert.Equal(t, 90*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, configFile, cfg.Paths.ConfigFileUsed)
}

func TestLoadDotEnv(t *testing.T) {
	// Guard the variable so the testing framework restores it afterwards;
	// godotenv writes to the real process environment.
	t.Setenv("SOURCERER_PORT", "1111")

	appHome := t.TempDir()
	envFile := filepath.Join(appHome, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SOURCERER_PORT=9123\n"), 0600))

	cfg := testLoad(t, WithAppHomeDir(appHome))

	assert.Equal(t, 9123, cfg.Server.Port, ".env overrides the inherited environment")
}

func TestLoadBasePathNormalization(t *testing.T) {
	tests := []struct {
		name     string
		basePath string
		want     string
	}{
		{"Empty", "", ""},
		{"Root", "/", ""},
		{"Relative", "ui", "/ui"},
		{"TrailingSlash", "/ui/", "/ui"},
		{"DoubleSlash", "//ui//nested", "/ui/nested"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanServerBasePath(tc.basePath))
		})
	}
}

func TestLoadValidationErrors(t *testing.T) {
	t.Run("InvalidPort", func(t *testing.T) {
		t.Setenv("SOURCERER_PORT", "70000")
		err := testLoadWithError(t, WithAppHomeDir(t.TempDir()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid port number")
	})

	t.Run("HalfConfiguredBasicAuth", func(t *testing.T) {
		t.Setenv("SOURCERER_AUTH_BASIC_USERNAME", "admin")
		err := testLoadWithError(t, WithAppHomeDir(t.TempDir()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "basic auth requires both username and password")
	})

	t.Run("IncompleteTLS", func(t *testing.T) {
		tempDir := t.TempDir()
		configFile := filepath.Join(tempDir, "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("tls:\n  certFile: /tmp/cert.pem\n"), 0600))
		err := testLoadWithError(t, WithConfigFile(configFile))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TLS configuration incomplete")
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		tempDir := t.TempDir()
		configFile := filepath.Join(tempDir, "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("host: [unclosed"), 0600))
		err := testLoadWithError(t, WithConfigFile(configFile))
		require.Error(t, err)
	})
}

func TestLoadTimezone(t *testing.T) {
	t.Setenv("SOURCERER_TZ", "Europe/Berlin")

	cfg := testLoad(t, WithAppHomeDir(t.TempDir()))

	berlinLoc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	_, berlinOffset := time.Now().In(berlinLoc).Zone()

	assert.Equal(t, "Europe/Berlin", cfg.Core.TZ)
	assert.Equal(t, berlinOffset, cfg.Core.TzOffsetInSec)
	assert.Equal(t, berlinLoc.String(), cfg.Core.Location.String())
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("SOURCERER_CORS_ENABLED", "true")
	t.Setenv("SOURCERER_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg := testLoad(t, WithAppHomeDir(t.TempDir()))

	assert.True(t, cfg.Server.CORS.Enabled)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORS.AllowedOrigins)
}
