package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sourcerer-app/sourcerer/internal/build"
	"github.com/sourcerer-app/sourcerer/internal/fileutil"
)

// UsedConfigFile stores the path of the configuration file most recently
// loaded, for diagnostics.
var UsedConfigFile atomic.Value

// ConfigLoader reads and merges configuration from various sources.
type ConfigLoader struct {
	v             *viper.Viper
	configFile    string
	appHomeDir    string
	warnings      []string
	resolvedPaths Paths
}

// ConfigLoaderOption defines a functional option for configuring a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigFile returns a ConfigLoaderOption that sets an explicit
// configuration file path.
func WithConfigFile(configFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configFile = configFile
	}
}

// WithAppHomeDir returns a ConfigLoaderOption that places every application
// path under the given directory, overriding the default resolution.
func WithAppHomeDir(dir string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.appHomeDir = dir
	}
}

// NewConfigLoader creates a ConfigLoader with the given viper instance and
// options. Passing a fresh viper instance keeps loads isolated from each
// other, which matters in tests.
func NewConfigLoader(v *viper.Viper, options ...ConfigLoaderOption) *ConfigLoader {
	loader := &ConfigLoader{v: v}
	for _, opt := range options {
		opt(loader)
	}
	return loader
}

// Load creates a configuration by instantiating a ConfigLoader with the
// provided options and invoking its Load method.
func Load(opts ...ConfigLoaderOption) (*Config, error) {
	loader := NewConfigLoader(viper.New(), opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Load reads configuration files, applies defaults and environment
// overrides, and returns a validated Config instance.
func (l *ConfigLoader) Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}

	xdgConfig := XDGConfig{
		DataHome:   xdg.DataHome,
		ConfigHome: filepath.Join(homeDir, ".config"),
		CacheHome:  xdg.CacheHome,
	}

	var paths Paths
	if l.appHomeDir != "" {
		paths = setUnifiedPaths(l.appHomeDir)
	} else {
		paths = ResolvePaths(strings.ToUpper(build.Slug)+"_HOME", filepath.Join(homeDir, "."+build.Slug), xdgConfig)
	}
	l.resolvedPaths = paths
	l.warnings = append(l.warnings, paths.Warnings...)

	// A .env next to the config file can override the process environment,
	// so it must be loaded before viper binds environment variables.
	l.loadDotEnv(paths.ConfigDir)

	l.configureViper(paths.ConfigDir, l.configFile)
	l.bindEnvironmentVariables()
	l.setViperDefaultValues(paths)

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	configFileUsed, err := l.resolvePath("config file", l.v.ConfigFileUsed())
	if err != nil {
		return nil, err
	}

	var def Definition
	if err := l.v.Unmarshal(&def, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := l.buildConfig(def)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	cfg.Paths.ConfigFileUsed = configFileUsed
	cfg.Warnings = l.warnings
	if configFileUsed != "" {
		UsedConfigFile.Store(configFileUsed)
	}

	return cfg, nil
}

// loadDotEnv overlays the process environment with entries from a .env file
// in the config directory, if one exists.
func (l *ConfigLoader) loadDotEnv(configDir string) {
	envFile := filepath.Join(configDir, ".env")
	if !fileutil.FileExists(envFile) {
		return
	}
	if err := godotenv.Overload(envFile); err != nil {
		l.warnings = append(l.warnings, fmt.Sprintf("Failed to load %s: %v", envFile, err))
	}
}

func (l *ConfigLoader) configureViper(configDir, configFile string) {
	if configFile == "" {
		l.v.AddConfigPath(configDir)
		l.v.SetConfigName("config")
	} else {
		l.v.SetConfigFile(configFile)
	}
	l.v.SetConfigType("yaml")
	l.v.SetEnvPrefix(strings.ToUpper(build.Slug))
	l.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	l.v.AutomaticEnv()
}

func (l *ConfigLoader) setViperDefaultValues(paths Paths) {
	// Server
	l.v.SetDefault("host", "127.0.0.1")
	l.v.SetDefault("port", 8000)
	l.v.SetDefault("debug", false)
	l.v.SetDefault("quiet", false)
	l.v.SetDefault("basePath", "")
	l.v.SetDefault("apiBasePath", "/api/v1")
	l.v.SetDefault("logFormat", "text")
	l.v.SetDefault("requestTimeout", "2m")
	l.v.SetDefault("shutdownTimeout", "10s")

	// Paths
	l.v.SetDefault("paths.dataDir", paths.DataDir)
	l.v.SetDefault("paths.logDir", paths.LogsDir)

	// Store
	l.v.SetDefault("store.lockTimeout", "10s")
	l.v.SetDefault("store.backupRetention", 20)

	// Probe
	l.v.SetDefault("probe.timeout", "30s")
}

type envBinding struct {
	key    string
	env    string
	isPath bool
}

var envBindings = []envBinding{
	// Server
	{key: "host", env: "HOST"},
	{key: "port", env: "PORT"},
	{key: "debug", env: "DEBUG"},
	{key: "quiet", env: "QUIET"},
	{key: "basePath", env: "BASE_PATH"},
	{key: "apiBasePath", env: "API_BASE_PATH"},
	{key: "logFormat", env: "LOG_FORMAT"},
	{key: "tz", env: "TZ"},
	{key: "requestTimeout", env: "REQUEST_TIMEOUT"},
	{key: "shutdownTimeout", env: "SHUTDOWN_TIMEOUT"},

	// Auth
	{key: "auth.basic.username", env: "AUTH_BASIC_USERNAME"},
	{key: "auth.basic.password", env: "AUTH_BASIC_PASSWORD"},
	{key: "auth.token.value", env: "AUTH_TOKEN"},

	// TLS
	{key: "tls.certFile", env: "CERT_FILE", isPath: true},
	{key: "tls.keyFile", env: "KEY_FILE", isPath: true},

	// CORS
	{key: "cors.enabled", env: "CORS_ENABLED"},
	{key: "cors.allowedOrigins", env: "CORS_ALLOWED_ORIGINS"},

	// Paths
	{key: "paths.dataDir", env: "DATA_DIR", isPath: true},
	{key: "paths.logDir", env: "LOG_DIR", isPath: true},

	// Store
	{key: "store.lockTimeout", env: "STORE_LOCK_TIMEOUT"},
	{key: "store.backupRetention", env: "STORE_BACKUP_RETENTION"},

	// Probe
	{key: "probe.timeout", env: "PROBE_TIMEOUT"},
}

func (l *ConfigLoader) bindEnvironmentVariables() {
	prefix := strings.ToUpper(build.Slug) + "_"

	for _, b := range envBindings {
		fullEnv := prefix + b.env

		if b.isPath {
			if val := os.Getenv(fullEnv); val != "" {
				if abs, err := filepath.Abs(val); err == nil && abs != val {
					_ = os.Setenv(fullEnv, abs)
				}
			}
		}

		_ = l.v.BindEnv(b.key, fullEnv)
	}
}

// buildConfig transforms the Definition into a validated Config structure.
func (l *ConfigLoader) buildConfig(def Definition) (*Config, error) {
	var cfg Config

	if err := l.loadCoreConfig(&cfg, def); err != nil {
		return nil, err
	}
	if err := l.loadPathsConfig(&cfg, def); err != nil {
		return nil, err
	}
	l.loadServerConfig(&cfg, def)
	l.loadStoreConfig(&cfg, def)
	l.loadProbeConfig(&cfg, def)
	l.finalizePaths(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (l *ConfigLoader) loadCoreConfig(cfg *Config, def Definition) error {
	cfg.Core = Core{
		Debug:     def.Debug,
		Quiet:     def.Quiet,
		LogFormat: def.LogFormat,
		TZ:        def.TZ,
	}

	if err := setTimezone(&cfg.Core); err != nil {
		return fmt.Errorf("failed to set timezone: %w", err)
	}

	return nil
}

func (l *ConfigLoader) loadPathsConfig(cfg *Config, def Definition) error {
	if def.Paths == nil {
		return nil
	}

	pathMappings := []struct {
		name   string
		target *string
		source string
	}{
		{"DataDir", &cfg.Paths.DataDir, def.Paths.DataDir},
		{"LogDir", &cfg.Paths.LogDir, def.Paths.LogDir},
	}

	for _, m := range pathMappings {
		resolved, err := l.resolvePath(m.name, m.source)
		if err != nil {
			return err
		}
		*m.target = resolved
	}

	return nil
}

// finalizePaths fills in any path that neither the config file nor the
// environment provided.
func (l *ConfigLoader) finalizePaths(cfg *Config) {
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = l.resolvedPaths.DataDir
	}
	if cfg.Paths.LogDir == "" {
		cfg.Paths.LogDir = l.resolvedPaths.LogsDir
	}
	cfg.Paths.CacheDir = l.resolvedPaths.CacheDir
}

func (l *ConfigLoader) loadServerConfig(cfg *Config, def Definition) {
	cfg.Server = Server{
		Host:            def.Host,
		Port:            def.Port,
		BasePath:        cleanServerBasePath(def.BasePath),
		APIBasePath:     cleanServerBasePath(def.APIBasePath),
		RequestTimeout:  def.RequestTimeout,
		ShutdownTimeout: def.ShutdownTimeout,
	}
	if cfg.Server.APIBasePath == "" {
		cfg.Server.APIBasePath = "/api/v1"
	}

	l.loadServerAuth(cfg, def)
	l.loadServerTLS(cfg, def)
	l.loadServerCORS(cfg, def)
}

func (l *ConfigLoader) loadServerAuth(cfg *Config, def Definition) {
	if def.Auth == nil {
		return
	}
	if def.Auth.Basic != nil {
		cfg.Server.Auth.Basic.Username = def.Auth.Basic.Username
		cfg.Server.Auth.Basic.Password = def.Auth.Basic.Password
	}
	if def.Auth.Token != nil {
		cfg.Server.Auth.Token.Value = def.Auth.Token.Value
	}
}

func (l *ConfigLoader) loadServerTLS(cfg *Config, def Definition) {
	if def.TLS == nil {
		return
	}
	cfg.Server.TLS = &TLSConfig{
		CertFile: def.TLS.CertFile,
		KeyFile:  def.TLS.KeyFile,
		CAFile:   def.TLS.CAFile,
	}
}

func (l *ConfigLoader) loadServerCORS(cfg *Config, def Definition) {
	if def.CORS == nil {
		return
	}
	if def.CORS.Enabled != nil {
		cfg.Server.CORS.Enabled = *def.CORS.Enabled
	}
	cfg.Server.CORS.AllowedOrigins = parseStringList(def.CORS.AllowedOrigins)
	if cfg.Server.CORS.Enabled && len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}
}

func (l *ConfigLoader) loadStoreConfig(cfg *Config, def Definition) {
	cfg.Store = StoreConfig{
		LockTimeout:     10 * time.Second,
		BackupRetention: 20,
	}
	if def.Store == nil {
		return
	}
	if def.Store.LockTimeout > 0 {
		cfg.Store.LockTimeout = def.Store.LockTimeout
	}
	if def.Store.BackupRetention != nil {
		cfg.Store.BackupRetention = *def.Store.BackupRetention
	}
}

func (l *ConfigLoader) loadProbeConfig(cfg *Config, def Definition) {
	cfg.Probe = ProbeConfig{Timeout: 30 * time.Second}
	if def.Probe == nil {
		return
	}
	if def.Probe.Timeout > 0 {
		cfg.Probe.Timeout = def.Probe.Timeout
	}
}

// resolvePath resolves a path to an absolute path. Empty paths are returned
// as-is.
func (l *ConfigLoader) resolvePath(fieldName, pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	resolved, err := fileutil.ResolvePath(pathValue)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s path %q: %w", fieldName, pathValue, err)
	}
	return resolved, nil
}

// parseStringList filters empty entries from a string slice, trimming
// whitespace around each entry.
func parseStringList(input []string) []string {
	var result []string
	for _, s := range input {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func cleanServerBasePath(s string) string {
	if s == "" {
		return ""
	}

	cleanPath := path.Clean(s)
	if !path.IsAbs(cleanPath) {
		cleanPath = path.Join("/", cleanPath)
	}

	// Root path is equivalent to no base path.
	if cleanPath == "/" {
		return ""
	}
	return cleanPath
}
