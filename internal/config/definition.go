package config

import "time"

// Definition holds the raw application configuration as read from external
// sources (YAML file, environment variables, defaults). Each field maps to a
// configuration key; pointer fields distinguish "unset" from zero values.
type Definition struct {
	// Host defines the hostname or IP address the API server binds to.
	Host string `mapstructure:"host"`

	// Port specifies the network port for incoming connections.
	Port int `mapstructure:"port"`

	// Debug toggles debug mode; when true the application emits extra logs.
	Debug bool `mapstructure:"debug"`

	// Quiet suppresses non-error output on the console.
	Quiet bool `mapstructure:"quiet"`

	// BasePath is the root URL path from which the application is served.
	// Useful when hosting behind a reverse proxy under a subpath.
	BasePath string `mapstructure:"basePath"`

	// APIBasePath sets the base path for all API endpoints.
	APIBasePath string `mapstructure:"apiBasePath"`

	// LogFormat defines the log output format: "json" or "text".
	LogFormat string `mapstructure:"logFormat"`

	// TZ is the timezone the application operates in (for example "UTC").
	TZ string `mapstructure:"tz"`

	// RequestTimeout bounds the handling of a single API request.
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`

	// ShutdownTimeout bounds graceful shutdown of the API server.
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`

	// Auth contains authentication settings for the API server.
	Auth *AuthDef `mapstructure:"auth"`

	// TLS holds certificate and key paths for serving HTTPS.
	TLS *TLSDef `mapstructure:"tls"`

	// CORS configures cross-origin access to the API.
	CORS *CORSDef `mapstructure:"cors"`

	// Paths holds filesystem path overrides.
	Paths *PathsDef `mapstructure:"paths"`

	// Store tunes the provider configuration store.
	Store *StoreDef `mapstructure:"store"`

	// Probe tunes outbound provider connectivity checks.
	Probe *ProbeDef `mapstructure:"probe"`
}

// AuthDef holds the authentication configuration.
type AuthDef struct {
	Basic *AuthBasicDef `mapstructure:"basic"`
	Token *AuthTokenDef `mapstructure:"token"`
}

// AuthBasicDef represents the basic authentication credentials.
type AuthBasicDef struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthTokenDef represents the API token configuration.
type AuthTokenDef struct {
	Value string `mapstructure:"value"`
}

// TLSDef represents TLS configuration.
type TLSDef struct {
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`
}

// CORSDef represents the cross-origin configuration.
type CORSDef struct {
	Enabled        *bool    `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// PathsDef represents the filesystem paths configuration.
type PathsDef struct {
	DataDir string `mapstructure:"dataDir"`
	LogDir  string `mapstructure:"logDir"`
}

// StoreDef tunes the provider configuration store.
type StoreDef struct {
	// LockTimeout bounds how long a writer waits for the store lock.
	LockTimeout time.Duration `mapstructure:"lockTimeout"`

	// BackupRetention caps how many backups are kept per file.
	BackupRetention *int `mapstructure:"backupRetention"`
}

// ProbeDef tunes provider connectivity checks.
type ProbeDef struct {
	// Timeout bounds a single model-listing or auth-check request.
	Timeout time.Duration `mapstructure:"timeout"`
}
