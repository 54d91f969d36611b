package config

import (
	"fmt"
	"time"
)

// Config holds the overall configuration for the application.
type Config struct {
	Core     Core
	Server   Server
	Paths    PathsConfig
	Store    StoreConfig
	Probe    ProbeConfig
	Warnings []string
}

// Core contains global configuration settings.
type Core struct {
	Debug         bool
	Quiet         bool
	LogFormat     string // "json" or "text"
	TZ            string // e.g., "UTC", "America/New_York"
	TzOffsetInSec int
	Location      *time.Location
}

// Server contains the API server configuration.
type Server struct {
	Host            string
	Port            int
	BasePath        string // URL path for reverse proxy subpath hosting
	APIBasePath     string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	TLS             *TLSConfig
	Auth            Auth
	CORS            CORSConfig
}

// Auth represents the authentication configuration.
type Auth struct {
	Basic AuthBasic
	Token AuthToken
}

// Enabled reports whether any authentication scheme is configured.
func (a Auth) Enabled() bool {
	return a.Basic.Enabled() || a.Token.Enabled()
}

// AuthBasic represents basic authentication credentials.
type AuthBasic struct {
	Username string
	Password string
}

// Enabled reports whether basic authentication is configured.
func (b AuthBasic) Enabled() bool {
	return b.Username != "" && b.Password != ""
}

// AuthToken represents static API token authentication.
type AuthToken struct {
	Value string
}

// Enabled reports whether token authentication is configured.
func (t AuthToken) Enabled() bool {
	return t.Value != ""
}

// TLSConfig represents TLS configuration.
type TLSConfig struct {
	CertFile string
	KeyFile  string
	CAFile   string
}

// CORSConfig represents cross-origin access configuration.
type CORSConfig struct {
	Enabled        bool
	AllowedOrigins []string
}

// PathsConfig represents the filesystem paths configuration.
type PathsConfig struct {
	DataDir        string
	LogDir         string
	CacheDir       string
	ConfigFileUsed string
}

// StoreConfig tunes the provider configuration store.
type StoreConfig struct {
	LockTimeout     time.Duration
	BackupRetention int
}

// ProbeConfig tunes outbound provider connectivity checks.
type ProbeConfig struct {
	Timeout time.Duration
}

// Validate ensures required fields are set and numerical values fall within
// acceptable ranges.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", c.Server.Port)
	}
	if c.Server.TLS != nil {
		if c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("TLS configuration incomplete: both cert and key files are required")
		}
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("requestTimeout must not be negative")
	}
	return nil
}

func (c *Config) validateAuth() error {
	basic := c.Server.Auth.Basic
	if (basic.Username == "") != (basic.Password == "") {
		return fmt.Errorf("basic auth requires both username and password to be set")
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.LockTimeout <= 0 {
		return fmt.Errorf("store.lockTimeout must be positive")
	}
	if c.Store.BackupRetention < 0 {
		return fmt.Errorf("store.backupRetention must not be negative")
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}
	return nil
}
