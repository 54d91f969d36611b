package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sourcerer-app/sourcerer/internal/build"
	"github.com/sourcerer-app/sourcerer/internal/fileutil"
)

// Paths holds the filesystem locations resolved for the application.
type Paths struct {
	// ConfigDir is the directory searched for config.yaml and .env.
	ConfigDir string
	// DataDir is the root for the provider store (config/ and backups/ live under it).
	DataDir string
	// LogsDir is the directory where log files are written.
	LogsDir string
	// CacheDir is the directory for disposable data such as probe caches.
	CacheDir string
	// Warnings collects any warnings encountered during path resolution.
	Warnings []string
}

// XDGConfig contains the standard XDG base directories used as a fallback.
type XDGConfig struct {
	DataHome   string
	ConfigHome string
	CacheHome  string
}

// ResolvePaths determines application paths from the app home environment
// variable, a legacy home directory, and the XDG base directories.
//
// Resolution order:
//  1. If appHomeEnv is set, every path lives under its value.
//  2. Else, if legacyPath exists on disk, use it and warn that the layout is deprecated.
//  3. Otherwise fall back to XDG-compliant defaults.
func ResolvePaths(appHomeEnv, legacyPath string, xdg XDGConfig) Paths {
	switch {
	case os.Getenv(appHomeEnv) != "":
		return setUnifiedPaths(os.Getenv(appHomeEnv))
	case fileutil.FileExists(legacyPath):
		paths := setUnifiedPaths(legacyPath)
		paths.Warnings = append(paths.Warnings, fmt.Sprintf(
			"Using legacy directory %s; move it or set %s to silence this warning",
			legacyPath, appHomeEnv))
		return paths
	default:
		return setXDGPaths(xdg)
	}
}

// setXDGPaths spreads application data across the XDG base directories.
func setXDGPaths(xdg XDGConfig) Paths {
	return Paths{
		ConfigDir: filepath.Join(xdg.ConfigHome, build.Slug),
		DataDir:   filepath.Join(xdg.DataHome, build.Slug),
		LogsDir:   filepath.Join(xdg.DataHome, build.Slug, "logs"),
		CacheDir:  filepath.Join(xdg.CacheHome, build.Slug),
	}
}

// setUnifiedPaths places every path under a single application home directory.
func setUnifiedPaths(appHome string) Paths {
	appHome = fileutil.MustResolvePath(appHome)
	return Paths{
		ConfigDir: appHome,
		DataDir:   appHome,
		LogsDir:   filepath.Join(appHome, "logs"),
		CacheDir:  filepath.Join(appHome, "cache"),
	}
}
