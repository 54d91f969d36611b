// Package tag provides standardized tag functions for structured logging.
//
// Use these functions instead of raw strings to keep log keys consistent
// across the codebase.
package tag

import (
	"log/slog"
	"time"
)

// Error creates a tag for error objects.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// Provider creates a tag for provider ids.
func Provider(id string) slog.Attr {
	return slog.String("provider", id)
}

// Path creates a tag for file system paths.
func Path(p string) slog.Attr {
	return slog.String("path", p)
}

// SchemaVersion creates a tag for configuration schema versions.
func SchemaVersion(v int) slog.Attr {
	return slog.Int("schema-version", v)
}

// Count creates a tag for generic counts.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Addr creates a tag for network addresses.
func Addr(addr string) slog.Attr {
	return slog.String("addr", addr)
}

// Duration creates a tag for elapsed times.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Model creates a tag for model ids.
func Model(id string) slog.Attr {
	return slog.String("model", id)
}
