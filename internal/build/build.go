// Package build holds version and naming metadata injected at build time.
package build

import "strings"

var (
	// Version is overridden via -ldflags at release time.
	Version = "dev"
	AppName = "Sourcerer"
	Slug    = ""
)

func init() {
	if Slug == "" {
		Slug = strings.ToLower(AppName)
	}
}

// UserAgent identifies this binary in outbound HTTP requests.
func UserAgent() string {
	return AppName + "/" + Version
}
