package settings

import "strings"

// ObfuscateKey renders an API key safe for display: first two and last
// four characters with the middle collapsed. Keys too short to split are
// fully masked so nothing of them leaks.
func ObfuscateKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 6 {
		return strings.Repeat("*", len(key))
	}
	return key[:2] + "****" + key[len(key)-4:]
}
