package settings

import (
	"fmt"
	"sort"

	"github.com/sourcerer-app/sourcerer/internal/llm"
)

// Validate checks the document invariants against the given secret key
// set and returns one message per violation. An empty slice means the
// document is consistent. Save refuses to persist any violation; the
// validation report endpoint exposes the same messages read-only.
func Validate(cfg *Config, secretIDs []string) []string {
	var errs []string
	if cfg == nil {
		return []string{"configuration document is missing"}
	}

	if cfg.Version <= 0 {
		errs = append(errs, fmt.Sprintf("schema version must be positive, got %d", cfg.Version))
	}

	ids := make([]string, 0, len(cfg.Providers))
	for id := range cfg.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rec := cfg.Providers[id]
		if rec.ID != "" && rec.ID != id {
			errs = append(errs, fmt.Sprintf("provider %q: record id %q does not match its map key", id, rec.ID))
		}
		switch rec.Type {
		case TypeBuiltIn:
			if _, err := llm.ParseProviderType(id); err != nil {
				errs = append(errs, fmt.Sprintf("provider %q: not a known built-in type", id))
			}
		case TypeCustom:
			if rec.BaseURL == "" {
				errs = append(errs, fmt.Sprintf("provider %q: custom providers require a base_url", id))
			}
			if rec.PayloadSchema == "" {
				errs = append(errs, fmt.Sprintf("provider %q: custom providers require a payload_schema", id))
			} else if !llm.ValidCustomPayloadSchema(rec.PayloadSchema) {
				errs = append(errs, fmt.Sprintf("provider %q: unknown payload_schema %q", id, rec.PayloadSchema))
			}
		default:
			errs = append(errs, fmt.Sprintf("provider %q: unknown type %q", id, rec.Type))
		}
	}

	if cfg.ActiveProvider != "" {
		if _, ok := cfg.Providers[cfg.ActiveProvider]; !ok {
			errs = append(errs, fmt.Sprintf("active_provider %q references no configured provider", cfg.ActiveProvider))
		}
	}

	for _, id := range secretIDs {
		if _, ok := cfg.Providers[id]; !ok {
			errs = append(errs, fmt.Sprintf("secret store holds a credential for unknown provider %q", id))
		}
	}

	return errs
}
