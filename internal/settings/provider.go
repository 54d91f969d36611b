package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcerer-app/sourcerer/internal/llm"
)

type putMode int

const (
	putUpsert putMode = iota
	putCreate
	putUpdate
)

// SetProvider validates and normalizes the record for its declared type,
// then upserts the record and its credential in one transaction. A zero
// credential leaves any existing secret in place.
func (s *Store) SetProvider(ctx context.Context, rec ProviderRecord, cred Credential) error {
	return s.putProvider(ctx, rec, cred, putUpsert)
}

// CreateProvider is SetProvider that fails with ErrExists when the id is
// already configured.
func (s *Store) CreateProvider(ctx context.Context, rec ProviderRecord, cred Credential) error {
	return s.putProvider(ctx, rec, cred, putCreate)
}

// UpdateProvider is SetProvider that fails with ErrNotFound when the id
// is not configured yet.
func (s *Store) UpdateProvider(ctx context.Context, rec ProviderRecord, cred Credential) error {
	return s.putProvider(ctx, rec, cred, putUpdate)
}

func (s *Store) putProvider(ctx context.Context, rec ProviderRecord, cred Credential, mode putMode) error {
	rec, err := NormalizeRecord(rec)
	if err != nil {
		return err
	}
	return s.Save(ctx, func(tx *Txn) error {
		existing, exists := tx.Config.Providers[rec.ID]
		switch mode {
		case putCreate:
			if exists {
				return fmt.Errorf("%w: provider %q", ErrExists, rec.ID)
			}
		case putUpdate:
			if !exists {
				return fmt.Errorf("%w: provider %q", ErrNotFound, rec.ID)
			}
		}
		if exists {
			// Model cache survives record edits that do not resupply it.
			if len(rec.Models) == 0 {
				rec.Models = existing.Models
			}
			if rec.LastAuthCheck == nil {
				rec.LastAuthCheck = existing.LastAuthCheck
			}
		}
		tx.Config.Providers[rec.ID] = rec
		if cred.APIKey != "" || len(cred.Headers) > 0 {
			tx.SetSecret(rec.ID, cred)
		}
		return nil
	})
}

// RemoveProvider deletes the record and its secret in one transaction
// and clears the active provider if it pointed at the removed id.
func (s *Store) RemoveProvider(ctx context.Context, id string) error {
	return s.Save(ctx, func(tx *Txn) error {
		if _, ok := tx.Config.Providers[id]; !ok {
			return fmt.Errorf("%w: provider %q", ErrNotFound, id)
		}
		delete(tx.Config.Providers, id)
		tx.RemoveSecret(id)
		if tx.Config.ActiveProvider == id {
			tx.Config.ActiveProvider = ""
			tx.Config.ActiveModel = ""
		}
		return nil
	})
}

// SetActiveProvider points active_provider at an existing record; an
// empty id clears the selection along with the active model.
func (s *Store) SetActiveProvider(ctx context.Context, id, model string) error {
	return s.Save(ctx, func(tx *Txn) error {
		if id == "" {
			tx.Config.ActiveProvider = ""
			tx.Config.ActiveModel = ""
			return nil
		}
		if _, ok := tx.Config.Providers[id]; !ok {
			return fmt.Errorf("%w: provider %q", ErrNotFound, id)
		}
		tx.Config.ActiveProvider = id
		if model != "" {
			tx.Config.ActiveModel = model
		}
		return nil
	})
}

// RecordAuthCheck stores a successful probe result: the discovered model
// list and the check timestamp.
func (s *Store) RecordAuthCheck(ctx context.Context, id string, models []string, at time.Time) error {
	return s.Save(ctx, func(tx *Txn) error {
		rec, ok := tx.Config.Providers[id]
		if !ok {
			return fmt.Errorf("%w: provider %q", ErrNotFound, id)
		}
		if len(models) > 0 {
			rec.Models = append([]string(nil), models...)
		}
		ts := at.UTC()
		rec.LastAuthCheck = &ts
		tx.Config.Providers[id] = rec
		return nil
	})
}

// NormalizeRecord canonicalizes a record for its declared type: built-in
// records get catalog defaults for empty fields, custom records get a
// derived id and generic auth defaults. Returns ErrValidation when the
// required fields for the variant are missing.
func NormalizeRecord(rec ProviderRecord) (ProviderRecord, error) {
	switch rec.Type {
	case TypeBuiltIn:
		src := rec.ID
		if src == "" {
			src = rec.Alias
		}
		pt, err := llm.ParseProviderType(src)
		if err != nil {
			return rec, fmt.Errorf("%w: %q is not a built-in provider type", ErrValidation, src)
		}
		def, _ := llm.BuiltinDefaults(pt)
		rec.ID = string(pt)
		if rec.Alias == "" {
			rec.Alias = def.DisplayName
		}
		if rec.BaseURL == "" {
			rec.BaseURL = def.BaseURL
		}
		if rec.AuthHeader == "" {
			rec.AuthHeader = def.AuthHeader
		}
		if rec.AuthPrefix == "" {
			rec.AuthPrefix = def.AuthPrefix
		}
		if rec.ModelsEndpoint == "" {
			rec.ModelsEndpoint = def.ModelsEndpoint
		}
		if rec.ModelsJSONPath == "" {
			rec.ModelsJSONPath = def.ModelsJSONPath
		}
		if rec.PayloadSchema == "" {
			rec.PayloadSchema = def.PayloadSchema
		}

	case TypeCustom:
		if rec.ID == "" {
			rec.ID = DeriveCustomID(rec.Alias)
		}
		if rec.ID == "" {
			return rec, fmt.Errorf("%w: custom providers require an alias or id", ErrValidation)
		}
		if rec.Alias == "" {
			rec.Alias = rec.ID
		}
		if rec.BaseURL == "" {
			return rec, fmt.Errorf("%w: custom providers require a base_url", ErrValidation)
		}
		if rec.PayloadSchema == "" {
			return rec, fmt.Errorf("%w: custom providers require a payload_schema", ErrValidation)
		}
		if !llm.ValidCustomPayloadSchema(rec.PayloadSchema) {
			return rec, fmt.Errorf("%w: unknown payload_schema %q", ErrValidation, rec.PayloadSchema)
		}
		if rec.AuthHeader == "" {
			rec.AuthHeader = "Authorization"
		}
		if rec.AuthPrefix == "" {
			rec.AuthPrefix = "Bearer "
		}
		if rec.ModelsJSONPath == "" && rec.ModelsEndpoint != "" {
			rec.ModelsJSONPath = "data[].id"
		}

	default:
		return rec, fmt.Errorf("%w: unknown provider type %q", ErrValidation, rec.Type)
	}

	rec.BaseURL = strings.TrimRight(rec.BaseURL, "/")
	return rec, nil
}

// DeriveCustomID turns a display alias into a provider id: lowercased,
// spaces replaced with dashes.
func DeriveCustomID(alias string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(alias)), " ", "-")
}

// ProbeTarget assembles the probe target for a record: catalog extras
// for built-ins, per-credential header overrides on top.
func ProbeTarget(rec ProviderRecord, cred Credential) llm.Target {
	target := llm.Target{
		BaseURL:        rec.BaseURL,
		AuthHeader:     rec.AuthHeader,
		AuthPrefix:     rec.AuthPrefix,
		ModelsEndpoint: rec.ModelsEndpoint,
		ModelsJSONPath: rec.ModelsJSONPath,
	}
	if rec.Type == TypeBuiltIn {
		if pt, err := llm.ParseProviderType(rec.ID); err == nil {
			if def, ok := llm.BuiltinDefaults(pt); ok {
				target.StaticModels = append([]string(nil), def.StaticModels...)
				if len(def.ExtraHeaders) > 0 {
					target.ExtraHeaders = make(map[string]string, len(def.ExtraHeaders))
					for k, v := range def.ExtraHeaders {
						target.ExtraHeaders[k] = v
					}
				}
			}
		}
	}
	for k, v := range cred.Headers {
		if target.ExtraHeaders == nil {
			target.ExtraHeaders = map[string]string{}
		}
		target.ExtraHeaders[k] = v
	}
	return target
}
