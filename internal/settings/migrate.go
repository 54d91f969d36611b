package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/sourcerer-app/sourcerer/internal/logger"
	"github.com/sourcerer-app/sourcerer/internal/logger/tag"
)

// CurrentVersion is the schema version this build reads and writes.
//
// History:
//
//	1 - initial layout, provider api_key fields inline in the document
//	2 - credentials moved into the encrypted secret store
//	3 - base URLs normalized, inference/image_generation/limits sections
const CurrentVersion = 3

type migrationStep struct {
	to    int
	apply func(doc map[string]any, secrets map[string]Credential) (bool, error)
}

// Steps run in order; each lifts a document from to-1 to to. Steps are
// frozen: they seed the defaults of their era as literals, not whatever
// the current DefaultConfig happens to be.
var migrationSteps = []migrationStep{
	{to: 2, apply: migrateInlineKeys},
	{to: 3, apply: migrateURLsAndSections},
}

// SchemaVersion reports the on-disk document version without loading or
// migrating anything. Returns 0 when no document exists.
func (s *Store) SchemaVersion() (int, error) {
	raw, exists, err := s.readRawDocument()
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	return rawVersion(raw), nil
}

// Migrate lifts the on-disk document to CurrentVersion under the
// directory lock. Transforms are staged in memory and written only
// after every step succeeds; a failing step leaves the files untouched.
// Running it on an up-to-date store is a no-op.
func (s *Store) Migrate(ctx context.Context) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.migrateLocked(ctx)
}

func (s *Store) migrateLocked(ctx context.Context) error {
	raw, exists, err := s.readRawDocument()
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	version := rawVersion(raw)
	if version == CurrentVersion {
		return nil
	}
	if version > CurrentVersion {
		return fmt.Errorf("%w: document version %d is newer than supported version %d",
			ErrMigration, version, CurrentVersion)
	}

	secrets, _, err := s.readSecrets(ctx)
	if err != nil {
		return err
	}

	logger.Info(ctx, "Migrating configuration document",
		tag.SchemaVersion(version), tag.Path(s.DocumentPath()))

	// Snapshot the pre-migration state before the first step runs.
	if err := s.writeBackups(ctx); err != nil {
		return err
	}

	secretsChanged, err := applyMigrations(ctx, raw, secrets)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.ConfigDir(), dirPerms); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrIO, s.ConfigDir(), err)
	}
	if secretsChanged {
		if err := s.writeSecrets(secrets); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: marshaling migrated document: %v", ErrMigration, err)
	}
	if err := s.writeFile(s.DocumentPath(), data, filePerms); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, documentFile, err)
	}

	logger.Info(ctx, "Migration complete", tag.SchemaVersion(CurrentVersion))
	return nil
}

// applyMigrations advances raw to CurrentVersion in memory, mutating the
// secret map when a step moves credentials. Shared by Migrate and
// Import.
func applyMigrations(ctx context.Context, raw map[string]any, secrets map[string]Credential) (bool, error) {
	version := rawVersion(raw)
	if version > CurrentVersion {
		return false, fmt.Errorf("%w: document version %d is newer than supported version %d",
			ErrMigration, version, CurrentVersion)
	}
	changed := false
	for _, step := range migrationSteps {
		if version >= step.to {
			continue
		}
		stepChanged, err := step.apply(raw, secrets)
		if err != nil {
			return false, fmt.Errorf("%w: step to version %d: %v", ErrMigration, step.to, err)
		}
		changed = changed || stepChanged
		version = step.to
		logger.Debug(ctx, "Applied migration step", tag.SchemaVersion(step.to))
	}
	raw["version"] = version
	return changed, nil
}

// migrateInlineKeys (v1 to v2) moves inline provider api_key fields out
// of the document into the secret store.
func migrateInlineKeys(doc map[string]any, secrets map[string]Credential) (bool, error) {
	providers, ok := doc["providers"].(map[string]any)
	if !ok {
		return false, nil
	}
	changed := false
	for id, v := range providers {
		rec, ok := v.(map[string]any)
		if !ok {
			return false, fmt.Errorf("provider %q is not a mapping", id)
		}
		raw, present := rec["api_key"]
		if !present {
			continue
		}
		if key, _ := raw.(string); key != "" {
			cred := secrets[id]
			cred.APIKey = key
			secrets[id] = cred
			changed = true
		}
		delete(rec, "api_key")
	}
	return changed, nil
}

// migrateURLsAndSections (v2 to v3) strips trailing slashes from base
// URLs and seeds the sections introduced with version 3.
func migrateURLsAndSections(doc map[string]any, _ map[string]Credential) (bool, error) {
	if providers, ok := doc["providers"].(map[string]any); ok {
		for _, v := range providers {
			rec, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if u, ok := rec["base_url"].(string); ok {
				rec["base_url"] = strings.TrimRight(u, "/")
			}
		}
	}
	if _, ok := doc["inference"]; !ok {
		doc["inference"] = map[string]any{
			"temperature":       0.7,
			"top_p":             1.0,
			"max_tokens":        1024,
			"presence_penalty":  0.0,
			"frequency_penalty": 0.0,
			"streaming":         true,
		}
	}
	if _, ok := doc["image_generation"]; !ok {
		doc["image_generation"] = map[string]any{
			"enabled":       false,
			"provider":      "openai",
			"model":         "dall-e-3",
			"output_format": "png",
		}
	}
	if _, ok := doc["limits"]; !ok {
		doc["limits"] = map[string]any{
			"max_prompt_chars":        8000,
			"max_sources_per_run":     25,
			"request_timeout_seconds": 120,
		}
	}
	return false, nil
}

// readRawDocument parses config.yaml without binding it to the current
// schema, so migration steps can reshape fields the struct no longer
// carries.
func (s *Store) readRawDocument() (map[string]any, bool, error) {
	data, err := os.ReadFile(s.DocumentPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading %s: %v", ErrIO, documentFile, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, true, fmt.Errorf("%w: %s does not parse: %v", ErrCorruptConfig, documentFile, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, true, nil
}

// rawVersion reads the version field tolerantly. Documents that predate
// the field count as version 1.
func rawVersion(raw map[string]any) int {
	switch v := raw["version"].(type) {
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case uint64:
		if v > 0 {
			return int(v)
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return 1
}
