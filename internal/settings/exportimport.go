package settings

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"

	"github.com/sourcerer-app/sourcerer/internal/build"
	"github.com/sourcerer-app/sourcerer/internal/crypto"
)

// exportFormat marks a payload as one of ours.
const exportFormat = "sourcerer-export"

// ExportBundle is the portable serialization of the store. Without
// secrets it travels as plain YAML; with secrets the whole bundle is
// JSON encrypted under a passphrase-derived key, independent of the
// master key.
type ExportBundle struct {
	Format     string                `yaml:"format" json:"format"`
	BundleID   string                `yaml:"bundle_id" json:"bundle_id"`
	AppVersion string                `yaml:"app_version" json:"app_version"`
	CreatedAt  time.Time             `yaml:"created_at" json:"created_at"`
	Config     *Config               `yaml:"config" json:"config"`
	Secrets    map[string]Credential `yaml:"-" json:"secrets,omitempty"`
}

// Export serializes the store into a portable bundle. With
// includeSecrets the payload is base64(salt || nonce || ciphertext)
// under a PBKDF2 key derived from the passphrase; otherwise it is plain
// YAML and carries no secret material.
func (s *Store) Export(ctx context.Context, passphrase string, includeSecrets bool) ([]byte, error) {
	cfg, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	bundle := ExportBundle{
		Format:     exportFormat,
		BundleID:   uuid.NewString(),
		AppVersion: build.Version,
		CreatedAt:  time.Now().UTC(),
		Config:     cfg,
	}

	if !includeSecrets {
		out, err := yaml.Marshal(bundle)
		if err != nil {
			return nil, fmt.Errorf("%w: marshaling export bundle: %v", ErrIO, err)
		}
		return out, nil
	}

	if passphrase == "" {
		return nil, fmt.Errorf("%w: a passphrase is required to export secrets", ErrValidation)
	}
	secrets, _, err := s.readSecrets(ctx)
	if err != nil {
		return nil, err
	}
	bundle.Secrets = secrets

	plaintext, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling export bundle: %v", ErrIO, err)
	}
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	key := crypto.DeriveKey(passphrase, salt)
	sealed, err := crypto.Seal(key, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	out := base64.StdEncoding.EncodeToString(append(salt, sealed...))
	return []byte(out), nil
}

// Import replaces the store contents with a bundle produced by Export.
// An empty passphrase selects the plain YAML form; a non-empty one
// decrypts a secret-bearing bundle. Imported secrets are re-encrypted
// under the local master key, and an older document is migrated in
// memory before it is persisted, so the on-disk version never moves
// backwards.
func (s *Store) Import(ctx context.Context, payload []byte, passphrase string) error {
	envelope, secrets, hasSecrets, err := decodeBundle(payload, passphrase)
	if err != nil {
		return err
	}

	docRaw, ok := envelope["config"].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: bundle carries no configuration document", ErrValidation)
	}
	if _, err := applyMigrations(ctx, docRaw, secrets); err != nil {
		return err
	}

	buf, err := yaml.Marshal(docRaw)
	if err != nil {
		return fmt.Errorf("%w: bundle document does not serialize: %v", ErrValidation, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("%w: bundle document does not parse: %v", ErrValidation, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderRecord{}
	}

	return s.Save(ctx, func(tx *Txn) error {
		tx.Config = &cfg
		if hasSecrets {
			for _, id := range tx.SecretIDs() {
				tx.RemoveSecret(id)
			}
			for id, cred := range secrets {
				tx.SetSecret(id, cred)
			}
			return nil
		}
		// Secretless bundle: keep local credentials for providers the
		// imported document still knows, drop the rest, and adopt any
		// credentials the in-memory migration lifted out of an old
		// document.
		for _, id := range tx.SecretIDs() {
			if _, ok := cfg.Providers[id]; !ok {
				tx.RemoveSecret(id)
			}
		}
		for id, cred := range secrets {
			tx.SetSecret(id, cred)
		}
		return nil
	})
}

// decodeBundle parses either bundle form into a generic envelope plus
// its secret map.
func decodeBundle(payload []byte, passphrase string) (map[string]any, map[string]Credential, bool, error) {
	var envelope map[string]any

	if passphrase != "" {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(payload)))
		if err != nil {
			return nil, nil, false, fmt.Errorf("%w: payload is not a valid encrypted bundle", ErrValidation)
		}
		if len(decoded) <= crypto.SaltSize {
			return nil, nil, false, fmt.Errorf("%w: encrypted bundle is truncated", ErrValidation)
		}
		key := crypto.DeriveKey(passphrase, decoded[:crypto.SaltSize])
		plaintext, err := crypto.Open(key, decoded[crypto.SaltSize:])
		if err != nil {
			return nil, nil, false, fmt.Errorf("%w: wrong passphrase or corrupted bundle", ErrDecryption)
		}
		if err := json.Unmarshal(plaintext, &envelope); err != nil {
			return nil, nil, false, fmt.Errorf("%w: decrypted bundle does not parse: %v", ErrValidation, err)
		}
	} else {
		if err := yaml.Unmarshal(payload, &envelope); err != nil {
			return nil, nil, false, fmt.Errorf("%w: payload is not a bundle; encrypted exports need a passphrase", ErrValidation)
		}
	}

	if format, _ := envelope["format"].(string); format != exportFormat {
		return nil, nil, false, fmt.Errorf("%w: unrecognized bundle format", ErrValidation)
	}

	secrets := map[string]Credential{}
	rawSecrets, hasSecrets := envelope["secrets"]
	if hasSecrets && rawSecrets != nil {
		buf, err := json.Marshal(rawSecrets)
		if err != nil {
			return nil, nil, false, fmt.Errorf("%w: bundle secrets do not serialize: %v", ErrValidation, err)
		}
		if err := json.Unmarshal(buf, &secrets); err != nil {
			return nil, nil, false, fmt.Errorf("%w: bundle secrets do not parse: %v", ErrValidation, err)
		}
	}
	return envelope, secrets, hasSecrets, nil
}
