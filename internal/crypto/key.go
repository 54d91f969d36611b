package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/sourcerer-app/sourcerer/internal/fileutil"
)

const (
	keyFilePerms = os.FileMode(0600)

	// deriveIterations is the PBKDF2 iteration count for passphrase keys.
	deriveIterations = 100_000
	// SaltSize is the salt length in bytes for passphrase key derivation.
	SaltSize = 16
)

// GenerateKey returns a fresh random symmetric key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate random key: %w", err)
	}
	return key, nil
}

// LoadKeyFile reads a base64-encoded key from path.
func LoadKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is constructed from trusted dataDir
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to read key file: %w", err)
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("crypto: key file is not valid base64: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: key file holds %d bytes, want %d", len(key), KeySize)
	}
	return key, nil
}

// WriteKeyFile persists a key to path as base64 with owner-only
// permissions.
func WriteKeyFile(path string, key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("crypto: key must be %d bytes, got %d", KeySize, len(key))
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := fileutil.WriteFileAtomic(path, []byte(encoded), keyFilePerms); err != nil {
		return fmt.Errorf("crypto: failed to persist key: %w", err)
	}
	return nil
}

// GenerateSalt returns a fresh random salt for passphrase derivation.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a symmetric key from a passphrase using
// PBKDF2-SHA256. The same passphrase and salt always yield the same key,
// which makes export bundles portable across installations.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, deriveIterations, KeySize, sha256.New)
}
