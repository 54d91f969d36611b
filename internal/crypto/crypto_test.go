package crypto

import (
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	return key
}

func TestEncryptDecrypt(t *testing.T) {
	t.Parallel()

	t.Run("RoundTrip", func(t *testing.T) {
		t.Parallel()
		key := testKey(t)

		encoded, err := Encrypt(key, []byte(`{"openai":{"api_key":"sk-test"}}`))
		require.NoError(t, err)
		require.NotEmpty(t, encoded)

		plaintext, err := Decrypt(key, encoded)
		require.NoError(t, err)
		assert.Equal(t, `{"openai":{"api_key":"sk-test"}}`, string(plaintext))
	})

	t.Run("EmptyPlaintext", func(t *testing.T) {
		t.Parallel()
		key := testKey(t)

		encoded, err := Encrypt(key, nil)
		require.NoError(t, err)
		assert.Empty(t, encoded)

		plaintext, err := Decrypt(key, "")
		require.NoError(t, err)
		assert.Empty(t, plaintext)
	})

	t.Run("CiphertextHidesPlaintext", func(t *testing.T) {
		t.Parallel()
		key := testKey(t)

		encoded, err := Encrypt(key, []byte("sk-test-secret"))
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "sk-test-secret")
	})

	t.Run("NonDeterministicNonce", func(t *testing.T) {
		t.Parallel()
		key := testKey(t)

		a, err := Encrypt(key, []byte("same input"))
		require.NoError(t, err)
		b, err := Encrypt(key, []byte("same input"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("WrongKeyFails", func(t *testing.T) {
		t.Parallel()

		encoded, err := Encrypt(testKey(t), []byte("secret"))
		require.NoError(t, err)

		_, err = Decrypt(testKey(t), encoded)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decrypt")
	})

	t.Run("TamperedCiphertextFails", func(t *testing.T) {
		t.Parallel()
		key := testKey(t)

		encoded, err := Encrypt(key, []byte("secret"))
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xff

		_, err = Decrypt(key, base64.StdEncoding.EncodeToString(raw))
		require.Error(t, err)
	})

	t.Run("InvalidBase64Fails", func(t *testing.T) {
		t.Parallel()

		_, err := Decrypt(testKey(t), "not-base64!!")
		require.Error(t, err)
	})

	t.Run("TruncatedCiphertextFails", func(t *testing.T) {
		t.Parallel()

		short := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02})
		_, err := Decrypt(testKey(t), short)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too short")
	})

	t.Run("RejectsBadKeySize", func(t *testing.T) {
		t.Parallel()

		_, err := Encrypt([]byte("short"), []byte("x"))
		require.Error(t, err)

		_, err = Decrypt([]byte("short"), "AAAA")
		require.Error(t, err)
	})
}

func TestKeyFile(t *testing.T) {
	t.Parallel()

	t.Run("WriteAndLoad", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "master.key")
		key := testKey(t)

		require.NoError(t, WriteKeyFile(path, key))

		loaded, err := LoadKeyFile(path)
		require.NoError(t, err)
		assert.Equal(t, key, loaded)
	})

	t.Run("MissingFile", func(t *testing.T) {
		t.Parallel()

		_, err := LoadKeyFile(filepath.Join(t.TempDir(), "missing.key"))
		require.Error(t, err)
	})

	t.Run("RejectsWrongLength", func(t *testing.T) {
		t.Parallel()

		err := WriteKeyFile(filepath.Join(t.TempDir(), "m.key"), []byte("too short"))
		require.Error(t, err)
	})
}

func TestDeriveKey(t *testing.T) {
	t.Parallel()

	salt := []byte(strings.Repeat("s", SaltSize))

	t.Run("Deterministic", func(t *testing.T) {
		t.Parallel()
		a := DeriveKey("correct horse battery", salt)
		b := DeriveKey("correct horse battery", salt)
		assert.Equal(t, a, b)
		assert.Len(t, a, KeySize)
	})

	t.Run("PassphraseChangesKey", func(t *testing.T) {
		t.Parallel()
		a := DeriveKey("passphrase-one", salt)
		b := DeriveKey("passphrase-two", salt)
		assert.NotEqual(t, a, b)
	})

	t.Run("SaltChangesKey", func(t *testing.T) {
		t.Parallel()
		a := DeriveKey("passphrase", []byte(strings.Repeat("a", SaltSize)))
		b := DeriveKey("passphrase", []byte(strings.Repeat("b", SaltSize)))
		assert.NotEqual(t, a, b)
	})
}
