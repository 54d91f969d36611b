package settings

import "errors"

// Error kinds surfaced by the store. Callers branch with errors.Is; the
// HTTP layer translates each kind into a status code and stable error
// code without leaking internal detail.
var (
	// ErrCorruptConfig indicates the configuration document or the
	// decrypted secret store failed to parse. Never auto-repaired; the
	// operator restores from backups/.
	ErrCorruptConfig = errors.New("settings: corrupt configuration")

	// ErrDecryption indicates the secret store could not be decrypted:
	// wrong or missing master key, or a tampered ciphertext.
	ErrDecryption = errors.New("settings: decryption failed")

	// ErrValidation indicates a mutation violated a document invariant.
	// Nothing was written.
	ErrValidation = errors.New("settings: validation failed")

	// ErrLockTimeout indicates the configuration lock could not be
	// acquired within the bounded wait.
	ErrLockTimeout = errors.New("settings: lock timeout")

	// ErrMigration indicates a schema migration step failed or the
	// on-disk version is newer than this build supports.
	ErrMigration = errors.New("settings: migration failed")

	// ErrIO indicates a filesystem failure. The live document is
	// unchanged; at most a backup was written.
	ErrIO = errors.New("settings: io failure")

	// ErrNotFound indicates an unknown provider id.
	ErrNotFound = errors.New("settings: not found")

	// ErrExists indicates a create for a provider id already in use.
	ErrExists = errors.New("settings: already exists")
)
