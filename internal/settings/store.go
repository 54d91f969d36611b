// Package settings implements the durable, encrypted, concurrency-safe
// store for the configuration document and provider secrets.
//
// The document lives at config/config.yaml, secrets at config/config.enc
// (AES-256-GCM under config/master.key), backups under backups/. All
// mutations flow through Save, which serializes writers with an
// interprocess directory lock; readers never take the lock and rely on
// writes being atomic renames.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/sourcerer-app/sourcerer/internal/crypto"
	"github.com/sourcerer-app/sourcerer/internal/dirlock"
	"github.com/sourcerer-app/sourcerer/internal/fileutil"
	"github.com/sourcerer-app/sourcerer/internal/logger"
	"github.com/sourcerer-app/sourcerer/internal/logger/tag"
)

const (
	configDirName  = "config"
	backupsDirName = "backups"

	documentFile = "config.yaml"
	secretsFile  = "config.enc"
	keyFile      = "master.key"

	filePerms = os.FileMode(0600)
	dirPerms  = os.FileMode(0750)

	defaultLockTimeout = 10 * time.Second
	defaultBackupKeep  = 20
)

// Store owns the on-disk configuration and secrets under one data
// directory. Construct one per process and pass it explicitly; there is
// no package-level instance.
type Store struct {
	dataDir     string
	lock        dirlock.DirLock
	lockTimeout time.Duration
	backupKeep  int

	// sem serializes writers within this process. The directory lock
	// only coordinates across processes: reacquiring it from the same
	// instance succeeds, so it cannot order goroutines on its own.
	sem chan struct{}

	// writeFile stages and renames; replaced in tests to inject write
	// failures.
	writeFile func(path string, data []byte, perm os.FileMode) error
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long Save waits for the directory lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithBackupRetention sets how many backups to keep per file name.
func WithBackupRetention(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.backupKeep = n
		}
	}
}

// New creates a Store rooted at dataDir. Nothing is created on disk
// until the first mutation.
func New(dataDir string, opts ...Option) *Store {
	s := &Store{
		dataDir:     dataDir,
		lockTimeout: defaultLockTimeout,
		backupKeep:  defaultBackupKeep,
		sem:         make(chan struct{}, 1),
		writeFile:   fileutil.WriteFileAtomic,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lock = dirlock.New(s.ConfigDir(), nil)
	return s
}

// DataDir returns the root data directory.
func (s *Store) DataDir() string { return s.dataDir }

// ConfigDir returns the directory holding document, secrets and key.
func (s *Store) ConfigDir() string { return filepath.Join(s.dataDir, configDirName) }

// BackupsDir returns the directory holding pre-mutation snapshots.
func (s *Store) BackupsDir() string { return filepath.Join(s.dataDir, backupsDirName) }

// DocumentPath returns the configuration document path.
func (s *Store) DocumentPath() string { return filepath.Join(s.ConfigDir(), documentFile) }

// SecretsPath returns the encrypted secret store path.
func (s *Store) SecretsPath() string { return filepath.Join(s.ConfigDir(), secretsFile) }

// KeyPath returns the master key path.
func (s *Store) KeyPath() string { return filepath.Join(s.ConfigDir(), keyFile) }

// LockInfo reports the current interprocess lock state, nil if unlocked.
func (s *Store) LockInfo() (*dirlock.LockInfo, error) {
	return s.lock.Info()
}

// FirstRun reports whether no configuration document exists yet. Pure
// existence check; nothing is created.
func (s *Store) FirstRun() bool {
	return !fileutil.FileExists(s.DocumentPath())
}

// Load returns the current configuration document. A missing document
// yields the defaults without writing anything. A document behind the
// current schema version is migrated first; one ahead of it refuses to
// load. Secrets are not decrypted here; use Secret for on-demand access.
func (s *Store) Load(ctx context.Context) (*Config, error) {
	cfg, exists, err := s.readDocument()
	if err != nil {
		return nil, err
	}
	if !exists || cfg.Version == CurrentVersion {
		return cfg, nil
	}
	if cfg.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: document version %d is newer than supported version %d",
			ErrMigration, cfg.Version, CurrentVersion)
	}
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	cfg, _, err = s.readDocument()
	return cfg, err
}

// Secret decrypts the secret store and returns the credential for one
// provider id. The master key is read, used and discarded within this
// call.
func (s *Store) Secret(ctx context.Context, id string) (Credential, error) {
	secrets, exists, err := s.readSecrets(ctx)
	if err != nil {
		return Credential{}, err
	}
	cred, ok := secrets[id]
	if !exists || !ok {
		return Credential{}, fmt.Errorf("%w: no secret for provider %q", ErrNotFound, id)
	}
	return cred.deepCopy(), nil
}

// SecretIDs returns the sorted provider ids present in the secret store.
// Values stay encrypted at rest; only the key set leaves this call.
func (s *Store) SecretIDs(ctx context.Context) ([]string, error) {
	secrets, _, err := s.readSecrets(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(secrets))
	for id := range secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Txn carries the mutable state of one Save transaction: a deep copy of
// the document plus the decrypted secret map. Mutators operate on it
// freely; nothing is persisted until the mutator returns cleanly and
// validation passes.
type Txn struct {
	Config *Config

	secrets        map[string]Credential
	secretsChanged bool
}

// Secret returns the in-transaction credential for id.
func (t *Txn) Secret(id string) (Credential, bool) {
	cred, ok := t.secrets[id]
	return cred.deepCopy(), ok
}

// SetSecret upserts the credential for id within the transaction.
func (t *Txn) SetSecret(id string, cred Credential) {
	t.secrets[id] = cred.deepCopy()
	t.secretsChanged = true
}

// RemoveSecret deletes the credential for id within the transaction.
func (t *Txn) RemoveSecret(id string) {
	if _, ok := t.secrets[id]; !ok {
		return
	}
	delete(t.secrets, id)
	t.secretsChanged = true
}

// SecretIDs returns the sorted in-transaction secret key set.
func (t *Txn) SecretIDs() []string {
	ids := make([]string, 0, len(t.secrets))
	for id := range t.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Save is the sole writer path. It acquires the directory lock with a
// bounded wait, reloads current state, applies the mutator to a copy,
// validates invariants, snapshots the prior files into backups/ and
// atomically replaces the document (and the secret store when secrets
// changed). The lock is released on every exit path. Mutator errors pass
// through unwrapped so callers can surface their own kinds.
func (s *Store) Save(ctx context.Context, mutate func(*Txn) error) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.saveLocked(ctx, mutate)
}

// acquire takes the in-process semaphore and the directory lock, both
// within the bounded wait.
func (s *Store) acquire(ctx context.Context) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	select {
	case s.sem <- struct{}{}:
	case <-lockCtx.Done():
		return nil, fmt.Errorf("%w: not acquired within %s", ErrLockTimeout, s.lockTimeout)
	}
	if err := s.lock.Lock(lockCtx); err != nil {
		<-s.sem
		return nil, fmt.Errorf("%w: not acquired within %s: %v", ErrLockTimeout, s.lockTimeout, err)
	}
	return func() {
		_ = s.lock.Unlock()
		<-s.sem
	}, nil
}

func (s *Store) saveLocked(ctx context.Context, mutate func(*Txn) error) error {
	cur, exists, err := s.readDocument()
	if err != nil {
		return err
	}
	if exists && cur.Version > CurrentVersion {
		return fmt.Errorf("%w: document version %d is newer than supported version %d",
			ErrMigration, cur.Version, CurrentVersion)
	}
	if exists && cur.Version < CurrentVersion {
		if err := s.migrateLocked(ctx); err != nil {
			return err
		}
		if cur, _, err = s.readDocument(); err != nil {
			return err
		}
	}

	secrets, secretsExist, err := s.readSecrets(ctx)
	if err != nil {
		return err
	}

	// A secret without a provider record is residue of a transaction
	// whose document write never landed. Prune it here so the store
	// self-heals instead of failing validation forever.
	pruned := false
	for id := range secrets {
		if _, ok := cur.Providers[id]; !ok {
			logger.Warn(ctx, "Pruning orphaned secret", tag.Provider(id))
			delete(secrets, id)
			pruned = true
		}
	}

	txn := &Txn{Config: cur.DeepCopy(), secrets: copySecrets(secrets)}
	txn.secretsChanged = pruned || !secretsExist

	if err := mutate(txn); err != nil {
		return err
	}

	if errs := Validate(txn.Config, txn.SecretIDs()); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, "; "))
	}
	if exists && txn.Config.Version < cur.Version {
		return fmt.Errorf("%w: schema version may not decrease (%d -> %d)",
			ErrValidation, cur.Version, txn.Config.Version)
	}

	if err := s.writeBackups(ctx); err != nil {
		return err
	}
	if err := os.MkdirAll(s.ConfigDir(), dirPerms); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrIO, s.ConfigDir(), err)
	}

	// Secret store first. If the document write below fails the document
	// is untouched, and any secret not yet referenced by it is pruned as
	// residue by the next transaction.
	if txn.secretsChanged {
		if err := s.writeSecrets(txn.secrets); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(txn.Config)
	if err != nil {
		return fmt.Errorf("%w: marshaling document: %v", ErrIO, err)
	}
	if err := s.writeFile(s.DocumentPath(), data, filePerms); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, documentFile, err)
	}
	return nil
}

// readDocument parses config.yaml. A missing file returns the defaults
// with exists=false.
func (s *Store) readDocument() (*Config, bool, error) {
	data, err := os.ReadFile(s.DocumentPath())
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading %s: %v", ErrIO, documentFile, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, true, fmt.Errorf("%w: %s does not parse: %v", ErrCorruptConfig, documentFile, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderRecord{}
	}
	return &cfg, true, nil
}

// readSecrets decrypts config.enc into a credential map. A missing file
// returns an empty map with exists=false.
func (s *Store) readSecrets(_ context.Context) (map[string]Credential, bool, error) {
	data, err := os.ReadFile(s.SecretsPath())
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Credential{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading %s: %v", ErrIO, secretsFile, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]Credential{}, true, nil
	}

	key, err := s.loadKey(false)
	if err != nil {
		return nil, true, err
	}
	plaintext, err := crypto.Decrypt(key, strings.TrimSpace(string(data)))
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	var secrets map[string]Credential
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, true, fmt.Errorf("%w: secret store does not parse: %v", ErrCorruptConfig, err)
	}
	if secrets == nil {
		secrets = map[string]Credential{}
	}
	return secrets, true, nil
}

func (s *Store) writeSecrets(secrets map[string]Credential) error {
	key, err := s.loadKey(true)
	if err != nil {
		return err
	}
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("%w: marshaling secret store: %v", ErrIO, err)
	}
	sealed, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := s.writeFile(s.SecretsPath(), []byte(sealed), filePerms); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, secretsFile, err)
	}
	return nil
}

// loadKey returns the master key. With create set, a missing key file is
// generated and persisted once. A missing key alongside an existing
// secret store is always a decryption failure: regenerating would
// silently orphan every stored secret.
func (s *Store) loadKey(create bool) ([]byte, error) {
	key, err := crypto.LoadKeyFile(s.KeyPath())
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if fileutil.FileExists(s.SecretsPath()) {
		return nil, fmt.Errorf("%w: %s is missing but %s exists; restore the key from backups/",
			ErrDecryption, keyFile, secretsFile)
	}
	if !create {
		return nil, fmt.Errorf("%w: no master key", ErrDecryption)
	}

	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.MkdirAll(s.ConfigDir(), dirPerms); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrIO, s.ConfigDir(), err)
	}
	if err := crypto.WriteKeyFile(s.KeyPath(), key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return key, nil
}

func copySecrets(in map[string]Credential) map[string]Credential {
	out := make(map[string]Credential, len(in))
	for id, cred := range in {
		out[id] = cred.deepCopy()
	}
	return out
}
