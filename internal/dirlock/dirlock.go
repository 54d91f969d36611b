// Package dirlock implements an interprocess advisory lock based on
// directory creation, which is atomic on POSIX and Windows file systems.
// It coordinates the web server process and CLI tooling mutating the same
// configuration directory, where an in-process mutex would not suffice.
package dirlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// ErrLockConflict indicates the lock is currently held by another holder.
	ErrLockConflict = errors.New("dirlock: lock conflict")
	// ErrNotLocked indicates an operation that requires holding the lock.
	ErrNotLocked = errors.New("dirlock: not locked")
)

const lockDirName = ".sourcerer_lock"

const (
	defaultStaleThreshold = 30 * time.Second
	defaultRetryInterval  = 50 * time.Millisecond

	lockDirPerms   = os.FileMode(0700)
	parentDirPerms = os.FileMode(0750)
)

// DirLock guards a directory against concurrent mutation.
type DirLock interface {
	// TryLock attempts to acquire the lock without waiting.
	// Returns ErrLockConflict if it is held elsewhere.
	TryLock() error
	// Lock blocks until the lock is acquired or ctx is done.
	Lock(ctx context.Context) error
	// Unlock releases the lock. It is a no-op if the lock is not held.
	Unlock() error
	// IsLocked reports whether any holder currently owns the lock.
	IsLocked() bool
	// IsHeldByMe reports whether this instance owns the lock.
	IsHeldByMe() bool
	// Heartbeat refreshes the lock timestamp so other processes do not
	// consider it stale during long operations.
	Heartbeat(ctx context.Context) error
	// Info returns metadata about the current lock, or nil if unlocked.
	Info() (*LockInfo, error)
}

// LockOptions configures staleness detection and acquisition retries.
type LockOptions struct {
	// StaleThreshold is the age after which an existing lock is presumed
	// abandoned by a crashed process and may be reclaimed.
	StaleThreshold time.Duration
	// RetryInterval is the polling interval used by Lock.
	RetryInterval time.Duration
}

// LockInfo describes an existing lock.
type LockInfo struct {
	LockDirName string
	AcquiredAt  time.Time
}

var _ DirLock = (*dirLock)(nil)

type dirLock struct {
	dir      string
	lockPath string
	opts     LockOptions

	mu   sync.Mutex
	held bool
}

// New creates a DirLock for the given directory. Passing nil options
// applies the defaults.
func New(dir string, opts *LockOptions) DirLock {
	resolved := LockOptions{
		StaleThreshold: defaultStaleThreshold,
		RetryInterval:  defaultRetryInterval,
	}
	if opts != nil {
		if opts.StaleThreshold > 0 {
			resolved.StaleThreshold = opts.StaleThreshold
		}
		if opts.RetryInterval > 0 {
			resolved.RetryInterval = opts.RetryInterval
		}
	}
	return &dirLock{
		dir:      dir,
		lockPath: filepath.Join(dir, lockDirName),
		opts:     resolved,
	}
}

// TryLock implements DirLock.
func (l *dirLock) TryLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return nil
	}

	if err := os.MkdirAll(l.dir, parentDirPerms); err != nil {
		return fmt.Errorf("dirlock: failed to create base directory: %w", err)
	}

	l.reclaimStale()

	if err := os.Mkdir(l.lockPath, lockDirPerms); err != nil {
		if os.IsExist(err) {
			return ErrLockConflict
		}
		return fmt.Errorf("dirlock: failed to acquire lock: %w", err)
	}

	l.held = true
	return nil
}

// Lock implements DirLock.
func (l *dirLock) Lock(ctx context.Context) error {
	for {
		err := l.TryLock()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrLockConflict) {
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("dirlock: lock wait aborted: %w", ctx.Err())
		case <-time.After(l.opts.RetryInterval):
		}
	}
}

// Unlock implements DirLock.
func (l *dirLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}

	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("dirlock: failed to release lock: %w", err)
	}

	l.held = false
	return nil
}

// IsLocked implements DirLock.
func (l *dirLock) IsLocked() bool {
	info, err := os.Stat(l.lockPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsHeldByMe implements DirLock.
func (l *dirLock) IsHeldByMe() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Heartbeat implements DirLock.
func (l *dirLock) Heartbeat(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return ErrNotLocked
	}

	now := time.Now()
	if err := os.Chtimes(l.lockPath, now, now); err != nil {
		return fmt.Errorf("dirlock: failed to refresh lock: %w", err)
	}
	return nil
}

// Info implements DirLock.
func (l *dirLock) Info() (*LockInfo, error) {
	info, err := os.Stat(l.lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("dirlock: failed to stat lock: %w", err)
	}
	return &LockInfo{
		LockDirName: lockDirName,
		AcquiredAt:  info.ModTime(),
	}, nil
}

// reclaimStale removes the lock directory when its modification time is
// older than the stale threshold. The caller must hold l.mu.
func (l *dirLock) reclaimStale() {
	info, err := os.Stat(l.lockPath)
	if err != nil {
		return
	}
	if time.Since(info.ModTime()) > l.opts.StaleThreshold {
		_ = os.Remove(l.lockPath)
	}
}

// ForceUnlock removes the lock for a directory regardless of the holder.
// Intended for operator tooling after a crash.
func ForceUnlock(dir string) error {
	err := os.Remove(filepath.Join(dir, lockDirName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("dirlock: failed to force unlock: %w", err)
	}
	return nil
}
