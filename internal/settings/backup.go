package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sourcerer-app/sourcerer/internal/fileutil"
	"github.com/sourcerer-app/sourcerer/internal/logger"
	"github.com/sourcerer-app/sourcerer/internal/logger/tag"
)

// backupStampFormat sorts lexicographically in chronological order, so
// retention can prune by name.
const backupStampFormat = "20060102T150405.000000000Z"

// writeBackups snapshots the current document and secret store into
// backups/ under a shared timestamp. Files that do not exist yet are
// skipped, so the first transaction produces no backup.
func (s *Store) writeBackups(ctx context.Context) error {
	stamp := time.Now().UTC().Format(backupStampFormat)
	for _, name := range []string{documentFile, secretsFile} {
		src := filepath.Join(s.ConfigDir(), name)
		if !fileutil.FileExists(src) {
			continue
		}
		if err := os.MkdirAll(s.BackupsDir(), dirPerms); err != nil {
			return fmt.Errorf("%w: creating %s: %v", ErrIO, s.BackupsDir(), err)
		}
		dst := filepath.Join(s.BackupsDir(), stamp+"-"+name)
		if err := fileutil.CopyFile(src, dst, filePerms); err != nil {
			return fmt.Errorf("%w: backing up %s: %v", ErrIO, name, err)
		}
	}
	s.pruneBackups(ctx)
	return nil
}

// pruneBackups keeps the newest backupKeep snapshots per file name.
// Pruning is best effort; a failed removal is logged, never fatal.
func (s *Store) pruneBackups(ctx context.Context) {
	entries, err := os.ReadDir(s.BackupsDir())
	if err != nil {
		return
	}
	for _, name := range []string{documentFile, secretsFile} {
		var matches []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if ok, _ := doublestar.Match("*-"+name, entry.Name()); ok {
				matches = append(matches, entry.Name())
			}
		}
		if len(matches) <= s.backupKeep {
			continue
		}
		sort.Strings(matches)
		for _, stale := range matches[:len(matches)-s.backupKeep] {
			if err := os.Remove(filepath.Join(s.BackupsDir(), stale)); err != nil {
				logger.Warn(ctx, "Failed to prune backup", tag.Path(stale), tag.Error(err))
			}
		}
	}
}

// Backups lists existing snapshot file names, newest first.
func (s *Store) Backups() ([]string, error) {
	entries, err := os.ReadDir(s.BackupsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrIO, s.BackupsDir(), err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
