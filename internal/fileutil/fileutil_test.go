package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	existing := filepath.Join(tmpDir, "present")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0600))

	assert.True(t, FileExists(existing))
	assert.False(t, FileExists(filepath.Join(tmpDir, "absent")))
}

func TestIsDir(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	assert.True(t, IsDir(tmpDir))
	assert.False(t, IsDir(file))
	assert.False(t, IsDir(filepath.Join(tmpDir, "missing")))
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	t.Run("CreatesFileWithPermissions", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "out.yaml")

		err := WriteFileAtomic(path, []byte("a: 1\n"), 0600)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "a: 1\n", string(data))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("ReplacesExistingFile", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "out.yaml")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0600))

		err := WriteFileAtomic(path, []byte("new"), 0600)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("LeavesNoTempFilesBehind", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "out.yaml")

		require.NoError(t, WriteFileAtomic(path, []byte("x"), 0600))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "out.yaml", entries[0].Name())
	})

	t.Run("FailsOnMissingDirectory", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "no", "such", "dir", "out.yaml")

		err := WriteFileAtomic(path, []byte("x"), 0600)
		require.Error(t, err)
	})
}

func TestResolvePath(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		got, err := ResolvePath("")
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})

	t.Run("Tilde", func(t *testing.T) {
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := ResolvePath("~/data")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "data"), got)
	})

	t.Run("EnvVar", func(t *testing.T) {
		t.Setenv("SOURCERER_TEST_DIR", "/opt/sourcerer")

		got, err := ResolvePath("$SOURCERER_TEST_DIR/config")
		require.NoError(t, err)
		assert.Equal(t, "/opt/sourcerer/config", got)
	})
}
