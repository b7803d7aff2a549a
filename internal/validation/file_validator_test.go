package validation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator() *FileValidator {
	return NewFileValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestValidateSessionDirectory(t *testing.T) {
	v := newTestValidator()

	t.Run("counts session files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "patient_a.xml"), []byte("<x/>"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "patient_b.xml"), []byte("<x/>"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("n"), 0o644))

		count, err := v.ValidateSessionDirectory(dir)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("empty directory is not an error", func(t *testing.T) {
		count, err := v.ValidateSessionDirectory(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := v.ValidateSessionDirectory(filepath.Join(t.TempDir(), "absent"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("path is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plain")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		_, err := v.ValidateSessionDirectory(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not a directory")
	})
}

func TestValidateReportsDirectory(t *testing.T) {
	v := newTestValidator()

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "reports", "nested")
		require.NoError(t, v.ValidateReportsDirectory(dir))

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("removes the write probe", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, v.ValidateReportsDirectory(dir))

		_, err := os.Stat(filepath.Join(dir, ".write_test"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("parent is a file", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

		err := v.ValidateReportsDirectory(filepath.Join(blocker, "reports"))
		require.Error(t, err)
	})
}

func TestValidateSessionFile(t *testing.T) {
	v := newTestValidator()
	dir := t.TempDir()

	valid := filepath.Join(dir, "patient_a.xml")
	require.NoError(t, os.WriteFile(valid, []byte("<verifit_session/>"), 0o644))

	t.Run("valid file", func(t *testing.T) {
		assert.NoError(t, v.ValidateSessionFile(valid))
	})

	t.Run("missing file", func(t *testing.T) {
		err := v.ValidateSessionFile(filepath.Join(dir, "absent.xml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(dir, "report.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b"), 0o644))

		err := v.ValidateSessionFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a session export")
	})

	t.Run("lock file", func(t *testing.T) {
		path := filepath.Join(dir, "~$patient_a.xml")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		err := v.ValidateSessionFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lock file")
	})

	t.Run("directory", func(t *testing.T) {
		sub := filepath.Join(dir, "nested.xml")
		require.NoError(t, os.Mkdir(sub, 0o755))

		err := v.ValidateSessionFile(sub)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is a directory")
	})
}
