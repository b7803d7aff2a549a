package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"remcli/internal/config"
)

// Manager performs write operations inside the data tree. The exporter
// publishes workbooks through it and the server probes directory
// writability with it at startup.
type Manager struct {
	paths *config.Paths
}

// NewManager creates a manager rooted at the given paths.
func NewManager(paths *config.Paths) *Manager {
	return &Manager{paths: paths}
}

// WriteFile writes data, creating the parent directory when missing.
func (m *Manager) WriteFile(path string, data []byte) error {
	target := m.resolvePath(path)

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return err
	}

	slog.Debug("file written",
		slog.String("path", target),
		slog.Int("size_bytes", len(data)))
	return nil
}

// MoveFile renames src onto dst, falling back to copy-and-delete when
// the two live on different filesystems. The rename path is atomic,
// which keeps a half-written workbook from ever being served.
func (m *Manager) MoveFile(src, dst string) error {
	srcPath := m.resolvePath(src)
	dstPath := m.resolvePath(dst)

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	if err := os.Rename(srcPath, dstPath); err == nil {
		return nil
	}

	if err := copyFile(srcPath, dstPath); err != nil {
		return err
	}
	return os.Remove(srcPath)
}

// DeleteFile removes one file.
func (m *Manager) DeleteFile(path string) error {
	return os.Remove(m.resolvePath(path))
}

// copyFile duplicates srcPath at dstPath and syncs the copy before
// reporting success.
func copyFile(srcPath, dstPath string) error {
	srcFile, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("copy content: %w", err)
	}
	return dstFile.Sync()
}

// resolvePath maps a relative path into the data tree. Callers mostly
// hold absolute paths already; the prefixed forms address the named
// subdirectories and anything else lands in the data directory.
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	switch {
	case strings.HasPrefix(path, "sessions/"):
		return m.paths.GetSessionPath(strings.TrimPrefix(path, "sessions/"))
	case strings.HasPrefix(path, "reports/"):
		return m.paths.GetReportPath(strings.TrimPrefix(path, "reports/"))
	case strings.HasPrefix(path, "cache/"):
		return m.paths.GetCachePath(strings.TrimPrefix(path, "cache/"))
	default:
		return filepath.Join(m.paths.DataDir, path)
	}
}
