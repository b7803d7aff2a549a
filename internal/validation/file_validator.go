// Package validation checks the on-disk prerequisites of an extraction run
// before any workers start, so a bad -dir or an unwritable output tree
// fails with one clear error instead of a pile of per-file failures.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"remcli/internal/files"
)

// FileValidator vets the session and report directories for an extraction run.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator builds a validator that reports findings through
// logger, falling back to the default logger when given nil.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateSessionDirectory verifies the session directory exists and returns
// the number of session exports in it. An empty directory is not an error;
// the run just has nothing to do.
func (v *FileValidator) ValidateSessionDirectory(dir string) (int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("session directory missing",
			slog.String("directory", dir))
		return 0, fmt.Errorf("session directory %s does not exist", dir)
	}
	if err != nil {
		return 0, fmt.Errorf("stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("session path is not a directory",
			slog.String("path", dir))
		return 0, fmt.Errorf("%s is not a directory", dir)
	}

	// Counting through the same discovery the extractor uses keeps this
	// number in agreement with what the run will actually process.
	sessions, err := files.NewDiscovery("").FindSessionFiles(dir)
	if err != nil {
		return 0, fmt.Errorf("scan session files: %w", err)
	}

	count := len(sessions)
	if count == 0 {
		v.logger.Warn("no session files found",
			slog.String("directory", dir))
		return 0, nil
	}

	v.logger.Info("session directory validated",
		slog.String("directory", dir),
		slog.Int("files_found", count))
	return count, nil
}

// ValidateReportsDirectory ensures the reports directory exists and is
// writable, creating it when missing.
func (v *FileValidator) ValidateReportsDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("reports directory create failed",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("create reports directory %s: %w", dir, err)
	}

	marker := filepath.Join(dir, ".write_probe")
	probe, err := os.Create(marker)
	if err != nil {
		v.logger.Error("reports directory not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("reports directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(marker)

	v.logger.Debug("reports directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateSessionFile checks that one session export exists, is a regular
// readable file and carries the .xml extension. Office lock files such as
// ~$patient.xml are rejected.
func (v *FileValidator) ValidateSessionFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("session file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a session file", path)
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext != ".xml" {
		return fmt.Errorf("file %s is not a session export (extension: %s)", path, ext)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("file %s is a temporary lock file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("session file %s is not readable: %w", path, err)
	}
	f.Close()

	v.logger.Debug("session file validated",
		slog.String("file", path),
		slog.Int64("size_bytes", info.Size()))
	return nil
}
