package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"remcli/internal/config"
)

// utf8BOM goes ahead of the header when BOMPrefix is set. Excel needs
// it to detect UTF-8 without the import wizard.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes report tables under the reports directory. Relative
// paths resolve against it, absolute paths pass through untouched.
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a writer rooted at the given paths.
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteOptions configures one WriteCSV call.
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// WriteCSV writes one report file, replacing any previous run's output.
func (w *CSVWriter) WriteCSV(path string, options WriteOptions) error {
	target := w.reportPath(path)

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	cw := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := cw.Write(options.Headers); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	slog.Debug("CSV written",
		slog.String("path", target),
		slog.Int("rows", len(options.Records)))

	return file.Close()
}

// reportPath resolves a report file name against the reports directory.
func (w *CSVWriter) reportPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return w.paths.GetReportPath(path)
}
