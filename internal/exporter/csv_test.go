package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remcli/internal/config"
)

// setupTestEnv creates a CSV writer rooted at a temporary directory tree.
func setupTestEnv(t *testing.T) (*CSVWriter, string) {
	t.Helper()

	tempDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "reports"), 0755))

	writer := NewCSVWriter(&config.Paths{
		SessionsDir: filepath.Join(tempDir, "sessions"),
		ReportsDir:  filepath.Join(tempDir, "reports"),
	})

	return writer, tempDir
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, filePath string)
	}{
		{
			name:     "basic write with headers",
			filePath: "test_basic.csv",
			options: WriteOptions{
				Headers: []string{"filename", "data", "frequency"},
				Records: [][]string{
					{"patient_a", "measured", "1000"},
					{"patient_b", "measured", "2000"},
				},
			},
			validate: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				require.NoError(t, err)

				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Len(t, lines, 3)
				assert.Equal(t, "filename,data,frequency", lines[0])
				assert.Equal(t, "patient_a,measured,1000", lines[1])
				assert.Equal(t, "patient_b,measured,2000", lines[2])
			},
		},
		{
			name:     "write with BOM prefix",
			filePath: "test_bom.csv",
			options: WriteOptions{
				Headers:   []string{"filename", "left65"},
				Records:   [][]string{{"patient_a", "65.50"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				require.NoError(t, err)

				assert.True(t, bytes.HasPrefix(content, utf8BOM))

				lines := strings.Split(strings.TrimSpace(string(content[3:])), "\n")
				assert.Equal(t, "filename,left65", lines[0])
				assert.Equal(t, "patient_a,65.50", lines[1])
			},
		},
		{
			name:     "write without headers",
			filePath: "test_no_headers.csv",
			options: WriteOptions{
				Records: [][]string{
					{"patient_a", "65.50"},
					{"patient_b", "70.00"},
				},
			},
			validate: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				require.NoError(t, err)

				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Len(t, lines, 2)
				assert.Equal(t, "patient_a,65.50", lines[0])
			},
		},
		{
			name:     "empty records write header only",
			filePath: "test_empty.csv",
			options: WriteOptions{
				Headers: []string{"filename", "data"},
				Records: [][]string{},
			},
			validate: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				require.NoError(t, err)

				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Len(t, lines, 1)
				assert.Equal(t, "filename,data", lines[0])
			},
		},
		{
			name:     "empty cells survive round trip",
			filePath: "test_absent.csv",
			options: WriteOptions{
				Headers: []string{"filename", "left65", "right65"},
				Records: [][]string{{"patient_a", "", "72.25"}},
			},
			validate: func(t *testing.T, filePath string) {
				file, err := os.Open(filePath)
				require.NoError(t, err)
				defer file.Close()

				records, err := csv.NewReader(file).ReadAll()
				require.NoError(t, err)
				require.Len(t, records, 2)
				assert.Equal(t, []string{"patient_a", "", "72.25"}, records[1])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := writer.WriteCSV(tt.filePath, tt.options)
			require.NoError(t, err)
			tt.validate(t, filepath.Join(tempDir, "reports", tt.filePath))
		})
	}
}

func TestCSVWriter_ReplacesPreviousRun(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	require.NoError(t, writer.WriteCSV("measured_spl.csv", WriteOptions{
		Headers: []string{"filename", "left65"},
		Records: [][]string{{"patient_a", "65.50"}, {"patient_b", "70.00"}},
	}))
	require.NoError(t, writer.WriteCSV("measured_spl.csv", WriteOptions{
		Headers: []string{"filename", "left65"},
		Records: [][]string{{"patient_c", "61.25"}},
	}))

	content, err := os.ReadFile(filepath.Join(tempDir, "reports", "measured_spl.csv"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Equal(t, []string{"filename,left65", "patient_c,61.25"}, lines)
}

func TestCSVWriter_ReportPath(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	abs := filepath.Join(tempDir, "elsewhere.csv")
	assert.Equal(t, abs, writer.reportPath(abs))
	assert.Equal(t, filepath.Join(tempDir, "reports", "diffs.csv"), writer.reportPath("diffs.csv"))
}

func TestCSVWriter_CreatesMissingReportDir(t *testing.T) {
	tempDir := t.TempDir()
	writer := NewCSVWriter(&config.Paths{
		ReportsDir: filepath.Join(tempDir, "reports"),
	})

	require.NoError(t, writer.WriteCSV("aided_sii.csv", WriteOptions{
		Headers: []string{"filename", "left65"},
	}))
	assert.FileExists(t, filepath.Join(tempDir, "reports", "aided_sii.csv"))
}
