package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remcli/internal/config"
)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	base := t.TempDir()
	dataDir := filepath.Join(base, "data")

	return &config.Paths{
		ExecutableDir: base,
		DataDir:       dataDir,
		SessionsDir:   filepath.Join(dataDir, "sessions"),
		ReportsDir:    filepath.Join(dataDir, "reports"),
		CacheDir:      filepath.Join(dataDir, "cache"),
	}
}

func TestManagerWriteFile(t *testing.T) {
	paths := testPaths(t)
	manager := NewManager(paths)

	// The reports directory does not exist yet; WriteFile must create it.
	content := []byte("filename,frequency,left65\nleft_only,250,56.3\n")
	require.NoError(t, manager.WriteFile("reports/rem_measured_spl.csv", content))

	read, err := os.ReadFile(filepath.Join(paths.ReportsDir, "rem_measured_spl.csv"))
	require.NoError(t, err)
	assert.Equal(t, content, read)
}

func TestManagerMoveFile(t *testing.T) {
	paths := testPaths(t)
	manager := NewManager(paths)

	require.NoError(t, os.MkdirAll(paths.SessionsDir, 0755))
	src := filepath.Join(paths.SessionsDir, "move_me.xml")
	require.NoError(t, os.WriteFile(src, []byte("<verifit/>"), 0644))

	require.NoError(t, manager.MoveFile("sessions/move_me.xml", "cache/moved.xml"))

	assert.NoFileExists(t, src)
	assert.FileExists(t, filepath.Join(paths.CacheDir, "moved.xml"))
}

func TestManagerMoveFileMissingSource(t *testing.T) {
	manager := NewManager(testPaths(t))

	err := manager.MoveFile("sessions/ghost.xml", "cache/ghost.xml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "open source")
}

func TestManagerMoveFilePublishesWorkbook(t *testing.T) {
	paths := testPaths(t)
	manager := NewManager(paths)

	// Same pattern the workbook export uses: write beside the final path,
	// then rename into place.
	require.NoError(t, os.MkdirAll(paths.ReportsDir, 0755))
	tmp := filepath.Join(paths.ReportsDir, "rem_session_data.xlsx.tmp")
	final := filepath.Join(paths.ReportsDir, "rem_session_data.xlsx")
	require.NoError(t, os.WriteFile(tmp, []byte("workbook-bytes"), 0644))

	require.NoError(t, manager.MoveFile(tmp, final))

	assert.NoFileExists(t, tmp)
	read, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "workbook-bytes", string(read))
}

func TestManagerDeleteFile(t *testing.T) {
	paths := testPaths(t)
	manager := NewManager(paths)

	require.NoError(t, os.MkdirAll(paths.ReportsDir, 0755))
	target := filepath.Join(paths.ReportsDir, "stale.csv")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	require.NoError(t, manager.DeleteFile("reports/stale.csv"))
	assert.NoFileExists(t, target)

	assert.Error(t, manager.DeleteFile("reports/stale.csv"))
}

func TestManagerResolvePath(t *testing.T) {
	paths := testPaths(t)
	manager := NewManager(paths)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"sessions prefix", "sessions/a.xml", filepath.Join(paths.SessionsDir, "a.xml")},
		{"reports prefix", "reports/out.csv", filepath.Join(paths.ReportsDir, "out.csv")},
		{"cache prefix", "cache/tmp.bin", filepath.Join(paths.CacheDir, "tmp.bin")},
		{"bare name falls to data dir", "scratch.txt", filepath.Join(paths.DataDir, "scratch.txt")},
		{"absolute passthrough", "/etc/hosts", "/etc/hosts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, manager.resolvePath(tt.in))
		})
	}
}
