package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remcli/internal/config"
	"remcli/pkg/contracts"
)

type stubClientCounter struct {
	count int
}

func (s *stubClientCounter) ClientCount() int { return s.count }

func newHealthFixture(t *testing.T) (*HealthService, *config.Paths, *stubClientCounter) {
	t.Helper()
	tempDir := t.TempDir()
	sessionsDir := filepath.Join(tempDir, "sessions")
	reportsDir := filepath.Join(tempDir, "reports")
	require.NoError(t, os.MkdirAll(sessionsDir, 0755))
	require.NoError(t, os.MkdirAll(reportsDir, 0755))

	paths := config.PathsFor(sessionsDir, reportsDir)
	hub := &stubClientCounter{count: 3}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	info := contracts.VersionInfo{Version: "1.2.3", BuildTime: "2026-08-01T00:00:00Z"}
	hs := NewHealthService(info, paths, hub, nil, logger)
	return hs, paths, hub
}

func TestHealthService_HealthCheck(t *testing.T) {
	hs, _, _ := newHealthFixture(t)

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.False(t, status.Timestamp.IsZero())
	assert.Contains(t, status.Runtime, "go_version")
	assert.Contains(t, status.Services, "reports")
	assert.Contains(t, status.Services, "websocket")
	assert.Contains(t, status.Services, "extraction")

	reports, ok := status.Services["reports"].(ServiceHealth)
	require.True(t, ok)
	assert.Equal(t, "ok", reports.Status)

	extraction, ok := status.Services["extraction"].(ServiceHealth)
	require.True(t, ok)
	assert.Equal(t, "disabled", extraction.Status, "no runner wired in this fixture")
}

func TestHealthService_HealthCheckDegraded(t *testing.T) {
	hs, paths, _ := newHealthFixture(t)
	require.NoError(t, os.RemoveAll(paths.ReportsDir))

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "degraded", status.Status)

	reports, ok := status.Services["reports"].(ServiceHealth)
	require.True(t, ok)
	assert.Equal(t, "error", reports.Status)
	assert.NotEmpty(t, reports.Message)
}

func TestHealthService_Version(t *testing.T) {
	hs, _, _ := newHealthFixture(t)

	v := hs.Version()
	assert.Equal(t, "1.2.3", v.Version)
	assert.Equal(t, "2026-08-01T00:00:00Z", v.BuildTime)
	assert.False(t, v.StartTime.IsZero())
	assert.False(t, v.CurrentTime.Before(v.StartTime))
}

func TestHealthService_SystemStats(t *testing.T) {
	hs, paths, hub := newHealthFixture(t)

	for _, name := range []string{"a.xml", "b.xml"} {
		require.NoError(t, os.WriteFile(filepath.Join(paths.SessionsDir, name), []byte("<verifit_session/>"), 0644))
	}
	require.NoError(t, os.WriteFile(paths.MeasuredCSV, []byte("filename\n"), 0644))
	hub.count = 5

	stats := hs.SystemStats(context.Background())
	assert.Equal(t, 2, stats.SessionFiles)
	assert.Equal(t, 1, stats.ReportFiles)
	assert.Equal(t, 5, stats.WebSocketClients)
	assert.False(t, stats.ExtractionRunning)
	assert.Greater(t, stats.UptimeSeconds, float64(0))
	assert.NotEmpty(t, stats.GoVersion)
}

func TestHealthService_WithExtractionRunner(t *testing.T) {
	tempDir := t.TempDir()
	sessionsDir := filepath.Join(tempDir, "sessions")
	reportsDir := filepath.Join(tempDir, "reports")
	require.NoError(t, os.MkdirAll(sessionsDir, 0755))
	require.NoError(t, os.MkdirAll(reportsDir, 0755))

	paths := config.PathsFor(sessionsDir, reportsDir)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := NewExtractionService(testConfig(), paths, nil, logger, nil)
	hs := NewHealthService(contracts.VersionInfo{Version: "dev"}, paths, nil, runner, logger)

	status := hs.HealthCheck(context.Background())
	extraction, ok := status.Services["extraction"].(ServiceHealth)
	require.True(t, ok)
	assert.Equal(t, "idle", extraction.Status)
	assert.False(t, hs.SystemStats(context.Background()).ExtractionRunning)
}
