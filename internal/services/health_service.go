package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"remcli/internal/config"
	"remcli/internal/files"
	"remcli/internal/infrastructure"
	"remcli/pkg/contracts"
)

// ClientCounter reports connected WebSocket clients. Satisfied by
// *websocket.Hub.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides liveness, version and system statistics.
type HealthService struct {
	info      contracts.VersionInfo
	paths     *config.Paths
	hub       ClientCounter
	runner    *ExtractionService
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the /api/health response body.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth describes one dependency inside HealthStatus.
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemStats summarizes the data directories and live connections.
type SystemStats struct {
	UptimeSeconds     float64    `json:"uptime_seconds"`
	SessionFiles      int        `json:"session_files"`
	ReportFiles       int        `json:"report_files"`
	LastReportAt      *time.Time `json:"last_report_at,omitempty"`
	WebSocketClients  int        `json:"websocket_clients"`
	ExtractionRunning bool       `json:"extraction_running"`
	GoVersion         string     `json:"go_version"`
	OS                string     `json:"os"`
	Arch              string     `json:"arch"`
}

// NewHealthService creates a health service with injected dependencies.
func NewHealthService(info contracts.VersionInfo, paths *config.Paths, hub ClientCounter, runner *ExtractionService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		info:      info,
		paths:     paths,
		hub:       hub,
		runner:    runner,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck returns the overall health status.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.info.Version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
		Services: map[string]interface{}{
			"reports":    hs.checkReportsHealth(),
			"websocket":  hs.checkWebSocketHealth(),
			"extraction": hs.checkExtractionHealth(ctx),
		},
	}

	for _, svc := range status.Services {
		if sh, ok := svc.(ServiceHealth); ok && sh.Status == "error" {
			status.Status = "degraded"
			break
		}
	}
	return status
}

func (hs *HealthService) checkReportsHealth() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "error", Message: "paths not configured"}
	}
	if !config.FileExists(hs.paths.ReportsDir) {
		return ServiceHealth{Status: "error", Message: "reports directory missing"}
	}
	return ServiceHealth{Status: "ok"}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "disabled"}
	}
	return ServiceHealth{Status: "ok"}
}

func (hs *HealthService) checkExtractionHealth(ctx context.Context) ServiceHealth {
	if hs.runner == nil {
		return ServiceHealth{Status: "disabled"}
	}
	state := hs.runner.Status(ctx)
	return ServiceHealth{Status: string(state.Status)}
}

// VersionPayload is the /api/version response body.
type VersionPayload struct {
	contracts.VersionInfo
	StartTime   time.Time `json:"start_time"`
	CurrentTime time.Time `json:"current_time"`
}

// Version returns the version facts plus process timing.
func (hs *HealthService) Version() VersionPayload {
	return VersionPayload{
		VersionInfo: hs.info,
		StartTime:   hs.startTime.UTC(),
		CurrentTime: time.Now().UTC(),
	}
}

// SystemStats returns system statistics for the health payload.
func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}

	if hs.paths != nil {
		discovery := files.NewDiscovery(hs.paths.ExecutableDir)
		if sessions, err := discovery.FindSessionFiles(hs.paths.SessionsDir); err == nil {
			stats.SessionFiles = len(sessions)
		}
		if reports, err := discovery.FindReportFiles(hs.paths.ReportsDir); err == nil {
			stats.ReportFiles = len(reports)
			if latest, ok := files.GetLatestFile(reports); ok {
				modTime := latest.ModTime
				stats.LastReportAt = &modTime
			}
		}
	}
	if hs.hub != nil {
		stats.WebSocketClients = hs.hub.ClientCount()
	}
	if hs.runner != nil {
		stats.ExtractionRunning = hs.runner.Running()
	}

	hs.logger.DebugContext(ctx, "system stats collected",
		slog.Int("session_files", stats.SessionFiles),
		slog.Int("report_files", stats.ReportFiles))
	return stats
}
