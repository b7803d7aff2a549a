package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"remcli/internal/config"
	"remcli/internal/dataset"
	"remcli/internal/exporter"
	"remcli/internal/infrastructure"
	"remcli/internal/validation"
	"remcli/internal/verifit"
	"remcli/pkg/contracts/domain"
	"remcli/pkg/contracts/events"
)

// Broadcaster pushes extraction lifecycle events to connected clients.
// Satisfied by *websocket.Hub.
type Broadcaster interface {
	BroadcastEnvelope(env events.Envelope)
}

// ExtractionStatus is the lifecycle state of the most recent run.
type ExtractionStatus string

const (
	StatusIdle      ExtractionStatus = "idle"
	StatusRunning   ExtractionStatus = "running"
	StatusCompleted ExtractionStatus = "completed"
	StatusFailed    ExtractionStatus = "failed"
)

// RunRequest carries the per-run overrides. Zero values fall back to the
// configured extraction defaults.
type RunRequest struct {
	SourceDir   string
	TestType    string
	Frequencies []int
	Workers     int
}

// ExtractionState is a snapshot of the current or most recent run.
type ExtractionState struct {
	OperationID string           `json:"operation_id,omitempty"`
	Status      ExtractionStatus `json:"status"`
	SourceDir   string           `json:"source_dir,omitempty"`
	TestType    string           `json:"test_type,omitempty"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
	FilesDone   int              `json:"files_done"`
	Processed   int              `json:"processed"`
	Failed      int              `json:"failed"`
	Reports     []string         `json:"reports,omitempty"`
	Error       string           `json:"error,omitempty"`
	DurationMS  float64          `json:"duration_ms,omitempty"`
}

// ExtractionService runs the extraction pipeline asynchronously. One run at
// a time; concurrent starts are rejected so two runs never race over the
// same report files.
type ExtractionService struct {
	cfg       *config.Config
	paths     *config.Paths
	hub       Broadcaster
	logger    *slog.Logger
	metrics   *infrastructure.BusinessMetrics
	validator *validation.FileValidator

	mu      sync.Mutex
	running bool
	state   ExtractionState
}

// NewExtractionService creates the extraction service.
func NewExtractionService(cfg *config.Config, paths *config.Paths, hub Broadcaster, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	componentLogger := infrastructure.WithComponent(logger, "extraction_service")
	return &ExtractionService{
		cfg:       cfg,
		paths:     paths,
		hub:       hub,
		logger:    componentLogger,
		metrics:   metrics,
		validator: validation.NewFileValidator(componentLogger),
		state:     ExtractionState{Status: StatusIdle},
	}
}

// Run starts an asynchronous extraction and returns its operation ID. The
// pipeline keeps going after the caller's request finishes; progress is
// broadcast on the hub and the final state is available through Status.
func (s *ExtractionService) Run(ctx context.Context, req RunRequest) (string, error) {
	sourceDir := req.SourceDir
	if sourceDir == "" {
		sourceDir = s.cfg.Extraction.SourceDir
	}
	if sourceDir == "" {
		sourceDir = s.paths.SessionsDir
	}
	sourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}
	// An empty directory passes here; that run fails asynchronously with
	// an empty-batch error instead.
	if _, err := s.validator.ValidateSessionDirectory(sourceDir); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceDirInvalid, err)
	}

	testType := req.TestType
	if testType == "" {
		testType = s.cfg.Extraction.TestType
	}
	freqs := req.Frequencies
	if len(freqs) == 0 {
		freqs = s.cfg.Extraction.Frequencies
	}
	workers := req.Workers
	if workers <= 0 {
		workers = s.cfg.Extraction.Workers
	}

	opID := uuid.New().String()

	// Validate before claiming the single run slot so a bad request
	// does not block a later good one.
	ext, err := verifit.New(verifit.Options{
		TestType:    domain.TestType(testType),
		Frequencies: freqs,
		Workers:     workers,
		Logger:      s.logger,
		Metrics:     s.metrics,
		OnFileDone:  s.fileDoneHook(opID),
	})
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return "", ErrExtractionRunning
	}
	now := time.Now()
	s.running = true
	s.state = ExtractionState{
		OperationID: opID,
		Status:      StatusRunning,
		SourceDir:   sourceDir,
		TestType:    string(ext.TestType()),
		StartedAt:   &now,
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "extraction run accepted",
		slog.String("operation_id", opID),
		slog.String("source_dir", sourceDir),
		slog.String("test_type", string(ext.TestType())))

	timeout := s.cfg.Server.RunTimeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	// Detach from the request context so the run survives the HTTP
	// response, keeping trace linkage for the run span.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	go func() {
		defer cancel()
		s.runPipeline(runCtx, opID, ext, sourceDir)
	}()

	return opID, nil
}

// Status returns a snapshot of the current or most recent run.
func (s *ExtractionService) Status(ctx context.Context) ExtractionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state
	snap.Reports = append([]string(nil), s.state.Reports...)
	return snap
}

// Running reports whether a run is in flight.
func (s *ExtractionService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// fileDoneHook builds the per-file callback. It runs on worker goroutines.
func (s *ExtractionService) fileDoneHook(opID string) func(*verifit.FileResult) {
	return func(res *verifit.FileResult) {
		s.mu.Lock()
		s.state.FilesDone++
		s.mu.Unlock()

		payload := events.ExtractionFileDone{
			OperationID: opID,
			Filename:    res.Filename,
			Success:     res.Err == nil,
			Notices:     len(res.Notices),
			DurationMS:  float64(res.Duration.Milliseconds()),
		}
		if res.Err != nil {
			payload.Error = res.Err.Error()
		} else if res.Session != nil {
			payload.Curves = len(res.Session.Measured) + len(res.Session.Targets)
		}
		s.broadcast(events.MessageTypeExtractionFileDone, payload)
	}
}

func (s *ExtractionService) runPipeline(ctx context.Context, opID string, ext *verifit.Extractor, sourceDir string) {
	start := time.Now()
	testType := string(ext.TestType())

	infrastructure.RecordActiveExtractionChange(ctx, s.metrics, 1, testType)
	defer infrastructure.RecordActiveExtractionChange(ctx, s.metrics, -1, testType)

	s.broadcast(events.MessageTypeExtractionStarted, events.ExtractionStarted{
		OperationID: opID,
		SourceDir:   sourceDir,
		TestType:    testType,
	})

	batch, err := ext.Run(ctx, sourceDir)
	if err != nil {
		s.finishFailed(ctx, opID, testType, err, start)
		return
	}

	diffs := dataset.Diffs(dataset.Unpivot(batch.Measured), dataset.Unpivot(batch.Targets))

	exp := exporter.NewReportExporter(s.paths, exporter.ExportOptions{
		BOM:      s.cfg.Extraction.CSVBOM,
		Workbook: s.cfg.Extraction.Workbook,
		Metrics:  s.metrics,
	})
	reports, err := exp.ExportAll(ctx, exporter.ResultTables{
		Measured: batch.Measured,
		Targets:  batch.Targets,
		AidedSII: batch.AidedSII,
		Diffs:    diffs,
	})
	if err != nil {
		s.finishFailed(ctx, opID, testType, err, start)
		return
	}

	duration := time.Since(start)
	now := time.Now()
	s.mu.Lock()
	s.running = false
	s.state.Status = StatusCompleted
	s.state.Processed = batch.Processed
	s.state.Failed = batch.Failed
	s.state.Reports = reports
	s.state.FinishedAt = &now
	s.state.DurationMS = float64(duration.Milliseconds())
	s.mu.Unlock()

	infrastructure.RecordExtractionMetrics(ctx, s.metrics, opID, testType, duration, true, nil)

	s.broadcast(events.MessageTypeExtractionCompleted, events.ExtractionCompleted{
		OperationID: opID,
		Processed:   batch.Processed,
		Failed:      batch.Failed,
		Reports:     reports,
		DurationMS:  float64(duration.Milliseconds()),
	})

	s.logger.InfoContext(ctx, "extraction run completed",
		slog.String("operation_id", opID),
		slog.Int("processed", batch.Processed),
		slog.Int("failed", batch.Failed),
		slog.Duration("duration", duration))
}

func (s *ExtractionService) finishFailed(ctx context.Context, opID, testType string, err error, start time.Time) {
	duration := time.Since(start)
	now := time.Now()
	s.mu.Lock()
	s.running = false
	s.state.Status = StatusFailed
	s.state.Error = err.Error()
	s.state.FinishedAt = &now
	s.state.DurationMS = float64(duration.Milliseconds())
	s.mu.Unlock()

	infrastructure.RecordExtractionMetrics(ctx, s.metrics, opID, testType, duration, false, err)

	s.broadcast(events.MessageTypeExtractionFailed, events.ExtractionFailed{
		OperationID: opID,
		Error:       err.Error(),
		DurationMS:  float64(duration.Milliseconds()),
	})

	s.logger.ErrorContext(ctx, "extraction run failed",
		slog.String("operation_id", opID),
		slog.String("error", err.Error()),
		slog.Duration("duration", duration))
}

func (s *ExtractionService) broadcast(t events.MessageType, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEnvelope(events.NewEnvelope(t, payload))
}
