package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"remcli/internal/config"
)

// Process-wide logger state. InitializeLogger installs the logger as the
// slog default as well, so package-level slog calls land in the same sinks.
var (
	global   *slog.Logger
	initOnce sync.Once

	sinkMu  sync.Mutex
	logSink *os.File
)

// InitializeLogger builds the application logger from cfg and installs it
// as the slog default. Repeated calls return the logger built by the first.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	initOnce.Do(func() {
		var logger *slog.Logger
		logger, err = newLogger(cfg)
		if err != nil {
			return
		}
		global = logger
		slog.SetDefault(logger)
	})
	return global, err
}

// GetLogger returns the initialized logger, or the slog default when
// InitializeLogger has not run yet.
func GetLogger() *slog.Logger {
	if global == nil {
		return slog.Default()
	}
	return global
}

func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	w, err := buildWriter(cfg)
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: true,
	})
	return slog.New(&traceInjector{inner: handler}), nil
}

// buildWriter maps cfg.Output to its sink. Records are JSON in every mode;
// "both" duplicates them to stdout and the log file.
func buildWriter(cfg config.LoggingConfig) (io.Writer, error) {
	switch strings.ToLower(cfg.Output) {
	case "file":
		return openLogSink(cfg.FilePath)
	case "both":
		f, err := openLogSink(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		return io.MultiWriter(os.Stdout, f), nil
	default:
		return os.Stdout, nil
	}
}

// openLogSink opens the log file in append mode, creating its directory
// first, and records it so CloseLogFile can release it on shutdown.
func openLogSink(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	sinkMu.Lock()
	logSink = f
	sinkMu.Unlock()
	return f, nil
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// parseLevel maps a configured level name to its slog level. Unknown names
// fall back to info rather than failing startup.
func parseLevel(name string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(name)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// CloseLogFile closes the log file sink if one is open. Safe to call more
// than once.
func CloseLogFile() error {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	if logSink == nil {
		return nil
	}
	err := logSink.Close()
	logSink = nil
	return err
}

// ResetLoggerForTesting clears the global logger so a test can initialize
// a fresh one.
func ResetLoggerForTesting() {
	CloseLogFile()
	global = nil
	initOnce = sync.Once{}
}

// WithComponent returns a logger tagged with the subsystem it logs for.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// WithError returns a logger carrying err as a standard attribute. A nil
// error leaves the logger untouched.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With(slog.String("error", err.Error()))
}

// WithFields returns a logger carrying every entry of fields. Keys are
// attached in sorted order so repeated runs produce identical records.
func WithFields(logger *slog.Logger, fields map[string]interface{}) *slog.Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return logger.With(args...)
}
