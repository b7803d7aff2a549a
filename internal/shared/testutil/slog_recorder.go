// Package testutil provides test doubles shared across package tests.
package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// LogRecord is one captured log entry with its attributes flattened.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// SlogRecorder is an slog.Handler that captures records in memory so tests
// can assert on structured log output. Safe for concurrent use; extraction
// workers log from their own goroutines.
type SlogRecorder struct {
	attrs []slog.Attr
	store *recordStore
}

// NewSlogRecorder creates an empty recorder.
func NewSlogRecorder() *SlogRecorder {
	return &SlogRecorder{store: &recordStore{}}
}

// Logger returns a logger writing into the recorder.
func (h *SlogRecorder) Logger() *slog.Logger {
	return slog.New(h)
}

// Enabled implements slog.Handler; every level is recorded.
func (h *SlogRecorder) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (h *SlogRecorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.records = append(h.store.records, LogRecord{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

// WithAttrs implements slog.Handler. The derived handler shares the record
// store, so component loggers built with With() land in the same capture.
func (h *SlogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &SlogRecorder{attrs: merged, store: h.store}
}

// WithGroup implements slog.Handler. Groups are not nested in these tests;
// the group name is dropped.
func (h *SlogRecorder) WithGroup(string) slog.Handler {
	return h
}

// Records returns a snapshot of everything captured so far.
func (h *SlogRecorder) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	out := make([]LogRecord, len(h.store.records))
	copy(out, h.store.records)
	return out
}

// Find returns the first record with the given message, if any.
func (h *SlogRecorder) Find(message string) (LogRecord, bool) {
	for _, rec := range h.Records() {
		if rec.Message == message {
			return rec, true
		}
	}
	return LogRecord{}, false
}

// CountAtLevel returns how many records were captured at the given level.
func (h *SlogRecorder) CountAtLevel(level slog.Level) int {
	n := 0
	for _, rec := range h.Records() {
		if rec.Level == level {
			n++
		}
	}
	return n
}
