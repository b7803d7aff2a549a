package infrastructure

import (
	"context"
	"log/slog"
)

// traceKey is the context key for the request trace ID. A private struct
// type keeps other packages from colliding with it.
type traceKey struct{}

// WithTraceID stores a trace ID on the context. The HTTP middleware seeds
// it from the chi request ID so log records correlate with responses.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// GetTraceID returns the trace ID stored on the context, or "" when the
// context carries none.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// traceInjector decorates a slog.Handler so every record logged with a
// trace-carrying context picks up a trace_id attribute. Derived loggers
// built with With keep the injection because WithAttrs re-wraps.
type traceInjector struct {
	inner slog.Handler
}

func (t *traceInjector) Enabled(ctx context.Context, level slog.Level) bool {
	return t.inner.Enabled(ctx, level)
}

func (t *traceInjector) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return t.inner.Handle(ctx, r)
}

func (t *traceInjector) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceInjector{inner: t.inner.WithAttrs(attrs)}
}

func (t *traceInjector) WithGroup(name string) slog.Handler {
	return &traceInjector{inner: t.inner.WithGroup(name)}
}
