package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics exposes Go runtime gauges through the OTel meter. The
// instruments are observable, so the runtime is only sampled when the
// Prometheus endpoint is actually scraped.
type RuntimeMetrics struct {
	registration metric.Registration
}

// RegisterRuntimeMetrics registers goroutine, heap, GC and uptime
// instruments on the given meter and returns a handle that can detach
// them again during shutdown.
func RegisterRuntimeMetrics(meter metric.Meter, start time.Time) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64ObservableGauge(
		"system_goroutines",
		metric.WithDescription("Number of live goroutines"),
	)
	if err != nil {
		return nil, fmt.Errorf("create goroutine gauge: %w", err)
	}

	heapAlloc, err := meter.Int64ObservableGauge(
		"system_memory_heap_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create heap gauge: %w", err)
	}

	heapSys, err := meter.Int64ObservableGauge(
		"system_memory_sys_bytes",
		metric.WithDescription("Bytes of heap memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create heap sys gauge: %w", err)
	}

	gcCount, err := meter.Int64ObservableCounter(
		"system_gc_total",
		metric.WithDescription("Completed GC cycles"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gc counter: %w", err)
	}

	gcPause, err := meter.Float64ObservableCounter(
		"system_gc_pause_total_seconds",
		metric.WithDescription("Cumulative GC stop-the-world pause time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gc pause counter: %w", err)
	}

	uptime, err := meter.Float64ObservableGauge(
		"system_uptime_seconds",
		metric.WithDescription("Seconds since the process started"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create uptime gauge: %w", err)
	}

	registration, err := meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)

			o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
			o.ObserveInt64(heapAlloc, int64(ms.HeapAlloc))
			o.ObserveInt64(heapSys, int64(ms.HeapSys))
			o.ObserveInt64(gcCount, int64(ms.NumGC))
			o.ObserveFloat64(gcPause, time.Duration(ms.PauseTotalNs).Seconds())
			o.ObserveFloat64(uptime, time.Since(start).Seconds())
			return nil
		},
		goroutines, heapAlloc, heapSys, gcCount, gcPause, uptime,
	)
	if err != nil {
		return nil, fmt.Errorf("register runtime callback: %w", err)
	}

	return &RuntimeMetrics{registration: registration}, nil
}

// Unregister detaches the runtime instruments from the meter.
func (rm *RuntimeMetrics) Unregister() error {
	if rm == nil || rm.registration == nil {
		return nil
	}
	return rm.registration.Unregister()
}
