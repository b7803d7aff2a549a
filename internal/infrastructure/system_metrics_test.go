package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRegisterRuntimeMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	rm, err := RegisterRuntimeMetrics(mp.Meter("runtime-test"), time.Now())
	require.NoError(t, err)
	require.NotNil(t, rm)

	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &data))
	require.Len(t, data.ScopeMetrics, 1)

	names := make(map[string]bool)
	for _, m := range data.ScopeMetrics[0].Metrics {
		names[m.Name] = true
	}
	assert.True(t, names["system_goroutines"])
	assert.True(t, names["system_memory_heap_bytes"])
	assert.True(t, names["system_memory_sys_bytes"])
	assert.True(t, names["system_gc_total"])
	assert.True(t, names["system_gc_pause_total_seconds"])
	assert.True(t, names["system_uptime_seconds"])

	require.NoError(t, rm.Unregister())

	// After unregistering the callback no longer contributes observations.
	var after metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &after))
	for _, sm := range after.ScopeMetrics {
		assert.Empty(t, sm.Metrics)
	}
}

func TestRuntimeMetricsUnregisterNil(t *testing.T) {
	var rm *RuntimeMetrics
	assert.NoError(t, rm.Unregister())
}
