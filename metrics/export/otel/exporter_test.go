package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/hostelbites"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot hostelbites.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() hostelbites.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := hostelbites.MetricsSnapshot{
		Counters:   make(map[hostelbites.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[hostelbites.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) EventsDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) (int64, bool) {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				require.NotEmpty(t, data.DataPoints)
				return data.DataPoints[0].Value, true
			case metricdata.Gauge[int64]:
				require.NotEmpty(t, data.DataPoints)
				return data.DataPoints[0].Value, true
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("hostelbites-test")

	src := &fakeSource{
		snapshot: hostelbites.MetricsSnapshot{
			Counters: map[hostelbites.MetricID]uint64{
				hostelbites.MetricOrderPlaced: 3,
			},
			Histograms: map[hostelbites.MetricID][]uint64{
				hostelbites.MetricAPILatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporterFromSource(meter, src)
	require.NoError(t, err)
	defer func() { require.NoError(t, exp.Close()) }()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	v, ok := sumOf(t, rm, "hostelbites_order_placed_total")
	require.True(t, ok)
	assert.EqualValues(t, 3, v)

	v, ok = sumOf(t, rm, "hostelbites_api_latency_seconds_bucket_le_inf")
	require.True(t, ok)
	assert.EqualValues(t, 8, v)

	v, ok = sumOf(t, rm, "hostelbites_events_dropped_total")
	require.True(t, ok)
	assert.EqualValues(t, 1, v)
}

func TestExporterRejectsNil(t *testing.T) {
	_, provider := newReader()
	meter := provider.Meter("hostelbites-test")

	_, err := NewExporterFromSource(meter, nil)
	assert.ErrorIs(t, err, ErrNilSource)
	_, err = NewExporter(meter, nil)
	assert.ErrorIs(t, err, ErrNilSource)
	_, err = NewExporterFromSource(nil, &fakeSource{})
	assert.ErrorIs(t, err, ErrNilMeter)
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("hostelbites-test")

	src := &fakeSource{
		snapshot: hostelbites.MetricsSnapshot{
			Counters: map[hostelbites.MetricID]uint64{
				hostelbites.MetricLoginSuccess: 1,
			},
			Histograms: map[hostelbites.MetricID][]uint64{},
		},
	}

	exp, err := NewExporterFromSource(meter, src)
	require.NoError(t, err)
	defer func() { require.NoError(t, exp.Close()) }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[hostelbites.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
