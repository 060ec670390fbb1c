package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecordQuery_ExportsCounterAndHistogram(t *testing.T) {
	reader := metric.NewManualReader()
	obs, err := newWithReader("assistant-test", reader)
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	obs.RecordQuery(context.Background(), "data_analysis", true, false, 120*time.Millisecond)
	obs.RecordQuery(context.Background(), "data_analysis", true, true, 2*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = m
	}

	counter, ok := names["assistant.queries.processed"]
	require.True(t, ok)
	sum := counter.Data.(metricdata.Sum[int64])
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)

	_, ok = names["assistant.queries.duration"]
	assert.True(t, ok)
}

func TestNoopRecorder(t *testing.T) {
	var nilObs *Observability
	assert.NotPanics(t, func() {
		nilObs.RecordQuery(context.Background(), "general", false, false, time.Second)
		NewNoop().RecordQuery(context.Background(), "general", false, false, time.Second)
	})
	assert.NoError(t, NewNoop().Shutdown(context.Background()))
}
