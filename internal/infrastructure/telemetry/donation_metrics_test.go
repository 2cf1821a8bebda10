package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestDonationMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewDonationMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.DonationRecorded(ctx, "terrain", "especes", "fiscal", decimal.NewFromInt(20))
	m.DonationRecorded(ctx, "terrain", "especes", "fiscal", decimal.NewFromInt(10))
	m.WebhookHandled(ctx, "stripe", "checkout.session.completed", "processed", 30*time.Millisecond)
	m.ReceiptIssued(ctx, "sent")
	m.TourneeClosed(ctx)

	got := collect(t, reader)

	donations, ok := got["donations_recorded_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, donations.DataPoints, 1)
	assert.Equal(t, int64(2), donations.DataPoints[0].Value)

	amount, ok := got["donations_amount_total"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	assert.InDelta(t, 30.0, amount.DataPoints[0].Value, 0.001)

	hist, ok := got["webhook_processing_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	assert.Contains(t, got, "receipts_issued_total")
	assert.Contains(t, got, "tournees_closed_total")
}

func TestDonationMetrics_NilSafe(t *testing.T) {
	var m *DonationMetrics
	assert.NotPanics(t, func() {
		m.DonationRecorded(context.Background(), "terrain", "cheque", "soutien", decimal.NewFromInt(5))
		m.WebhookHandled(context.Background(), "stripe", "unhandled", "ignored", time.Second)
		m.ReceiptIssued(context.Background(), "failed")
		m.TourneeClosed(context.Background())
	})
}

func TestNewDonationMetrics_NilMeter(t *testing.T) {
	_, err := NewDonationMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestOperationOf(t *testing.T) {
	assert.Equal(t, "SELECT", operationOf("  select * from receipts"))
	assert.Equal(t, "INSERT", operationOf("INSERT INTO receipts"))
	assert.Equal(t, "OTHER", operationOf("WITH x AS (SELECT 1) SELECT * FROM x"))
}
