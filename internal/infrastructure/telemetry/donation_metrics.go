package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DonationMetrics records the business counters of the donation flows.
// A nil *DonationMetrics is valid and records nothing.
type DonationMetrics struct {
	donations       metric.Int64Counter
	donationAmount  metric.Float64Counter
	webhookEvents   metric.Int64Counter
	webhookDuration metric.Float64Histogram
	receipts        metric.Int64Counter
	closures        metric.Int64Counter
}

// NewDonationMetrics creates the instruments on meter.
func NewDonationMetrics(meter metric.Meter) (*DonationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &DonationMetrics{}
	var err error

	if m.donations, err = meter.Int64Counter("donations_recorded_total",
		metric.WithDescription("Support transactions recorded"),
		metric.WithUnit("{donation}")); err != nil {
		return nil, fmt.Errorf("donations_recorded_total: %w", err)
	}
	if m.donationAmount, err = meter.Float64Counter("donations_amount_total",
		metric.WithDescription("Sum of recorded donation amounts"),
		metric.WithUnit("EUR")); err != nil {
		return nil, fmt.Errorf("donations_amount_total: %w", err)
	}
	if m.webhookEvents, err = meter.Int64Counter("webhook_events_total",
		metric.WithDescription("Payment provider webhook events by kind and outcome"),
		metric.WithUnit("{event}")); err != nil {
		return nil, fmt.Errorf("webhook_events_total: %w", err)
	}
	if m.webhookDuration, err = meter.Float64Histogram("webhook_processing_duration_seconds",
		metric.WithDescription("Time spent handling one webhook event"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10)); err != nil {
		return nil, fmt.Errorf("webhook_processing_duration_seconds: %w", err)
	}
	if m.receipts, err = meter.Int64Counter("receipts_issued_total",
		metric.WithDescription("Receipts issued by delivery outcome"),
		metric.WithUnit("{receipt}")); err != nil {
		return nil, fmt.Errorf("receipts_issued_total: %w", err)
	}
	if m.closures, err = meter.Int64Counter("tournees_closed_total",
		metric.WithDescription("Collection rounds closed"),
		metric.WithUnit("{tournee}")); err != nil {
		return nil, fmt.Errorf("tournees_closed_total: %w", err)
	}
	return m, nil
}

// DonationRecorded counts one inserted transaction.
func (m *DonationMetrics) DonationRecorded(ctx context.Context, source, method, txType string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("payment_method", method),
		attribute.String("transaction_type", txType),
	)
	m.donations.Add(ctx, 1, attrs)
	m.donationAmount.Add(ctx, amount.InexactFloat64(), attrs)
}

// WebhookHandled counts one webhook event and its handling time.
func (m *DonationMetrics) WebhookHandled(ctx context.Context, provider, kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	)
	m.webhookEvents.Add(ctx, 1, attrs)
	m.webhookDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// ReceiptIssued counts one receipt with its delivery status.
func (m *DonationMetrics) ReceiptIssued(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.receipts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// TourneeClosed counts one closed round.
func (m *DonationMetrics) TourneeClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.closures.Add(ctx, 1)
}
