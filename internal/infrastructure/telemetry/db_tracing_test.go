package telemetry

import (
	"context"
	"testing"

	"github.com/amicale-sp/calendriers/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestRegisterDBTracing_RecordsStatements(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	db := openSQLite(t)
	require.NoError(t, RegisterDBTracing(db, config.TelemetryConfig{Enabled: true}, zap.NewNop(),
		otelgorm.WithTracerProvider(tp)))

	ctx, parent := tp.Tracer("test").Start(context.Background(), "close")
	var n int
	require.NoError(t, db.WithContext(ctx).Raw("SELECT ?", 42).Scan(&n).Error)
	parent.End()
	assert.Equal(t, 42, n)

	var statementSpans int
	for _, span := range recorder.Ended() {
		if span.Parent().SpanID() == parent.SpanContext().SpanID() {
			statementSpans++
		}
	}
	assert.Equal(t, 1, statementSpans)
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, RegisterDBTracing(db, config.TelemetryConfig{Enabled: false}, nil))

	_, installed := db.Config.Plugins["otelgorm"]
	assert.False(t, installed)
}
