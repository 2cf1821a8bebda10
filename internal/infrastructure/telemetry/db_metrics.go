package telemetry

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetrics records query latency and connection pool usage.
type DBMetrics struct {
	queryDuration metric.Float64Histogram
	slowQueries   metric.Int64Counter
	poolInUse     metric.Int64ObservableGauge
	poolIdle      metric.Int64ObservableGauge
	slowThreshold time.Duration
	registration  metric.Registration
	logger        *zap.Logger

	mu    sync.RWMutex
	sqlDB *sql.DB
}

// NewDBMetrics creates the instruments on meter.
func NewDBMetrics(meter metric.Meter, slowThreshold time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	m := &DBMetrics{slowThreshold: slowThreshold, logger: logger}

	var err error
	if m.queryDuration, err = meter.Float64Histogram("db_query_duration_seconds",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5)); err != nil {
		return nil, err
	}
	if m.slowQueries, err = meter.Int64Counter("db_slow_queries_total",
		metric.WithDescription("Queries slower than the configured threshold")); err != nil {
		return nil, err
	}
	if m.poolInUse, err = meter.Int64ObservableGauge("db_pool_in_use",
		metric.WithDescription("Connections currently in use")); err != nil {
		return nil, err
	}
	if m.poolIdle, err = meter.Int64ObservableGauge("db_pool_idle",
		metric.WithDescription("Idle connections")); err != nil {
		return nil, err
	}
	m.registration, err = meter.RegisterCallback(m.observePool, m.poolInUse, m.poolIdle)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SetSQLDB sets the pool observed by the gauges.
func (m *DBMetrics) SetSQLDB(db *sql.DB) {
	m.mu.Lock()
	m.sqlDB = db
	m.mu.Unlock()
}

func (m *DBMetrics) observePool(_ context.Context, o metric.Observer) error {
	m.mu.RLock()
	db := m.sqlDB
	m.mu.RUnlock()
	if db == nil {
		return nil
	}
	stats := db.Stats()
	o.ObserveInt64(m.poolInUse, int64(stats.InUse))
	o.ObserveInt64(m.poolIdle, int64(stats.Idle))
	return nil
}

// RecordQuery records one query.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("db.operation", operation),
		attribute.String("db.table", table),
		attribute.Bool("error", err != nil && err != gorm.ErrRecordNotFound),
	)
	m.queryDuration.Record(ctx, d.Seconds(), attrs)
	if d >= m.slowThreshold {
		m.slowQueries.Add(ctx, 1, attrs)
	}
}

// Stop unregisters the pool callback.
func (m *DBMetrics) Stop() {
	if m.registration != nil {
		_ = m.registration.Unregister()
	}
}

type dbMetricsContextKey struct{}

// DBMetricsPlugin is a gorm plugin timing every statement.
type DBMetricsPlugin struct {
	metrics *DBMetrics
}

// NewDBMetricsPlugin creates the plugin.
func NewDBMetricsPlugin(metrics *DBMetrics) *DBMetricsPlugin {
	return &DBMetricsPlugin{metrics: metrics}
}

// Name returns the plugin name.
func (p *DBMetricsPlugin) Name() string { return "db_metrics" }

// Initialize registers before/after callbacks on every processor.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	before := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, dbMetricsContextKey{}, time.Now())
	}
	after := func(op string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			ctx := db.Statement.Context
			start, ok := ctx.Value(dbMetricsContextKey{}).(time.Time)
			if !ok {
				return
			}
			operation := op
			if operation == "" {
				operation = operationOf(db.Statement.SQL.String())
			}
			p.metrics.RecordQuery(ctx, operation, db.Statement.Table, time.Since(start), db.Error)
		}
	}

	cb := db.Callback()
	regs := []struct {
		name   string
		before func(string) error
		after  func(string) error
		op     string
	}{
		{"create", func(n string) error { return cb.Create().Before("gorm:create").Register(n, before) },
			func(n string) error { return cb.Create().After("gorm:create").Register(n, after("INSERT")) }, "INSERT"},
		{"query", func(n string) error { return cb.Query().Before("gorm:query").Register(n, before) },
			func(n string) error { return cb.Query().After("gorm:query").Register(n, after("SELECT")) }, "SELECT"},
		{"update", func(n string) error { return cb.Update().Before("gorm:update").Register(n, before) },
			func(n string) error { return cb.Update().After("gorm:update").Register(n, after("UPDATE")) }, "UPDATE"},
		{"delete", func(n string) error { return cb.Delete().Before("gorm:delete").Register(n, before) },
			func(n string) error { return cb.Delete().After("gorm:delete").Register(n, after("DELETE")) }, "DELETE"},
		{"row", func(n string) error { return cb.Row().Before("gorm:row").Register(n, before) },
			func(n string) error { return cb.Row().After("gorm:row").Register(n, after("")) }, ""},
		{"raw", func(n string) error { return cb.Raw().Before("gorm:raw").Register(n, before) },
			func(n string) error { return cb.Raw().After("gorm:raw").Register(n, after("")) }, ""},
	}
	for _, r := range regs {
		if err := r.before("db_metrics:before_" + r.name); err != nil {
			return err
		}
		if err := r.after("db_metrics:after_" + r.name); err != nil {
			return err
		}
	}
	return nil
}

func operationOf(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}

// RegisterDBMetrics installs the plugin when metrics are exported.
func RegisterDBMetrics(db *gorm.DB, mp *MeterProvider, slowThreshold time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if mp == nil || !mp.IsEnabled() {
		return nil, nil
	}
	m, err := NewDBMetrics(mp.Meter("db.client"), slowThreshold, logger)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		m.SetSQLDB(sqlDB)
	}
	if err := db.Use(NewDBMetricsPlugin(m)); err != nil {
		m.Stop()
		return nil, err
	}
	logger.Info("Database metrics plugin registered")
	return m, nil
}
