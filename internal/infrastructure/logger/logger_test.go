package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var _ gorm.ParamsFilter = (*GormLogger)(nil)

func TestNew(t *testing.T) {
	l, err := New(&Config{Level: "debug", Format: "json", Output: filepath.Join(t.TempDir(), "app.log")})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "app.log")})
	assert.Error(t, err)

	l, err = New(nil)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

type syncErrWriter struct{ err error }

func (w syncErrWriter) Write(p []byte) (int, error) { return len(p), nil }
func (w syncErrWriter) Sync() error                 { return w.err }

func TestSync(t *testing.T) {
	newLogger := func(err error) *zap.Logger {
		core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(syncErrWriter{err: err}), zapcore.InfoLevel)
		return zap.New(core)
	}

	assert.NoError(t, Sync(newLogger(nil)))
	assert.NoError(t, Sync(newLogger(&os.PathError{Op: "sync", Path: "/dev/stdout", Err: syscall.EINVAL})))
	assert.NoError(t, Sync(newLogger(&os.PathError{Op: "sync", Path: "/dev/stdout", Err: syscall.ENOTTY})))

	diskFull := errors.New("no space left on device")
	assert.ErrorIs(t, Sync(newLogger(diskFull)), diskFull)
}

func TestContextLogger_EnrichesFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUserID(ctx, "user-1")
	ctx = WithEventID(ctx, "evt_1")

	L(ctx).Info("processed")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "evt_1", fields["event_id"])
}

func TestFromContext_FallsBackToNop(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
	L(context.Background()).Info("dropped")
}

func TestGinMiddleware_RedactsToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("request_id", "req-42"); c.Next() })
	router.Use(GinMiddleware(zap.New(core)))
	router.POST("/webhooks/helloasso", func(c *gin.Context) {
		assert.Equal(t, "req-42", GetRequestID(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/helloasso?token=s3cret", nil)
	router.ServeHTTP(w, req)

	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	query := entries[0].ContextMap()["query"].(string)
	assert.NotContains(t, query, "s3cret")
	assert.Contains(t, query, "redacted")
}

func TestGinMiddleware_LevelByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, recorded.FilterMessage("Panic recovered").Len())
}

func TestGormLogger_Trace(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, WithSlowThreshold(10*time.Millisecond))
	fc := func() (string, int64) { return "SELECT 1", 1 }

	gl.Trace(context.Background(), time.Now(), fc, nil)
	gl.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	gl.Trace(context.Background(), time.Now(), fc, errors.New("syntax error"))
	gl.Trace(context.Background(), time.Now(), fc, gormlogger.ErrRecordNotFound)

	assert.Equal(t, 1, recorded.FilterMessage("Query executed").Len())
	assert.Equal(t, 1, recorded.FilterMessage("Slow query").Len())
	assert.Equal(t, 1, recorded.FilterMessage("Query failed").Len())
	assert.Equal(t, 3, recorded.Len())

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), fc, errors.New("ignored"))
	assert.Equal(t, 1, recorded.FilterMessage("Query failed").Len())
}

func TestGormLogger_TraceCarriesCorrelationIDs(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info)

	ctx := WithEventID(WithRequestID(context.Background(), "req-1"), "evt_123")
	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT close_tournee()", 1 }, nil)

	entries := recorded.FilterMessage("Query executed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "evt_123", fields["event_id"])
	assert.Equal(t, "SELECT", fields["statement"])
}

func TestGormLogger_ParamsFilterDropsDonorValues(t *testing.T) {
	const insert = `INSERT INTO "support_transactions" ("donor_name","donor_email") VALUES ($1,$2)`

	gl := NewGormLogger(zap.NewNop(), gormlogger.Info)
	sql, params := gl.ParamsFilter(context.Background(), insert, "Jeanne Martin", "jeanne@example.org")
	assert.Equal(t, insert, sql)
	assert.Empty(t, params)
	assert.Equal(t, insert, gormlogger.ExplainSQL(sql, nil, `'`, params...))

	dev := NewGormLogger(zap.NewNop(), gormlogger.Info, WithQueryValues(true))
	_, params = dev.ParamsFilter(context.Background(), insert, "Jeanne Martin", "jeanne@example.org")
	assert.Equal(t, []any{"Jeanne Martin", "jeanne@example.org"}, params)
}

func TestStatementKind(t *testing.T) {
	assert.Equal(t, "UPDATE", statementKind(`  update "card_payments" SET status=$1`))
	assert.Equal(t, "SELECT", statementKind("SELECT(1)"))
	assert.Equal(t, "", statementKind(""))
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("whatever"))
}
