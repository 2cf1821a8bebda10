package telemetry

import (
	"fmt"

	"github.com/amicale-sp/calendriers/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// dbSystem is reported as db.system on every statement span.
const dbSystem = "postgresql"

// RegisterDBTracing installs otelgorm on db so each statement, including
// the close_tournee and issue_receipt_number calls, gets a client span
// under the request or webhook span. Query arguments are never recorded:
// they carry donor names and emails.
func RegisterDBTracing(db *gorm.DB, cfg config.TelemetryConfig, logger *zap.Logger, opts ...otelgorm.Option) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled")
		return nil
	}

	pluginOpts := append([]otelgorm.Option{
		otelgorm.WithDBName(dbSystem),
		otelgorm.WithoutQueryVariables(),
	}, opts...)
	if err := db.Use(otelgorm.NewPlugin(pluginOpts...)); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}

	logger.Info("Database tracing enabled", zap.String("db_system", dbSystem))
	return nil
}
