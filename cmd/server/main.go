package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	donationapp "github.com/amicale-sp/calendriers/internal/application/donation"
	paymentapp "github.com/amicale-sp/calendriers/internal/application/payment"
	"github.com/amicale-sp/calendriers/internal/infrastructure/auth"
	"github.com/amicale-sp/calendriers/internal/infrastructure/cache"
	"github.com/amicale-sp/calendriers/internal/infrastructure/config"
	"github.com/amicale-sp/calendriers/internal/infrastructure/email"
	"github.com/amicale-sp/calendriers/internal/infrastructure/logger"
	"github.com/amicale-sp/calendriers/internal/infrastructure/payment"
	"github.com/amicale-sp/calendriers/internal/infrastructure/persistence"
	"github.com/amicale-sp/calendriers/internal/infrastructure/printing"
	"github.com/amicale-sp/calendriers/internal/infrastructure/scheduler"
	"github.com/amicale-sp/calendriers/internal/infrastructure/storage"
	"github.com/amicale-sp/calendriers/internal/infrastructure/telemetry"
	"github.com/amicale-sp/calendriers/internal/interfaces/http/handler"
	"github.com/amicale-sp/calendriers/internal/interfaces/http/middleware"
	"github.com/amicale-sp/calendriers/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	landingRateLimit  = 20
	landingRateWindow = time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting calendriers backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.SlowQueryThresh),
		logger.WithQueryValues(!cfg.App.IsProduction() && cfg.Log.Level == "debug"))

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, log); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}
	if _, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, cfg.Telemetry.SlowQueryThresh, log); err != nil {
		log.Warn("Database metrics disabled", zap.Error(err))
	}

	donationMetrics, err := telemetry.NewDonationMetrics(meterProvider.Meter("calendriers/donation"))
	if err != nil {
		log.Fatal("Failed to initialize donation metrics", zap.Error(err))
	}

	// Repositories
	tourneeRepo := persistence.NewTourneeRepository(db.DB)
	transactionRepo := persistence.NewSupportTransactionRepository(db.DB)
	receiptRepo := persistence.NewReceiptRepository(db.DB)
	cardPaymentRepo := persistence.NewCardPaymentRepository(db.DB)
	intentRepo := persistence.NewDonationIntentRepository(db.DB)
	webhookLogRepo := persistence.NewWebhookLogRepository(db.DB)

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// External services
	stripeGateway, err := payment.NewStripeGateway(cfg.Stripe, log)
	if err != nil {
		log.Fatal("Failed to initialize Stripe gateway", zap.Error(err))
	}

	var helloAsso paymentapp.HelloAssoGateway
	if cfg.HelloAsso.Enabled {
		client, err := payment.NewHelloAssoClient(cfg.HelloAsso, log)
		if err != nil {
			log.Fatal("Failed to initialize HelloAsso client", zap.Error(err))
		}
		helloAsso = client
	}

	var mailer donationapp.Mailer = email.NewNoopMailer(log)
	if cfg.Email.Enabled {
		smtpMailer, err := email.NewSMTPMailer(cfg.Email, log)
		if err != nil {
			log.Fatal("Failed to initialize SMTP mailer", zap.Error(err))
		}
		mailer = smtpMailer
	}

	var pdfRenderer donationapp.ReceiptPDFRenderer
	if cfg.Chrome.Enabled {
		chrome := printing.NewChromedpRenderer(cfg.Chrome, log)
		defer func() {
			if err := chrome.Close(); err != nil {
				log.Error("Error closing chrome renderer", zap.Error(err))
			}
		}()
		pdfRenderer = printing.NewReceiptRenderer(chrome)
	}

	var archive donationapp.ReceiptArchive = storage.NewMemoryObjectStorage()
	if cfg.Storage.Enabled {
		s3Storage, err := storage.NewS3ObjectStorage(ctx, cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize receipt storage", zap.Error(err))
		}
		archive = s3Storage
	} else {
		log.Warn("Object storage disabled, receipts are kept in memory only")
	}

	// Application services
	receiptService := donationapp.NewReceiptService(donationapp.ReceiptServiceConfig{
		Receipts:     receiptRepo,
		Transactions: transactionRepo,
		Mailer:       mailer,
		Renderer:     pdfRenderer,
		Archive:      archive,
		Threshold:    cfg.Receipt.ThresholdAmount(),
		Organization: donationapp.Organization{
			Name:      cfg.Receipt.OrganizationName,
			Address:   cfg.Receipt.OrganizationAddr,
			Signatory: cfg.Receipt.Signatory,
		},
		Metrics: donationMetrics,
		Logger:  log,
	})
	donationService := donationapp.NewDonationService(donationapp.DonationServiceConfig{
		Tournees:     tourneeRepo,
		Transactions: transactionRepo,
		Receipts:     receiptService,
		Metrics:      donationMetrics,
		Logger:       log,
	})
	tourneeService := donationapp.NewTourneeService(tourneeRepo, transactionRepo, donationMetrics, log)
	checkoutService := paymentapp.NewCheckoutService(paymentapp.CheckoutServiceConfig{
		Stripe:         stripeGateway,
		HelloAsso:      helloAsso,
		Tournees:       tourneeRepo,
		CardPayments:   cardPaymentRepo,
		Intents:        intentRepo,
		Transactions:   transactionRepo,
		WebhookLog:     webhookLogRepo,
		Receipts:       receiptService,
		Idempotency:    idempotencyStore,
		IdempotencyTTL: cfg.Stripe.IdempotencyTTL,
		SiteURL:        cfg.App.SiteURL,
		Currency:       cfg.Stripe.Currency,
		Metrics:        donationMetrics,
		Logger:         log,
	})
	webhookService := paymentapp.NewStripeWebhookService(paymentapp.StripeWebhookServiceConfig{
		WebhookSecret:  cfg.Stripe.WebhookSecret,
		Gateway:        stripeGateway,
		Transactions:   transactionRepo,
		Intents:        intentRepo,
		CardPayments:   cardPaymentRepo,
		WebhookLog:     webhookLogRepo,
		Receipts:       receiptService,
		Idempotency:    idempotencyStore,
		IdempotencyTTL: cfg.Stripe.IdempotencyTTL,
		Metrics:        donationMetrics,
		Logger:         log,
	})

	expiry := scheduler.NewExpiryScheduler(map[string]scheduler.PendingExpirer{
		"card_payments":    cardPaymentRepo,
		"donation_intents": intentRepo,
	}, log, scheduler.ExpirySchedulerConfig{
		Enabled:    cfg.Expiry.Enabled,
		Interval:   cfg.Expiry.Interval,
		MaxAge:     cfg.Expiry.PendingMaxAge,
		RunTimeout: time.Minute,
	})
	if err := expiry.Start(ctx); err != nil {
		log.Fatal("Failed to start expiry scheduler", zap.Error(err))
	}

	// Handlers
	handlers := router.Handlers{
		Donations:     handler.NewDonationHandler(donationService),
		Tournees:      handler.NewTourneeHandler(tourneeService),
		Checkouts:     handler.NewCheckoutHandler(checkoutService),
		Receipts:      handler.NewReceiptHandler(receiptService),
		StripeWebhook: handler.NewStripeWebhookHandler(webhookService, log),
		Health: handler.NewHealthHandler(version, map[string]handler.HealthCheck{
			"database": db.Ping,
		}),
	}
	if cfg.HelloAsso.Enabled {
		handlers.HelloAssoWebhook = handler.NewHelloAssoWebhookHandler(checkoutService, cfg.HelloAsso.NotificationToken, log)
	}

	landingLimiter := middleware.NewRateLimiter(landingRateLimit, landingRateWindow)
	defer landingLimiter.Close()

	guards := router.Guards{
		Authenticated: []gin.HandlerFunc{
			middleware.JWTAuth(middleware.JWTMiddlewareConfig{
				Validator: auth.NewJWTValidator(cfg.JWT),
				Logger:    log,
			}),
			middleware.SpanEnricher(),
		},
		PublicCheckout: []gin.HandlerFunc{middleware.RateLimit(landingLimiter)},
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	// Recovery must wrap every other middleware.
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Logger:        log,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure(cfg.App.IsProduction()))
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	router.RegisterAPI(engine, handlers, guards)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := expiry.Stop(shutdownCtx); err != nil {
		log.Error("Expiry scheduler stop failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Logger provider shutdown failed", zap.Error(err))
	}
}
