package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	alertapp "github.com/truthsource/backend/internal/application/alert"
	auditapp "github.com/truthsource/backend/internal/application/audit"
	billingapp "github.com/truthsource/backend/internal/application/billing"
	catalogapp "github.com/truthsource/backend/internal/application/catalog"
	customerapp "github.com/truthsource/backend/internal/application/customer"
	eventapp "github.com/truthsource/backend/internal/application/event"
	identityapp "github.com/truthsource/backend/internal/application/identity"
	importapp "github.com/truthsource/backend/internal/application/import"
	insightsapp "github.com/truthsource/backend/internal/application/insights"
	integrationapp "github.com/truthsource/backend/internal/application/integration"
	inventoryapp "github.com/truthsource/backend/internal/application/inventory"
	orderapp "github.com/truthsource/backend/internal/application/order"
	pricingapp "github.com/truthsource/backend/internal/application/pricing"
	"github.com/truthsource/backend/internal/domain/shared"
	"github.com/truthsource/backend/internal/infrastructure/ai"
	"github.com/truthsource/backend/internal/infrastructure/auth"
	"github.com/truthsource/backend/internal/infrastructure/billing"
	"github.com/truthsource/backend/internal/infrastructure/cache"
	"github.com/truthsource/backend/internal/infrastructure/commerce"
	"github.com/truthsource/backend/internal/infrastructure/config"
	"github.com/truthsource/backend/internal/infrastructure/event"
	"github.com/truthsource/backend/internal/infrastructure/logger"
	"github.com/truthsource/backend/internal/infrastructure/persistence"
	pricinginfra "github.com/truthsource/backend/internal/infrastructure/pricing"
	"github.com/truthsource/backend/internal/infrastructure/scheduler"
	"github.com/truthsource/backend/internal/infrastructure/storage"
	"github.com/truthsource/backend/internal/infrastructure/telemetry"
	"github.com/truthsource/backend/internal/interfaces/http/handler"
	"github.com/truthsource/backend/internal/interfaces/http/middleware"
	"github.com/truthsource/backend/internal/interfaces/http/router"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/truthsource/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is stamped at build time via -ldflags
var version = "dev"

//	@title			TruthSource API
//	@version		1.0
//	@description	Multi-tenant B2B commerce data synchronization API

//	@contact.name	API Support
//	@contact.email	support@truthsource.io

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

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

	log.Info("Starting TruthSource",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
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

	// Redis backs the token blacklist, idempotency store, and readiness
	// probe. The server still comes up without it, on in-memory fallbacks.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()

	var blacklist auth.TokenBlacklist
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		blacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
		log.Info("Redis connected successfully")
	}
	pingCancel()

	// OpenTelemetry providers
	var (
		tracerProvider *telemetry.TracerProvider
		meterProvider  *telemetry.MeterProvider
		loggerProvider *telemetry.LoggerProvider
		profiler       *telemetry.Profiler
	)
	if cfg.Telemetry.Enabled {
		tracerProvider, err = telemetry.NewTracerProvider(context.Background(), telemetry.Config{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			SamplingRatio:     cfg.Telemetry.SamplingRatio,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize tracer provider", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				log.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()

		meterProvider, err = telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize meter provider", zap.Error(err))
		}
		defer func() {
			if err := meterProvider.Shutdown(context.Background()); err != nil {
				log.Error("Error shutting down meter provider", zap.Error(err))
			}
		}()

		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:             meterProvider.Meter("truthsource.business"),
			Logger:            log,
			InventoryProvider: telemetry.NewGormInventoryMetricsProvider(db.DB),
			SyncProvider:      telemetry.NewGormSyncMetricsProvider(db.DB),
		})
		if err != nil {
			log.Fatal("Failed to initialize business metrics", zap.Error(err))
		}
		businessMetrics.StartPeriodicCollection(context.Background(), telemetry.NewGormTenantProvider(db.DB), 5*time.Minute)
		defer businessMetrics.Stop()

		loggerProvider, err = telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize logger provider", zap.Error(err))
		}
		defer func() {
			if err := loggerProvider.Shutdown(context.Background()); err != nil {
				log.Error("Error shutting down logger provider", zap.Error(err))
			}
		}()

		// Ship application logs to the collector alongside stdout
		bridgeLevel, perr := zapcore.ParseLevel(cfg.Log.Level)
		if perr != nil {
			bridgeLevel = zapcore.InfoLevel
		}
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
			Level:          bridgeLevel,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	if cfg.Telemetry.ProfilingEnabled {
		profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:         true,
			ServerAddress:   cfg.Telemetry.ProfilingAddress,
			ApplicationName: cfg.App.Name,
			ProfileCPU:      true,
			ProfileAllocSpace: true,
			ProfileInuseSpace: true,
		}, log)
		if err != nil {
			log.Warn("Failed to start profiler", zap.Error(err))
		} else {
			defer func() {
				if err := profiler.Stop(); err != nil {
					log.Error("Error stopping profiler", zap.Error(err))
				}
			}()
			// Associate CPU profiles with trace spans; requires the profiler
			// to be running first
			if tracerProvider != nil {
				if err := tracerProvider.EnableSpanProfiles(); err != nil {
					log.Warn("Failed to enable span profiles", zap.Error(err))
				}
			}
		}
	}

	// Initialize repositories
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	locationRepo := persistence.NewGormLocationRepository(db.DB)
	levelRepo := persistence.NewGormLevelRepository(db.DB)
	adjustmentRepo := persistence.NewGormAdjustmentRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	ruleRepo := persistence.NewGormRuleRepository(db.DB)
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB)
	syncJobRepo := persistence.NewGormSyncJobRepository(db.DB)
	mappingRepo := persistence.NewGormMappingRepository(db.DB)
	conflictRepo := persistence.NewGormConflictRepository(db.DB)
	webhookEventRepo := persistence.NewGormWebhookEventRepository(db.DB)
	importHistoryRepo := persistence.NewGormImportHistoryRepository(db.DB)
	importOpRepo := persistence.NewGormImportOperationRepository(db.DB)
	forecastRepo := persistence.NewGormForecastRepository(db.DB)
	anomalyRepo := persistence.NewGormAnomalyRepository(db.DB)
	alertRepo := persistence.NewGormAlertRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	usageRepo := persistence.NewGormUsageRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

	// Create outbox publisher for transactional event saving. Ingested
	// orders arrive over webhooks, so their events go through the outbox
	// and survive a crash between commit and delivery.
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	orderRepo.SetOutboxEventSaver(outboxPublisher)

	// Audit entries are buffered and written asynchronously
	auditRecorder := persistence.NewBufferedRecorder(auditRepo, log)

	// Initialize application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, orgRepo, jwtService, blacklist, log)
	orgService := identityapp.NewOrganizationService(orgRepo, userRepo, jwtService, cfg.Billing.TrialDays, log)
	userService := identityapp.NewUserService(userRepo, log)

	quotaService := billingapp.NewQuotaService(subscriptionRepo, usageRepo, productRepo, integrationRepo, log)

	productService := catalogapp.NewProductService(productRepo, categoryRepo, quotaService, log)
	productRefs := persistence.NewProductReferenceChecker(db.DB)
	productService.SetReferenceChecker(productRefs)
	categoryService := catalogapp.NewCategoryService(categoryRepo, log)
	customerService := customerapp.NewService(customerRepo, log)
	inventoryService := inventoryapp.NewInventoryService(levelRepo, locationRepo, adjustmentRepo, log)
	locationService := inventoryapp.NewLocationService(locationRepo, log)
	orderService := orderapp.NewService(orderRepo, productRepo, customerRepo, inventoryService, log)
	pricingService := pricingapp.NewService(ruleRepo, productRepo, customerRepo, levelRepo, pricinginfra.NewRegistry(), log)

	connectors := commerce.NewDefaultRegistry(&http.Client{Timeout: 30 * time.Second})
	integrationService := integrationapp.NewService(integrationRepo, syncJobRepo, conflictRepo, quotaService, connectors, log)
	orderService.SetPlatformNotifier(integrationService)

	syncEngine := integrationapp.NewSyncEngine(
		integrationRepo, syncJobRepo, mappingRepo, conflictRepo,
		productRepo, levelRepo, inventoryService, orderService, connectors, log,
	)
	if cfg.Sync.RetryBaseDelay > 0 {
		syncEngine.SetRetryBaseDelay(cfg.Sync.RetryBaseDelay)
	}
	webhookService := integrationapp.NewWebhookService(webhookEventRepo, integrationRepo, connectors, syncEngine, log)

	importService := importapp.NewService(
		importHistoryRepo, importOpRepo, productRepo, customerRepo,
		locationRepo, levelRepo, adjustmentRepo, ruleRepo, log,
	)
	rollbackService := importapp.NewRollbackService(
		importHistoryRepo, importOpRepo, productRepo, productRefs, customerRepo,
		levelRepo, adjustmentRepo, ruleRepo, log,
	)

	// Uploaded CSVs are archived to object storage when configured
	if cfg.Storage.Enabled {
		archiver, err := storage.NewS3Archiver(&cfg.Storage)
		if err != nil {
			log.Warn("S3 archiver unavailable, imports will not be archived", zap.Error(err))
			importService.SetArchiver(storage.NewNoopArchiver())
		} else {
			importService.SetArchiver(archiver)
		}
	} else {
		importService.SetArchiver(storage.NewNoopArchiver())
	}

	forecastService := insightsapp.NewForecastService(forecastRepo, productRepo, orderRepo, log)
	anomalyService := insightsapp.NewAnomalyService(anomalyRepo, adjustmentRepo, orderRepo, productRepo, ruleRepo, log)
	deliveryService := insightsapp.NewDeliveryService(log)

	// AI narration falls back to deterministic templates without an API key
	if cfg.Insights.GenAIAPIKey != "" {
		narrator, err := ai.NewGenAINarrator(context.Background(), cfg.Insights.GenAIAPIKey, cfg.Insights.GenAIModel, log)
		if err != nil {
			log.Warn("GenAI narrator unavailable, using template narration", zap.Error(err))
			forecastService.SetNarrator(ai.TemplateNarrator{})
			anomalyService.SetNarrator(ai.TemplateNarrator{})
		} else {
			forecastService.SetNarrator(narrator)
			anomalyService.SetNarrator(narrator)
		}
	} else {
		forecastService.SetNarrator(ai.TemplateNarrator{})
		anomalyService.SetNarrator(ai.TemplateNarrator{})
	}

	alertService := alertapp.NewService(alertRepo, log)
	auditService := auditapp.NewService(auditRepo, log)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	// Stripe billing
	var stripeGateway billingapp.StripeGateway
	if cfg.Billing.Enabled {
		gw, err := billing.NewStripeGateway(&billing.StripeConfig{
			SecretKey:     cfg.Billing.StripeAPIKey,
			WebhookSecret: cfg.Billing.StripeWebhookKey,
			IsTestMode:    cfg.App.Env != "production",
			PriceIDs: map[string]string{
				"starter": cfg.Billing.StarterPriceID,
				"growth":  cfg.Billing.GrowthPriceID,
				"scale":   cfg.Billing.ScalePriceID,
			},
			CheckoutSuccessURL: cfg.Billing.CheckoutSuccess,
			CheckoutCancelURL:  cfg.Billing.CheckoutCancel,
			PortalReturnURL:    cfg.Billing.PortalReturnURL,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize Stripe gateway", zap.Error(err))
		}
		stripeGateway = gw
	}
	subscriptionService := billingapp.NewSubscriptionService(subscriptionRepo, usageRepo, productRepo, integrationRepo, stripeGateway, log)
	stripeWebhookService := billingapp.NewStripeWebhookService(subscriptionRepo, cfg.Billing.StripeWebhookKey, log)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	// Domain event handlers: alert creation, audit trail, subscription
	// provisioning. Each is wrapped with duplicate detection so redelivered
	// outbox events are applied once.
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	webhookService.SetDedupStore(idempotencyStore)

	notifier := alertapp.NewNotifier(alertRepo, log)
	auditTrail := auditapp.NewTrail(auditRecorder, log)
	pricingDefaults := pricingapp.NewDefaultsHandler(ruleRepo, log)
	busHandlers := []shared.EventHandler{notifier, auditTrail, pricingDefaults}
	if cfg.Billing.Enabled {
		busHandlers = append(busHandlers, billingapp.NewProvisioningHandler(subscriptionRepo, stripeGateway, log))
	}
	for _, h := range event.WrapHandlersWithIdempotency(busHandlers, idempotencyStore, log) {
		eventBus.Subscribe(h)
	}
	log.Info("Event handlers registered",
		zap.Strings("alert_events", notifier.EventTypes()),
		zap.Strings("audit_events", auditTrail.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Initialize and start outbox processor for guaranteed event delivery
	outboxProcessorConfig := event.DefaultOutboxProcessorConfig()
	if cfg.Event.BatchSize > 0 {
		outboxProcessorConfig.BatchSize = cfg.Event.BatchSize
	}
	if cfg.Event.PollInterval > 0 {
		outboxProcessorConfig.PollInterval = cfg.Event.PollInterval
	}
	outboxProcessorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
	if cfg.Event.CleanupRetention > 0 {
		outboxProcessorConfig.CleanupRetention = cfg.Event.CleanupRetention
	}
	outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
	if cfg.Event.ProcessorEnabled {
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started",
			zap.Int("batch_size", outboxProcessorConfig.BatchSize),
			zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
		)
	}

	// Inject event bus into services that publish events
	authService.SetEventPublisher(eventBus)
	orgService.SetEventPublisher(eventBus)
	userService.SetEventPublisher(eventBus)
	productService.SetEventPublisher(eventBus)
	categoryService.SetEventPublisher(eventBus)
	customerService.SetEventPublisher(eventBus)
	inventoryService.SetEventPublisher(eventBus)
	orderService.SetEventPublisher(eventBus)
	pricingService.SetEventPublisher(eventBus)
	integrationService.SetEventPublisher(eventBus)
	webhookService.SetEventPublisher(eventBus)
	syncEngine.SetEventPublisher(eventBus)
	importService.SetEventPublisher(eventBus)
	rollbackService.SetEventPublisher(eventBus)
	subscriptionService.SetEventPublisher(eventBus)
	stripeWebhookService.SetEventPublisher(eventBus)

	// Background schedulers
	var (
		syncScheduler     *scheduler.SyncScheduler
		cronTrigger       *scheduler.SyncCronTrigger
		reconciler        *scheduler.Reconciler
		insightsScheduler *scheduler.InsightsScheduler
	)
	if cfg.Sync.Enabled {
		schedulerConfig := scheduler.DefaultSyncSchedulerConfig()
		if cfg.Sync.Workers > 0 {
			schedulerConfig.Workers = cfg.Sync.Workers
		}
		if cfg.Sync.JobTimeout > 0 {
			schedulerConfig.JobTimeout = cfg.Sync.JobTimeout
		}
		if cfg.Sync.HistoryLimit > 0 {
			schedulerConfig.HistoryLimit = cfg.Sync.HistoryLimit
		}
		syncScheduler, err = scheduler.NewSyncScheduler(schedulerConfig, syncEngine, syncJobRepo, log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}

		triggerConfig := scheduler.DefaultSyncCronTriggerConfig()
		if cfg.Sync.SchedulerInterval > 0 {
			triggerConfig.CheckInterval = cfg.Sync.SchedulerInterval
		}
		cronTrigger = scheduler.NewSyncCronTrigger(triggerConfig, integrationRepo, syncJobRepo, syncScheduler, log)
		if err := cronTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync cron trigger", zap.Error(err))
		}

		reconcilerConfig := scheduler.DefaultReconcilerConfig()
		if cfg.Sync.ReconcileInterval > 0 {
			reconcilerConfig.Interval = cfg.Sync.ReconcileInterval
		}
		if cfg.Sync.JobTimeout > 0 {
			reconcilerConfig.JobTimeout = cfg.Sync.JobTimeout
		}
		if cfg.Sync.RetryBaseDelay > 0 {
			reconcilerConfig.RetryBaseDelay = cfg.Sync.RetryBaseDelay
		}
		reconciler = scheduler.NewReconciler(reconcilerConfig, syncJobRepo, webhookService, importService, log)
		if err := reconciler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reconciler", zap.Error(err))
		}

		log.Info("Sync workers started",
			zap.Int("workers", schedulerConfig.Workers),
			zap.Duration("job_timeout", schedulerConfig.JobTimeout),
		)
	}

	if cfg.Insights.SchedulerEnabled {
		insightsScheduler = scheduler.NewInsightsScheduler(scheduler.DefaultInsightsSchedulerConfig(), orgRepo, anomalyService, log)
		if err := insightsScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start insights scheduler", zap.Error(err))
		}
		log.Info("Insights scheduler started")
	}

	retentionConfig := scheduler.DefaultRetentionConfig()
	if cfg.Audit.RetentionDays > 0 {
		retentionConfig.AuditRetention = time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
	}
	retentionSweeper := scheduler.NewRetentionSweeper(retentionConfig, auditService, alertService, log)
	if err := retentionSweeper.Start(context.Background()); err != nil {
		log.Fatal("Failed to start retention sweeper", zap.Error(err))
	}

	// Initialize HTTP handlers
	authHandler := handler.NewAuthHandler(authService, jwtService)
	orgHandler := handler.NewOrganizationHandler(orgService)
	userHandler := handler.NewUserHandler(userService)
	productHandler := handler.NewProductHandler(productService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	customerHandler := handler.NewCustomerHandler(customerService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	locationHandler := handler.NewLocationHandler(locationService)
	orderHandler := handler.NewOrderHandler(orderService)
	pricingHandler := handler.NewPricingHandler(pricingService)
	integrationHandler := handler.NewIntegrationHandler(integrationService, webhookService)
	importHandler := handler.NewImportHandler(importService, rollbackService, cfg.Import.MaxFileBytes)
	insightsHandler := handler.NewInsightsHandler(forecastService, anomalyService, deliveryService, quotaService)
	alertHandler := handler.NewAlertHandler(alertService)
	auditHandler := handler.NewAuditHandler(auditService)
	billingHandler := handler.NewBillingHandler(subscriptionService)
	outboxHandler := handler.NewOutboxHandler(outboxService)
	webhookHandler := handler.NewWebhookHandler(webhookService, integrationRepo, commerce.NewWebhookVerifier(), log)
	stripeWebhookHandler := handler.NewStripeWebhookHandler(stripeWebhookService, log)
	systemHandler := handler.NewSystemHandler(version, map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error { return db.Ping() },
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing()...)
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
	}
	if cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.Profiling())
	}

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled). Credential endpoints get a tighter,
	// separately-keyed limiter so password guessing cannot hide inside the
	// general budget.
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))

		authLimiter := middleware.NewRateLimiter(10, cfg.HTTP.RateLimitWindow)
		authRateLimit := middleware.AuthRateLimit(authLimiter)
		engine.Use(func(c *gin.Context) {
			switch c.Request.URL.Path {
			case "/api/v1/auth/login", "/api/v1/auth/refresh", "/api/v1/organizations/register":
				authRateLimit(c)
			default:
				c.Next()
			}
		})

		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Swagger documentation endpoint
	if cfg.Swagger.Enabled {
		swaggerProtection := middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, middleware.JWTAuthMiddleware(jwtService))
		engine.GET("/swagger/*any", swaggerProtection, ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Public endpoints skip JWT and tenant resolution: signup, login,
	// token refresh, CSRF token issuance, health probes, and the webhook
	// receivers which carry their own HMAC verification.
	publicPaths := []string{
		"/api/v1/health",
		"/api/v1/ready",
		"/api/v1/auth/login",
		"/api/v1/auth/refresh",
		"/api/v1/auth/csrf",
		"/api/v1/organizations/register",
	}
	publicPrefixes := []string{
		"/swagger",
		"/api/v1/webhooks",
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:       jwtService,
		TokenBlacklist:   blacklist,
		SkipPaths:        publicPaths,
		SkipPathPrefixes: publicPrefixes,
		Logger:           log,
	}))
	r.Use(middleware.TenantMiddlewareWithConfig(middleware.TenantMiddlewareConfig{
		SkipPaths:        publicPaths,
		SkipPathPrefixes: publicPrefixes,
		Logger:           log,
	}))
	r.Use(middleware.CSRF())

	// Webhook receivers get a tighter body cap than the rest of the API
	webhookBodyLimit := middleware.BodyLimit(cfg.HTTP.WebhookBodySize)
	r.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/v1/webhooks") {
			webhookBodyLimit(c)
			return
		}
		c.Next()
	})

	// Register all domain handlers
	r.Register(systemHandler).
		Register(authHandler).
		Register(orgHandler).
		Register(userHandler).
		Register(productHandler).
		Register(categoryHandler).
		Register(customerHandler).
		Register(inventoryHandler).
		Register(locationHandler).
		Register(orderHandler).
		Register(pricingHandler).
		Register(integrationHandler).
		Register(importHandler).
		Register(insightsHandler).
		Register(alertHandler).
		Register(auditHandler).
		Register(billingHandler).
		Register(outboxHandler).
		Register(webhookHandler).
		Register(stripeWebhookHandler)

	// Setup routes
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown: stop producing background work first, drain the
	// event pipeline, flush buffered audit entries, then stop serving.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cronTrigger != nil {
		if err := cronTrigger.Stop(ctx); err != nil {
			log.Error("Error stopping sync cron trigger", zap.Error(err))
		}
	}
	if insightsScheduler != nil {
		if err := insightsScheduler.Stop(ctx); err != nil {
			log.Error("Error stopping insights scheduler", zap.Error(err))
		}
	}
	if err := retentionSweeper.Stop(ctx); err != nil {
		log.Error("Error stopping retention sweeper", zap.Error(err))
	}
	if reconciler != nil {
		if err := reconciler.Stop(ctx); err != nil {
			log.Error("Error stopping reconciler", zap.Error(err))
		}
	}
	if syncScheduler != nil {
		if err := syncScheduler.Stop(ctx); err != nil {
			log.Error("Error stopping sync scheduler", zap.Error(err))
		}
	}
	if cfg.Event.ProcessorEnabled {
		if err := outboxProcessor.Stop(ctx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := eventBus.Stop(ctx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := auditRecorder.Flush(ctx); err != nil {
		log.Error("Error flushing audit recorder", zap.Error(err))
	}
	if dropped := auditRecorder.Dropped(); dropped > 0 {
		log.Warn("Audit entries dropped under load", zap.Int64("count", dropped))
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
