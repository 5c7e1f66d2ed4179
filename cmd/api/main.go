package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	vashttp "github.com/wms-platform/vas-service/internal/api/http"
	"github.com/wms-platform/vas-service/internal/application"
	"github.com/wms-platform/vas-service/internal/application/guides"
	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/internal/infrastructure/graphql"
	mongoRepo "github.com/wms-platform/vas-service/internal/infrastructure/mongodb"
	temporalInfra "github.com/wms-platform/vas-service/internal/infrastructure/temporal"
	"github.com/wms-platform/vas-service/pkg/cloudevents"
	"github.com/wms-platform/vas-service/pkg/kafka"
	"github.com/wms-platform/vas-service/pkg/logging"
	"github.com/wms-platform/vas-service/pkg/metrics"
	"github.com/wms-platform/vas-service/pkg/middleware"
	"github.com/wms-platform/vas-service/pkg/mongodb"
	"github.com/wms-platform/vas-service/pkg/outbox"
	outboxmongo "github.com/wms-platform/vas-service/pkg/outbox/mongodb"
	"github.com/wms-platform/vas-service/pkg/temporal"
	"github.com/wms-platform/vas-service/pkg/tracing"
)

const serviceName = "vas-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting VAS Service API")

	config, err := loadConfig()
	if err != nil {
		logger.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}
	ctx := context.Background()

	// Tracing is optional
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnvBool("TRACING_ENABLED", true)

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	outboxRepo := outboxmongo.NewOutboxRepository(mongoClient.Database())
	if err := outboxRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to create outbox indexes")
	}

	eventFactory := cloudevents.NewEventFactory("/" + serviceName)
	journal := mongoRepo.NewJournalRepository(mongoClient, outboxRepo, eventFactory)
	if err := journal.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to create journal indexes")
	}

	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer kafkaProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	outboxPublisher := outbox.NewPublisher(outboxRepo, kafkaProducer, logger, m, outbox.DefaultPublisherConfig())
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Completion signals go to the fulfillment workflow when Temporal is on
	var notifier domain.CompletionNotifier
	if config.TemporalEnabled {
		temporalClient, err := temporal.NewClient(ctx, config.Temporal)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to Temporal, completion signals disabled")
		} else {
			defer temporalClient.Close()
			notifier = temporalInfra.NewCompletionNotifier(temporalClient, logger)
			logger.Info("Connected to Temporal", "hostPort", config.Temporal.HostPort, "namespace", config.Temporal.Namespace)
		}
	}

	backend := graphql.NewClient(config.Backend, logger, m)
	logger.Info("Worksheet backend configured", "endpoint", config.Backend.Endpoint)

	deps := application.SessionDeps{
		Backend:  backend,
		Guides:   guides.NewRegistry(),
		Journal:  journal,
		Notifier: notifier,
		Config:   config.Session,
		Logger:   logger,
		Metrics:  m,
	}
	sessions := application.NewSessionManager(deps)

	handlers := vashttp.NewHandlers(sessions, logger)

	router := gin.New()
	mwConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	mwConfig.Metrics = m
	mwConfig.EnableTracing = tracingConfig.Enabled
	middleware.Setup(router, mwConfig)

	middleware.RegisterProbes(router, serviceName, m, map[string]middleware.ReadinessCheck{
		"mongodb": mongoClient.HealthCheck,
		"backend": func(context.Context) error { return backend.CheckHealth() },
	})

	vashttp.SetupRoutes(router, handlers)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped", "openSessions", sessions.Count())
}

// Config holds application configuration
type Config struct {
	ServerAddr      string
	Backend         *graphql.Config
	Session         *application.SessionConfig
	MongoDB         *mongodb.Config
	Kafka           *kafka.Config
	TemporalEnabled bool
	Temporal        *temporal.Config
}

func loadConfig() (*Config, error) {
	undoTarget, err := domain.ParseUndoTarget(getEnv("VAS_UNDO_TARGET", "EXECUTING"))
	if err != nil {
		return nil, err
	}

	backend := graphql.DefaultConfig()
	backend.Endpoint = getEnv("VAS_BACKEND_URL", backend.Endpoint)
	backend.Token = getEnv("VAS_BACKEND_TOKEN", "")
	backend.Timeout = time.Duration(getEnvInt("VAS_BACKEND_TIMEOUT", 10)) * time.Second
	backend.RequestsPerSecond = float64(getEnvInt("VAS_BACKEND_RPS", 20))

	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", "vas_db")

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = []string{getEnv("KAFKA_BROKERS", "localhost:9092")}

	temporalConfig := temporal.DefaultConfig()
	temporalConfig.HostPort = getEnv("TEMPORAL_HOST", temporalConfig.HostPort)
	temporalConfig.Namespace = getEnv("TEMPORAL_NAMESPACE", temporalConfig.Namespace)

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8020"),
		Backend:    backend,
		Session: &application.SessionConfig{
			UndoTarget:        undoTarget,
			AlwaysFullRefresh: getEnvBool("VAS_REFRESH_ALWAYS_FULL", false),
		},
		MongoDB:         mongoConfig,
		Kafka:           kafkaConfig,
		TemporalEnabled: getEnvBool("TEMPORAL_ENABLED", false),
		Temporal:        temporalConfig,
	}, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
