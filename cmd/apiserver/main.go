// API server entry point for datamigrate.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/datamigrate/internal/application/cleaning"
	"github.com/turtacn/datamigrate/internal/application/mapping"
	"github.com/turtacn/datamigrate/internal/application/migration"
	"github.com/turtacn/datamigrate/internal/application/profiling"
	"github.com/turtacn/datamigrate/internal/application/reporting"
	"github.com/turtacn/datamigrate/internal/application/workflow"
	"github.com/turtacn/datamigrate/internal/config"
	"github.com/turtacn/datamigrate/internal/infrastructure/database/postgres"
	"github.com/turtacn/datamigrate/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/datamigrate/internal/infrastructure/database/redis"
	"github.com/turtacn/datamigrate/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/datamigrate/internal/infrastructure/storage/minio"
	httpserver "github.com/turtacn/datamigrate/internal/interfaces/http"
	"github.com/turtacn/datamigrate/internal/interfaces/http/handlers"
	"github.com/turtacn/datamigrate/internal/interfaces/http/middleware"
)

const defaultConfigPath = "configs/config.yaml"

// version is injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting datamigrate API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres: a database/sql connection for migrations and health probes,
	// a pgx pool for the repositories.
	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to postgres", logging.Err(err))
	}
	defer conn.Close()

	if cfg.Database.MigrationPath != "" {
		if err := conn.RunMigrations(cfg.Database.MigrationPath); err != nil {
			logger.Fatal("failed to run schema migrations", logging.Err(err))
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to create postgres pool", logging.Err(err))
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", logging.Err(err))
	}
	defer redisClient.Close()
	statusCache := redis.NewCache(redisClient, logger)

	minioClient, err := minio.NewClient(cfg.MinIO, logger)
	if err != nil {
		logger.Fatal("failed to connect to minio", logging.Err(err))
	}
	if err := minioClient.EnsureBuckets(ctx); err != nil {
		logger.Fatal("failed to ensure minio buckets", logging.Err(err))
	}
	objectStore := minio.NewObjectStore(minioClient, logger)

	producer, err := kafka.NewProducer(cfg.Kafka, logger)
	if err != nil {
		logger.Fatal("failed to create kafka producer", logging.Err(err))
	}
	defer producer.Close()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "datamigrate",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create metrics collector", logging.Err(err))
	}
	appMetrics := prometheus.NewAppMetrics(collector)

	// The SSE hub receives run events from in-process migrations via the
	// fanout publisher, and from worker-processed runs via the events topic
	// consumer below.
	eventHub := handlers.NewEventHub(logger)
	publisher := newFanoutPublisher(producer, eventHub)

	runRepo := repositories.NewRunRepository(pool, logger)
	reportRepo := repositories.NewReportRepository(pool, logger)

	profilingSvc := profiling.NewService(logger)
	cleaningSvc := cleaning.NewService(logger)
	mappingSvc := mapping.NewService(logger)
	migrationSvc := migration.NewService(runRepo, publisher, statusCache, appMetrics, logger)
	reportingSvc := reporting.NewService(runRepo, reportRepo, objectStore, cfg.MinIO.ReportBucket, logger)

	orchestrator := workflow.NewOrchestrator(
		profilingSvc, cleaningSvc, mappingSvc, migrationSvc, reportingSvc,
		statusCache, runRepo, logger,
	)

	eventsConsumer, err := kafka.NewConsumer(cfg.Kafka, cfg.Worker, []string{kafka.TopicMigrationEvents}, logger)
	if err != nil {
		logger.Fatal("failed to create events consumer", logging.Err(err))
	}
	eventsConsumer.Subscribe(kafka.TopicMigrationEvents, forwardToHub(eventHub))
	if err := eventsConsumer.Start(ctx); err != nil {
		logger.Fatal("failed to start events consumer", logging.Err(err))
	}
	defer eventsConsumer.Close()

	healthHandler := handlers.NewHealthHandler(version,
		&postgresHealthAdapter{conn: conn},
		&redisHealthAdapter{client: redisClient},
		&minioHealthAdapter{client: minioClient},
	)

	corsCfg := middleware.DefaultCORSConfig()
	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:  healthHandler,
		ToolHandler:    handlers.NewToolHandler(profilingSvc, cleaningSvc, mappingSvc, migrationSvc, reportingSvc, orchestrator, logger),
		MessageHandler: handlers.NewMessageHandler(workflow.NewRouter(logger)),
		RunHandler:     handlers.NewRunHandler(migrationSvc, reportingSvc, orchestrator),
		EventHub:       eventHub,

		CORS:      &corsCfg,
		RateLimit: middleware.NewTokenBucketLimiter(50, 100, 5*time.Minute),

		Logger:           logger,
		Metrics:          appMetrics,
		MetricsCollector: collector,
	})

	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logging.Int("port", cfg.Server.Port))
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", logging.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", logging.Err(err))
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}

	logger.Info("datamigrate API server stopped")
}

// loadConfig reads the config file when it exists, or falls back to
// environment variables and defaults.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
