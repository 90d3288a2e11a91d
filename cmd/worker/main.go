// Background worker entry point for datamigrate.  Consumes queued
// migration runs off kafka, executes them, and renders their reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/datamigrate/internal/application/migration"
	"github.com/turtacn/datamigrate/internal/application/reporting"
	"github.com/turtacn/datamigrate/internal/config"
	"github.com/turtacn/datamigrate/internal/infrastructure/database/postgres"
	"github.com/turtacn/datamigrate/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/datamigrate/internal/infrastructure/database/redis"
	"github.com/turtacn/datamigrate/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/datamigrate/internal/infrastructure/storage/minio"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultHealthPort = 8081
)

// version is injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for liveness and readiness probes")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting datamigrate worker",
		logging.String("version", version),
		logging.Int("concurrency", cfg.Worker.Concurrency),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	objectStore := minio.NewObjectStore(minioClient, logger)

	producer, err := kafka.NewProducer(cfg.Kafka, logger)
	if err != nil {
		logger.Fatal("failed to create kafka producer", logging.Err(err))
	}
	defer producer.Close()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: "datamigrate",
		Subsystem: "worker",
	}, logger)
	if err != nil {
		logger.Fatal("failed to create metrics collector", logging.Err(err))
	}
	appMetrics := prometheus.NewAppMetrics(collector)

	runRepo := repositories.NewRunRepository(pool, logger)
	reportRepo := repositories.NewReportRepository(pool, logger)

	migrationSvc := migration.NewService(runRepo, producer, statusCache, appMetrics, logger)
	reportingSvc := reporting.NewService(runRepo, reportRepo, objectStore, cfg.MinIO.ReportBucket, logger)

	consumer, err := kafka.NewConsumer(cfg.Kafka, cfg.Worker, []string{kafka.TopicMigrationJobs}, logger)
	if err != nil {
		logger.Fatal("failed to create kafka consumer", logging.Err(err))
	}
	consumer.Subscribe(kafka.TopicMigrationJobs, jobHandler(migrationSvc, reportingSvc, redisClient, cfg.Migration.ReportFormat, logger))
	if err := consumer.Start(ctx); err != nil {
		logger.Fatal("failed to start kafka consumer", logging.Err(err))
	}

	healthSrv := startHealthServer(*healthPort, collector, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("received shutdown signal", logging.String("signal", sig.String()))

	cancel()
	if err := consumer.Close(); err != nil {
		logger.Error("kafka consumer close error", logging.Err(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", logging.Err(err))
	}

	logger.Info("datamigrate worker stopped")
}

// jobHandler executes one queued run and renders its report.  Replayed
// jobs are dropped via a redis idempotency claim, and runs against the
// same target file are serialized with a distributed lock.  A report
// failure does not fail the job: the run itself completed and the report
// can be regenerated on demand.
func jobHandler(
	migrationSvc migration.Service,
	reportingSvc reporting.Service,
	redisClient *redis.Client,
	reportFormat string,
	logger logging.Logger,
) kafka.Handler {
	idem := redis.NewIdempotency(redisClient, 0)

	return func(ctx context.Context, msg *kafka.ConsumedMessage) error {
		envelope, err := kafka.DecodeEnvelope(msg.Value)
		if err != nil {
			return err
		}

		var job kafka.MigrationJobPayload
		if err := envelope.DecodePayload(&job); err != nil {
			return err
		}

		claimed, err := idem.Claim(ctx, job.RunID)
		if err != nil {
			return err
		}
		if !claimed {
			logger.Warn("dropping replayed migration job", logging.String("run_id", job.RunID))
			return nil
		}

		logger.Info("executing migration job",
			logging.String("run_id", job.RunID),
			logging.String("source", job.SourcePath),
		)

		if job.TargetPath != "" {
			mutex := redis.NewMutex(redisClient, logger, "migrate:"+job.TargetPath, 10*time.Minute)
			if err := mutex.Lock(ctx); err != nil {
				_ = idem.Release(ctx, job.RunID)
				return err
			}
			defer mutex.Unlock(context.Background())
		}

		if err := migrationSvc.ExecuteJob(ctx, &job); err != nil {
			_ = idem.Release(ctx, job.RunID)
			return err
		}

		if _, err := reportingSvc.GenerateMigrationReport(ctx, &reporting.GenerateInput{
			RunID:  job.RunID,
			Format: reportFormat,
		}); err != nil {
			logger.Warn("report generation failed",
				logging.String("run_id", job.RunID),
				logging.Err(err),
			)
		}
		return nil
	}
}

func startHealthServer(port int, collector prometheus.MetricsCollector, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("health server listening", logging.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", logging.Err(err))
		}
	}()

	return srv
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
