package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "datamigrate"
	DefaultDBMaxConns = 25

	DefaultRedisAddr = "localhost:6379"

	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaGroupID     = "datamigrate-workers"
	DefaultKafkaJobsTopic   = "migration.jobs"
	DefaultKafkaEventsTopic = "migration.events"

	DefaultMinIOEndpoint      = "localhost:9000"
	DefaultMinIODatasetBucket = "datasets"
	DefaultMinIOReportBucket  = "reports"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency = 4

	DefaultChunkSize           = 10000
	DefaultSimilarityThreshold = 90.0
	DefaultReviewThreshold     = 85.0
	DefaultDuplicateMode       = "skip"
	DefaultReportFormat        = "markdown"
)

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// It must be called after unmarshalling raw config data and before Validate()
// so that optional-but-defaulted fields are never seen as missing.  Fields that
// have already been set by the caller (non-zero values) are left unchanged so
// that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	// DB is an int; 0 is a valid explicit value so we cannot distinguish "not
	// set" from "set to 0".  We leave it as-is (0 is also the default).
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "datamigrate"
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 24 * time.Hour
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.JobsTopic == "" {
		cfg.Kafka.JobsTopic = DefaultKafkaJobsTopic
	}
	if cfg.Kafka.EventsTopic == "" {
		cfg.Kafka.EventsTopic = DefaultKafkaEventsTopic
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.DatasetBucket == "" {
		cfg.MinIO.DatasetBucket = DefaultMinIODatasetBucket
	}
	if cfg.MinIO.ReportBucket == "" {
		cfg.MinIO.ReportBucket = DefaultMinIOReportBucket
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = 5 * time.Second
	}

	// ── Migration ─────────────────────────────────────────────────────────────
	if cfg.Migration.ChunkSize == 0 {
		cfg.Migration.ChunkSize = DefaultChunkSize
	}
	if cfg.Migration.SimilarityThreshold == 0 {
		cfg.Migration.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.Migration.ReviewThreshold == 0 {
		cfg.Migration.ReviewThreshold = DefaultReviewThreshold
	}
	if cfg.Migration.DuplicateMode == "" {
		cfg.Migration.DuplicateMode = DefaultDuplicateMode
	}
	if cfg.Migration.ReportFormat == "" {
		cfg.Migration.ReportFormat = DefaultReportFormat
	}
	if cfg.Migration.OutputDir == "" {
		cfg.Migration.OutputDir = "."
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
