package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type (
	Config struct {
		HTTP            HTTP
		Log             Log
		PG              PG
		Storage         Storage
		S3              S3
		Ingest          Ingest
		Auth            Auth
		Redis           Redis
		Kafka           Kafka
		OutboxRelay     OutboxRelay
		KafkaController KafkaController
		RateLimit       RateLimit
		Swagger         Swagger
		Notify          Notify
	}

	HTTP struct {
		Port           string        `env:"HTTP_PORT,required"`
		UsePreforkMode bool          `env:"HTTP_USE_PREFORK_MODE" envDefault:"false"`
		ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		BodyLimit      int           `env:"HTTP_BODY_LIMIT" envDefault:"16777216"`
		CORSOrigins    string        `env:"HTTP_CORS_ORIGINS" envDefault:"*"`
	}

	Log struct {
		Level      string `env:"LOG_LEVEL,required"`
		Path       string `env:"LOG_PATH"`
		MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
		MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
		MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"7"`
	}

	PG struct {
		PoolMax       int    `env:"PG_POOL_MAX,required"`
		URL           string `env:"PG_URL,required"`
		RunMigrations bool   `env:"PG_RUN_MIGRATIONS" envDefault:"true"`
	}

	Storage struct {
		Driver       string `env:"STORAGE_DRIVER" envDefault:"local"` // local, s3
		UploadsDir   string `env:"UPLOADS_DIR" envDefault:"uploads"`
		PublicPrefix string `env:"UPLOADS_PUBLIC_PREFIX" envDefault:"/uploads"`
	}

	S3 struct {
		Endpoint       string        `env:"S3_ENDPOINT"`
		AccessKey      string        `env:"S3_ACCESS_KEY"`
		SecretKey      string        `env:"S3_SECRET_KEY"`
		Bucket         string        `env:"S3_BUCKET"`
		Region         string        `env:"S3_REGION" envDefault:"garage"`
		CfgLoadTimeout time.Duration `env:"S3_LOAD_CFG_TIMEOUT" envDefault:"10s"`
	}

	Ingest struct {
		Timeout     time.Duration `env:"INGEST_TIMEOUT" envDefault:"30s"`
		MaxFileSize int64         `env:"INGEST_MAX_FILE_SIZE" envDefault:"5242880"`
	}

	Auth struct {
		JWTSecret     string        `env:"JWT_SECRET,required"`
		TokenTTL      time.Duration `env:"JWT_TOKEN_TTL" envDefault:"24h"`
		AdminEmail    string        `env:"ADMIN_EMAIL"`
		AdminPassword string        `env:"ADMIN_PASSWORD"`
	}

	Redis struct {
		Enabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
		Addr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string        `env:"REDIS_PASSWORD"`
		DB       int           `env:"REDIS_DB" envDefault:"0"`
		CacheTTL time.Duration `env:"REDIS_GALLERY_CACHE_TTL" envDefault:"1h"`
	}

	Kafka struct {
		Enabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
		Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
		GroupID string   `env:"KAFKA_GROUP_ID" envDefault:"gallery-reconciler"`
		Topic   string   `env:"KAFKA_TOPIC" envDefault:"photo-events"`
	}

	OutboxRelay struct {
		PollInterval        time.Duration `env:"OUTBOX_RELAY_POLL_INTERVAL" envDefault:"2s"`
		MarkFailedInterval  time.Duration `env:"OUTBOX_RELAY_MARK_FAILED_INTERVAL" envDefault:"2m"`
		CleanupInterval     time.Duration `env:"OUTBOX_RELAY_CLEANUP_INTERVAL" envDefault:"24h"`
		ProcessBatchTimeout time.Duration `env:"OUTBOX_RELAY_PROCESS_BATCH_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout     time.Duration `env:"OUTBOX_RELAY_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		BatchSize           int           `env:"OUTBOX_RELAY_BATCH_SIZE" envDefault:"100"`
		MaxRetries          int           `env:"OUTBOX_RELAY_MAX_RETRIES" envDefault:"3"`
	}

	KafkaController struct {
		CommitTimeout     time.Duration `env:"KAFKA_CONTROLLER_COMMIT_TIMEOUT" envDefault:"2s"`
		ProcessTimeout    time.Duration `env:"KAFKA_CONTROLLER_PROCESS_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout   time.Duration `env:"KAFKA_CONTROLLER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		Workers           int           `env:"KAFKA_CONTROLLER_WORKERS" envDefault:"2"`
		MaxAttempts       int           `env:"KAFKA_CONTROLLER_MAX_ATTEMPTS" envDefault:"3"`
		RetryBackoff      time.Duration `env:"KAFKA_CONTROLLER_RETRY_BACKOFF" envDefault:"500ms"`
		PurgeRemovedFiles bool          `env:"RECONCILER_PURGE_REMOVED_FILES" envDefault:"false"`
	}

	RateLimit struct {
		PerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	}

	Swagger struct {
		Enabled bool `env:"SWAGGER_ENABLED" envDefault:"false"`
	}

	Notify struct {
		SendGridAPIKey string        `env:"SENDGRID_API_KEY"`
		SendGridHost   string        `env:"SENDGRID_HOST" envDefault:"https://api.sendgrid.com"`
		From           string        `env:"SENDGRID_FROM_EMAIL" envDefault:"noreply@topautomaat.com"`
		To             string        `env:"CONTACT_NOTIFY_TO"`
		Timeout        time.Duration `env:"CONTACT_NOTIFY_TIMEOUT" envDefault:"10s"`
	}
)

// Enabled reports whether contact submissions are e-mailed.
func (n Notify) Enabled() bool {
	return n.SendGridAPIKey != "" && n.To != ""
}

func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return fmt.Errorf("S3_ENDPOINT and S3_BUCKET are required for STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}

	if c.Ingest.MaxFileSize <= 0 {
		return fmt.Errorf("INGEST_MAX_FILE_SIZE must be positive")
	}

	return nil
}
