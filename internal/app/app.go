package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/topautomaat/gallery-backend/config"
	kafkactrl "github.com/topautomaat/gallery-backend/internal/controller/kafka"
	"github.com/topautomaat/gallery-backend/internal/controller/restapi"
	v1 "github.com/topautomaat/gallery-backend/internal/controller/restapi/v1"
	"github.com/topautomaat/gallery-backend/internal/controller/worker/outbox"
	"github.com/topautomaat/gallery-backend/internal/infrastructure/cache"
	infrakafka "github.com/topautomaat/gallery-backend/internal/infrastructure/kafka"
	"github.com/topautomaat/gallery-backend/internal/infrastructure/notify"
	"github.com/topautomaat/gallery-backend/internal/infrastructure/processor"
	"github.com/topautomaat/gallery-backend/internal/infrastructure/token"
	"github.com/topautomaat/gallery-backend/internal/repo"
	"github.com/topautomaat/gallery-backend/internal/repo/persistent"
	"github.com/topautomaat/gallery-backend/internal/usecase/auth"
	"github.com/topautomaat/gallery-backend/internal/usecase/contact"
	"github.com/topautomaat/gallery-backend/internal/usecase/event"
	"github.com/topautomaat/gallery-backend/internal/usecase/photo"
	"github.com/topautomaat/gallery-backend/migrations"
	"github.com/topautomaat/gallery-backend/pkg/httpserver"
	"github.com/topautomaat/gallery-backend/pkg/kafka/consumer"
	"github.com/topautomaat/gallery-backend/pkg/kafka/producer"
	"github.com/topautomaat/gallery-backend/pkg/logger"
	"github.com/topautomaat/gallery-backend/pkg/postgres"
	"github.com/topautomaat/gallery-backend/pkg/redis"
	"github.com/topautomaat/gallery-backend/pkg/s3client"
)

// worker is a background component stopped after the HTTP server.
type worker struct {
	name     string
	timeout  time.Duration
	shutdown func(ctx context.Context) error
}

func Run(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logger
	var logOpts []logger.Option
	if cfg.Log.Path != "" {
		logOpts = append(logOpts, logger.File(cfg.Log.Path, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays))
	}
	l := logger.New(cfg.Log.Level, logOpts...)
	defer l.Sync() //nolint:errcheck

	// Repository

	// postgres
	if cfg.PG.RunMigrations {
		changed, err := postgres.Migrate(migrations.FS, cfg.PG.URL)
		if err != nil {
			l.Fatal(fmt.Errorf("app - Run - postgres.Migrate: %w", err))
		}
		if changed {
			l.Info("app - Run - migrations applied")
		}
	}

	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.PoolMax))
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - postgres.New: %w", err))
	}
	defer pg.Close()

	// files
	files, err := newFileRepo(ctx, cfg, l)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - newFileRepo: %w", err))
	}

	photoRepo := persistent.NewPhotoRepo(pg)
	outboxRepo := persistent.NewPhotoOutboxRepo(pg)

	// Use-Case

	// auth use-case
	authUseCase := auth.New(
		persistent.NewUserRepo(pg),
		token.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		l,
	)

	err = authUseCase.SeedAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - authUseCase.SeedAdmin: %w", err))
	}

	// photo use-case
	photoOpts := []photo.Option{
		photo.Timeout(cfg.Ingest.Timeout),
		photo.MaxFileSize(cfg.Ingest.MaxFileSize),
		photo.PublicPrefix(cfg.Storage.PublicPrefix),
	}

	if cfg.Kafka.Enabled {
		photoOpts = append(photoOpts, photo.Outbox(outboxRepo))
	}

	if cfg.Redis.Enabled {
		rdb, err := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			l.Fatal(fmt.Errorf("app - Run - redis.New: %w", err))
		}
		defer rdb.Close()

		photoOpts = append(photoOpts, photo.Cache(cache.NewGalleryCache(rdb, cfg.Redis.CacheTTL)))
	}

	photoUseCase := photo.New(authUseCase, processor.New(), files, photoRepo, pg, l, photoOpts...)

	// contact use-case
	var contactOpts []contact.Option

	if cfg.Notify.Enabled() {
		contactOpts = append(contactOpts,
			contact.Notifier(notify.NewSendGrid(cfg.Notify.SendGridAPIKey, cfg.Notify.From, cfg.Notify.To, cfg.Notify.SendGridHost)),
			contact.NotifyTimeout(cfg.Notify.Timeout),
		)
	} else {
		l.Warn("contact notifications disabled: SENDGRID_API_KEY or CONTACT_NOTIFY_TO not set")
	}

	contactUseCase := contact.New(authUseCase, persistent.NewContactSubmissionRepo(pg), l, contactOpts...)

	// Background workers
	var workers []worker

	if cfg.Kafka.Enabled {
		eventUseCase := event.New(outboxRepo, files, cfg.KafkaController.PurgeRemovedFiles, l)

		// Kafka Producer
		kafkaProducer, err := producer.New(ctx, cfg.Kafka.Brokers)
		if err != nil {
			l.Fatal(fmt.Errorf("app - Run - producer.New: %w", err))
		}

		// Outbox Relay Worker
		outboxRelayWorker := outbox.New(
			eventUseCase,
			infrakafka.NewEventProducer(kafkaProducer, cfg.Kafka.Topic),
			l,
			cfg.OutboxRelay.PollInterval,
			cfg.OutboxRelay.CleanupInterval,
			cfg.OutboxRelay.MarkFailedInterval,
			cfg.OutboxRelay.ProcessBatchTimeout,
			cfg.OutboxRelay.BatchSize,
			cfg.OutboxRelay.MaxRetries,
		)

		// Kafka Consumer
		kafkaConsumer, err := consumer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic)
		if err != nil {
			l.Fatal(fmt.Errorf("app - Run - consumer.New: %w", err))
		}

		// Kafka as Controller
		kafkaController := kafkactrl.New(
			eventUseCase,
			infrakafka.NewEventConsumer(kafkaConsumer),
			l,
			cfg.KafkaController.CommitTimeout,
			cfg.KafkaController.ProcessTimeout,
			cfg.KafkaController.Workers,
			cfg.KafkaController.MaxAttempts,
			cfg.KafkaController.RetryBackoff,
		)

		if err = outboxRelayWorker.Start(ctx); err != nil {
			l.Fatal(fmt.Errorf("app - Run - outboxRelayWorker.Start: %w", err))
		}
		if err = kafkaController.Start(ctx); err != nil {
			l.Fatal(fmt.Errorf("app - Run - kafkaController.Start: %w", err))
		}

		workers = append(workers,
			worker{"outboxRelayWorker", cfg.OutboxRelay.ShutdownTimeout, outboxRelayWorker.Shutdown},
			worker{"kafkaController", cfg.KafkaController.ShutdownTimeout, kafkaController.Shutdown},
		)
	}

	// HTTP Server
	httpServer := httpserver.New(l,
		httpserver.Port(cfg.HTTP.Port),
		httpserver.Prefork(cfg.HTTP.UsePreforkMode),
		httpserver.ReadTimeout(cfg.HTTP.ReadTimeout),
		httpserver.WriteTimeout(cfg.HTTP.WriteTimeout),
		httpserver.BodyLimit(cfg.HTTP.BodyLimit),
	)
	restapi.NewRouter(httpServer.App, cfg, v1.Deps{
		Photos:   photoUseCase,
		Contacts: contactUseCase,
		Auth:     authUseCase,
		Files:    files,
	}, l)

	httpServer.Start()

	// Waiting Signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info("app - Run - signal: %s", s.String())
	case err = <-httpServer.Notify():
		l.Error(err, "app - Run - httpServer.Notify")
	}

	// Shutdown
	err = httpServer.Shutdown()
	if err != nil {
		l.Error(err, "app - Run - httpServer.Shutdown")
	}

	for _, w := range workers {
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, w.timeout)
		err = w.shutdown(shutdownCtx)
		shutdownCancel()
		if err != nil {
			l.Error(err, "app - Run - %s.Shutdown", w.name)
		}
	}
}

func newFileRepo(ctx context.Context, cfg *config.Config, l logger.Interface) (repo.FileRepo, error) {
	if cfg.Storage.Driver != "s3" {
		files, err := persistent.NewLocalFileRepo(cfg.Storage.UploadsDir)
		if err != nil {
			return nil, fmt.Errorf("persistent.NewLocalFileRepo: %w", err)
		}

		return files, nil
	}

	s3Ctx, s3Cancel := context.WithTimeout(ctx, cfg.S3.CfgLoadTimeout)
	defer s3Cancel()

	s3c, err := s3client.New(s3Ctx, cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Bucket,
		s3client.Region(cfg.S3.Region),
		s3client.OnRetry(func(attemptsLeft int, err error) {
			l.Warn("app - Run - s3client: retrying, attempts left: %d, error: %v", attemptsLeft, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("s3client.New: %w", err)
	}

	return persistent.NewS3FileRepo(s3c, ""), nil
}
