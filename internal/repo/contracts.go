package repo

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/topautomaat/gallery-backend/internal/entity"
)

type (
	// FileRepo stores derived image files by key. Keys are bare file names.
	FileRepo interface {
		Write(ctx context.Context, key string, data []byte, contentType string) error
		Read(ctx context.Context, key string) (io.ReadCloser, error)
		Delete(ctx context.Context, key string) error
	}

	PhotoRepo interface {
		Create(ctx context.Context, photo *entity.Photo) error
		List(ctx context.Context) ([]entity.Photo, error)
		// Delete returns the removed row, or nil when nothing matched.
		Delete(ctx context.Context, id int64) (*entity.Photo, error)
	}

	ContactSubmissionRepo interface {
		Create(ctx context.Context, s *entity.ContactSubmission) error
		List(ctx context.Context) ([]entity.ContactSubmission, error)
	}

	UserRepo interface {
		GetByID(ctx context.Context, id string) (*entity.User, error)
		GetByEmail(ctx context.Context, email string) (*entity.User, error)
		Upsert(ctx context.Context, user *entity.User) error
	}

	PhotoOutboxRepo interface {
		Create(ctx context.Context, event *entity.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int, maxRetries int) ([]*entity.OutboxEvent, error)
		MarkAsProcessingBatch(ctx context.Context, IDs uuid.UUIDs) error
		MarkAsProcessedBatch(ctx context.Context, IDs uuid.UUIDs) error
		IncrementRetryCountBatch(ctx context.Context, IDs uuid.UUIDs) error
		MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error
		DeleteOldProcessedAndFailed(ctx context.Context) (int64, error)
	}

	Transactor interface {
		WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error
	}
)
