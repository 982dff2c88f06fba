package usecase

import (
	"context"

	"github.com/topautomaat/gallery-backend/internal/dto"
	"github.com/topautomaat/gallery-backend/internal/entity"
)

type (
	PhotoUseCase interface {
		Ingest(ctx context.Context, identity string, upload *dto.Upload) (*entity.Photo, error)
		List(ctx context.Context) ([]entity.Photo, error)
		Remove(ctx context.Context, identity string, rawID string) error
	}

	ContactUseCase interface {
		Create(ctx context.Context, input dto.ContactInput) (*entity.ContactSubmission, error)
		List(ctx context.Context, identity string) ([]entity.ContactSubmission, error)
	}

	// AdminGuard resolves an identity and rejects anyone who is not an admin.
	AdminGuard interface {
		RequireAdmin(ctx context.Context, identity string) (*entity.User, error)
	}

	AuthUseCase interface {
		AdminGuard

		Login(ctx context.Context, email, password string) (dto.Token, error)
		CurrentUser(ctx context.Context, identity string) (*entity.User, error)
		// Identify returns the user id carried by a bearer token, or "".
		Identify(token string) string
		SeedAdmin(ctx context.Context, email, password string) error
	}

	PhotoEventUseCase interface {
		GetPendingEvents(ctx context.Context, maxRetries, limit int) ([]*entity.OutboxEvent, error)
		MarkAsProcessingBatch(ctx context.Context, events []*entity.OutboxEvent) error
		MarkAsProcessedBatch(ctx context.Context, events []*entity.OutboxEvent) error
		IncrementRetryCountBatch(ctx context.Context, events []*entity.OutboxEvent) error
		MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error
		CleanupOutbox(ctx context.Context) error
		Reconcile(ctx context.Context, eventType entity.EventType, payload []byte) error
	}
)
