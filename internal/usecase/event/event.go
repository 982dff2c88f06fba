package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/topautomaat/gallery-backend/internal/dto"
	"github.com/topautomaat/gallery-backend/internal/entity"
	"github.com/topautomaat/gallery-backend/internal/repo"
	"github.com/topautomaat/gallery-backend/pkg/logger"
	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

// UseCase drives the photo_events outbox and reacts to delivered events.
type UseCase struct {
	outbox repo.PhotoOutboxRepo
	files  repo.FileRepo

	purgeRemovedFiles bool

	logger logger.Interface
}

func New(outbox repo.PhotoOutboxRepo, files repo.FileRepo, purgeRemovedFiles bool, l logger.Interface) *UseCase {
	return &UseCase{
		outbox:            outbox,
		files:             files,
		purgeRemovedFiles: purgeRemovedFiles,
		logger:            l,
	}
}

func (uc *UseCase) GetPendingEvents(ctx context.Context, maxRetries, limit int) ([]*entity.OutboxEvent, error) {
	events, err := uc.outbox.GetPendingEvents(ctx, limit, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("EventUseCase - GetPendingEvents - uc.outbox.GetPendingEvents: %w", err)
	}

	return events, nil
}

func (uc *UseCase) MarkAsProcessingBatch(ctx context.Context, events []*entity.OutboxEvent) error {
	err := uc.outbox.MarkAsProcessingBatch(ctx, eventIDs(events))
	if err != nil {
		return fmt.Errorf("EventUseCase - MarkAsProcessingBatch - uc.outbox.MarkAsProcessingBatch: %w", err)
	}

	return nil
}

func (uc *UseCase) MarkAsProcessedBatch(ctx context.Context, events []*entity.OutboxEvent) error {
	err := uc.outbox.MarkAsProcessedBatch(ctx, eventIDs(events))
	if err != nil {
		return fmt.Errorf("EventUseCase - MarkAsProcessedBatch - uc.outbox.MarkAsProcessedBatch: %w", err)
	}

	return nil
}

func (uc *UseCase) IncrementRetryCountBatch(ctx context.Context, events []*entity.OutboxEvent) error {
	err := uc.outbox.IncrementRetryCountBatch(ctx, eventIDs(events))
	if err != nil {
		return fmt.Errorf("EventUseCase - IncrementRetryCountBatch - uc.outbox.IncrementRetryCountBatch: %w", err)
	}

	return nil
}

func (uc *UseCase) MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error {
	err := uc.outbox.MarkMaxRetriesAsFailed(ctx, maxRetries)
	if err != nil {
		return fmt.Errorf("EventUseCase - MarkMaxRetriesAsFailed - uc.outbox.MarkMaxRetriesAsFailed: %w", err)
	}

	return nil
}

func (uc *UseCase) CleanupOutbox(ctx context.Context) error {
	count, err := uc.outbox.DeleteOldProcessedAndFailed(ctx)
	if err != nil {
		return fmt.Errorf("EventUseCase - CleanupOutbox - uc.outbox.DeleteOldProcessedAndFailed: %w", err)
	}

	if count > 0 {
		uc.logger.Info("deleted old photo events, count = %d", count)
	}

	return nil
}

// Reconcile handles one delivered event. photo.removed deletes the files
// left behind by removal when purging is enabled, otherwise they are logged.
func (uc *UseCase) Reconcile(ctx context.Context, eventType entity.EventType, payload []byte) error {
	switch eventType {
	case entity.PhotoCreated:
		return nil
	case entity.PhotoRemoved:
	default:
		return fmt.Errorf("EventUseCase - Reconcile - type %q: %w", eventType, errs.ErrUnknownEventType)
	}

	var p dto.PhotoEventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("EventUseCase - Reconcile - json.Unmarshal: %w", err)
	}

	keys := make([]string, 0, 2)
	for _, key := range []string{p.DisplayKey, p.ThumbnailKey} {
		if key != "" {
			keys = append(keys, key)
		}
	}

	if !uc.purgeRemovedFiles {
		uc.logger.Warnw("removed photo files awaiting reconciliation", "photo_id", p.PhotoID, "keys", keys)

		return nil
	}

	// 1. удаляем оба файла; удаление идемпотентно, при ошибке событие повторяет консьюмер
	for _, key := range keys {
		if err := uc.files.Delete(ctx, key); err != nil {
			return fmt.Errorf("EventUseCase - Reconcile - uc.files.Delete: %w", err)
		}
	}

	uc.logger.Infow("removed photo files purged", "photo_id", p.PhotoID, "keys", keys)

	return nil
}

func eventIDs(events []*entity.OutboxEvent) uuid.UUIDs {
	IDs := make(uuid.UUIDs, 0, len(events))
	for _, event := range events {
		IDs = append(IDs, event.ID)
	}

	return IDs
}
