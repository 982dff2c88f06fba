package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/topautomaat/gallery-backend/internal/dto"
	"github.com/topautomaat/gallery-backend/internal/entity"
	"github.com/topautomaat/gallery-backend/internal/infrastructure"
	"github.com/topautomaat/gallery-backend/internal/repo"
	"github.com/topautomaat/gallery-backend/internal/usecase"
	"github.com/topautomaat/gallery-backend/pkg/logger"
	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

const (
	_defaultTimeout      = 30 * time.Second
	_defaultMaxFileSize  = 5 * 1024 * 1024
	_defaultPublicPrefix = "/uploads"

	// compensation runs on a fresh deadline, the request one may be spent
	_cleanupTimeout = 10 * time.Second

	variantContentType = "image/jpeg"
)

var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type UseCase struct {
	guard      usecase.AdminGuard
	deriver    infrastructure.ImageDeriver
	files      repo.FileRepo
	photos     repo.PhotoRepo
	transactor repo.Transactor

	// optional
	outbox repo.PhotoOutboxRepo
	cache  infrastructure.GalleryCache

	timeout      time.Duration
	maxFileSize  int64
	publicPrefix string
	now          func() time.Time

	logger logger.Interface
}

func New(
	guard usecase.AdminGuard,
	deriver infrastructure.ImageDeriver,
	files repo.FileRepo,
	photos repo.PhotoRepo,
	transactor repo.Transactor,
	l logger.Interface,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		guard:        guard,
		deriver:      deriver,
		files:        files,
		photos:       photos,
		transactor:   transactor,
		timeout:      _defaultTimeout,
		maxFileSize:  _defaultMaxFileSize,
		publicPrefix: _defaultPublicPrefix,
		now:          time.Now,
		logger:       l,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Ingest validates, derives and stores one uploaded photo. A Photo row is
// only committed after both variant files are written; when the row cannot
// be committed the files are deleted again.
func (uc *UseCase) Ingest(ctx context.Context, identity string, upload *dto.Upload) (*entity.Photo, error) {
	// 1. авторизация до любой работы с файлом
	user, err := uc.guard.RequireAdmin(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("PhotoUseCase - Ingest - uc.guard.RequireAdmin: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	// 2. валидация
	mimeType, data, err := uc.readUpload(upload)
	if err != nil {
		return nil, fmt.Errorf("PhotoUseCase - Ingest - uc.readUpload: %w", err)
	}

	// 3. имена файлов
	displayKey := uc.newFileName(upload.OriginalName)
	thumbKey := thumbnailKey(displayKey)

	// 4. обработка
	derived, err := uc.deriver.Derive(ctx, data)
	if err != nil {
		if !errors.Is(err, errs.ErrTransform) {
			err = fmt.Errorf("%w: %w", errs.ErrTransform, err)
		}
		return nil, fmt.Errorf("PhotoUseCase - Ingest - uc.deriver.Derive: %w", err)
	}

	// 5. файлы: сначала display, потом thumbnail
	err = uc.files.Write(ctx, displayKey, derived.Display, variantContentType)
	if err != nil {
		return nil, fmt.Errorf("PhotoUseCase - Ingest - uc.files.Write(display): %w: %w", errs.ErrStorageWrite, err)
	}

	err = uc.files.Write(ctx, thumbKey, derived.Thumbnail, variantContentType)
	if err != nil {
		uc.discardFiles(ctx, displayKey)

		return nil, fmt.Errorf("PhotoUseCase - Ingest - uc.files.Write(thumbnail): %w: %w", errs.ErrStorageWrite, err)
	}

	thumbURL := uc.publicURL(thumbKey)
	photo := &entity.Photo{
		Filename:     displayKey,
		OriginalName: cleanOriginalName(upload.OriginalName),
		MimeType:     mimeType,
		Size:         int64(len(data)),
		URL:          uc.publicURL(displayKey),
		ThumbnailURL: &thumbURL,
		UploadedBy:   user.ID,
	}

	// 6. в единой транзакции: строка + событие в outbox
	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.photos.Create(ctx, photo); err != nil {
			return fmt.Errorf("PhotoUseCase - Ingest - uc.photos.Create: %w", err)
		}

		if uc.outbox == nil {
			return nil
		}

		event, err := createOutboxEvent(entity.PhotoCreated, photo.ID, dto.PhotoEventPayload{
			PhotoID:      photo.ID,
			DisplayKey:   displayKey,
			ThumbnailKey: thumbKey,
			UploadedBy:   user.ID,
		})
		if err != nil {
			return err
		}

		if err := uc.outbox.Create(ctx, event); err != nil {
			return fmt.Errorf("PhotoUseCase - Ingest - uc.outbox.Create: %w", err)
		}

		return nil
	})
	if err != nil {
		// файлы без строки никому не нужны
		uc.discardFiles(ctx, displayKey, thumbKey)

		return nil, fmt.Errorf("PhotoUseCase - Ingest - uc.transactor.WithinTransaction: %w: %w", errs.ErrDatabase, err)
	}

	// 7. кэш галереи
	uc.invalidateCache(ctx)

	uc.logger.Infow("photo ingested",
		"photo_id", photo.ID,
		"filename", displayKey,
		"uploaded_by", user.ID,
		"size", photo.Size,
	)

	return photo, nil
}

// List returns all photos, newest first. Public.
func (uc *UseCase) List(ctx context.Context) ([]entity.Photo, error) {
	var (
		version   int64
		cacheable bool
	)

	if uc.cache != nil {
		photos, v, ok, err := uc.cache.GetPhotos(ctx)
		switch {
		case err != nil:
			uc.logger.Warn("PhotoUseCase - List - uc.cache.GetPhotos: %v", err)
		case ok:
			return photos, nil
		default:
			version, cacheable = v, true
		}
	}

	photos, err := uc.photos.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("PhotoUseCase - List - uc.photos.List: %w: %w", errs.ErrDatabase, err)
	}

	// версия из GetPhotos: если за время чтения был Invalidate, запись уйдет в мертвый ключ
	if cacheable {
		if err := uc.cache.SetPhotos(ctx, version, photos); err != nil {
			uc.logger.Warn("PhotoUseCase - List - uc.cache.SetPhotos: %v", err)
		}
	}

	return photos, nil
}

// Remove deletes the Photo row. Removing an id that does not exist succeeds.
// Files stay in storage; the photo.removed event carries their keys.
func (uc *UseCase) Remove(ctx context.Context, identity string, rawID string) error {
	// 1. авторизация
	user, err := uc.guard.RequireAdmin(ctx, identity)
	if err != nil {
		return fmt.Errorf("PhotoUseCase - Remove - uc.guard.RequireAdmin: %w", err)
	}

	// 2. id
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("PhotoUseCase - Remove: invalid id %q: %w", rawID, errs.ErrInvalidInput)
	}

	// 3. удаляем строку и пишем событие
	var removed *entity.Photo

	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error

		removed, err = uc.photos.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("PhotoUseCase - Remove - uc.photos.Delete: %w", err)
		}

		if removed == nil || uc.outbox == nil {
			return nil
		}

		event, err := createOutboxEvent(entity.PhotoRemoved, id, removedPayload(removed, user.ID))
		if err != nil {
			return err
		}

		if err := uc.outbox.Create(ctx, event); err != nil {
			return fmt.Errorf("PhotoUseCase - Remove - uc.outbox.Create: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("PhotoUseCase - Remove - uc.transactor.WithinTransaction: %w: %w", errs.ErrDatabase, err)
	}

	if removed == nil {
		uc.logger.Debug("PhotoUseCase - Remove - photo %d already absent", id)

		return nil
	}

	uc.invalidateCache(ctx)

	payload := removedPayload(removed, user.ID)
	uc.logger.Warnw("photo files left in storage",
		"photo_id", id,
		"display_key", payload.DisplayKey,
		"thumbnail_key", payload.ThumbnailKey,
		"removed_by", user.ID,
	)

	return nil
}

func (uc *UseCase) readUpload(upload *dto.Upload) (string, []byte, error) {
	if upload == nil || upload.Data == nil {
		return "", nil, fmt.Errorf("no file uploaded: %w", errs.ErrInvalidInput)
	}

	mimeType := normalizeMimeType(upload.ContentType)
	if !AllowedMimeTypes[mimeType] {
		return "", nil, fmt.Errorf("mime type %q: %w", upload.ContentType, errs.ErrUnsupportedMediaType)
	}

	if upload.Size > uc.maxFileSize {
		return "", nil, fmt.Errorf("declared size %d: %w", upload.Size, errs.ErrPayloadTooLarge)
	}

	// the declared size is not trusted
	data, err := io.ReadAll(io.LimitReader(upload.Data, uc.maxFileSize+1))
	if err != nil {
		return "", nil, fmt.Errorf("io.ReadAll: %w: %w", errs.ErrInvalidInput, err)
	}

	if int64(len(data)) > uc.maxFileSize {
		return "", nil, fmt.Errorf("size exceeds %d bytes: %w", uc.maxFileSize, errs.ErrPayloadTooLarge)
	}

	if len(data) == 0 {
		return "", nil, fmt.Errorf("empty file: %w", errs.ErrInvalidInput)
	}

	return mimeType, data, nil
}

// discardFiles is best effort. Keys that cannot be deleted are reported for
// manual reconciliation.
func (uc *UseCase) discardFiles(ctx context.Context, keys ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), _cleanupTimeout)
	defer cancel()

	var orphaned []string

	for _, key := range keys {
		if err := uc.files.Delete(ctx, key); err != nil {
			uc.logger.Error(err, "PhotoUseCase - discardFiles - uc.files.Delete key=%s", key)

			orphaned = append(orphaned, key)
		}
	}

	if len(orphaned) > 0 {
		uc.logger.Errorw("reconciliation required", "orphaned_keys", orphaned)
	}
}

func (uc *UseCase) invalidateCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}

	if err := uc.cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
		uc.logger.Warn("PhotoUseCase - invalidateCache - uc.cache.Invalidate: %v", err)
	}
}

func removedPayload(p *entity.Photo, removedBy string) dto.PhotoEventPayload {
	payload := dto.PhotoEventPayload{
		PhotoID:    p.ID,
		DisplayKey: p.Filename,
		UploadedBy: p.UploadedBy,
		RemovedBy:  removedBy,
	}

	if p.ThumbnailURL != nil {
		payload.ThumbnailKey = keyFromURL(*p.ThumbnailURL)
	}

	return payload
}
