package infrastructure

import (
	"context"
	"time"

	"github.com/topautomaat/gallery-backend/internal/dto"
	"github.com/topautomaat/gallery-backend/internal/entity"
)

type (
	ImageDeriver interface {
		Derive(ctx context.Context, data []byte) (dto.Derived, error)
	}

	EventsSender interface {
		SendEvents(ctx context.Context, events []*entity.OutboxEvent) error
		Close() error
	}

	// GalleryCache is versioned: SetPhotos stores under the version GetPhotos
	// returned, so a list read before an Invalidate is never served after it.
	GalleryCache interface {
		GetPhotos(ctx context.Context) (photos []entity.Photo, version int64, ok bool, err error)
		SetPhotos(ctx context.Context, version int64, photos []entity.Photo) error
		Invalidate(ctx context.Context) error
	}

	ContactNotifier interface {
		NotifyContact(ctx context.Context, s entity.ContactSubmission) error
	}

	TokenManager interface {
		Issue(userID string) (string, time.Time, error)
		Parse(token string) (string, error)
	}
)
