package photo

import (
	"time"

	"github.com/topautomaat/gallery-backend/internal/infrastructure"
	"github.com/topautomaat/gallery-backend/internal/repo"
)

type Option func(*UseCase)

// Outbox enables photo.created / photo.removed events.
func Outbox(outbox repo.PhotoOutboxRepo) Option {
	return func(uc *UseCase) {
		uc.outbox = outbox
	}
}

// Cache enables the read-through gallery cache.
func Cache(cache infrastructure.GalleryCache) Option {
	return func(uc *UseCase) {
		uc.cache = cache
	}
}

func Timeout(timeout time.Duration) Option {
	return func(uc *UseCase) {
		if timeout > 0 {
			uc.timeout = timeout
		}
	}
}

func MaxFileSize(size int64) Option {
	return func(uc *UseCase) {
		if size > 0 {
			uc.maxFileSize = size
		}
	}
}

// PublicPrefix is the URL path under which stored files are served.
func PublicPrefix(prefix string) Option {
	return func(uc *UseCase) {
		uc.publicPrefix = prefix
	}
}

func Clock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}
