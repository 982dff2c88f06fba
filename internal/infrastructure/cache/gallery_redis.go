package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/topautomaat/gallery-backend/internal/entity"
	pkgredis "github.com/topautomaat/gallery-backend/pkg/redis"
)

const (
	versionKey      = "gallery:version"
	photosKeyFormat = "gallery:photos:%d"
)

// GalleryCache keeps the public photo list as one JSON value per cache
// generation. Invalidate starts a new generation, so a list read from the
// database before an invalidation can only be stored under a key nobody
// reads anymore.
type GalleryCache struct {
	*pkgredis.Redis
	ttl time.Duration
}

func NewGalleryCache(r *pkgredis.Redis, ttl time.Duration) *GalleryCache {
	return &GalleryCache{r, ttl}
}

// GetPhotos reports a miss with ok == false. version is the generation the
// caller must hand back to SetPhotos.
func (c *GalleryCache) GetPhotos(ctx context.Context) ([]entity.Photo, int64, bool, error) {
	version, err := c.Client.Get(ctx, versionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("GalleryCache - GetPhotos - c.Client.Get(version): %w", err)
	}

	b, err := c.Client.Get(ctx, photosKey(version)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, version, false, nil
		}
		return nil, 0, false, fmt.Errorf("GalleryCache - GetPhotos - c.Client.Get: %w", err)
	}

	var photos []entity.Photo
	if err := json.Unmarshal(b, &photos); err != nil {
		return nil, 0, false, fmt.Errorf("GalleryCache - GetPhotos - json.Unmarshal: %w", err)
	}

	return photos, version, true, nil
}

func (c *GalleryCache) SetPhotos(ctx context.Context, version int64, photos []entity.Photo) error {
	if photos == nil {
		photos = []entity.Photo{}
	}

	b, err := json.Marshal(photos)
	if err != nil {
		return fmt.Errorf("GalleryCache - SetPhotos - json.Marshal: %w", err)
	}

	err = c.Client.Set(ctx, photosKey(version), b, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("GalleryCache - SetPhotos - c.Client.Set: %w", err)
	}

	return nil
}

// Invalidate moves to the next generation. Older entries expire by TTL.
func (c *GalleryCache) Invalidate(ctx context.Context) error {
	err := c.Client.Incr(ctx, versionKey).Err()
	if err != nil {
		return fmt.Errorf("GalleryCache - Invalidate - c.Client.Incr: %w", err)
	}

	return nil
}

func photosKey(version int64) string {
	return fmt.Sprintf(photosKeyFormat, version)
}
