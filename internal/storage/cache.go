package storage

import (
	"context"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/mandalnilabja/drawgate/internal/storage/models"
)

// ImageCache holds loaded images keyed by image key, costed by byte size.
type ImageCache = ristretto.Cache[string, *models.Image]

// CachedLoader serves repeated loads of the same key from memory.
// Stored images are immutable, so entries never need invalidation.
type CachedLoader struct {
	next  ImageLoader
	cache *ImageCache
}

// NewImageCache creates a cache bounded by total image bytes.
func NewImageCache(maxBytes int64) (*ImageCache, error) {
	return ristretto.NewCache(&ristretto.Config[string, *models.Image]{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
}

// NewCachedLoader wraps next with cache. A nil cache disables caching.
func NewCachedLoader(next ImageLoader, cache *ImageCache) *CachedLoader {
	return &CachedLoader{next: next, cache: cache}
}

// Load returns the cached image or falls through to the wrapped loader.
func (c *CachedLoader) Load(ctx context.Context, key string) (*models.Image, error) {
	if !ValidImageKey(key) {
		return nil, ErrNotFound
	}
	if c.cache != nil {
		if img, ok := c.cache.Get(key); ok {
			return img, nil
		}
	}

	img, err := c.next.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(key, img, img.Size)
	}
	return img, nil
}
