package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TextCache stores OCR output keyed by image content.
type TextCache interface {
	Get(key string) (string, bool)
	Set(key, text string)
	Delete(key string)
	Len() int
}

// MemoryCache is an in-process TextCache with per-entry expiry.
type MemoryCache struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMemoryCache creates a cache whose entries live for ttl. A non-positive ttl keeps entries until evicted by Delete.
func NewMemoryCache(ttl, cleanupInterval time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &MemoryCache{
		cache: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

func (c *MemoryCache) Get(key string) (string, bool) {
	if val, found := c.cache.Get(key); found {
		s, ok := val.(string)
		return s, ok
	}
	return "", false
}

func (c *MemoryCache) Set(key, text string) {
	c.cache.Set(key, text, gocache.DefaultExpiration)
}

func (c *MemoryCache) Delete(key string) {
	c.cache.Delete(key)
}

func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}

// OCRKey builds the cache key for an image hash read with the given tesseract language.
func OCRKey(contentHash, lang string) string {
	return "expiry:ocr:v1:" + lang + ":" + contentHash
}
