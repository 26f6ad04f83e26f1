package cachesvc

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
)

const defaultCleanupInterval = time.Minute

// MemoryCache is a process-local core.Cache, used in tests and single-instance setups.
// Expired entries are evicted by a janitor running every cleanup interval.
type MemoryCache struct {
	items *gocache.Cache
}

var _ core.Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithCleanup(defaultCleanupInterval)
}

func NewMemoryCacheWithCleanup(interval time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(gocache.NoExpiration, interval)}
}

func (c *MemoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	val, ok := c.items.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(val.([]byte), dest); err != nil {
		return false, errors.Wrap(err, "decoding "+key)
	}
	return true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, val interface{}, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "encoding "+key)
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.items.Set(key, data, ttl)
	return nil
}

func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	for key := range c.items.Items() {
		if strings.HasPrefix(key, prefix) {
			c.items.Delete(key)
		}
	}
	return nil
}

// Len returns the number of stored keys, expired ones not yet evicted included.
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}
