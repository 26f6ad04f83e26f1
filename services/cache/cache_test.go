package cachesvc

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cached struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestDisabledRedisCache(t *testing.T) {
	ctx := context.Background()
	c := &RedisCache{}

	assert.False(t, c.Enabled())
	require.NoError(t, c.Set(ctx, "vendors:list:a", cached{Name: "a"}, time.Minute))

	var dest cached
	found, err := c.Get(ctx, "vendors:list:a", &dest)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.DeletePrefix(ctx, "vendors:"))
	assert.NoError(t, c.Close())
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "vendors:list:a", cached{Name: "a", Count: 1}, time.Minute))
	require.NoError(t, c.Set(ctx, "vendors:list:b", cached{Name: "b", Count: 2}, 0))
	require.NoError(t, c.Set(ctx, "plans", cached{Name: "p"}, time.Minute))
	require.NoError(t, c.Set(ctx, "stale", cached{Name: "s"}, time.Nanosecond))

	var dest cached
	found, err := c.Get(ctx, "vendors:list:b", &dest)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cached{Name: "b", Count: 2}, dest)

	time.Sleep(time.Millisecond)
	found, err = c.Get(ctx, "stale", &dest)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.DeletePrefix(ctx, "vendors:"))
	found, _ = c.Get(ctx, "vendors:list:a", &dest)
	assert.False(t, found)
	found, _ = c.Get(ctx, "plans", &dest)
	assert.True(t, found)
	assert.Equal(t, 2, c.Len())
}

func TestMemoryCache_EvictsExpiredKeys(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCacheWithCleanup(5 * time.Millisecond)

	for i := 0; i < 1000; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("vendors:list:search=%d", i), cached{Count: i}, time.Millisecond))
	}
	require.NoError(t, c.Set(ctx, "plans", cached{Name: "p"}, 0))

	assert.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 10*time.Millisecond)

	var dest cached
	found, err := c.Get(ctx, "plans", &dest)
	require.NoError(t, err)
	assert.True(t, found)
}
