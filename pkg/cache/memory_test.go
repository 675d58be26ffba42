package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "model:a:b", payload{Name: "x", Score: 0.5}, time.Minute))
	var got payload
	require.NoError(t, mc.Get(ctx, "model:a:b", &got))
	assert.Equal(t, payload{Name: "x", Score: 0.5}, got)

	require.NoError(t, mc.Set(ctx, "plain", "text", 0))
	var s string
	require.NoError(t, mc.Get(ctx, "plain", &s))
	assert.Equal(t, "text", s)

	assert.ErrorIs(t, mc.Get(ctx, "absent", &s), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for _, k := range []string{"model:1:a", "model:2:a", "other"} {
		require.NoError(t, mc.Set(ctx, k, k, 0))
	}
	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("model:")))

	ok, _ := mc.Exists(ctx, "model:1:a", "model:2:a")
	assert.False(t, ok)
	ok, _ = mc.Exists(ctx, "other")
	assert.True(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", 0))
	time.Sleep(time.Millisecond)
	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	ok, _ := mc.Exists(ctx, "b")
	assert.False(t, ok)
	ok, _ = mc.Exists(ctx, "a", "c")
	assert.True(t, ok)
}

func TestMemoryCacheLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "ledger:2024-01-01", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "ledger:2024-01-01", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "ledger:2024-01-01"))
	ok, _ = mc.TryLock(ctx, "ledger:2024-01-01", time.Minute)
	assert.True(t, ok)
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "model:abc:3", GenerateKeyWithParams("model", "abc", 3))
	assert.Len(t, HashKey("x"), 32)
}
