package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, err := c.Get(ctx, "440")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "440", []byte(`{"name": "Team Fortress 2"}`), 0))

	got, err := c.Get(ctx, "440")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"name": "Team Fortress 2"}`), got)

	require.NoError(t, c.Delete(ctx, "440"))
	_, err = c.Get(ctx, "440")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "440", []byte("payload"), 10*time.Millisecond))

	got, err := c.Get(ctx, "440")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	time.Sleep(20 * time.Millisecond)

	_, err = c.Get(ctx, "440")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func newRedisTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCacheWithClient(client, ""), mr
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisTestCache(t)

	_, err := c.Get(ctx, "440")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "440", []byte("payload"), time.Hour))

	got, err := c.Get(ctx, "440")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, c.Delete(ctx, "440"))
	_, err = c.Get(ctx, "440")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCacheKeysArePrefixed(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisTestCache(t)

	require.NoError(t, c.Set(ctx, "440", []byte("payload"), time.Hour))

	assert.True(t, mr.Exists("steam:metadata:440"))
	assert.False(t, mr.Exists("440"))
}

func TestRedisCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisTestCache(t)

	require.NoError(t, c.Set(ctx, "440", []byte("payload"), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, "440")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
