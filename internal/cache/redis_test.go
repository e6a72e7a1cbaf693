package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := newRedisCache(client, "", zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestRedisCache_SetGet(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "details:1", []byte(`{"d":"x"}`), 5*time.Minute)
	got, ok := c.Get(ctx, "details:1")
	require.True(t, ok)
	assert.JSONEq(t, `{"d":"x"}`, string(got))
	assert.True(t, mr.Exists("zattoo-epg:details:1"))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestRedisCache_MissAndTTL(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "nope")
	assert.False(t, ok)

	c.Set(ctx, "k", []byte("v"), time.Second)
	mr.FastForward(2 * time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, int64(2), c.Stats().Misses)
}

func TestRedisCache_Delete(t *testing.T) {
	_, c := setupMiniRedis(t)
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCache_ServerDown(t *testing.T) {
	mr, c := setupMiniRedis(t)
	require.NoError(t, c.HealthCheck(context.Background()))
	mr.Close()

	assert.Error(t, c.HealthCheck(context.Background()))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestNewRedisCache_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(RedisConfig{Addr: mr.Addr(), KeyPrefix: "t:"}, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	c.Set(context.Background(), "a", []byte("1"), time.Minute)
	assert.True(t, mr.Exists("t:a"))
}
