package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()
	ctx := context.Background()

	buf := []byte("abc")
	c.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'x'
	got, _ := c.Get(ctx, "k")
	got[1] = 'y'
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemoryCache_Expiration(t *testing.T) {
	mc := NewMemoryCache(0).(*memoryCache)
	now := time.Unix(1_700_000_000, 0)
	mc.now = func() time.Time { return now }
	ctx := context.Background()

	mc.Set(ctx, "k", []byte("v"), time.Second)
	_, ok := mc.Get(ctx, "k")
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = mc.Get(ctx, "k")
	assert.False(t, ok)

	assert.Equal(t, 1, mc.deleteExpired())
	stats := mc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 0, stats.CurrentSize)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_JanitorStopsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewMemoryCache(5 * time.Millisecond)
	c.Set(context.Background(), "k", []byte("v"), time.Millisecond)
	assert.Eventually(t, func() bool { return c.Stats().CurrentSize == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%10)
				c.Set(ctx, key, []byte{byte(n)}, time.Minute)
				c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, c.Stats().CurrentSize)
}

func TestNoOpCache(t *testing.T) {
	c := NewNoOpCache()
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, Stats{}, c.Stats())
	assert.NoError(t, c.Close())
}

func TestNew_Backends(t *testing.T) {
	c, err := New(Config{}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, noOpCache{}, c)

	c, err = New(Config{Backend: BackendMemory}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &memoryCache{}, c)
	require.NoError(t, c.Close())

	_, err = New(Config{Backend: "memcached"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Config{Backend: BackendRedis, Redis: RedisConfig{Addr: "127.0.0.1:1"}}, zerolog.Nop())
	assert.Error(t, err)
}

func BenchmarkMemoryCache_Get(b *testing.B) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), time.Hour)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(ctx, "k")
	}
}
