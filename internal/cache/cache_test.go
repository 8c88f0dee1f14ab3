package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/fund-info-parser/internal/models"
)

// TestMemoryCache 测试内存缓存的基本功能
func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemoryCache(Config{
		Type:            "memory",
		DefaultTTL:      time.Second * 2,
		CleanupInterval: time.Second,
	})
	require.NoError(t, err)
	defer cache.Close()

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "key1", "value1", 0))

		val, found, err := cache.Get(ctx, "key1")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "value1", val)
	})

	t.Run("missing key", func(t *testing.T) {
		val, found, err := cache.Get(ctx, "non-existent")
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, val)
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "expire-soon", "temp-value", 50*time.Millisecond))
		time.Sleep(100 * time.Millisecond)

		_, found, err := cache.Get(ctx, "expire-soon")
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete and clear", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "to-delete", "delete-me", 0))
		require.NoError(t, cache.Delete(ctx, "to-delete"))
		_, found, _ := cache.Get(ctx, "to-delete")
		assert.False(t, found)

		require.NoError(t, cache.Set(ctx, "key2", "value2", 0))
		require.NoError(t, cache.Clear(ctx))
		_, found, _ = cache.Get(ctx, "key2")
		assert.False(t, found)
		assert.Equal(t, 0, cache.(*MemoryCache).Len())
	})
}

// TestRedisCache 测试Redis缓存
func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cache, err := NewRedisCache(Config{
		Type:       "redis",
		RedisAddr:  mr.Addr(),
		DefaultTTL: time.Minute,
	})
	require.NoError(t, err)
	defer cache.Close()

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "redis-key1", "redis-value1", 0))

		val, found, err := cache.Get(ctx, "redis-key1")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "redis-value1", val)
		assert.Equal(t, time.Minute, mr.TTL("redis-key1"))
	})

	t.Run("missing key", func(t *testing.T) {
		val, found, err := cache.Get(ctx, "redis-non-existent")
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, val)
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "redis-expire-soon", "v", time.Second))
		mr.FastForward(2 * time.Second)

		_, found, err := cache.Get(ctx, "redis-expire-soon")
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "redis-to-delete", "v", 0))
		require.NoError(t, cache.Delete(ctx, "redis-to-delete"))
		assert.False(t, mr.Exists("redis-to-delete"))
	})

	t.Run("clear only removes extraction keys", func(t *testing.T) {
		require.NoError(t, mr.Set("unrelated", "keep"))
		require.NoError(t, cache.Set(ctx, ExtractionKey("o4-mini", "abc"), "{}", 0))
		require.NoError(t, cache.Set(ctx, ExtractionKey("o3", "def"), "{}", 0))

		require.NoError(t, cache.Clear(ctx))

		assert.False(t, mr.Exists("extract:o4-mini:abc"))
		assert.False(t, mr.Exists("extract:o3:def"))
		assert.True(t, mr.Exists("unrelated"))
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedisCache(Config{RedisAddr: "127.0.0.1:1"})
		assert.Error(t, err)
	})
}

// TestCacheFactory 测试缓存工厂函数
func TestCacheFactory(t *testing.T) {
	memCache, err := NewCache(DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, memCache)

	mr := miniredis.RunT(t)
	redisCache, err := NewCache(Config{Type: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, redisCache)
	_ = redisCache.Close()

	_, err = NewCache(Config{Type: "unknown-type"})
	assert.Error(t, err)
}

// TestGenerateCacheKey 测试缓存键生成
func TestGenerateCacheKey(t *testing.T) {
	assert.Equal(t, "prefix", GenerateCacheKey("prefix"))
	assert.Equal(t, "prefix:part1", GenerateCacheKey("prefix", "part1"))
	assert.Equal(t, "prefix:part1:part2:part3", GenerateCacheKey("prefix", "part1", "part2", "part3"))
	assert.Equal(t, "extract:o4-mini:da39a3ee", ExtractionKey("o4-mini", "da39a3ee"))
}

// TestStoreLoadFields 测试抽取字段的缓存往返
func TestStoreLoadFields(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemoryCache(DefaultConfig())
	require.NoError(t, err)

	key := ExtractionKey("o4-mini", models.HashText("block"))
	fields := []models.FieldValue{
		{Name: "fund_name", Value: "Acme Fund"},
		{Name: "ticker", Value: nil},
		{Name: "leverage_percent", Value: float64(-100)},
	}

	_, found, err := LoadFields(ctx, cache, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, StoreFields(ctx, cache, key, fields, 0))

	got, found, err := LoadFields(ctx, cache, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, fields, got)

	require.NoError(t, cache.Set(ctx, key, "not json", 0))
	_, _, err = LoadFields(ctx, cache, key)
	assert.Error(t, err)
}
