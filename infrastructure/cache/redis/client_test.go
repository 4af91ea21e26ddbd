package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-fetch-api/core/interfaces"
	"content-fetch-api/pkg/config"
)

var _ interfaces.Cache = (*RedisCache)(nil)

// These tests need a live Redis instance
func skipIfNoRedis(t *testing.T) string {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if os.Getenv("REDIS_TEST") != "1" {
		t.Skip("Skipping Redis integration tests - set REDIS_TEST=1 to run")
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	return addr
}

func TestNewRedisCache_EmptyAddress(t *testing.T) {
	c, err := NewRedisCache(config.RedisConfig{})
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	c, err := NewRedisCache(config.RedisConfig{Address: "127.0.0.1:1"})
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestRedisCache_RoundTrip(t *testing.T) {
	addr := skipIfNoRedis(t)

	c, err := NewRedisCache(config.RedisConfig{Address: addr})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	key := "robots:https://example.com"

	require.NoError(t, c.Set(ctx, key, []byte("User-agent: *"), time.Minute))
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "User-agent: *", string(got))

	require.NoError(t, c.Delete(ctx, key))
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)
	assert.NoError(t, c.Delete(ctx, key))
}

func TestRedisCache_Expiry(t *testing.T) {
	addr := skipIfNoRedis(t)

	c, err := NewRedisCache(config.RedisConfig{Address: addr})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "short", []byte("v"), 50*time.Millisecond))
	time.Sleep(120 * time.Millisecond)

	_, err = c.Get(ctx, "short")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)
}
