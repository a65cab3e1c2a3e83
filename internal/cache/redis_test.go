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

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestSetNX_OnlyFirstWins(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock:reset:weekly:2026-W11", "replica-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "lock:reset:weekly:2026-W11", "replica-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := mr.Get("lock:reset:weekly:2026-W11")
	require.NoError(t, err)
	assert.Equal(t, "replica-a", val)

	mr.FastForward(2 * time.Minute)
	ok, err = c.SetNX(ctx, "lock:reset:weekly:2026-W11", "replica-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock should be free after the TTL")
}

func TestRelease_OnlyOwnerDeletes(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := "lock:reset:monthly:2026-02"

	ok, err := c.SetNX(ctx, key, "replica-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	released, err := c.Release(ctx, key, "replica-b")
	require.NoError(t, err)
	assert.False(t, released)
	assert.True(t, mr.Exists(key), "another token must not free the lock")

	released, err = c.Release(ctx, key, "replica-a")
	require.NoError(t, err)
	assert.True(t, released)
	assert.False(t, mr.Exists(key))
}

func TestRelease_AfterExpiryKeepsNewHolder(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := "lock:reset:weekly:2026-W11"

	_, err := c.SetNX(ctx, key, "slow-run", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	ok, err := c.SetNX(ctx, key, "next-run", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// The slow run finishes after its lock expired.
	released, err := c.Release(ctx, key, "slow-run")
	require.NoError(t, err)
	assert.False(t, released)

	val, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "next-run", val)
}

func TestHealth(t *testing.T) {
	c, mr := newTestCache(t)

	assert.NoError(t, c.Health(context.Background()))

	mr.Close()
	assert.Error(t, c.Health(context.Background()))
}
