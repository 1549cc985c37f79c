package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/roadtrip-planner/backend/internal/cache"
)

// setupMiniredis starts an in-process Redis and a client connected to it.
func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

type entry struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestRedis_SetThenGet(t *testing.T) {
	_, client := setupMiniredis(t)
	c := cache.NewRedis(client, "test:")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Name: "a", Items: []string{"x", "y"}}, time.Minute))

	var got entry
	ok, err := c.Get(ctx, "k", &got)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry{Name: "a", Items: []string{"x", "y"}}, got)
}

func TestRedis_Miss(t *testing.T) {
	_, client := setupMiniredis(t)
	c := cache.NewRedis(client, "test:")

	var got entry
	ok, err := c.Get(context.Background(), "absent", &got)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_Expires(t *testing.T) {
	mr, client := setupMiniredis(t)
	c := cache.NewRedis(client, "test:")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Name: "a"}, 30*time.Minute))
	assert.True(t, mr.Exists("test:k"), "stored under the prefix")
	assert.Equal(t, 30*time.Minute, mr.TTL("test:k"))

	mr.FastForward(31 * time.Minute)

	var got entry
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_CorruptValue(t *testing.T) {
	mr, client := setupMiniredis(t)
	c := cache.NewRedis(client, "test:")
	require.NoError(t, mr.Set("test:k", "{not json"))

	var got entry
	ok, err := c.Get(context.Background(), "k", &got)

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedis_ServerDown(t *testing.T) {
	mr, client := setupMiniredis(t)
	c := cache.NewRedis(client, "test:")
	mr.Close()

	var got entry
	_, err := c.Get(context.Background(), "k", &got)

	assert.Error(t, err)
}

func TestDial(t *testing.T) {
	mr, _ := setupMiniredis(t)

	client, err := cache.Dial(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	_ = client.Close()

	_, err = cache.Dial(context.Background(), "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
