package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-checkout/internal/domain"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, ttl), mr
}

func TestSetAndGet(t *testing.T) {
	c, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	cities := []domain.DeliveryCity{{ID: "lilongwe", Name: "Lilongwe", RegionName: "Central"}}
	require.NoError(t, c.Set(ctx, "delivery_cities", cities))
	assert.True(t, mr.Exists("checkout:delivery_cities"))

	ttl := mr.TTL("checkout:delivery_cities")
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.Less(t, ttl, time.Minute+12*time.Second)

	var got []domain.DeliveryCity
	require.NoError(t, c.Get(ctx, "delivery_cities", &got))
	assert.Equal(t, cities, got)
}

func TestGetMiss(t *testing.T) {
	c, _ := setupTestRedis(t, 0)
	var got []domain.Country
	assert.ErrorIs(t, c.Get(context.Background(), "countries", &got), ErrCacheMiss)
}

func TestGetInvalidJSON(t *testing.T) {
	c, mr := setupTestRedis(t, 0)
	require.NoError(t, mr.Set("checkout:countries", `[{"id":`))
	var got []domain.Country
	assert.ErrorContains(t, c.Get(context.Background(), "countries", &got), "unmarshal countries failed")
}

func TestExpiry(t *testing.T) {
	c, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "countries", []domain.Country{{ID: "MW"}}))

	mr.FastForward(2 * time.Minute)
	var got []domain.Country
	assert.ErrorIs(t, c.Get(ctx, "countries", &got), ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	c, mr := setupTestRedis(t, 0)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", 1))
	require.NoError(t, c.Set(ctx, "b", 2))
	require.NoError(t, c.Delete(ctx, "a", "b"))
	assert.False(t, mr.Exists("checkout:a"))
	assert.False(t, mr.Exists("checkout:b"))
	require.NoError(t, c.Delete(ctx))
}

func TestRedisDown(t *testing.T) {
	c, mr := setupTestRedis(t, 0)
	mr.Close()
	var v int
	err := c.Get(context.Background(), "a", &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Error(t, c.Ping(context.Background()))
}
