// Package cache stores reference data as JSON in redis.
package cache

import (
	"context"
	"errors"
)

// Cache is a JSON value store keyed by string.
type Cache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
}

var ErrCacheMiss = errors.New("cache miss")
