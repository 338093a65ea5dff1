// Package cache is a small read-through JSON cache on top of Redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("bizdoc/cache")

// Cache coalesces concurrent loads of the same key. With a nil client it
// only coalesces and never stores.
type Cache struct {
	rdb   *redis.Client
	group singleflight.Group
}

func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// GetOrLoad unmarshals the cached value for key into dest, calling loader
// and caching its result for ttl on a miss. Redis errors fall back to the
// loader.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, dest interface{}, loader func(ctx context.Context) (interface{}, error)) error {
	ctx, span := tracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if raw, ok := c.get(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return json.Unmarshal(raw, dest)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err, shared := c.group.Do(key, func() (interface{}, error) {
		if raw, ok := c.get(ctx, key); ok {
			return raw, nil
		}
		data, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", key, err)
		}
		if c.rdb != nil {
			if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
				logrus.WithError(err).WithField("key", key).Warn("Failed to write cache")
			}
		}
		return raw, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return err
	}
	return json.Unmarshal(result.([]byte), dest)
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).WithField("key", key).Warn("Failed to read cache")
		}
		return nil, false
	}
	return raw, true
}

// Delete drops keys; a nil client makes it a no-op
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c.rdb == nil || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
