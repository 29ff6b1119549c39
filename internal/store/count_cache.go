package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"FleetAPI/internal/logger"
	"FleetAPI/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// KV is the part of *redis.Client the count cache needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CountCache keeps stage-1 totals in redis for a short TTL.
// A nil cache, or one without KV or TTL, always loads.
type CountCache struct {
	kv      KV
	ttl     time.Duration
	metrics *metrics.Metrics
}

func NewCountCache(kv KV, ttl time.Duration, m *metrics.Metrics) *CountCache {
	return &CountCache{kv: kv, ttl: ttl, metrics: m}
}

func (c *CountCache) enabled() bool {
	return c != nil && c.kv != nil && c.ttl > 0
}

// Key is count:<entity>:<sha256 of sql and args>.
func Key(entity, sql string, args []any) string {
	h := sha256.New()
	h.Write([]byte(sql))
	h.Write([]byte{0})
	if b, err := json.Marshal(args); err == nil {
		h.Write(b)
	} else {
		fmt.Fprintf(h, "%#v", args)
	}
	return "count:" + entity + ":" + hex.EncodeToString(h.Sum(nil))
}

// Total returns the cached total or calls load and stores its result.
// Redis failures are logged and bypassed.
func (c *CountCache) Total(ctx context.Context, entity, sql string, args []any, load func(context.Context) (int, error)) (int, error) {
	if !c.enabled() {
		return load(ctx)
	}
	key := Key(entity, sql, args)

	cached, err := c.kv.Get(ctx, key).Result()
	switch {
	case err == nil:
		if n, convErr := strconv.Atoi(cached); convErr == nil {
			c.metrics.RecordCountCache("hit")
			return n, nil
		}
		logger.Warn("count_cache_corrupt", map[string]any{"key": key, "value": cached})
		c.metrics.RecordCountCache("error")
	case errors.Is(err, redis.Nil):
		c.metrics.RecordCountCache("miss")
	default:
		logger.Warn("count_cache_get_failed", map[string]any{"key": key, "error": err})
		c.metrics.RecordCountCache("error")
	}

	n, err := load(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.kv.Set(ctx, key, strconv.Itoa(n), c.ttl).Err(); err != nil {
		logger.Warn("count_cache_set_failed", map[string]any{"key": key, "error": err})
	}
	return n, nil
}
