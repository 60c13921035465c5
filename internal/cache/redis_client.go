// Package cache implements the optional query-result cache (C14): a
// thin layer in front of the query engine that never changes a query's
// answer, only whether it is recomputed (§4.9A, §5).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ownermine/ownermine/internal/ownererr"
)

// Client wraps a Redis connection with the get-or-compute helper the
// query CLI layer calls around every operation.
type Client struct {
	rdb    *redis.Client
	logger *logrus.Logger
	ttl    time.Duration
}

// NewClient dials addr and verifies connectivity before returning, so a
// misconfigured --cache-addr fails fast at startup rather than on first
// query.
func NewClient(ctx context.Context, addr, password string, ttl time.Duration, logger *logrus.Logger) (*Client, error) {
	if addr == "" {
		return nil, ownererr.New(ownererr.Config, "cache address missing")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, ownererr.Wrapf(err, ownererr.Config, "connecting to cache at %s", addr)
	}

	logger.WithField("addr", addr).Info("query cache connected")
	return &Client{rdb: rdb, logger: logger, ttl: ttl}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key builds the cache key §4.9A specifies: a hash of (operation,
// normalized args, snapshot generated_at), so a new snapshot generation
// never serves a stale answer even under an unchanged key prefix.
func Key(operation string, normalizedArgs map[string]interface{}, generatedAt time.Time) string {
	payload, _ := json.Marshal(normalizedArgs)
	sum := sha256.Sum256(append([]byte(operation+"|"+generatedAt.Format(time.RFC3339Nano)+"|"), payload...))
	return fmt.Sprintf("ownermine:query:%s:%s", operation, hex.EncodeToString(sum[:])[:32])
}

// Get unmarshals the cached JSON value for key into target. Returns
// (false, nil) on a cache miss — a miss is not an error.
func (c *Client) Get(ctx context.Context, key string, target interface{}) (bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, ownererr.Wrapf(err, ownererr.Config, "cache get %s", key)
	}
	if err := json.Unmarshal([]byte(val), target); err != nil {
		return false, ownererr.Wrapf(err, ownererr.Config, "unmarshal cached value for %s", key)
	}
	return true, nil
}

// Set stores value as JSON under key with the client's default TTL.
func (c *Client) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "marshal value for %s", key)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return ownererr.Wrapf(err, ownererr.Config, "cache set %s", key)
	}
	return nil
}

// GetOrCompute serves key from cache when present, otherwise calls
// compute, caches its result, and returns it — the single entry point
// the CLI layer wraps around each query operation.
func GetOrCompute[T any](ctx context.Context, c *Client, key string, compute func() (T, error)) (T, error) {
	var cached T
	if c != nil {
		if hit, err := c.Get(ctx, key, &cached); err == nil && hit {
			c.logger.WithField("key", key).Debug("query cache hit")
			return cached, nil
		}
	}

	result, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	if c != nil {
		if err := c.Set(ctx, key, result); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("query cache write failed")
		}
	}
	return result, nil
}
