// Package cache memoises ranked result lists in Redis, keyed by search mode,
// normalized query and limit. Concurrent misses for the same key are
// collapsed so the engine scores each query once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/redis"
)

const keyPrefix = "search:"

// Backend is the subset of the Redis client the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache. A nil backend disables caching: every lookup
// misses and results are computed directly.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached results for mode, query and limit.
func (c *QueryCache) Get(ctx context.Context, mode, q string, limit int) ([]ranker.Result, bool) {
	if c.backend == nil {
		return nil, false
	}
	key := buildKey(mode, q, limit)
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var results []ranker.Result
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "mode", mode, "query", q, "key", key)
	return results, true
}

// Set stores results. Failures are logged and otherwise ignored.
func (c *QueryCache) Set(ctx context.Context, mode, q string, limit int, results []ranker.Result) {
	if c.backend == nil {
		return
	}
	key := buildKey(mode, q, limit)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns cached results when present; otherwise it runs
// compute once per key across concurrent callers and caches the outcome.
// The boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(ctx context.Context, mode, q string, limit int, compute func() []ranker.Result) ([]ranker.Result, bool) {
	if results, ok := c.Get(ctx, mode, q, limit); ok {
		return results, true
	}
	if c.backend == nil {
		return compute(), false
	}
	key := buildKey(mode, q, limit)
	val, _, _ := c.group.Do(key, func() (interface{}, error) {
		if results, ok := c.Get(ctx, mode, q, limit); ok {
			return results, nil
		}
		results := compute()
		c.Set(ctx, mode, q, limit, results)
		return results, nil
	})
	return val.([]ranker.Result), false
}

// Invalidate removes every cached result list.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	if c.backend == nil {
		return 0, nil
	}
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Enabled reports whether a backend is configured.
func (c *QueryCache) Enabled() bool { return c.backend != nil }

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(mode, q string, limit int) string {
	raw := fmt.Sprintf("%s|%s|limit=%d", mode, query.Normalize(q), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
