package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/resilience"
)

const keyPrefix = "dataset:"

// byteStore is the subset of the Redis client the cache uses.
type byteStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Cache keeps dataset summaries in Redis. Redis errors never fail a read:
// the cache reports a miss, and after repeated failures the circuit breaker
// skips Redis entirely until it recovers.
type Cache struct {
	client  byteStore
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCache creates a cache backed by client. m may be nil.
func NewCache(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *Cache {
	return newCache(client, cfg.CacheTTL, m)
}

func newCache(client byteStore, ttl time.Duration, m *metrics.Metrics) *Cache {
	cbCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
	if m != nil {
		cbCfg.OnStateChange = func(name string, s resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(s))
		}
	}
	return &Cache{
		client:  client,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("dataset-cache", cbCfg),
		metrics: m,
		logger:  slog.Default().With("component", "dataset-cache"),
	}
}

// Get returns the cached record for id.
func (c *Cache) Get(ctx context.Context, id string) (*ingestion.DatasetRecord, bool) {
	key := keyPrefix + id
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			data = nil
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
	}
	if err != nil || data == nil {
		c.miss()
		return nil, false
	}
	var rec ingestion.DatasetRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "key", key)
	return &rec, true
}

// Set stores rec for the configured TTL.
func (c *Cache) Set(ctx context.Context, rec *ingestion.DatasetRecord) {
	key := keyPrefix + rec.ID
	data, err := json.Marshal(rec)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.breaker.Execute(func() error { return c.client.Set(ctx, key, data, c.ttl) }); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate drops the cached record for id.
func (c *Cache) Invalidate(ctx context.Context, id string) {
	key := keyPrefix + id
	if err := c.breaker.Execute(func() error { return c.client.Del(ctx, key) }); err != nil {
		c.logger.Warn("cache invalidate failed", "key", key, "error", err)
	}
}

// GetOrLoad returns the cached record for id, or loads it once for all
// concurrent callers and caches the result. The bool reports a cache hit.
func (c *Cache) GetOrLoad(
	ctx context.Context,
	id string,
	load func(ctx context.Context, id string) (*ingestion.DatasetRecord, error),
) (*ingestion.DatasetRecord, bool, error) {
	if rec, ok := c.Get(ctx, id); ok {
		return rec, true, nil
	}
	val, err, _ := c.group.Do(keyPrefix+id, func() (any, error) {
		rec, err := load(ctx, id)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, rec)
		return rec, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*ingestion.DatasetRecord), false, nil
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Cached is a Reader whose single-dataset reads go through a Cache.
type Cached struct {
	Next  Reader
	Cache *Cache
}

// Get serves id from the cache, falling back to Next.
func (c Cached) Get(ctx context.Context, id string) (*ingestion.DatasetRecord, error) {
	rec, _, err := c.Cache.GetOrLoad(ctx, id, c.Next.Get)
	return rec, err
}

// List always reads from Next.
func (c Cached) List(ctx context.Context, limit, offset int) ([]*ingestion.DatasetRecord, error) {
	return c.Next.List(ctx, limit, offset)
}
