// Package pagecache memoizes computed search result pages in a key-value
// store with a TTL. Store failures degrade to a miss, never to a failed
// request.
package pagecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/feedrank/feedrank/internal/db"
	"github.com/feedrank/feedrank/internal/domain"
)

// DefaultTTL is how long a cached page stays valid unless sync clears it
// first.
const DefaultTTL = 3600 * time.Second

// store is the consumer interface for the page cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Cache caches serialized result pages under a shared key prefix.
type Cache struct {
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a page cache. cacheTotal is a counter vec with label "result"
// ("hit"/"miss"), passed explicitly; may be nil.
func New(
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:      s,
		prefix:     prefix,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get returns the cached page for key if present and unexpired; otherwise it
// invokes produce synchronously, stores the result with the configured TTL,
// and returns it. Concurrent misses on the same key may each invoke produce;
// the producer is a bounded idempotent read, so the duplicate work is
// harmless.
func (c *Cache) Get(
	ctx context.Context,
	key string,
	produce func(ctx context.Context) (domain.Page, error),
) (domain.Page, error) {
	fullKey := c.prefix + key

	if page, ok := c.getFromStore(ctx, fullKey); ok {
		c.incCache("hit")
		return page, nil
	}

	c.incCache("miss")

	page, err := produce(ctx)
	if err != nil {
		return domain.Page{}, fmt.Errorf("produce page: %w", err)
	}

	c.putToStore(ctx, fullKey, page)
	return page, nil
}

// Delete drops a single cached page.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.store.Del(ctx, c.prefix+key); err != nil {
		return fmt.Errorf("delete cached page: %w", err)
	}
	return nil
}

// Clear drops every cached page. Called after each sync so stale pages never
// survive a re-ingestion.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.store.Scan(ctx, c.prefix+"*")
	if err != nil {
		return fmt.Errorf("scan cached pages: %w", err)
	}
	for _, k := range keys {
		if err := c.store.Del(ctx, k); err != nil {
			return fmt.Errorf("delete cached page %s: %w", k, err)
		}
	}
	return nil
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *Cache) getFromStore(ctx context.Context, key string) (domain.Page, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cached page", zap.String("key", key), zap.Error(err))
		}
		return domain.Page{}, false
	}
	if len(data) == 0 {
		return domain.Page{}, false
	}

	var page domain.Page
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.Warn("Failed to parse cached page", zap.String("key", key), zap.Error(err))
		return domain.Page{}, false
	}
	return page, true
}

func (c *Cache) putToStore(ctx context.Context, key string, page domain.Page) {
	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Warn("Failed to serialize page", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache page", zap.String("key", key), zap.Error(err))
	}
}
