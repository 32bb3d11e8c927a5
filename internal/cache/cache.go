package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"storefront/internal/domain/products"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "storefront"

// Backend is the key/value store behind the cache. Get reports a miss as
// ("", false, nil).
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Close() error
}

// ProductCache is a cache-aside layer over product reads. A nil backend
// turns it into a pass-through. Backend failures never fail a read.
//
// A load that read a row before a stock change committed must not refill
// the entry the change just invalidated. Fills are dropped when an
// Invalidate ran while they loaded. Invalidations from other processes are
// not seen here, so there a stale entry lives at most one TTL.
type ProductCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	logger  *zap.SugaredLogger

	invalidations atomic.Uint64
}

func NewProductCache(b Backend, ttl time.Duration, logger *zap.SugaredLogger) *ProductCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ProductCache{backend: b, ttl: ttl, logger: logger}
}

func GenerateKey(operation string, id int64) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, operation, strconv.FormatInt(id, 10))
}

// Get returns the product from the cache, or calls load on a miss and
// stores what it returns. A nil product from load is passed through and not
// cached.
func (c *ProductCache) Get(ctx context.Context, id int64, load func(ctx context.Context) (*products.Product, error)) (*products.Product, error) {
	if c.backend == nil {
		return load(ctx)
	}

	key := GenerateKey("product", id)
	if p, ok := c.lookup(ctx, key); ok {
		return p, nil
	}

	// singleflight collapses concurrent cache misses into one store fetch.
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if p, ok := c.lookup(ctx, key); ok {
			return p, nil
		}
		gen := c.invalidations.Load()
		p, err := load(ctx)
		if err != nil || p == nil {
			return p, err
		}
		if c.invalidations.Load() == gen {
			c.store(ctx, key, p)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	p, _ := v.(*products.Product)
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (c *ProductCache) lookup(ctx context.Context, key string) (*products.Product, bool) {
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warnw("product cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var p products.Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		c.logger.Warnw("product cache entry is corrupt", "key", key, "error", err)
		return nil, false
	}
	return &p, true
}

func (c *ProductCache) store(ctx context.Context, key string, p *products.Product) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.backend.Set(ctx, key, string(data), c.ttl); err != nil {
		c.logger.Warnw("product cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops the cached copies of ids.
func (c *ProductCache) Invalidate(ctx context.Context, ids ...int64) error {
	if c.backend == nil || len(ids) == 0 {
		return nil
	}
	c.invalidations.Add(1)
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, GenerateKey("product", id))
	}
	if err := c.backend.Del(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate products: %w", err)
	}
	return nil
}

func (c *ProductCache) Close() error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Close()
}
