package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/domain/products"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memBackend struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string]string)}
}

func (m *memBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memBackend) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memBackend) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memBackend) Close() error { return nil }

func loader(calls *atomic.Int32, p *products.Product) func(context.Context) (*products.Product, error) {
	return func(context.Context) (*products.Product, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		if p == nil {
			return nil, nil
		}
		cp := *p
		return &cp, nil
	}
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "storefront:product:42", GenerateKey("product", 42))
}

func TestProductCache_HitAfterMiss(t *testing.T) {
	c := NewProductCache(newMemBackend(), time.Minute, zap.NewNop().Sugar())
	var calls atomic.Int32
	load := loader(&calls, &products.Product{ID: 1, Name: "Ball", Stock: 3})

	first, err := c.Get(context.Background(), 1, load)
	require.NoError(t, err)
	second, err := c.Get(context.Background(), 1, load)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, 3, second.Stock)
}

func TestProductCache_CollapsesConcurrentMisses(t *testing.T) {
	c := NewProductCache(newMemBackend(), time.Minute, zap.NewNop().Sugar())
	var calls atomic.Int32
	load := loader(&calls, &products.Product{ID: 2, Name: "Net"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.Get(context.Background(), 2, load)
			assert.NoError(t, err)
			assert.Equal(t, "Net", p.Name)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestProductCache_InvalidateForcesReload(t *testing.T) {
	c := NewProductCache(newMemBackend(), time.Minute, zap.NewNop().Sugar())
	var calls atomic.Int32
	load := loader(&calls, &products.Product{ID: 3})

	_, err := c.Get(context.Background(), 3, load)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(context.Background(), 3))
	_, err = c.Get(context.Background(), 3, load)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestProductCache_InvalidateDuringLoadSkipsFill(t *testing.T) {
	b := newMemBackend()
	c := NewProductCache(b, time.Minute, zap.NewNop().Sugar())
	var calls atomic.Int32

	// The row is read, then a reservation commits and invalidates before
	// the loaded copy would be written back.
	stale := func(ctx context.Context) (*products.Product, error) {
		calls.Add(1)
		p := &products.Product{ID: 7, Stock: 5}
		require.NoError(t, c.Invalidate(ctx, 7))
		return p, nil
	}

	p, err := c.Get(context.Background(), 7, stale)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
	assert.Empty(t, b.data)

	fresh, err := c.Get(context.Background(), 7, loader(&calls, &products.Product{ID: 7, Stock: 3}))
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Stock)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, b.data, 1)
}

func TestProductCache_MissingProductIsNotCached(t *testing.T) {
	b := newMemBackend()
	c := NewProductCache(b, time.Minute, zap.NewNop().Sugar())
	var calls atomic.Int32

	p, err := c.Get(context.Background(), 4, loader(&calls, nil))
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Empty(t, b.data)
}

func TestProductCache_BackendErrorFallsThrough(t *testing.T) {
	b := newMemBackend()
	b.getErr = errors.New("connection refused")
	c := NewProductCache(b, time.Minute, zap.NewNop().Sugar())
	var calls atomic.Int32

	p, err := c.Get(context.Background(), 5, loader(&calls, &products.Product{ID: 5}))
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.ID)
}

func TestProductCache_PassThroughWithoutBackend(t *testing.T) {
	c := NewProductCache(nil, 0, zap.NewNop().Sugar())
	var calls atomic.Int32
	load := loader(&calls, &products.Product{ID: 6})

	_, _ = c.Get(context.Background(), 6, load)
	_, _ = c.Get(context.Background(), 6, load)

	assert.Equal(t, int32(2), calls.Load())
	assert.NoError(t, c.Invalidate(context.Background(), 6))
	assert.NoError(t, c.Close())
}
