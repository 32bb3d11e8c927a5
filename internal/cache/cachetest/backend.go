// Package cachetest provides an in-memory cache.Backend for tests.
package cachetest

import (
	"context"
	"sync"
	"time"

	"storefront/internal/cache"
)

// Backend is a map-backed cache.Backend. TTLs are ignored.
type Backend struct {
	mu   sync.Mutex
	data map[string]string
}

var _ cache.Backend = (*Backend)(nil)

func NewBackend() *Backend {
	return &Backend{data: make(map[string]string)}
}

func (b *Backend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *Backend) Set(_ context.Context, key, value string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *Backend) Del(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.data, k)
	}
	return nil
}

func (b *Backend) Close() error { return nil }

// Has reports whether key is currently cached.
func (b *Backend) Has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[key]
	return ok
}
