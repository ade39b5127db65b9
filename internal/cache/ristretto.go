package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoCache adapts a ristretto cache to Cache. Every entry costs 1, so
// maxSize bounds the entry count. Known keys are tracked so Size and
// CleanExpired can report on them.
type RistrettoCache[T any] struct {
	c    *ristretto.Cache
	ttl  time.Duration
	mu   sync.RWMutex
	keys map[string]struct{}
}

func NewRistrettoCache[T any](maxSize int, ttl time.Duration) (*RistrettoCache[T], error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(maxSize) * 10,
		MaxCost:     int64(maxSize),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &RistrettoCache[T]{c: c, ttl: ttl, keys: make(map[string]struct{})}, nil
}

func (r *RistrettoCache[T]) Get(key string) (T, bool) {
	var zero T
	v, ok := r.c.Get(key)
	if !ok {
		return zero, false
	}
	data, ok := v.(T)
	if !ok {
		return zero, false
	}
	return data, true
}

// Set stores the value and waits for ristretto's write buffer so a following
// Get observes it. Admission is still up to ristretto's policy.
func (r *RistrettoCache[T]) Set(key string, data T) {
	r.mu.Lock()
	r.keys[key] = struct{}{}
	r.mu.Unlock()
	if r.ttl > 0 {
		r.c.SetWithTTL(key, data, 1, r.ttl)
	} else {
		r.c.Set(key, data, 1)
	}
	r.c.Wait()
}

func (r *RistrettoCache[T]) Delete(key string) {
	r.mu.Lock()
	delete(r.keys, key)
	r.mu.Unlock()
	r.c.Del(key)
}

func (r *RistrettoCache[T]) Clear() {
	r.mu.Lock()
	r.keys = make(map[string]struct{})
	r.mu.Unlock()
	r.c.Clear()
}

// CleanExpired forgets tracked keys ristretto has already dropped.
func (r *RistrettoCache[T]) CleanExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for k := range r.keys {
		if _, ok := r.c.Get(k); !ok {
			delete(r.keys, k)
			removed++
		}
	}
	return removed
}

func (r *RistrettoCache[T]) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

func (r *RistrettoCache[T]) Close() {
	r.c.Close()
}
