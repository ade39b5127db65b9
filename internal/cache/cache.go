package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Clear drops every entry
	Clear()

	// Size returns the current number of items in the cache
	Size() int
}

// Backend names a Cache implementation.
type Backend string

const (
	BackendLRU       Backend = "lru"
	BackendRistretto Backend = "ristretto"
)

// New builds the cache selected by backend.
func New[T any](backend Backend, maxSize int, ttl time.Duration) (Cache[T], error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxSize)
	}
	switch backend {
	case BackendLRU, "":
		return NewLRUCache[T](maxSize, ttl), nil
	case BackendRistretto:
		return NewRistrettoCache[T](maxSize, ttl)
	}
	return nil, fmt.Errorf("unknown cache backend %q", backend)
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	logger      *slog.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// NewManager creates a new cache manager
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:      logger,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup. Caches that do not
// implement Cleaner are ignored.
func (m *Manager) Register(c any) {
	if cl, ok := c.(Cleaner); ok {
		m.caches = append(m.caches, cl)
	}
}

// StartCleanup begins periodic cleanup of all registered caches.
// A non-positive interval means entries never expire, so nothing is started.
func (m *Manager) StartCleanup(interval time.Duration) {
	if interval <= 0 || m.started {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

// CleanNow runs one cleanup pass and returns the number of evicted entries.
func (m *Manager) CleanNow() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				m.logger.LogAttrs(context.Background(), slog.LevelDebug, "Expired cache entries removed", slog.Int("count", n))
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine, if one was started.
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	m.started = false
	close(m.stopCleanup)
	<-m.cleanupDone
}
