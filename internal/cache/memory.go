package cache

import (
	"context"
	"sync"
	"time"

	"gsrd/internal/errors"
)

// defaultTTL applies when Set is called with a non-positive TTL.
const defaultTTL = 24 * time.Hour

// MemoryCache is an in-memory cache with TTL support and LRU eviction.
type MemoryCache struct {
	items    map[string]*memoryItem
	mu       sync.RWMutex
	maxSize  int
	stopChan chan struct{}
	stopped  bool
}

type memoryItem struct {
	value      []byte
	expiration time.Time
	accessed   time.Time
}

// NewMemoryCache creates a memory cache holding at most maxSize items.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 10000
	}

	mc := &MemoryCache{
		items:    make(map[string]*memoryItem),
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
	}
	go mc.cleanupLoop()
	return mc
}

// Get retrieves a value from the cache.
func (mc *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, exists := mc.items[key]
	if !exists {
		return nil, errors.NewAppError(errors.ErrCodeCacheMiss, "key not found", nil).
			WithContext("key", key)
	}
	if time.Now().After(item.expiration) {
		delete(mc.items, key)
		return nil, errors.NewAppError(errors.ErrCodeCacheMiss, "key expired", nil).
			WithContext("key", key)
	}

	item.accessed = time.Now()
	return item.value, nil
}

// Set stores a value, evicting the least recently used item when full.
func (mc *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.items[key]; !exists && len(mc.items) >= mc.maxSize {
		mc.evictLRU()
	}

	if ttl <= 0 {
		ttl = defaultTTL
	}
	mc.items[key] = &memoryItem{
		value:      value,
		expiration: time.Now().Add(ttl),
		accessed:   time.Now(),
	}
	return nil
}

// Delete removes a key.
func (mc *MemoryCache) Delete(ctx context.Context, key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.items, key)
	return nil
}

// Exists reports whether a key is present and unexpired.
func (mc *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	item, exists := mc.items[key]
	if !exists {
		return false, nil
	}
	return time.Now().Before(item.expiration), nil
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if !mc.stopped {
		close(mc.stopChan)
		mc.stopped = true
	}
	return nil
}

// evictLRU removes the least recently accessed item. Caller holds the lock.
func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time
	first := true

	for key, item := range mc.items {
		if first || item.accessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.accessed
			first = false
		}
	}
	if oldestKey != "" {
		delete(mc.items, oldestKey)
	}
}

func (mc *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.cleanup()
		case <-mc.stopChan:
			return
		}
	}
}

func (mc *MemoryCache) cleanup() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	for key, item := range mc.items {
		if now.After(item.expiration) {
			delete(mc.items, key)
		}
	}
}
