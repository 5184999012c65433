package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a MemoryCache created without options. Every
// distinct search filter is its own key, so the key space is open ended.
const DefaultMaxEntries = 10000

// MemoryOptions configures a MemoryCache.
type MemoryOptions struct {
	// MaxEntries caps live keys. When full, the entry closest to expiry
	// is evicted to make room. Zero means DefaultMaxEntries.
	MaxEntries int
	// CleanupInterval is how often expired entries are swept. Default: 1 minute
	CleanupInterval time.Duration
	// PinnedPrefixes lists key prefixes that are never evicted to make room.
	// They still expire. A cache holding only pinned keys grows past MaxEntries.
	PinnedPrefixes []string
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-memory implementation of Cache for single-instance
// deployments and tests.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	pinned     []string
	now        func() time.Time

	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// NewMemoryCache creates a new in-memory cache with default options.
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithOptions(MemoryOptions{})
}

// NewMemoryCacheWithOptions creates a new in-memory cache and starts its
// expiry sweep. Call Close to stop it.
func NewMemoryCacheWithOptions(opts MemoryOptions) *MemoryCache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}

	c := &MemoryCache{
		entries:     make(map[string]memoryEntry),
		maxEntries:  opts.MaxEntries,
		pinned:      opts.PinnedPrefixes,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go c.sweepLoop(opts.CleanupInterval)
	return c
}

func (c *MemoryCache) live(key string) (memoryEntry, bool) {
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return memoryEntry{}, false
	}
	return e, true
}

// Get retrieves a copy of the value stored under key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.live(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value. A non-positive ttl stores nothing and drops
// any previous value.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		delete(c.entries, key)
		return nil
	}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.makeRoom()
	}
	c.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// makeRoom drops expired entries, or the unpinned one closest to expiry if
// none have expired. Callers hold the write lock.
func (c *MemoryCache) makeRoom() {
	if c.removeExpiredLocked() > 0 {
		return
	}
	var (
		victim  string
		found   bool
		soonest time.Time
	)
	for key, e := range c.entries {
		if c.isPinned(key) {
			continue
		}
		if !found || e.expiresAt.Before(soonest) {
			victim, soonest, found = key, e.expiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

func (c *MemoryCache) isPinned(key string) bool {
	for _, prefix := range c.pinned {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// Delete removes a value by key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Exists checks if a key exists and is not expired.
func (c *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.live(key)
	return ok, nil
}

// GetOrSet returns the cached value or stores the result of fn. Concurrent
// misses may each call fn; the last write wins.
func (c *MemoryCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
	if value, err := c.Get(ctx, key); err == nil {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		return nil, err
	}
	return value, nil
}

// DeletePrefix removes every key starting with prefix.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for key := range c.entries {
		if _, ok := c.live(key); ok {
			n++
		}
	}
	return n
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Close stops the expiry sweep. It is safe to call more than once.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopCleanup) })
	return nil
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.removeExpiredLocked()
			c.mu.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *MemoryCache) removeExpiredLocked() int {
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

var _ Cache = (*MemoryCache)(nil)
