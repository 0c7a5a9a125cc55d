package pager

import (
	"context"
	"sync"
	"time"

	"ResteasyAPI/internal/logger"
)

const (
	DefaultTTL       = 30 * time.Second
	memorySweepEvery = time.Minute
)

type memoryEntry struct {
	count     int64
	tables    []string
	createdAt time.Time
}

// MemoryCache is an in-process CountCache with a TTL, a periodic sweep and a
// cap on the number of entries.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*memoryEntry
	versions   map[string]int64
	ttl        time.Duration
	maxEntries int
	lastSweep  time.Time
	now        func() time.Time
}

func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		items:      make(map[string]*memoryEntry),
		versions:   make(map[string]int64),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *MemoryCache) Count(_ context.Context, tables []string, sqlStr string, args []any, load func() (int64, error)) (int64, error) {
	c.mu.Lock()
	key, err := countCacheKey(tables, c.versionsLocked(tables), sqlStr, args)
	if err != nil {
		c.mu.Unlock()
		logger.Warn("count_cache_key_failed", map[string]any{"error": err.Error()})
		return load()
	}
	now := c.now()
	c.maybeSweepLocked(now)
	if e, ok := c.items[key]; ok && now.Sub(e.createdAt) <= c.ttl {
		c.mu.Unlock()
		return e.count, nil
	}
	c.mu.Unlock()

	n, err := load()
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.sweepLocked(now)
		if len(c.items) >= c.maxEntries {
			logger.Warn("count_cache_full", map[string]any{"max_entries": c.maxEntries})
			return n, nil
		}
	}
	c.items[key] = &memoryEntry{count: n, tables: append([]string(nil), tables...), createdAt: now}
	return n, nil
}

// Invalidate drops every entry that read one of tables.
func (c *MemoryCache) Invalidate(_ context.Context, tables ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	touched := make(map[string]bool, len(tables))
	for _, t := range tables {
		c.versions[t]++
		touched[t] = true
	}
	for key, e := range c.items {
		for _, t := range e.tables {
			if touched[t] {
				delete(c.items, key)
				break
			}
		}
	}
}

// Len reports the number of cached counts.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) versionsLocked(tables []string) map[string]int64 {
	out := make(map[string]int64, len(tables))
	for _, t := range tables {
		out[t] = c.versions[t]
	}
	return out
}

func (c *MemoryCache) maybeSweepLocked(now time.Time) {
	if !c.lastSweep.IsZero() && now.Sub(c.lastSweep) < memorySweepEvery {
		return
	}
	c.sweepLocked(now)
}

func (c *MemoryCache) sweepLocked(now time.Time) {
	for key, e := range c.items {
		if now.Sub(e.createdAt) > c.ttl {
			delete(c.items, key)
		}
	}
	c.lastSweep = now
}
