package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
)

// MemoryCache is an in-process ResultCache. Expired entries are removed
// lazily on Get and in bulk by a cron job.
type MemoryCache struct {
	items  map[string]*cacheItem
	mutex  sync.RWMutex
	ttl    time.Duration
	logger *logrus.Logger
	cron   *cron.Cron

	hits   atomic.Uint64
	misses atomic.Uint64
	sets   atomic.Uint64
}

type cacheItem struct {
	result    charts.ChartResult
	expiresAt time.Time
}

// NewMemoryCache creates a memory cache. A ttl of zero keeps entries until
// they are deleted. When pruneSchedule is non-empty ("@every 1m", a cron
// expression) expired entries are swept on that schedule until Close.
func NewMemoryCache(ttl time.Duration, pruneSchedule string, logger *logrus.Logger) (*MemoryCache, error) {
	c := &MemoryCache{
		items:  make(map[string]*cacheItem),
		ttl:    ttl,
		logger: logger,
	}

	if pruneSchedule != "" && ttl > 0 {
		c.cron = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
		if _, err := c.cron.AddFunc(pruneSchedule, func() { c.Prune() }); err != nil {
			return nil, fmt.Errorf("invalid prune schedule %q: %w", pruneSchedule, err)
		}
		c.cron.Start()
	}

	return c, nil
}

// Name identifies the cache in stats and logs
func (c *MemoryCache) Name() string {
	return "memory"
}

// Get retrieves a result from the cache
func (c *MemoryCache) Get(_ context.Context, key string) (charts.ChartResult, bool, error) {
	c.mutex.RLock()
	item, exists := c.items[key]
	c.mutex.RUnlock()

	if !exists {
		c.misses.Add(1)
		return charts.ChartResult{}, false, nil
	}

	if c.expired(item, time.Now()) {
		c.mutex.Lock()
		if current, ok := c.items[key]; ok && current == item {
			delete(c.items, key)
		}
		c.mutex.Unlock()
		c.misses.Add(1)
		return charts.ChartResult{}, false, nil
	}

	c.hits.Add(1)
	return item.result, true, nil
}

// Set stores a result with the cache TTL
func (c *MemoryCache) Set(_ context.Context, key string, result charts.ChartResult) error {
	item := &cacheItem{result: result}
	if c.ttl > 0 {
		item.expiresAt = time.Now().Add(c.ttl)
	}

	c.mutex.Lock()
	c.items[key] = item
	c.mutex.Unlock()

	c.sets.Add(1)
	return nil
}

// DeleteChart removes every entry for a chart
func (c *MemoryCache) DeleteChart(_ context.Context, chartID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key := range c.items {
		if chartIDFromKey(key) == chartID {
			delete(c.items, key)
		}
	}
	return nil
}

// Clear removes all entries
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*cacheItem)
	return nil
}

// Prune removes expired entries and returns how many were dropped
func (c *MemoryCache) Prune() int {
	now := time.Now()

	c.mutex.Lock()
	removed := 0
	for key, item := range c.items {
		if c.expired(item, now) {
			delete(c.items, key)
			removed++
		}
	}
	c.mutex.Unlock()

	if removed > 0 && c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"cache":   c.Name(),
			"removed": removed,
		}).Debug("Pruned expired chart results")
	}
	return removed
}

// Stats returns hit/miss counters and the current size
func (c *MemoryCache) Stats() Stats {
	c.mutex.RLock()
	size := len(c.items)
	c.mutex.RUnlock()

	return Stats{
		Name:   c.Name(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
		Size:   size,
	}
}

// Close stops the prune job
func (c *MemoryCache) Close() error {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
	return nil
}

func (c *MemoryCache) expired(item *cacheItem, now time.Time) bool {
	return !item.expiresAt.IsZero() && now.After(item.expiresAt)
}
