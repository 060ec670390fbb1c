// Package cache memoizes successful answers keyed by normalized query text
// and canonical filters.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"procurement-assistant/internal/models"
)

// Cache is safe for concurrent use. Concurrent misses on one key may both
// Set; the last writer wins.
type Cache interface {
	Get(ctx context.Context, query string, filters models.Filters) (models.QueryResult, bool)
	Set(ctx context.Context, query string, filters models.Filters, result models.QueryResult)
	Cleanup(ctx context.Context) int
}

// Key is the lower-cased trimmed query, "_", then the filters as JSON with
// sorted keys. Nil and empty filters produce the same key.
func Key(query string, filters models.Filters) string {
	if filters == nil {
		filters = models.Filters{}
	}
	encoded, err := json.Marshal(filters)
	if err != nil {
		encoded = []byte("{}")
	}
	return strings.ToLower(strings.TrimSpace(query)) + "_" + string(encoded)
}

type entry struct {
	key      string
	result   models.QueryResult
	storedAt time.Time
}

// MemoryCache evicts by insertion order once MaxEntries is reached.
type MemoryCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List
	now        func() time.Time
}

func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	return &MemoryCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, query string, filters models.Filters) (models.QueryResult, bool) {
	key := Key(query, filters)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return models.QueryResult{}, false
	}
	e := el.Value.(*entry)
	if c.expired(e) {
		c.remove(el)
		return models.QueryResult{}, false
	}
	return e.result, true
}

// Set stores result. Re-setting a key restarts its TTL and makes it the
// newest entry.
func (c *MemoryCache) Set(_ context.Context, query string, filters models.Filters, result models.QueryResult) {
	key := Key(query, filters)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.result = result
		e.storedAt = c.now()
		c.order.MoveToBack(el)
		return
	}

	for c.order.Len() >= c.maxEntries && c.order.Len() > 0 {
		c.remove(c.order.Front())
	}
	c.entries[key] = c.order.PushBack(&entry{key: key, result: result, storedAt: c.now()})
}

// Cleanup sweeps expired entries and returns how many were removed.
func (c *MemoryCache) Cleanup(context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if c.expired(el.Value.(*entry)) {
			c.remove(el)
			removed++
		}
		el = next
	}
	return removed
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *MemoryCache) expired(e *entry) bool {
	return c.now().Sub(e.storedAt) > c.ttl
}

func (c *MemoryCache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
}
