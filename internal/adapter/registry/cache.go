package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/grid-allocation-service/internal/domain"
	"github.com/couchcryptid/grid-allocation-service/internal/observability"
)

// CachedCatalog wraps a SiteCatalog with an in-memory LRU cache keyed by
// technology and region. Site catalogs change rarely relative to request
// volume, so a small cache removes nearly all registry round-trips.
type CachedCatalog struct {
	inner   domain.SiteCatalog
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedCatalog creates a cache decorator around a site catalog.
func NewCachedCatalog(inner domain.SiteCatalog, maxEntries int, metrics *observability.Metrics) *CachedCatalog {
	return &CachedCatalog{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedCatalog) Sites(ctx context.Context, technology, region string) ([]domain.ResourceSite, error) {
	key := fmt.Sprintf("%s|%s", technology, region)
	if sites, ok := c.cache.get(key); ok {
		c.metrics.RegistryCache.WithLabelValues("hit").Inc()
		return sites, nil
	}
	c.metrics.RegistryCache.WithLabelValues("miss").Inc()

	sites, err := c.inner.Sites(ctx, technology, region)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty catalogs so transient gaps can be retried.
	if len(sites) > 0 {
		c.cache.put(key, sites)
	}
	return sites, nil
}

// lruCache is a simple thread-safe LRU cache for site lists.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.ResourceSite
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.ResourceSite, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.ResourceSite) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
