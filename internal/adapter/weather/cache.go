package weather

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// CachedProvider wraps a WeatherProvider with an in-memory LRU cache whose
// entries expire after a fixed TTL.
type CachedProvider struct {
	inner   domain.WeatherProvider
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
	cache   *lruCache
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner domain.WeatherProvider, ttl time.Duration, maxEntries int, clock clockwork.Clock, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
		cache:   newLRUCache(maxEntries),
	}
}

func (c *CachedProvider) Current(ctx context.Context, region string) (domain.WeatherObservation, error) {
	key := strings.ToLower(strings.TrimSpace(region))
	now := c.clock.Now()
	if obs, ok := c.cache.get(key, now); ok {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return obs, nil
	}
	c.metrics.WeatherCache.WithLabelValues("miss").Inc()

	obs, err := c.inner.Current(ctx, region)
	if err != nil {
		return obs, err
	}
	// Errors are not cached so a failing provider is retried on the next call.
	c.cache.put(key, obs, now.Add(c.ttl))
	return obs, nil
}

// lruCache is a thread-safe LRU cache of observations with per-entry expiry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     string
	value   domain.WeatherObservation
	expires time.Time
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string, now time.Time) (domain.WeatherObservation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.WeatherObservation{}, false
	}
	if !now.Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return domain.WeatherObservation{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.WeatherObservation, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
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
