package googlemaps

import (
	"context"
	"sync"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. The reporter
// creates one per build so several events at the same place share lookups
// while nothing survives between runs.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, text string) (domain.GeocodingResult, error) {
	key := "fwd:" + text
	if result, ok := c.cache.get(key); ok {
		c.count(methodForward, "hit")
		return result, nil
	}
	c.count(methodForward, "miss")

	result, err := c.inner.ForwardGeocode(ctx, text)
	if err != nil {
		// Failures are not cached so a retry with cleaned text, or the next
		// event, can try again.
		return result, err
	}
	c.cache.put(key, result)
	return result, nil
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, coord domain.Coordinate) (domain.GeocodingResult, error) {
	key := "rev:" + coord.String()
	if result, ok := c.cache.get(key); ok {
		c.count(methodReverse, "hit")
		return result, nil
	}
	c.count(methodReverse, "miss")

	result, err := c.inner.ReverseGeocode(ctx, coord)
	if err != nil {
		return result, err
	}
	c.cache.put(key, result)
	return result, nil
}

func (c *CachedGeocoder) count(method, result string) {
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues(method, result).Inc()
	}
}

// lruCache is a small thread-safe LRU cache for GeocodingResults.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.GeocodingResult
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.GeocodingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.GeocodingResult{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.GeocodingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)

	for len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *lruCache) pushFront(e *entry) {
	e.prev, e.next = nil, c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
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
	e.prev, e.next = nil, nil
}

func (c *lruCache) evictOldest() {
	if c.tail == nil {
		return
	}
	oldest := c.tail
	c.unlink(oldest)
	delete(c.entries, oldest.key)
}
