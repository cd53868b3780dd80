package filestore

import (
	"sync"

	"github.com/couchcryptid/city-weather-rating/internal/domain"
)

// CachedStore wraps a Store with an in-memory LRU cache of decoded summaries.
// Saved summaries are written through; loads hit the disk only on a miss.
type CachedStore struct {
	*Store
	cache *lruCache
}

// NewCachedStore creates a cache decorator around a store.
func NewCachedStore(inner *Store, maxEntries int) *CachedStore {
	return &CachedStore{
		Store: inner,
		cache: newLRUCache(maxEntries),
	}
}

// Reset clears the cache along with the underlying records.
func (c *CachedStore) Reset() error {
	c.cache.clear()
	return c.Store.Reset()
}

// SaveSummary persists summary and caches it once the write succeeds.
func (c *CachedStore) SaveSummary(summary domain.CitySummary) error {
	if err := c.Store.SaveSummary(summary); err != nil {
		return err
	}
	c.cache.put(summary.City, summary)
	return nil
}

// LoadSummary returns the cached summary of city, reading it from disk on a miss.
func (c *CachedStore) LoadSummary(city string) (domain.CitySummary, error) {
	if summary, ok := c.cache.get(city); ok {
		return summary, nil
	}
	summary, err := c.Store.LoadSummary(city)
	if err != nil {
		return summary, err
	}
	c.cache.put(city, summary)
	return summary, nil
}

// lruCache is a simple thread-safe LRU cache for CitySummaries.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.CitySummary
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.CitySummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.CitySummary{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.CitySummary) {
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

func (c *lruCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.head, c.tail = nil, nil
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
