package earthengine

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/era5-temperature-etl/internal/observability"
)

// TileFetcher downloads map tiles.
type TileFetcher interface {
	FetchTile(ctx context.Context, mapName string, z, x, y int) ([]byte, error)
}

// CachedTiles wraps a TileFetcher with an in-memory LRU cache.
type CachedTiles struct {
	inner   TileFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedTiles creates a cache decorator around a tile fetcher.
func NewCachedTiles(inner TileFetcher, maxEntries int, metrics *observability.Metrics) *CachedTiles {
	return &CachedTiles{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedTiles) FetchTile(ctx context.Context, mapName string, z, x, y int) ([]byte, error) {
	key := fmt.Sprintf("%s/%d/%d/%d", mapName, z, x, y)
	if tile, ok := c.cache.get(key); ok {
		c.metrics.TileCache.WithLabelValues("hit").Inc()
		return tile, nil
	}
	c.metrics.TileCache.WithLabelValues("miss").Inc()
	tile, err := c.inner.FetchTile(ctx, mapName, z, x, y)
	if err != nil {
		return nil, err
	}
	// Empty bodies are not cached so a transient blank tile can be refetched.
	if len(tile) > 0 {
		c.cache.put(key, tile)
	}
	return tile, nil
}

// lruCache is a simple thread-safe LRU cache of tile bytes.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []byte
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []byte) {
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
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
