// Package tilecache implements the thread-safe tile cache of §4.3: an
// LRU map from slidemodel.TileKey to decoded tile bytes, plus the
// process-wide GlobalCacheManager singleton.
package tilecache

import (
	"container/list"
	"sync"

	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
)

// Stats is a point-in-time snapshot of cache occupancy and hit ratio.
type Stats struct {
	Capacity         int
	Size             int
	Hits             uint64
	Misses           uint64
	HitRatio         float64
	MemoryUsageBytes uint64
}

// Cache is the interface every tile cache implementation satisfies.
type Cache interface {
	Get(key slidemodel.TileKey) (*slidemodel.CachedTileData, bool)
	Put(key slidemodel.TileKey, data *slidemodel.CachedTileData)
	Clear()
	Size() int
	Capacity() int
	MemoryUsage() uint64
	GetStats() Stats
	SetCapacity(n int) error
}

type entry struct {
	key  slidemodel.TileKey
	data *slidemodel.CachedTileData
	elem *list.Element
}

// LRU is the canonical ITileCache implementation: a hash map plus a
// doubly-linked list in recency order, guarded by a single mutex for the
// whole critical section of every operation.
type LRU struct {
	mu       sync.Mutex
	capacity int
	entries  map[slidemodel.TileKey]*entry
	order    *list.List // front = most recently used
	hits     uint64
	misses   uint64
	memUsage uint64
}

// NewLRU creates an LRU cache. capacity must be >= 1.
func NewLRU(capacity int) (*LRU, error) {
	if capacity < 1 {
		return nil, slideerr.New("tilecache.NewLRU", slideerr.InvalidArgument, "capacity must be >= 1")
	}
	return &LRU{
		capacity: capacity,
		entries:  make(map[slidemodel.TileKey]*entry, capacity),
		order:    list.New(),
	}, nil
}

// Get returns the cached tile for key, moving it to the front of the
// recency list on a hit and incrementing the appropriate counter.
func (c *LRU) Get(key slidemodel.TileKey) (*slidemodel.CachedTileData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(e.elem)
	c.hits++
	return e.data, true
}

// Put inserts or replaces data for key, evicting the least-recently-used
// entry if the cache is full. A nil data is silently ignored.
func (c *LRU) Put(key slidemodel.TileKey, data *slidemodel.CachedTileData) {
	if data == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.memUsage -= e.data.MemoryUsage()
		e.data = data
		c.memUsage += data.MemoryUsage()
		c.order.MoveToFront(e.elem)
		return
	}

	if len(c.entries) >= c.capacity {
		tail := c.order.Back()
		if tail != nil {
			c.order.Remove(tail)
			oldKey := tail.Value.(slidemodel.TileKey)
			if old, ok := c.entries[oldKey]; ok {
				c.memUsage -= old.data.MemoryUsage()
			}
			delete(c.entries, oldKey)
		}
	}

	elem := c.order.PushFront(key)
	c.entries[key] = &entry{key: key, data: data, elem: elem}
	c.memUsage += data.MemoryUsage()
}

// Clear empties the cache and resets hit/miss counters.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[slidemodel.TileKey]*entry, c.capacity)
	c.order.Init()
	c.hits = 0
	c.misses = 0
	c.memUsage = 0
}

// Size returns the current number of resident entries.
func (c *LRU) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the configured maximum entry count.
func (c *LRU) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity
}

// MemoryUsage returns the approximate total resident byte size.
func (c *LRU) MemoryUsage() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memUsage
}

// GetStats returns a snapshot of capacity, size, hits, misses, hit ratio,
// and memory usage.
func (c *LRU) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(c.hits) / float64(total)
	}
	return Stats{
		Capacity:         c.capacity,
		Size:             len(c.entries),
		Hits:             c.hits,
		Misses:           c.misses,
		HitRatio:         ratio,
		MemoryUsageBytes: c.memUsage,
	}
}

// SetCapacity atomically replaces the cache's internal structures with a
// freshly-sized, empty cache and resets counters. No partial eviction
// occurs. capacity must be >= 1.
func (c *LRU) SetCapacity(n int) error {
	if n < 1 {
		return slideerr.New("tilecache.SetCapacity", slideerr.InvalidArgument, "capacity must be >= 1")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity = n
	c.entries = make(map[slidemodel.TileKey]*entry, n)
	c.order.Init()
	c.hits = 0
	c.misses = 0
	c.memUsage = 0
	return nil
}

var _ Cache = (*LRU)(nil)
