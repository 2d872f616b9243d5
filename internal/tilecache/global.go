package tilecache

import "sync"

const defaultCapacity = 1000

// GlobalCacheManager is the process-wide default ITileCache, lazily
// constructed on first access as an LRU sized by capacityFromSystemRAM
// (never fewer than defaultCapacity entries). Reconfiguration
// (SetCache, SetCapacity) is serialized by mu; individual get/put
// calls are not (they go straight to the underlying Cache, which has its
// own mutex).
type globalCacheManager struct {
	mu    sync.Mutex
	cache Cache
}

var (
	instance     *globalCacheManager
	instanceOnce sync.Once
)

// GlobalCacheManager returns the process-wide singleton.
func GlobalCacheManager() *globalCacheManager {
	instanceOnce.Do(func() {
		capacity := capacityFromSystemRAM(defaultTileBytesEstimate, false)
		lru, _ := NewLRU(capacity) // capacity >= defaultCapacity >= 1, never errors
		instance = &globalCacheManager{cache: lru}
	})
	return instance
}

// GetCache returns the currently active cache implementation.
func (g *globalCacheManager) GetCache() Cache {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cache
}

// SetCache atomically replaces the active cache with an arbitrary
// implementation, allowing injection of alternative ITileCache backends.
func (g *globalCacheManager) SetCache(c Cache) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache = c
}

// SetCapacity replaces the active cache with a fresh LRU of the given
// capacity.
func (g *globalCacheManager) SetCapacity(n int) error {
	lru, err := NewLRU(n)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache = lru
	return nil
}

// GetCapacity delegates to the active cache.
func (g *globalCacheManager) GetCapacity() int { return g.GetCache().Capacity() }

// GetSize delegates to the active cache.
func (g *globalCacheManager) GetSize() int { return g.GetCache().Size() }

// GetStats delegates to the active cache.
func (g *globalCacheManager) GetStats() Stats { return g.GetCache().GetStats() }

// Clear delegates to the active cache.
func (g *globalCacheManager) Clear() { g.GetCache().Clear() }
