package playbackcache

import (
	"container/list"
	"sync"

	"ghosthub/internal/metrics"
)

// DefaultCapacity matches a mid-range device profile.
const DefaultCapacity = 50

type entry struct {
	key     string
	element *Element
}

// Cache is a bounded, insertion-ordered element store, safe for
// concurrent use. When an insert pushes the size past capacity, the
// oldest entries are evicted within the same Put call, so readers
// never observe an over-capacity cache.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

// New creates a Cache holding at most capacity entries. A
// non-positive capacity means DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
}

// Put stores a clone of element under key. Overwriting an existing key
// replaces the value but keeps the entry's original insertion
// position. The size invariant holds when Put returns.
func (c *Cache) Put(key string, element *Element) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.index[key]; ok {
		node.Value.(*entry).element = element.Clone()
		return
	}

	c.index[key] = c.order.PushBack(&entry{key: key, element: element.Clone()})
	c.pruneLocked()
	metrics.CacheEntries.Set(float64(c.order.Len()))
}

// Get returns a fresh clone of the element stored under key, or nil if
// absent. Reads never affect eviction order.
func (c *Cache) Get(key string) *Element {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.index[key]
	if !ok {
		metrics.CacheMisses.Inc()
		return nil
	}
	metrics.CacheHits.Inc()
	return node.Value.(*entry).element.Clone()
}

// Has reports whether key is cached.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.index[key]
	return ok
}

// Keys returns the cached keys oldest-first.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for node := c.order.Front(); node != nil; node = node.Next() {
		keys = append(keys, node.Value.(*entry).key)
	}
	return keys
}

// Remove drops the entry for key, if present.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.index[key]
	if !ok {
		return false
	}
	c.order.Remove(node)
	delete(c.index, key)
	metrics.CacheEntries.Set(float64(c.order.Len()))
	return true
}

// Clear empties the cache. Used by low-memory sweeps and navigation
// resets.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.index = make(map[string]*list.Element)
	metrics.CacheEntries.Set(0)
}

// PruneToCapacity evicts oldest entries until the size invariant
// holds. Put already prunes, so this exists for periodic cleanup
// cycles that want an explicit pass.
func (c *Cache) PruneToCapacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := c.pruneLocked()
	metrics.CacheEntries.Set(float64(c.order.Len()))
	return evicted
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Capacity returns the fixed maximum size.
func (c *Cache) Capacity() int {
	return c.capacity
}

func (c *Cache) pruneLocked() int {
	evicted := 0
	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*entry).key)
		evicted++
		metrics.CacheEvictions.Inc()
	}
	return evicted
}
