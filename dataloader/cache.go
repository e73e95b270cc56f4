package dataloader

import "github.com/cinegraph/common/sync_map"

// entry is a resolved key. A not found result is cached like any other value.
type entry[V any] struct {
	value V
	found bool
}

// cache memoizes resolved keys for the lifetime of one loader.
// There is no eviction nor expiry: a loader lives for one request.
type cache[K comparable, V any] struct {
	m sync_map.Map[K, entry[V]]
}

func (c *cache[K, V]) get(key K) (entry[V], bool) {
	return c.m.Load(key)
}

func (c *cache[K, V]) put(key K, e entry[V]) {
	c.m.Store(key, e)
}

// add stores e unless key is already cached, and reports whether it did.
func (c *cache[K, V]) add(key K, e entry[V]) bool {
	_, loaded := c.m.LoadOrStore(key, e)
	return !loaded
}

func (c *cache[K, V]) has(key K) bool {
	_, ok := c.m.Load(key)
	return ok
}

func (c *cache[K, V]) delete(key K) {
	c.m.Delete(key)
}
