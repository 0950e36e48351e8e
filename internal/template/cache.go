package template

import "sync"

// boundedCache is a small bounded key/value cache with FIFO eviction:
// insertion beyond capacity evicts the oldest-inserted entry. Template sets
// are small and static, so plain FIFO is enough here.
type boundedCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]any
	order   []string
}

func newBoundedCache(max int) *boundedCache {
	return &boundedCache{
		max:     max,
		entries: make(map[string]any, max),
	}
}

func (c *boundedCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	return v, ok
}

func (c *boundedCache) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = value
		return
	}

	if len(c.entries) >= c.max && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = value
	c.order = append(c.order, key)
}

func (c *boundedCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
