package app

import (
	"sync"

	"github.com/yourusername/link-resolve-go/internal/domain"
)

// resultCache memoizes parse results per matched URL with a bounded
// size, evicting the oldest entry when full.
type resultCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*domain.ParseResult
	order   []string
}

func newResultCache(maxSize int) *resultCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &resultCache{
		maxSize: maxSize,
		entries: make(map[string]*domain.ParseResult),
	}
}

func (c *resultCache) get(key string) (*domain.ParseResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.entries[key]
	return result, ok
}

func (c *resultCache) put(key string, result *domain.ParseResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		for len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = result
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
