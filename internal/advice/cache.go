package advice

import (
	"container/list"
	"sync"
	"time"
)

// memoCache is a small LRU with TTL keyed by a fingerprint of the
// financial state, so unchanged state never re-queries the model.
type memoCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type memoEntry struct {
	key       string
	text      string
	expiresAt time.Time
}

func newMemoCache(maxSize int, ttl time.Duration) *memoCache {
	return &memoCache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *memoCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return "", false
	}
	entry := elem.Value.(*memoEntry)
	if time.Now().After(entry.expiresAt) {
		c.remove(elem)
		return "", false
	}
	c.lru.MoveToFront(elem)
	return entry.text, true
}

func (c *memoCache) set(key, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &memoEntry{key: key, text: text, expiresAt: time.Now().Add(c.ttl)}
	if elem, exists := c.items[key]; exists {
		elem.Value = entry
		c.lru.MoveToFront(elem)
		return
	}
	c.items[key] = c.lru.PushFront(entry)
	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

func (c *memoCache) remove(elem *list.Element) {
	entry := elem.Value.(*memoEntry)
	delete(c.items, entry.key)
	c.lru.Remove(elem)
}
