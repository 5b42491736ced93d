package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/hrygo/verdant/ai/core/llm"
)

// lruCache holds recent messages per session with LRU eviction and a sliding TTL.
type lruCache struct {
	entries  map[string]*entry
	order    *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

type entry struct {
	expiresAt time.Time
	element   *list.Element
	key       string
	messages  []llm.Message
}

func newLRUCache(capacity int, ttl time.Duration) *lruCache {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &lruCache{
		entries:  make(map[string]*entry),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// get returns a copy of the cached messages and refreshes the entry.
func (c *lruCache) get(key string) ([]llm.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		return nil, false
	}
	e.expiresAt = c.now().Add(c.ttl)
	c.order.MoveToFront(e.element)
	return append([]llm.Message(nil), e.messages...), true
}

func (c *lruCache) set(key string, messages []llm.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.messages = messages
		e.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(e.element)
		return
	}

	// Evict if at capacity
	for len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	e := &entry{
		key:       key,
		messages:  messages,
		expiresAt: c.now().Add(c.ttl),
	}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
}

// update applies fn to a live entry atomically. It reports false on a miss.
func (c *lruCache) update(key string, fn func([]llm.Message) []llm.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		return false
	}
	e.messages = fn(e.messages)
	e.expiresAt = c.now().Add(c.ttl)
	c.order.MoveToFront(e.element)
	return true
}

func (c *lruCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeEntry(e)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// cleanupExpired removes all expired entries and returns how many were dropped.
func (c *lruCache) cleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toDelete []*entry
	now := c.now()
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			toDelete = append(toDelete, e)
		}
	}
	for _, e := range toDelete {
		c.removeEntry(e)
	}
	return len(toDelete)
}

// lookup returns a live entry, dropping it if expired. Must be called with lock held.
func (c *lruCache) lookup(key string) (*entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.removeEntry(e)
		return nil, false
	}
	return e, true
}

// evictOldest removes the least recently used entry.
// Must be called with lock held.
func (c *lruCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	if e, ok := oldest.Value.(*entry); ok {
		c.removeEntry(e)
	}
}

// Must be called with lock held.
func (c *lruCache) removeEntry(e *entry) {
	c.order.Remove(e.element)
	delete(c.entries, e.key)
}
