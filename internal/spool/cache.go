// Package spool implements the two-stage staging pipeline for out-of-band
// representation payloads: a bounded in-memory cache, an on-disk spool, the
// spooler and blob-worker tasks, and the janitor/scanner that reconcile
// dropped work.
package spool

import (
	"container/list"
	"sync"

	"github.com/uniclip/uniclipboard/internal/models"
)

// Cache is an LRU over representation payloads, bounded by entry count and
// total bytes. Entries that have not been durably staged to the spool are
// never evicted; if the cache cannot make room without dropping an unstaged
// entry, Put simply declines.
type Cache struct {
	mu       sync.Mutex
	maxCount int
	maxBytes int64
	curBytes int64
	order    *list.List // front = most recently used
	items    map[models.RepresentationID]*list.Element
}

type cacheItem struct {
	id     models.RepresentationID
	data   []byte
	staged bool
}

// NewCache returns a cache bounded by maxCount entries and maxBytes total.
func NewCache(maxCount int, maxBytes int64) *Cache {
	return &Cache{
		maxCount: maxCount,
		maxBytes: maxBytes,
		order:    list.New(),
		items:    map[models.RepresentationID]*list.Element{},
	}
}

// Put inserts data under id and reports whether it was cached. An existing
// entry is replaced.
func (c *Cache) Put(id models.RepresentationID, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int64(len(data)) > c.maxBytes {
		return false
	}
	if el, ok := c.items[id]; ok {
		c.removeLocked(el)
	}
	if !c.makeRoomLocked(int64(len(data))) {
		return false
	}

	el := c.order.PushFront(&cacheItem{id: id, data: data})
	c.items[id] = el
	c.curBytes += int64(len(data))
	return true
}

// Get returns the cached payload and refreshes its recency.
func (c *Cache) Get(id models.RepresentationID) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheItem).data, true
}

// Evict removes id if present.
func (c *Cache) Evict(id models.RepresentationID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[id]; ok {
		c.removeLocked(el)
	}
}

// MarkStaged records that id's bytes are durably in the spool, making the
// entry eligible for eviction.
func (c *Cache) MarkStaged(id models.RepresentationID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[id]; ok {
		el.Value.(*cacheItem).staged = true
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// makeRoomLocked evicts least-recently-used staged entries until need bytes
// and one slot fit. Returns false when unstaged entries block the way.
func (c *Cache) makeRoomLocked(need int64) bool {
	for c.order.Len() >= c.maxCount || c.curBytes+need > c.maxBytes {
		victim := c.oldestStagedLocked()
		if victim == nil {
			return false
		}
		c.removeLocked(victim)
	}
	return true
}

func (c *Cache) oldestStagedLocked() *list.Element {
	for el := c.order.Back(); el != nil; el = el.Prev() {
		if el.Value.(*cacheItem).staged {
			return el
		}
	}
	return nil
}

func (c *Cache) removeLocked(el *list.Element) {
	item := el.Value.(*cacheItem)
	c.order.Remove(el)
	delete(c.items, item.id)
	c.curBytes -= int64(len(item.data))
}
