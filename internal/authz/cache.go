// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package authz

import (
	"sync"

	"github.com/carteret/repogate/internal/repository"
)

// DefaultCacheCapacity is the decision cache capacity used when the
// configured capacity is zero or negative.
const DefaultCacheCapacity = 250

// cacheEntry is one cached read decision in the LRU list.
type cacheEntry struct {
	id      repository.ItemID
	granted bool
	prev    *cacheEntry
	next    *cacheEntry
}

// decisionCache is a thread-safe bounded LRU cache of read decisions.
// It maps item identifiers to granted/denied outcomes with O(1) get,
// put, and eviction.
//
// This implementation uses a doubly-linked list for ordering and a
// hashmap for lookups; head.next is the most recently used entry and
// tail.prev the least recently used. Entries carry no TTL: coherence
// comes from targeted eviction on non-read checks, not from expiry.
type decisionCache struct {
	mu sync.Mutex

	capacity int
	items    map[repository.ItemID]*cacheEntry

	// head and tail are sentinel nodes for the doubly-linked list.
	head *cacheEntry
	tail *cacheEntry
}

// newDecisionCache creates a cache bounded to the given capacity.
func newDecisionCache(capacity int) *decisionCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}

	c := &decisionCache{
		capacity: capacity,
		items:    make(map[repository.ItemID]*cacheEntry, capacity),
		head:     &cacheEntry{},
		tail:     &cacheEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// get retrieves a cached decision. Found entries move to the front.
func (c *decisionCache) get(id repository.ItemID) (granted, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[id]
	if !exists {
		return false, false
	}
	c.moveToFront(entry)
	return entry.granted, true
}

// put adds or updates a decision. The least recently used entry is
// evicted when the cache is at capacity.
func (c *decisionCache) put(id repository.ItemID, granted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[id]; exists {
		entry.granted = granted
		c.moveToFront(entry)
		return
	}

	entry := &cacheEntry{id: id, granted: granted}
	c.addToFront(entry)
	c.items[id] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
		RecordCacheEviction()
	}
}

// remove drops the entry for the given item, if any.
func (c *decisionCache) remove(id repository.ItemID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[id]
	if !exists {
		return false
	}
	c.removeEntry(entry)
	return true
}

// clear empties the cache.
func (c *decisionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[repository.ItemID]*cacheEntry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// len returns the current number of entries.
func (c *decisionCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Internal methods (must be called with mu held)

func (c *decisionCache) addToFront(entry *cacheEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *decisionCache) moveToFront(entry *cacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *decisionCache) removeEntry(entry *cacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.id)
}

func (c *decisionCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
