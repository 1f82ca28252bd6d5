// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"container/list"
	"sync"

	"github.com/pdiddy/tally-lookup/internal/library"
	"github.com/pdiddy/tally-lookup/internal/scite"
	"github.com/pdiddy/tally-lookup/pkg/types"
)

// Outcome is a memoized fetch result: a record, or a cacheable failure.
type Outcome struct {
	Record types.TallyRecord
	Err    error
}

// Status converts the outcome into the status shown for doi.
func (o Outcome) Status(doi string) Status {
	if o.Err != nil {
		return Status{State: StateError, DOI: doi, Message: o.Err.Error(), Cached: true}
	}
	return Status{State: StateFound, DOI: doi, Record: o.Record, Cached: true}
}

// Cache memoizes fetch outcomes per DOI for the lifetime of the process.
// DOIs are matched case-insensitively.
// With a positive capacity the least recently used DOI is evicted first.
// It is safe for concurrent use.
type Cache struct {
	maxEntries int

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
}

type cacheItem struct {
	key     string
	outcome Outcome
}

// NewCache returns an empty cache. maxEntries <= 0 means unbounded.
func NewCache(maxEntries int) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
	}
}

// Get returns the outcome stored for doi.
func (c *Cache) Get(doi string) (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[library.DOIKey(doi)]
	if !ok {
		return Outcome{}, false
	}
	c.lru.MoveToFront(el)
	return el.Value.(*cacheItem).outcome, true
}

// Put stores the outcome for doi. Failures that are not cacheable
// (network errors, cancellations, malformed responses) are ignored so the
// next lookup retries.
func (c *Cache) Put(doi string, o Outcome) bool {
	if doi == "" || (o.Err != nil && !scite.Cacheable(o.Err)) {
		return false
	}

	key := library.DOIKey(doi)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheItem).outcome = o
		c.lru.MoveToFront(el)
		return true
	}

	c.entries[key] = c.lru.PushFront(&cacheItem{key: key, outcome: o})
	if c.maxEntries > 0 {
		for c.lru.Len() > c.maxEntries {
			oldest := c.lru.Back()
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheItem).key)
		}
	}
	return true
}

// Forget drops the outcome for doi.
func (c *Cache) Forget(doi string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := library.DOIKey(doi)
	if el, ok := c.entries[key]; ok {
		c.lru.Remove(el)
		delete(c.entries, key)
	}
}

// Len returns the number of cached DOIs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
