// Package cache implements the result cache (C5): a bounded map from
// (CompiledLogicId, data-instance, dependency-fingerprint) to a shared
// value.Value, purged by the top-level data fields a write touched.
package cache

import (
	"container/list"
	"sync"

	"github.com/opal-lang/formeval/core/store"
	"github.com/opal-lang/formeval/core/value"
)

// Key identifies one cached result: the compiled expression, which
// TrackedData instance it was evaluated against, and the dependency
// fingerprint of that instance's read-set field versions at the time.
type Key struct {
	LogicID    store.CompiledLogicId
	InstanceID uint64
	Fingerprint uint64
}

// touchEvery amortizes LRU bookkeeping: the recency list is only
// reordered on every Nth hit rather than on every single hit, per §4.5's
// "LRU-approximated eviction" requirement.
const touchEvery = 8

const (
	maxCachedArrayLen  = 100
	maxCachedObjectLen = 50
)

type entry struct {
	key    Key
	fields []string // top-level fields in this expression's read-set, for purge matching
	value  value.Value
	hits   uint64
}

// Cache is a bounded, recency-evicted map. The zero Cache is not usable;
// construct with New. A Cache with capacity 0 is permanently disabled: Get
// always misses and Put is a no-op, matching the "minimal/streaming mode"
// configuration option.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	elems    map[Key]*list.Element
}

// New returns a Cache bounded to capacity entries. capacity<=0 disables
// caching entirely.
func New(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		elems:    make(map[Key]*list.Element),
	}
}

// Enabled reports whether this Cache will ever store anything.
func (c *Cache) Enabled() bool { return c.capacity > 0 }

// Get returns the cached value for key, or miss=false if absent or caching
// is disabled.
func (c *Cache) Get(key Key) (value.Value, bool) {
	if !c.Enabled() {
		return value.Null(), false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.elems[key]
	if !ok {
		return value.Null(), false
	}
	e := elem.Value.(*entry)
	e.hits++
	if e.hits%touchEvery == 0 {
		c.order.MoveToFront(elem)
	}
	return e.value, true
}

// Put inserts v under key with the given read-set field names (used later
// by PurgeFor). Values exceeding the size admission policy (arrays over
// 100 elements, objects over 50 keys) are silently not cached. A disabled
// Cache ignores every Put.
func (c *Cache) Put(key Key, fields []string, v value.Value) {
	if !c.Enabled() || oversized(v) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.elems[key]; ok {
		e := elem.Value.(*entry)
		e.value = v
		e.fields = fields
		c.order.MoveToFront(elem)
		return
	}

	e := &entry{key: key, fields: fields, value: v}
	elem := c.order.PushFront(e)
	c.elems[key] = elem

	for len(c.elems) > c.capacity {
		c.evictOldest()
	}
}

func (c *Cache) evictOldest() {
	back := c.order.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	delete(c.elems, e.key)
	c.order.Remove(back)
}

// PurgeFor removes every cached entry for instanceID whose read-set
// mentions any field in changedFields.
func (c *Cache) PurgeFor(instanceID uint64, changedFields []string) {
	if !c.Enabled() {
		return
	}
	changed := make(map[string]bool, len(changedFields))
	for _, f := range changedFields {
		changed[f] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry)
		if e.key.InstanceID != instanceID {
			continue
		}
		for _, f := range e.fields {
			if changed[f] {
				toRemove = append(toRemove, elem)
				break
			}
		}
	}
	for _, elem := range toRemove {
		e := elem.Value.(*entry)
		delete(c.elems, e.key)
		c.order.Remove(elem)
	}
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.elems)
}

func oversized(v value.Value) bool {
	switch v.Kind() {
	case value.KindArray:
		return v.Len() > maxCachedArrayLen
	case value.KindObject:
		return v.Len() > maxCachedObjectLen
	default:
		return false
	}
}
