// Package repository keeps per-process state for the front-end: live
// assessment attempts and fetched public results.
package repository

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a size-bounded LRU with optional expiry. It is safe for
// concurrent use.
type Cache[V any] struct {
	lru  *lru.Cache[string, entry[V]]
	opts options
}

// NewCache creates a cache holding at most capacity entries.
func NewCache[V any](capacity int, opts ...Option) (*Cache[V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		l   *lru.Cache[string, entry[V]]
		err error
	)
	if o.onEvict != nil {
		onEvict := o.onEvict
		l, err = lru.NewWithEvict[string, entry[V]](capacity, func(k string, _ entry[V]) { onEvict(k) })
	} else {
		l, err = lru.New[string, entry[V]](capacity)
	}
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: l, opts: o}, nil
}

// Put stores v under key, replacing any previous value.
func (c *Cache[V]) Put(key string, v V) {
	c.lru.Add(key, entry[V]{value: v, storedAt: c.opts.now()})
}

// PutIfAbsent stores v unless a live value is already present, and returns
// the value now cached under key.
func (c *Cache[V]) PutIfAbsent(key string, v V) V {
	fresh := entry[V]{value: v, storedAt: c.opts.now()}
	prev, ok, _ := c.lru.PeekOrAdd(key, fresh)
	if !ok {
		return v
	}
	if c.expired(prev) {
		c.lru.Add(key, fresh)
		return v
	}
	return prev.value
}

func (c *Cache[V]) expired(e entry[V]) bool {
	return c.opts.ttl > 0 && c.opts.now().Sub(e.storedAt) >= c.opts.ttl
}

// Get returns the value under key. Expired values are removed and reported
// as missing.
func (c *Cache[V]) Get(key string) (V, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(e) {
		c.lru.Remove(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Delete removes key. It reports whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	return c.lru.Remove(key)
}

// Len returns the number of entries, expired ones included.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}
