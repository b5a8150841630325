// Package dedupe tracks identifiers that must be acted on at most once, such
// as the final submission of an assessment attempt.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultMaxSize bounds the guard when no size is configured.
const defaultMaxSize = 50000

// Deduper records seen IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so the action can be attempted again. Used when
	// the guarded action failed.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper is bounded by an LRU when maxSize > 0 and by nothing
// otherwise.
type inMemoryDeduper struct {
	maxSize int

	bounded *lru.Cache[string, struct{}]

	mu        sync.Mutex
	unbounded map[string]struct{}
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}

	if d.maxSize > 0 {
		// lru.New only fails on a non-positive size
		d.bounded, _ = lru.New[string, struct{}](d.maxSize)
	} else {
		d.unbounded = make(map[string]struct{})
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	if d.bounded != nil {
		seen, _ := d.bounded.ContainsOrAdd(id, struct{}{})
		return seen
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.unbounded[id]; ok {
		return true
	}
	d.unbounded[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	if d.bounded != nil {
		d.bounded.Remove(id)
		return
	}

	d.mu.Lock()
	delete(d.unbounded, id)
	d.mu.Unlock()
}

func (d *inMemoryDeduper) Size() int64 {
	if d.bounded != nil {
		return int64(d.bounded.Len())
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.unbounded))
}
