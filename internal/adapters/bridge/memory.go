package bridge

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore keeps values in process. Expired values are dropped lazily.
type MemoryStore struct {
	opts options

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{opts: o, entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Put(_ context.Context, scope, key string, value []byte) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if m.opts.ttl > 0 {
		e.expires = m.opts.now().Add(m.opts.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	m.entries[scope+"\x00"+key] = e
	return nil
}

func (m *MemoryStore) Take(_ context.Context, scope, key string) ([]byte, error) {
	id := scope + "\x00" + key

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.entries, id)
	if m.expiredLocked(e) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

// Len returns the number of unread values, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStore) expiredLocked(e memoryEntry) bool {
	return !e.expires.IsZero() && !m.opts.now().Before(e.expires)
}

func (m *MemoryStore) sweepLocked() {
	for id, e := range m.entries {
		if m.expiredLocked(e) {
			delete(m.entries, id)
		}
	}
}
