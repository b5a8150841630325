package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/bethegolf/internal/domain/assessment"
	"github.com/okian/bethegolf/pkg/metrics"
)

// Attempt is one user's walk through an assessment.
type Attempt struct {
	ID         string
	SessionID  string
	Locale     string
	CreatedAt  time.Time
	Controller *assessment.Controller
}

// AttemptStore keeps live attempts. Beyond capacity the least recently used
// attempt is dropped.
type AttemptStore struct {
	cache *Cache[*Attempt]
}

// NewAttemptStore creates a store for up to capacity attempts.
func NewAttemptStore(capacity int, opts ...Option) (*AttemptStore, error) {
	s := &AttemptStore{}
	opts = append(opts, WithEvictCallback(func(string) {
		if s.cache != nil {
			metrics.UpdateActiveAttempts(s.cache.Len())
		}
	}))
	c, err := NewCache[*Attempt](capacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("attempt store: %w", err)
	}
	s.cache = c
	return s, nil
}

// Put registers a.
func (s *AttemptStore) Put(_ context.Context, a *Attempt) {
	s.cache.Put(a.ID, a)
	metrics.UpdateActiveAttempts(s.cache.Len())
}

// Get returns the attempt with id or ErrNotFound.
func (s *AttemptStore) Get(_ context.Context, id string) (*Attempt, error) {
	a, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("attempt %q: %w", id, ErrNotFound)
	}
	return a, nil
}

// Delete forgets the attempt with id.
func (s *AttemptStore) Delete(_ context.Context, id string) {
	s.cache.Delete(id)
	metrics.UpdateActiveAttempts(s.cache.Len())
}

// Count returns the number of stored attempts.
func (s *AttemptStore) Count(_ context.Context) int {
	return s.cache.Len()
}
