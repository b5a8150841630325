package repository

import (
	"context"
	"fmt"

	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/pkg/metrics"
)

// Result is a fetched public result.
type Result struct {
	Token  string
	Locale string
	Data   model.PublicResult
}

// ResultCache keeps public results per token and locale.
type ResultCache struct {
	cache *Cache[*Result]
}

// NewResultCache creates a cache for up to capacity results.
func NewResultCache(capacity int, opts ...Option) (*ResultCache, error) {
	c, err := NewCache[*Result](capacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	return &ResultCache{cache: c}, nil
}

func resultKey(token, locale string) string { return token + "|" + locale }

// Get returns the cached result or ErrNotFound.
func (c *ResultCache) Get(_ context.Context, token, locale string) (*Result, error) {
	r, ok := c.cache.Get(resultKey(token, locale))
	if !ok {
		metrics.RecordResultCacheMiss()
		return nil, ErrNotFound
	}
	metrics.RecordResultCacheHit()
	return r, nil
}

// Put stores r and returns the entry now cached under its key. A concurrent
// Put for the same key keeps the first entry.
func (c *ResultCache) Put(_ context.Context, r *Result) *Result {
	return c.cache.PutIfAbsent(resultKey(r.Token, r.Locale), r)
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int { return c.cache.Len() }
