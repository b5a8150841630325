package repository

import "time"

// Option configures a Cache.
type Option func(*options)

type options struct {
	ttl     time.Duration
	now     func() time.Time
	onEvict func(key string)
}

// WithTTL expires entries d after they were stored. Zero keeps them until
// evicted by size.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithEvictCallback is called with the key of every entry that leaves the
// cache, whether evicted for size or removed.
func WithEvictCallback(fn func(key string)) Option {
	return func(o *options) { o.onEvict = fn }
}
