// Package bridge hands the frame payload from the start step to the
// assessment step. A value is written once and read once.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/bethegolf/internal/domain/model"
)

// FramesKey is the slot holding the JSON frame array of an attempt.
const FramesKey = "assessment_frames"

// DefaultTTL bounds how long an unread hand-off survives.
const DefaultTTL = 10 * time.Minute

// ErrNotFound is returned when nothing is stored under a scope and key, or
// when it was already taken.
var ErrNotFound = errors.New("bridge: not found")

// Store is a scoped, read-once key/value store.
type Store interface {
	Put(ctx context.Context, scope, key string, value []byte) error
	// Take returns the value and removes it.
	Take(ctx context.Context, scope, key string) ([]byte, error)
}

// Option configures a store.
type Option func(*options)

type options struct {
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

func defaults() options {
	return options{ttl: DefaultTTL, prefix: "session", now: time.Now}
}

// WithTTL sets how long a value is kept. Zero or negative keeps it until taken.
func WithTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// WithPrefix sets the key prefix used by RedisStore.
func WithPrefix(p string) Option {
	return func(o *options) {
		if p != "" {
			o.prefix = p
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

// WriteFrames validates and stores frames under scope.
func WriteFrames(ctx context.Context, s Store, scope string, frames []model.Frame) error {
	raw, err := model.EncodeFrames(frames)
	if err != nil {
		return err
	}
	if err := s.Put(ctx, scope, FramesKey, raw); err != nil {
		return fmt.Errorf("write frames: %w", err)
	}
	return nil
}

// Scope reads one attempt's frames from a store.
type Scope struct {
	Store Store
	ID    string
}

// Frames takes the raw frame payload. It can succeed only once.
func (s Scope) Frames(ctx context.Context) ([]byte, error) {
	return s.Store.Take(ctx, s.ID, FramesKey)
}
