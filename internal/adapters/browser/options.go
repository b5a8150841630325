package browser

import (
	"time"

	"github.com/okian/bethegolf/pkg/logger"
)

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithBin sets the Chrome binary. Empty lets the launcher find or fetch one.
func WithBin(bin string) Option {
	return func(r *Rasterizer) { r.bin = bin }
}

// WithControlURL connects to an already running browser instead of launching.
func WithControlURL(u string) Option {
	return func(r *Rasterizer) { r.controlURL = u }
}

// WithHeadless toggles headless mode. Default true.
func WithHeadless(h bool) Option {
	return func(r *Rasterizer) { r.headless = h }
}

// WithTimeout bounds a single rasterization.
func WithTimeout(d time.Duration) Option {
	return func(r *Rasterizer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the rasterizer logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Rasterizer) {
		if l != nil {
			r.logger = l
		}
	}
}
