package assessment

import (
	"time"

	"github.com/okian/bethegolf/pkg/logger"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMinProcessing keeps a submission in the Submitting state for at least d,
// so a processing screen never flashes. Zero disables the floor.
func WithMinProcessing(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.minProcessing = d
		}
	}
}
