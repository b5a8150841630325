package share

import (
	"context"
	"sync"
	"time"
)

// CopiedWindow is how long the copied indicator stays on.
const CopiedWindow = 2 * time.Second

// ImageClipboard is the platform's image clipboard.
type ImageClipboard interface {
	// SupportsImages reports whether image writes are possible at all.
	SupportsImages() bool
	WriteImage(ctx context.Context, mime string, data []byte) error
}

// CopyToClipboard writes an image blob. It checks support before touching
// the clipboard: without it the result is ErrUnsupported and WriteImage is
// never called.
func CopyToClipboard(ctx context.Context, clip ImageClipboard, mime string, blob []byte) error {
	if clip == nil || !clip.SupportsImages() {
		return ErrUnsupported
	}
	if err := clip.WriteImage(ctx, mime, blob); err != nil {
		return &ClipboardError{Err: err}
	}
	return nil
}

// CopiedIndicator is on for CopiedWindow after the last successful copy.
type CopiedIndicator struct {
	now func() time.Time

	mu     sync.Mutex
	marked time.Time
}

// NewCopiedIndicator creates an indicator. A nil clock uses time.Now.
func NewCopiedIndicator(now func() time.Time) *CopiedIndicator {
	if now == nil {
		now = time.Now
	}
	return &CopiedIndicator{now: now}
}

// Mark turns the indicator on and restarts its window.
func (c *CopiedIndicator) Mark() {
	c.mu.Lock()
	c.marked = c.now()
	c.mu.Unlock()
}

// On reports whether the indicator is showing.
func (c *CopiedIndicator) On() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.marked.IsZero() && c.now().Before(c.marked.Add(CopiedWindow))
}
