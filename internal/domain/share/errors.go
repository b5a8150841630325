package share

import "errors"

// Sentinel errors. The typed errors below wrap them so callers can use
// errors.Is for the category and errors.As for the detail.
var (
	ErrInvalidOptions = errors.New("invalid image options")
	ErrGeneration     = errors.New("image generation failed")
	ErrUnsupported    = errors.New("not supported on this platform")
	ErrClipboard      = errors.New("clipboard write failed")
	ErrShare          = errors.New("share failed")
	ErrBadDataURL     = errors.New("malformed data url")

	// ErrShareCancelled is returned by a NativeSharer when the user dismisses
	// the share sheet.
	ErrShareCancelled = errors.New("share cancelled")

	// ErrNotReady is returned by Modal actions while no image is ready.
	ErrNotReady = errors.New("image not ready")
)

// GenerationError reports a failed rasterization or an empty result.
type GenerationError struct {
	Aspect AspectRatio
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "generate " + string(e.Aspect) + " image: empty result"
	}
	return "generate " + string(e.Aspect) + " image: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGeneration}
	}
	return []error{ErrGeneration, e.Err}
}

// ClipboardError reports a rejected clipboard write.
type ClipboardError struct {
	Err error
}

func (e *ClipboardError) Error() string { return "copy image: " + e.Err.Error() }

func (e *ClipboardError) Unwrap() []error { return []error{ErrClipboard, e.Err} }

// ShareError reports a native share failure other than cancellation.
type ShareError struct {
	Err error
}

func (e *ShareError) Error() string { return "native share: " + e.Err.Error() }

func (e *ShareError) Unwrap() []error { return []error{ErrShare, e.Err} }
