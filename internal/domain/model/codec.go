package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidFrames reports a frame payload that cannot be used.
var ErrInvalidFrames = errors.New("invalid frames")

// EncodeFrames serializes frames for the storage hand-off.
func EncodeFrames(frames []Frame) ([]byte, error) {
	if err := ValidateFrames(frames); err != nil {
		return nil, err
	}
	return json.Marshal(frames)
}

// DecodeFrames parses and validates a JSON frame array. Option order is
// preserved exactly as received.
func DecodeFrames(raw []byte) ([]Frame, error) {
	var frames []Frame
	if err := json.Unmarshal(raw, &frames); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFrames, err)
	}
	if err := ValidateFrames(frames); err != nil {
		return nil, err
	}
	return frames, nil
}

// ValidateFrames checks that frames form a usable sequence: at least one
// frame, indices matching positions, two or more options per frame, and
// non-empty keys unique within each frame.
func ValidateFrames(frames []Frame) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrInvalidFrames)
	}
	for i, f := range frames {
		if f.Index != i {
			return fmt.Errorf("%w: frame at position %d has index %d", ErrInvalidFrames, i, f.Index)
		}
		if len(f.Options) < 2 {
			return fmt.Errorf("%w: frame %d has %d options", ErrInvalidFrames, i, len(f.Options))
		}
		seen := make(map[string]struct{}, len(f.Options))
		for _, o := range f.Options {
			if o.Key == "" {
				return fmt.Errorf("%w: frame %d has an option without key", ErrInvalidFrames, i)
			}
			if _, dup := seen[o.Key]; dup {
				return fmt.Errorf("%w: frame %d repeats key %q", ErrInvalidFrames, i, o.Key)
			}
			seen[o.Key] = struct{}{}
		}
	}
	return nil
}
