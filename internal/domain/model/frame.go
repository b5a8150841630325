// Package model contains domain models passed between layers.
package model

// Option is one selectable choice inside a frame.
type Option struct {
	Key  string `json:"key"`  // opaque, unique within its frame
	Text string `json:"text"` // display label
}

// Frame is one forced-choice question. Frames are immutable once received.
type Frame struct {
	Index   int      `json:"index"`
	Options []Option `json:"options"`
}

// Option returns the option with the given key.
func (f Frame) Option(key string) (Option, bool) {
	for _, o := range f.Options {
		if o.Key == key {
			return o, true
		}
	}
	return Option{}, false
}

// Has reports whether key names one of the frame's options.
func (f Frame) Has(key string) bool {
	_, ok := f.Option(key)
	return ok
}

// Selection is the transient most/least state of the current frame.
// An empty string is an empty slot.
type Selection struct {
	Most  string `json:"most,omitempty"`
	Least string `json:"least,omitempty"`
}

// Complete reports whether both slots are filled.
func (s Selection) Complete() bool {
	return s.Most != "" && s.Least != ""
}

// Response is the answer recorded for one frame.
type Response struct {
	FrameIndex int    `json:"frame_index"`
	Most       string `json:"most_choice_key"`
	Least      string `json:"least_choice_key"`
}

// ResponseSet holds responses in the order they were first recorded.
type ResponseSet []Response

// Set overwrites the response with r.FrameIndex if there is one and
// appends r otherwise. Nothing is sorted or padded, so callers that need
// frame order must record frames in order.
func (rs ResponseSet) Set(r Response) ResponseSet {
	for i := range rs {
		if rs[i].FrameIndex == r.FrameIndex {
			rs[i] = r
			return rs
		}
	}
	return append(rs, r)
}

// Clone returns an independent copy.
func (rs ResponseSet) Clone() ResponseSet {
	if rs == nil {
		return nil
	}
	out := make(ResponseSet, len(rs))
	copy(out, rs)
	return out
}
