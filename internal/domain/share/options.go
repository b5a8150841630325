package share

import (
	"fmt"
	"strings"
)

// AspectRatio names a target layout for the card.
type AspectRatio string

// Supported aspect ratios.
const (
	AspectSquare    AspectRatio = "square"
	AspectVertical  AspectRatio = "vertical"
	AspectLandscape AspectRatio = "landscape"
)

// Ratio returns width divided by height.
func (a AspectRatio) Ratio() float64 {
	switch a {
	case AspectVertical:
		return 9.0 / 16.0
	case AspectLandscape:
		return 1.91
	default:
		return 1
	}
}

// ParseAspectRatio accepts the lower-case names; empty means square.
func ParseAspectRatio(s string) (AspectRatio, error) {
	switch a := AspectRatio(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return AspectSquare, nil
	case AspectSquare, AspectVertical, AspectLandscape:
		return a, nil
	default:
		return "", fmt.Errorf("%w: aspect ratio %q", ErrInvalidOptions, s)
	}
}

// Format is the encoded image type.
type Format string

// Supported formats.
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// MIME returns the media type of f.
func (f Format) MIME() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Ext returns the file extension of f without the dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// ParseFormat accepts png, jpeg or jpg; empty means png.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("%w: format %q", ErrInvalidOptions, s)
	}
}

// Defaults applied by Normalize.
const (
	DefaultScale   = 2.0
	MinScale       = 1.0
	MaxScale       = 4.0
	DefaultQuality = 0.95
)

// Options controls one generation.
type Options struct {
	AspectRatio AspectRatio
	// Scale multiplies the card's logical size into pixels.
	Scale float64
	// Quality is the JPEG quality in (0,1]. Ignored for PNG.
	Quality float64
	Format  Format
}

// DefaultOptions returns a square PNG at 2x.
func DefaultOptions() Options {
	return Options{AspectRatio: AspectSquare, Scale: DefaultScale, Quality: DefaultQuality, Format: FormatPNG}
}

// Normalize fills defaults, clamps the scale and rejects unknown values.
func (o Options) Normalize() (Options, error) {
	a, err := ParseAspectRatio(string(o.AspectRatio))
	if err != nil {
		return o, err
	}
	o.AspectRatio = a

	f, err := ParseFormat(string(o.Format))
	if err != nil {
		return o, err
	}
	o.Format = f

	switch {
	case o.Scale == 0:
		o.Scale = DefaultScale
	case o.Scale < MinScale:
		o.Scale = MinScale
	case o.Scale > MaxScale:
		o.Scale = MaxScale
	}

	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.Quality < 0 || o.Quality > 1 {
		return o, fmt.Errorf("%w: quality %v outside (0,1]", ErrInvalidOptions, o.Quality)
	}
	return o, nil
}
