package share

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Theme colors the card.
type Theme struct {
	Background color.Color
	Accent     color.Color
	Text       color.Color
	Muted      color.Color
}

// DefaultTheme is the brand palette.
var DefaultTheme = Theme{
	Background: color.RGBA{R: 0x0f, G: 0x3d, B: 0x2e, A: 0xff},
	Accent:     color.RGBA{R: 0xe8, G: 0xc5, B: 0x4a, A: 0xff},
	Text:       color.RGBA{R: 0xfa, G: 0xf7, B: 0xee, A: 0xff},
	Muted:      color.RGBA{R: 0xb8, G: 0xcc, B: 0xc2, A: 0xff},
}

type faceSpec struct {
	size float64
	bold bool
}

var faceSpecs = map[TextStyle]faceSpec{
	StyleHeading: {size: 18},
	StyleTitle:   {size: 40, bold: true},
	StyleTagline: {size: 20},
	StyleLabel:   {size: 13, bold: true},
	StyleBody:    {size: 16},
	StyleBrand:   {size: 14, bold: true},
}

// DrawRasterizer renders cards with the Go fonts, no browser involved.
type DrawRasterizer struct {
	regular *opentype.Font
	bold    *opentype.Font
	theme   Theme
}

// NewDrawRasterizer parses the embedded fonts.
func NewDrawRasterizer() (*DrawRasterizer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &DrawRasterizer{regular: regular, bold: bold, theme: DefaultTheme}, nil
}

// Name identifies the rasterizer in metrics.
func (d *DrawRasterizer) Name() string { return "draw" }

// faceSet is one set of faces at a given scale. Faces are not safe for
// concurrent use, so every Rasterize call builds its own.
type faceSet map[TextStyle]font.Face

func (d *DrawRasterizer) faces(scale float64) (faceSet, error) {
	fs := make(faceSet, len(faceSpecs))
	for style, spec := range faceSpecs {
		f := d.regular
		if spec.bold {
			f = d.bold
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    spec.size * scale,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			fs.Close()
			return nil, fmt.Errorf("font face: %w", err)
		}
		fs[style] = face
	}
	return fs, nil
}

func (fs faceSet) Close() {
	for _, f := range fs {
		_ = f.Close()
	}
}

func (fs faceSet) Width(style TextStyle, s string) float64 {
	return fixedToFloat(font.MeasureString(fs[style], s))
}

func (fs faceSet) LineHeight(style TextStyle) float64 {
	return fixedToFloat(fs[style].Metrics().Height)
}

// Measure lays out card at 1x with this rasterizer's fonts.
func (d *DrawRasterizer) Measure(card Card, aspect AspectRatio) (Box, error) {
	fs, err := d.faces(1)
	if err != nil {
		return Box{}, err
	}
	defer fs.Close()
	return Layout(card, aspect, fs), nil
}

// Rasterize draws card and encodes it as opts.Format.
func (d *DrawRasterizer) Rasterize(ctx context.Context, card Card, opts Options) (Raster, error) {
	box, err := d.Measure(card, opts.AspectRatio)
	if err != nil {
		return Raster{}, err
	}
	if err := ctx.Err(); err != nil {
		return Raster{}, err
	}

	fs, err := d.faces(opts.Scale)
	if err != nil {
		return Raster{}, err
	}
	defer fs.Close()

	w, h := box.Pixels(opts.Scale)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(d.theme.Background), image.Point{}, draw.Src)
	bar := int(math.Round(6 * opts.Scale))
	draw.Draw(img, image.Rect(0, 0, w, bar), image.NewUniform(d.theme.Accent), image.Point{}, draw.Src)

	for _, line := range box.Lines {
		face := fs[line.Style]
		dr := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(d.colorFor(line.Style)),
			Face: face,
			Dot: fixed.Point26_6{
				X: floatToFixed(line.X * opts.Scale),
				Y: floatToFixed(line.Top*opts.Scale) + face.Metrics().Ascent,
			},
		}
		dr.DrawString(line.Text)
	}

	var buf bytes.Buffer
	switch opts.Format {
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(math.Round(opts.Quality * 100))})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return Raster{}, fmt.Errorf("encode %s: %w", opts.Format, err)
	}
	return Raster{Data: buf.Bytes(), Width: w, Height: h}, nil
}

func (d *DrawRasterizer) colorFor(style TextStyle) color.Color {
	switch style {
	case StyleTitle, StyleLabel:
		return d.theme.Accent
	case StyleHeading, StyleBrand:
		return d.theme.Muted
	default:
		return d.theme.Text
	}
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }
