package share

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/okian/bethegolf/pkg/metrics"
)

// Raster is an encoded image produced by a Rasterizer.
type Raster struct {
	Data   []byte
	Width  int
	Height int
}

// Rasterizer renders a card into encoded image bytes. Options are already
// normalized when Rasterize is called.
type Rasterizer interface {
	Name() string
	Rasterize(ctx context.Context, card Card, opts Options) (Raster, error)
}

// Image is a generated card in both forms: a data URL for inline preview and
// the raw bytes for clipboard and file writes.
type Image struct {
	DataURL     string
	Blob        []byte
	Width       int
	Height      int
	MIME        string
	Format      Format
	AspectRatio AspectRatio
}

// GenerateImage rasterizes card with opts. Any rasterizer failure and an
// empty result both come back as *GenerationError.
func GenerateImage(ctx context.Context, r Rasterizer, card Card, opts Options) (Image, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return Image{}, err
	}

	start := time.Now()
	raster, err := r.Rasterize(ctx, card, opts)
	metrics.RecordImageLatency(metrics.Since(start))
	if err != nil {
		metrics.RecordImageError()
		return Image{}, &GenerationError{Aspect: opts.AspectRatio, Err: err}
	}
	if len(raster.Data) == 0 {
		metrics.RecordImageError()
		return Image{}, &GenerationError{Aspect: opts.AspectRatio}
	}

	metrics.RecordImageGenerated(string(opts.AspectRatio), r.Name())
	mime := opts.Format.MIME()
	return Image{
		DataURL:     EncodeDataURL(mime, raster.Data),
		Blob:        raster.Data,
		Width:       raster.Width,
		Height:      raster.Height,
		MIME:        mime,
		Format:      opts.Format,
		AspectRatio: opts.AspectRatio,
	}, nil
}

// EncodeDataURL returns a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL parses a base64 data URL.
func DecodeDataURL(s string) (data []byte, mime string, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", ErrBadDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrBadDataURL
	}
	mime, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", ErrBadDataURL
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", ErrBadDataURL
	}
	return data, mime, nil
}
