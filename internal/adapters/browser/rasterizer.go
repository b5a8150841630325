// Package browser renders share cards in headless Chrome, so the image
// matches what the results page shows.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/pkg/logger"
)

const defaultTimeout = 20 * time.Second

// fitScript grows the card's shorter side to the target ratio and returns
// the final CSS box.
const fitScript = `function(ratio) {
	const r = this.getBoundingClientRect();
	let w = r.width, h = r.height;
	if (w / h < ratio) { w = h * ratio; } else { h = w / ratio; }
	this.style.maxWidth = "none";
	this.style.width = w + "px";
	this.style.height = h + "px";
	return JSON.stringify({w: w, h: h});
}`

type cssBox struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// process is a Chrome this package started and must stop.
type process interface {
	Kill()
}

// Rasterizer implements share.Rasterizer on a shared browser. The browser is
// started on first use.
type Rasterizer struct {
	bin        string
	controlURL string
	headless   bool
	timeout    time.Duration
	logger     logger.Logger
	launch     func() (string, process, error)

	mu      sync.Mutex
	browser *rod.Browser
	proc    process
}

// New creates a browser rasterizer.
func New(opts ...Option) *Rasterizer {
	r := &Rasterizer{headless: true, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("browser")
	}
	r.launch = r.launchChrome
	return r
}

func (r *Rasterizer) launchChrome() (string, process, error) {
	l := launcher.New().Headless(r.headless)
	if r.bin != "" {
		l = l.Bin(r.bin)
	}
	u, err := l.Launch()
	if err != nil {
		return "", nil, err
	}
	return u, l, nil
}

// Name identifies the rasterizer in metrics.
func (r *Rasterizer) Name() string { return "browser" }

func (r *Rasterizer) connect(ctx context.Context) (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	controlURL := r.controlURL
	var proc process
	if controlURL == "" {
		u, p, err := r.launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL, proc = u, p
	}

	// the browser outlives the request that started it
	b := rod.New().ControlURL(controlURL).Context(context.WithoutCancel(ctx))
	if err := b.Connect(); err != nil {
		if proc != nil {
			proc.Kill()
		}
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	r.browser, r.proc = b, proc
	r.logger.Info(ctx, "browser connected", logger.String("control_url", controlURL))
	return b, nil
}

// Rasterize renders card into a page, fits it to the aspect ratio and
// captures the card element at opts.Scale device pixels per CSS pixel.
func (r *Rasterizer) Rasterize(ctx context.Context, card share.Card, opts share.Options) (share.Raster, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	html, err := RenderHTML(card, opts.AspectRatio)
	if err != nil {
		return share.Raster{}, err
	}

	b, err := r.connect(ctx)
	if err != nil {
		return share.Raster{}, err
	}
	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return share.Raster{}, fmt.Errorf("create page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetDocumentContent(html); err != nil {
		return share.Raster{}, fmt.Errorf("set content: %w", err)
	}
	el, err := page.Element("#card")
	if err != nil {
		return share.Raster{}, fmt.Errorf("find card: %w", err)
	}
	res, err := el.Eval(fitScript, opts.AspectRatio.Ratio())
	if err != nil {
		return share.Raster{}, fmt.Errorf("fit card: %w", err)
	}
	var box cssBox
	if err := json.Unmarshal([]byte(res.Value.Str()), &box); err != nil {
		return share.Raster{}, fmt.Errorf("read card box: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             int(math.Ceil(box.W)),
		Height:            int(math.Ceil(box.H)),
		DeviceScaleFactor: opts.Scale,
	}).Call(page); err != nil {
		return share.Raster{}, fmt.Errorf("set viewport: %w", err)
	}

	format := proto.PageCaptureScreenshotFormatPng
	quality := 0
	if opts.Format == share.FormatJPEG {
		format = proto.PageCaptureScreenshotFormatJpeg
		quality = int(math.Round(opts.Quality * 100))
	}
	data, err := el.Screenshot(format, quality)
	if err != nil {
		return share.Raster{}, fmt.Errorf("screenshot: %w", err)
	}

	return share.Raster{
		Data:   data,
		Width:  int(math.Ceil(box.W * opts.Scale)),
		Height: int(math.Ceil(box.H * opts.Scale)),
	}, nil
}

// Close shuts the browser down if it was started.
func (r *Rasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	if r.proc != nil {
		r.proc.Kill()
	}
	r.browser, r.proc = nil, nil
	return err
}
