package share

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bethegolf/pkg/logger"
	"github.com/okian/bethegolf/pkg/metrics"
)

// errDispatchRejected is reported when the dispatcher refuses a job.
var errDispatchRejected = errors.New("render queue full")

// ModalOption configures a Modal.
type ModalOption func(*Modal)

// WithOptions sets the initial generation options.
func WithOptions(o Options) ModalOption {
	return func(m *Modal) { m.opts = o }
}

// WithModalLogger sets the modal logger.
func WithModalLogger(l logger.Logger) ModalOption {
	return func(m *Modal) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock sets the time source of the copied indicator.
func WithClock(now func() time.Time) ModalOption {
	return func(m *Modal) { m.now = now }
}

// Modal owns the shareable image of one result view. At most one generation
// result is current; a result that arrives after the options changed is
// dropped.
type Modal struct {
	card       Card
	dispatcher Dispatcher
	logger     logger.Logger
	now        func() time.Time
	copied     *CopiedIndicator

	mu      sync.Mutex
	opts    Options
	gen     uint64
	settled chan struct{}
	img     Image
	err     error
	ready   bool
}

// NewModal creates a modal for card. Nothing is generated until Open,
// SetAspectRatio or ShareNative.
func NewModal(card Card, d Dispatcher, opts ...ModalOption) *Modal {
	m := &Modal{card: card, dispatcher: d, opts: DefaultOptions()}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("share")
	}
	m.copied = NewCopiedIndicator(m.now)
	return m
}

// Card returns the card being rendered.
func (m *Modal) Card() Card { return m.card }

// Options returns the active options.
func (m *Modal) Options() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts
}

// Open starts the first generation if none has been started.
func (m *Modal) Open(ctx context.Context) error {
	m.mu.Lock()
	started := m.settled != nil
	m.mu.Unlock()
	if started {
		return nil
	}
	return m.SetOptions(ctx, m.Options())
}

// SetAspectRatio switches the aspect ratio and starts a fresh generation.
// The current image stops being ready immediately.
func (m *Modal) SetAspectRatio(ctx context.Context, a AspectRatio) error {
	o := m.Options()
	o.AspectRatio = a
	return m.SetOptions(ctx, o)
}

// SetOptions replaces all options and starts a fresh generation.
func (m *Modal) SetOptions(ctx context.Context, o Options) error {
	o, err := o.Normalize()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.opts = o
	m.gen++
	gen := m.gen
	// wake waiters of the superseded generation so they move to this one
	if m.settled != nil && !isClosed(m.settled) {
		close(m.settled)
	}
	m.settled = make(chan struct{})
	m.ready = false
	m.img = Image{}
	m.err = nil
	m.mu.Unlock()

	job := Job{
		ID:      uuid.NewString(),
		Card:    m.card,
		Options: o,
		Done:    func(img Image, err error) { m.resolve(gen, o.AspectRatio, img, err) },
	}
	m.logger.Debug(ctx, "image generation started",
		logger.String("job", job.ID),
		logger.String("aspect", string(o.AspectRatio)))

	// generation outlives the request that asked for it
	if !m.dispatcher.Dispatch(context.WithoutCancel(ctx), job) {
		m.resolve(gen, o.AspectRatio, Image{}, &GenerationError{Aspect: o.AspectRatio, Err: errDispatchRejected})
	}
	return nil
}

func (m *Modal) resolve(gen uint64, aspect AspectRatio, img Image, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || aspect != m.opts.AspectRatio {
		metrics.RecordStaleImage()
		m.logger.Debug(context.Background(), "stale image discarded", logger.String("aspect", string(aspect)))
		return
	}

	m.img, m.err = img, err
	m.ready = err == nil
	close(m.settled)
}

// Ready reports whether an image for the active options is available.
func (m *Modal) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// Image returns the current image if it is ready.
func (m *Modal) Image() (Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.img, m.ready
}

// Wait blocks until the current generation settles. A generation started
// while waiting is waited for as well.
func (m *Modal) Wait(ctx context.Context) (Image, error) {
	for {
		m.mu.Lock()
		ch := m.settled
		m.mu.Unlock()
		if ch == nil {
			return Image{}, ErrNotReady
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return Image{}, ctx.Err()
		}

		m.mu.Lock()
		if m.settled == ch {
			img, err := m.img, m.err
			m.mu.Unlock()
			return img, err
		}
		m.mu.Unlock()
	}
}

// current returns the ready image or ErrNotReady.
func (m *Modal) current() (Image, error) {
	img, ok := m.Image()
	if !ok {
		return Image{}, ErrNotReady
	}
	return img, nil
}

// Copy writes the ready image to clip.
func (m *Modal) Copy(ctx context.Context, clip ImageClipboard) error {
	img, err := m.current()
	if err != nil {
		return err
	}
	if err := CopyToClipboard(ctx, clip, img.MIME, img.Blob); err != nil {
		metrics.RecordShareAction("clipboard", outcome(err))
		m.logger.Warn(ctx, "copy image failed", logger.Error(err))
		return err
	}
	m.copied.Mark()
	metrics.RecordShareAction("clipboard", "ok")
	return nil
}

// Copied reports whether the copied indicator is on.
func (m *Modal) Copied() bool { return m.copied.On() }

// Filename is the download name for the ready image.
func (m *Modal) Filename() string {
	m.mu.Lock()
	ext := m.opts.Format.Ext()
	m.mu.Unlock()
	return Filename(m.card.PersonaName, ext)
}

// Download writes the ready image to w and returns its file name.
func (m *Modal) Download(w io.Writer) (string, error) {
	img, err := m.current()
	if err != nil {
		return "", err
	}
	if err := DownloadImage(w, img.DataURL); err != nil {
		metrics.RecordShareAction("download", "error")
		return "", err
	}
	metrics.RecordShareAction("download", "ok")
	return Filename(m.card.PersonaName, img.Format.Ext()), nil
}

// ShareNative opens the platform share sheet with the image attached,
// generating the image first if needed. A cancelled share is not an error
// and leaves the modal as it was.
func (m *Modal) ShareNative(ctx context.Context, sharer NativeSharer, p SharePayload) error {
	base := NativePayload{Title: p.Title, Text: p.Text, URL: p.URL}
	if sharer == nil || !sharer.CanShare(base) {
		metrics.RecordShareAction("native", "unsupported")
		return ErrUnsupported
	}

	img, err := m.ensureImage(ctx)
	if err != nil {
		return err
	}

	payload := base
	withFile := base
	withFile.Files = []File{{Name: Filename(m.card.PersonaName, img.Format.Ext()), MIME: img.MIME, Data: img.Blob}}
	if sharer.CanShare(withFile) {
		payload = withFile
	}

	err = sharer.Share(ctx, payload)
	switch {
	case err == nil:
		metrics.RecordShareAction("native", "ok")
		return nil
	case errors.Is(err, ErrShareCancelled):
		metrics.RecordShareAction("native", "cancelled")
		return nil
	default:
		metrics.RecordShareAction("native", "error")
		m.logger.Warn(ctx, "native share failed", logger.Error(err))
		return &ShareError{Err: err}
	}
}

// ensureImage returns the ready image, starting or retrying generation when
// there is none.
func (m *Modal) ensureImage(ctx context.Context) (Image, error) {
	m.mu.Lock()
	ready, img := m.ready, m.img
	idle := m.settled == nil || (m.err != nil && isClosed(m.settled))
	m.mu.Unlock()

	if ready {
		return img, nil
	}
	if idle {
		if err := m.SetOptions(ctx, m.Options()); err != nil {
			return Image{}, err
		}
	}
	return m.Wait(ctx)
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func outcome(err error) string {
	if errors.Is(err, ErrUnsupported) {
		return "unsupported"
	}
	return "error"
}
