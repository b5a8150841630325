// Package assessment drives a user through forced-choice frames and submits
// the collected responses exactly once per successful traversal.
package assessment

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/pkg/logger"
	"github.com/okian/bethegolf/pkg/metrics"
)

// State is the controller's position in the flow.
type State int

// Controller states. SubmitError behaves like AtFrame on the last frame with
// the selection kept.
const (
	StateLoading State = iota
	StateLoadError
	StateAtFrame
	StateSubmitting
	StateCompleted
	StateSubmitError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoadError:
		return "load_error"
	case StateAtFrame:
		return "at_frame"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateSubmitError:
		return "submit_error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FrameSource yields the raw JSON frame payload handed over by the start step.
// An error or an empty payload means the frames are missing.
type FrameSource interface {
	Frames(ctx context.Context) ([]byte, error)
}

// FrameSourceFunc adapts a function to FrameSource.
type FrameSourceFunc func(ctx context.Context) ([]byte, error)

// Frames calls f.
func (f FrameSourceFunc) Frames(ctx context.Context) ([]byte, error) { return f(ctx) }

// Submitter completes an assessment session with its responses.
type Submitter interface {
	Complete(ctx context.Context, sessionID, locale string, rs model.ResponseSet) (model.CompletionResult, error)
}

// Snapshot is a read-only view of the controller.
type Snapshot struct {
	State      State
	FrameIndex int
	FrameCount int
	Frame      *model.Frame
	Selection  model.Selection
	CanAdvance bool
	Responses  model.ResponseSet
	Err        error
	Result     *model.CompletionResult
}

// Controller owns the frames, the per-frame selection and the response set of
// one assessment attempt. It is safe for concurrent use.
type Controller struct {
	sessionID string
	locale    string
	source    FrameSource
	submitter Submitter

	minProcessing time.Duration
	logger        logger.Logger

	loadOnce sync.Once

	mu        sync.Mutex
	state     State
	frames    []model.Frame
	index     int
	selection model.Selection
	responses model.ResponseSet
	loadErr   error
	lastErr   error
	result    *model.CompletionResult
	submits   int
}

// New creates a controller in the Loading state. Call Load before anything else.
func New(sessionID, locale string, source FrameSource, submitter Submitter, opts ...Option) *Controller {
	c := &Controller{
		sessionID: sessionID,
		locale:    locale,
		source:    source,
		submitter: submitter,
		state:     StateLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("assessment")
	}
	c.logger = c.logger.With(logger.String("session", sessionID))
	return c
}

// Load reads the frames once. Later calls return the first outcome without
// touching the source again; a failed load is final for this controller.
func (c *Controller) Load(ctx context.Context) error {
	c.loadOnce.Do(func() { c.load(ctx) })

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

func (c *Controller) load(ctx context.Context) {
	raw, err := c.source.Frames(ctx)

	var (
		frames []model.Frame
		failed *LoadError
	)
	switch {
	case err != nil || len(bytes.TrimSpace(raw)) == 0:
		failed = &LoadError{Kind: LoadMissing, Err: err}
	default:
		frames, err = model.DecodeFrames(raw)
		if err != nil {
			failed = &LoadError{Kind: LoadMalformed, Err: err}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if failed != nil {
		c.state = StateLoadError
		c.loadErr = failed
		metrics.RecordLoadError(string(failed.Kind))
		c.logger.Warn(ctx, "frames unavailable", logger.Error(failed))
		return
	}

	c.frames = frames
	c.index = 0
	c.selection = model.Selection{}
	c.state = StateAtFrame
	metrics.RecordAttemptLoaded()
	c.logger.Debug(ctx, "frames loaded", logger.Int("frames", len(frames)))
}

// Select applies one pick to the current frame's selection.
func (c *Controller) Select(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.interactiveLocked(); err != nil {
		return err
	}
	if !c.frames[c.index].Has(key) {
		return fmt.Errorf("%w: %q", ErrUnknownOption, key)
	}

	c.selection = NextSelection(c.selection, key)
	if c.state == StateSubmitError {
		// A changed answer has to go through Advance again.
		c.state = StateAtFrame
		c.lastErr = nil
	}
	metrics.RecordSelection()
	return nil
}

// CanAdvance reports whether both slots of the current frame are filled.
func (c *Controller) CanAdvance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canAdvanceLocked()
}

func (c *Controller) canAdvanceLocked() bool {
	return (c.state == StateAtFrame || c.state == StateSubmitError) && c.selection.Complete()
}

// Advance records the current frame's response. On the last frame it submits
// the full response set and returns the submission outcome.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	if err := c.interactiveLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.selection.Complete() {
		c.mu.Unlock()
		return ErrCannotAdvance
	}

	c.responses = c.responses.Set(model.Response{
		FrameIndex: c.index,
		Most:       c.selection.Most,
		Least:      c.selection.Least,
	})
	metrics.RecordAdvance()

	if c.index < len(c.frames)-1 {
		c.index++
		c.selection = model.Selection{}
		c.logger.Debug(ctx, "frame advanced", logger.Int("frame", c.index))
		c.mu.Unlock()
		return nil
	}

	rs := c.beginSubmitLocked()
	c.mu.Unlock()
	return c.submit(ctx, rs)
}

// Retry re-submits the same response set after a failed submission.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateSubmitError:
	case StateSubmitting:
		c.mu.Unlock()
		return ErrSubmitting
	case StateCompleted:
		c.mu.Unlock()
		return ErrCompleted
	default:
		c.mu.Unlock()
		return ErrNothingToRetry
	}
	rs := c.beginSubmitLocked()
	c.mu.Unlock()
	return c.submit(ctx, rs)
}

func (c *Controller) beginSubmitLocked() model.ResponseSet {
	c.state = StateSubmitting
	c.lastErr = nil
	return c.responses.Clone()
}

// submit runs outside the lock; the Submitting state keeps every other
// mutation out until it settles.
func (c *Controller) submit(ctx context.Context, rs model.ResponseSet) error {
	start := time.Now()
	c.logger.Info(ctx, "submitting responses", logger.Int("responses", len(rs)))

	res, err := c.submitter.Complete(ctx, c.sessionID, c.locale, rs)
	metrics.RecordSubmitLatency(metrics.Since(start))

	if wait := c.minProcessing - time.Since(start); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++

	if err != nil {
		c.state = StateSubmitError
		c.lastErr = newSubmitError(err)
		metrics.RecordSubmission("error")
		c.logger.Warn(ctx, "submission failed", logger.Int("submits", c.submits), logger.Error(err))
		return c.lastErr
	}

	c.state = StateCompleted
	c.result = &res
	metrics.RecordSubmission("ok")
	metrics.RecordAttemptCompleted()
	c.logger.Info(ctx, "assessment completed", logger.Duration("elapsed", time.Since(start)))
	return nil
}

// interactiveLocked returns nil when the user may change the selection.
func (c *Controller) interactiveLocked() error {
	switch c.state {
	case StateAtFrame, StateSubmitError:
		return nil
	case StateSubmitting:
		return ErrSubmitting
	case StateCompleted:
		return ErrCompleted
	case StateLoadError:
		return c.loadErr
	default:
		return ErrNotReady
	}
}

// Result returns the completion result once the controller is Completed.
func (c *Controller) Result() (model.CompletionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return model.CompletionResult{}, false
	}
	return *c.result, true
}

// Err returns the load error or the last submission error.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return c.loadErr
	}
	return c.lastErr
}

// Submits returns how many times the submitter was called.
func (c *Controller) Submits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submits
}

// SessionID returns the server session this controller completes.
func (c *Controller) SessionID() string { return c.sessionID }

// Locale returns the locale used for submission.
func (c *Controller) Locale() string { return c.locale }

// Snapshot returns a copy of the controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:      c.state,
		FrameIndex: c.index,
		FrameCount: len(c.frames),
		Selection:  c.selection,
		CanAdvance: c.canAdvanceLocked(),
		Responses:  c.responses.Clone(),
		Err:        c.lastErr,
	}
	if c.loadErr != nil {
		s.Err = c.loadErr
	}
	if c.index < len(c.frames) {
		f := c.frames[c.index]
		s.Frame = &f
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	return s
}
