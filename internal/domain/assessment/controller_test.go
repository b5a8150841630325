package assessment_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/bethegolf/internal/domain/assessment"
	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeSubmitter records calls and fails while errs has entries.
type fakeSubmitter struct {
	mu    sync.Mutex
	calls []model.ResponseSet
	errs  []error
	block chan struct{}
}

func (f *fakeSubmitter) Complete(ctx context.Context, sessionID, locale string, rs model.ResponseSet) (model.CompletionResult, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rs)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return model.CompletionResult{}, err
	}
	return model.CompletionResult{
		Session:  model.AssessmentSession{ID: sessionID, PublicToken: "tok", Locale: locale},
		ShareURL: "https://bethegolf.com/results/tok",
	}, nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type netErr struct{}

func (netErr) Error() string        { return "connection refused" }
func (netErr) NetworkFailure() bool { return true }

func framesJSON(frames []model.Frame) assessment.FrameSource {
	raw, _ := json.Marshal(frames)
	return assessment.FrameSourceFunc(func(context.Context) ([]byte, error) { return raw, nil })
}

func twoFrames() []model.Frame {
	return []model.Frame{
		{Index: 0, Options: []model.Option{{Key: "o1", Text: "A"}, {Key: "o2", Text: "B"}}},
		{Index: 1, Options: []model.Option{{Key: "p1", Text: "C"}, {Key: "p2", Text: "D"}, {Key: "p3", Text: "E"}}},
	}
}

func loaded(sub *fakeSubmitter, opts ...assessment.Option) *assessment.Controller {
	c := assessment.New("s1", "en", framesJSON(twoFrames()), sub, opts...)
	So(c.Load(context.Background()), ShouldBeNil)
	return c
}

func TestController_Load(t *testing.T) {
	Convey("Given a frame source", t, func() {
		ctx := context.Background()

		Convey("When the payload is absent", func() {
			c := assessment.New("s1", "en", assessment.FrameSourceFunc(func(context.Context) ([]byte, error) {
				return nil, errors.New("not found")
			}), &fakeSubmitter{})
			err := c.Load(ctx)

			Convey("Then it fails with a missing load error", func() {
				So(errors.Is(err, assessment.ErrFramesMissing), ShouldBeTrue)
				So(errors.Is(err, assessment.ErrFramesMalformed), ShouldBeFalse)
				So(c.Snapshot().State, ShouldEqual, assessment.StateLoadError)
			})

			Convey("And selecting is refused", func() {
				So(c.Select("o1"), ShouldNotBeNil)
			})
		})

		Convey("When the payload is empty", func() {
			c := assessment.New("s1", "en", assessment.FrameSourceFunc(func(context.Context) ([]byte, error) {
				return []byte("  "), nil
			}), &fakeSubmitter{})

			So(errors.Is(c.Load(ctx), assessment.ErrFramesMissing), ShouldBeTrue)
		})

		Convey("When the payload is malformed", func() {
			c := assessment.New("s1", "en", assessment.FrameSourceFunc(func(context.Context) ([]byte, error) {
				return []byte(`[{"index":0,"options":[{"key":"only"}]}]`), nil
			}), &fakeSubmitter{})
			err := c.Load(ctx)

			Convey("Then it fails with a malformed load error", func() {
				var le *assessment.LoadError
				So(errors.As(err, &le), ShouldBeTrue)
				So(le.Kind, ShouldEqual, assessment.LoadMalformed)
				So(errors.Is(err, assessment.ErrFramesMalformed), ShouldBeTrue)
			})
		})

		Convey("When loaded twice", func() {
			reads := 0
			c := assessment.New("s1", "en", assessment.FrameSourceFunc(func(context.Context) ([]byte, error) {
				reads++
				raw, _ := json.Marshal(twoFrames())
				return raw, nil
			}), &fakeSubmitter{})
			So(c.Load(ctx), ShouldBeNil)
			So(c.Load(ctx), ShouldBeNil)

			Convey("Then the source is read once and the controller is at frame 0", func() {
				So(reads, ShouldEqual, 1)
				snap := c.Snapshot()
				So(snap.State, ShouldEqual, assessment.StateAtFrame)
				So(snap.FrameIndex, ShouldEqual, 0)
				So(snap.FrameCount, ShouldEqual, 2)
				So(snap.Selection, ShouldResemble, model.Selection{})
			})
		})

		Convey("When nothing was loaded yet", func() {
			c := assessment.New("s1", "en", framesJSON(twoFrames()), &fakeSubmitter{})

			Convey("Then the controller is not ready", func() {
				So(errors.Is(c.Select("o1"), assessment.ErrNotReady), ShouldBeTrue)
				So(c.Snapshot().State, ShouldEqual, assessment.StateLoading)
			})
		})
	})
}

func TestController_Select(t *testing.T) {
	Convey("Given a loaded controller", t, func() {
		c := loaded(&fakeSubmitter{})

		Convey("When o1 then o2 are selected", func() {
			So(c.Select("o1"), ShouldBeNil)
			So(c.Snapshot().Selection, ShouldResemble, model.Selection{Most: "o1"})
			So(c.CanAdvance(), ShouldBeFalse)
			So(c.Select("o2"), ShouldBeNil)

			Convey("Then most and least are filled and advancing is allowed", func() {
				So(c.Snapshot().Selection, ShouldResemble, model.Selection{Most: "o1", Least: "o2"})
				So(c.CanAdvance(), ShouldBeTrue)
			})
		})

		Convey("When o1 is selected twice", func() {
			So(c.Select("o1"), ShouldBeNil)
			So(c.Select("o1"), ShouldBeNil)

			Convey("Then both slots are cleared", func() {
				So(c.Snapshot().Selection, ShouldResemble, model.Selection{})
			})
		})

		Convey("When a key outside the frame is selected", func() {
			err := c.Select("p1")

			Convey("Then it is rejected and nothing changes", func() {
				So(errors.Is(err, assessment.ErrUnknownOption), ShouldBeTrue)
				So(c.Snapshot().Selection, ShouldResemble, model.Selection{})
			})
		})

		Convey("When advancing without both slots", func() {
			So(c.Select("o1"), ShouldBeNil)

			So(errors.Is(c.Advance(context.Background()), assessment.ErrCannotAdvance), ShouldBeTrue)
		})
	})
}

func TestController_Advance(t *testing.T) {
	Convey("Given two frames", t, func() {
		ctx := context.Background()
		sub := &fakeSubmitter{}
		c := loaded(sub)

		Convey("When frame 0 is answered and advanced", func() {
			So(c.Select("o1"), ShouldBeNil)
			So(c.Select("o2"), ShouldBeNil)
			So(c.Advance(ctx), ShouldBeNil)

			Convey("Then the response is recorded and the selection resets", func() {
				snap := c.Snapshot()
				So(snap.Responses, ShouldResemble, model.ResponseSet{{FrameIndex: 0, Most: "o1", Least: "o2"}})
				So(snap.FrameIndex, ShouldEqual, 1)
				So(snap.Selection, ShouldResemble, model.Selection{})
				So(snap.Frame.Options[0].Key, ShouldEqual, "p1")
				So(sub.callCount(), ShouldEqual, 0)
			})

			Convey("And the last frame submits exactly once", func() {
				So(c.Select("p3"), ShouldBeNil)
				So(c.Select("p1"), ShouldBeNil)
				So(c.Advance(ctx), ShouldBeNil)

				So(sub.callCount(), ShouldEqual, 1)
				So(sub.calls[0], ShouldResemble, model.ResponseSet{
					{FrameIndex: 0, Most: "o1", Least: "o2"},
					{FrameIndex: 1, Most: "p3", Least: "p1"},
				})

				snap := c.Snapshot()
				So(snap.State, ShouldEqual, assessment.StateCompleted)
				res, ok := c.Result()
				So(ok, ShouldBeTrue)
				So(res.Session.PublicToken, ShouldEqual, "tok")

				Convey("And nothing can be submitted again", func() {
					So(errors.Is(c.Advance(ctx), assessment.ErrCompleted), ShouldBeTrue)
					So(errors.Is(c.Retry(ctx), assessment.ErrCompleted), ShouldBeTrue)
					So(sub.callCount(), ShouldEqual, 1)
				})
			})
		})
	})
}

func TestController_SubmitFailure(t *testing.T) {
	Convey("Given a submitter that fails once", t, func() {
		ctx := context.Background()
		sub := &fakeSubmitter{errs: []error{errors.New("scores unavailable")}}
		c := loaded(sub)

		So(c.Select("o1"), ShouldBeNil)
		So(c.Select("o2"), ShouldBeNil)
		So(c.Advance(ctx), ShouldBeNil)
		So(c.Select("p2"), ShouldBeNil)
		So(c.Select("p3"), ShouldBeNil)

		err := c.Advance(ctx)

		Convey("Then the failure is surfaced and the last frame keeps its selection", func() {
			var se *assessment.SubmitError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Kind, ShouldEqual, assessment.SubmitServer)
			So(se.Message(), ShouldEqual, "scores unavailable")

			snap := c.Snapshot()
			So(snap.State, ShouldEqual, assessment.StateSubmitError)
			So(snap.FrameIndex, ShouldEqual, 1)
			So(snap.Selection, ShouldResemble, model.Selection{Most: "p2", Least: "p3"})
			So(snap.CanAdvance, ShouldBeTrue)
			So(c.Err(), ShouldEqual, err)
		})

		Convey("When the user retries", func() {
			So(c.Retry(ctx), ShouldBeNil)

			Convey("Then the identical response set is sent again", func() {
				So(sub.callCount(), ShouldEqual, 2)
				So(sub.calls[1], ShouldResemble, sub.calls[0])
				So(c.Snapshot().State, ShouldEqual, assessment.StateCompleted)
				So(c.Submits(), ShouldEqual, 2)
			})
		})

		Convey("When the user changes the answer instead", func() {
			So(c.Select("p1"), ShouldBeNil)

			Convey("Then retry is no longer offered and advance resubmits the new answer", func() {
				So(errors.Is(c.Retry(ctx), assessment.ErrNothingToRetry), ShouldBeTrue)
				So(c.Snapshot().Selection, ShouldResemble, model.Selection{Most: "p2", Least: "p1"})
				So(c.Advance(ctx), ShouldBeNil)
				So(sub.calls[1][1], ShouldResemble, model.Response{FrameIndex: 1, Most: "p2", Least: "p1"})
			})
		})
	})

	Convey("Given a transport failure", t, func() {
		sub := &fakeSubmitter{errs: []error{netErr{}}}
		c := loaded(sub)
		for _, k := range []string{"o1", "o2"} {
			So(c.Select(k), ShouldBeNil)
		}
		So(c.Advance(context.Background()), ShouldBeNil)
		for _, k := range []string{"p1", "p2"} {
			So(c.Select(k), ShouldBeNil)
		}

		err := c.Advance(context.Background())

		Convey("Then the error is classified as network", func() {
			var se *assessment.SubmitError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Kind, ShouldEqual, assessment.SubmitNetwork)
		})
	})

	Convey("Given no failure yet", t, func() {
		c := loaded(&fakeSubmitter{})

		So(errors.Is(c.Retry(context.Background()), assessment.ErrNothingToRetry), ShouldBeTrue)
	})
}

func TestController_NoDoubleSubmit(t *testing.T) {
	Convey("Given a submission in flight", t, func() {
		ctx := context.Background()
		sub := &fakeSubmitter{block: make(chan struct{})}
		c := loaded(sub)
		for _, k := range []string{"o1", "o2"} {
			So(c.Select(k), ShouldBeNil)
		}
		So(c.Advance(ctx), ShouldBeNil)
		for _, k := range []string{"p1", "p2"} {
			So(c.Select(k), ShouldBeNil)
		}

		done := make(chan error, 1)
		go func() { done <- c.Advance(ctx) }()

		// wait for the Submitting state
		deadline := time.Now().Add(2 * time.Second)
		for c.Snapshot().State != assessment.StateSubmitting && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}

		Convey("Then every other action is refused until it settles", func() {
			So(c.Snapshot().State, ShouldEqual, assessment.StateSubmitting)
			So(errors.Is(c.Advance(ctx), assessment.ErrSubmitting), ShouldBeTrue)
			So(errors.Is(c.Retry(ctx), assessment.ErrSubmitting), ShouldBeTrue)
			So(errors.Is(c.Select("p3"), assessment.ErrSubmitting), ShouldBeTrue)
			So(c.CanAdvance(), ShouldBeFalse)

			close(sub.block)
			So(<-done, ShouldBeNil)
			So(sub.callCount(), ShouldEqual, 1)
		})
	})
}

func TestController_MinProcessing(t *testing.T) {
	Convey("Given a minimum processing time", t, func() {
		c := loaded(&fakeSubmitter{}, assessment.WithMinProcessing(40*time.Millisecond))
		for _, k := range []string{"o1", "o2"} {
			So(c.Select(k), ShouldBeNil)
		}
		So(c.Advance(context.Background()), ShouldBeNil)
		for _, k := range []string{"p1", "p2"} {
			So(c.Select(k), ShouldBeNil)
		}

		start := time.Now()
		So(c.Advance(context.Background()), ShouldBeNil)

		Convey("Then the outcome is not reported before it elapses", func() {
			So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 40*time.Millisecond)
		})
	})
}

func TestState_String(t *testing.T) {
	Convey("States have stable names", t, func() {
		So(assessment.StateAtFrame.String(), ShouldEqual, "at_frame")
		So(assessment.StateSubmitError.String(), ShouldEqual, "submit_error")
		So(assessment.State(42).String(), ShouldEqual, "state(42)")
	})
}
