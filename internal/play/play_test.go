package play

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bethegolf/internal/adapters/bridge"
	"github.com/okian/bethegolf/internal/adapters/platform"
	"github.com/okian/bethegolf/internal/domain/assessment"
	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func frames() []model.Frame {
	return []model.Frame{
		{Index: 0, Options: []model.Option{{Key: "a", Text: "Attack the pin"}, {Key: "b", Text: "Play the percentages"}, {Key: "c", Text: "Keep it in play"}}},
		{Index: 1, Options: []model.Option{{Key: "d", Text: "Trust my swing"}, {Key: "e", Text: "Plan every shot"}, {Key: "f", Text: "Feel it out"}}},
	}
}

type fakeClient struct {
	mu        sync.Mutex
	failFirst bool
	completes int
	startErr  error
}

func (f *fakeClient) Start(_ context.Context, locale string, d model.Demographics) (model.StartResult, error) {
	if f.startErr != nil {
		return model.StartResult{}, f.startErr
	}
	return model.StartResult{
		Session: model.AssessmentSession{ID: "sess-1", PublicToken: "tok-1", FirstName: d.FirstName, Locale: locale},
		Frames:  frames(),
	}, nil
}

func (f *fakeClient) Complete(_ context.Context, sessionID, _ string, _ model.ResponseSet) (model.CompletionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	if f.failFirst && f.completes == 1 {
		return model.CompletionResult{}, errors.New("upstream down")
	}
	return model.CompletionResult{
		Session:  model.AssessmentSession{ID: sessionID, PublicToken: "tok-1", Persona: &model.Persona{Name: "Steady Eddie", Tagline: "Fairways and greens"}},
		ShareURL: "https://bethegolf.com/results/tok-1",
	}, nil
}

func (f *fakeClient) PublicResult(context.Context, string, string) (model.PublicResult, error) {
	return model.PublicResult{}, nil
}

type stubRasterizer struct{}

func (stubRasterizer) Name() string { return "stub" }

func (stubRasterizer) Rasterize(context.Context, share.Card, share.Options) (share.Raster, error) {
	return share.Raster{Data: []byte("\x89PNG-card"), Width: 10, Height: 10}, nil
}

type fakeImages struct {
	supported bool
	got       []byte
}

func (f *fakeImages) SupportsImages() bool { return f.supported }

func (f *fakeImages) WriteImage(_ context.Context, _ string, data []byte) error {
	f.got = data
	return nil
}

type fakeSharer struct{ got []share.NativePayload }

func (*fakeSharer) CanShare(share.NativePayload) bool { return true }

func (f *fakeSharer) Share(_ context.Context, p share.NativePayload) error {
	f.got = append(f.got, p)
	return nil
}

type fakeText struct{ got string }

func (*fakeText) Supported() bool { return true }

func (f *fakeText) WriteText(s string) error {
	f.got = s
	return nil
}

type fakeOpener struct{ got string }

func (f *fakeOpener) Open(u string) error {
	f.got = u
	return nil
}

func baseConfig() *Config {
	return &Config{APIBaseURL: "http://api.test", Locale: "en", Gender: "female", FirstName: "Ana"}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

func settle(m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	next, out := m.Update(cmd())
	return next.(Model), out
}

func TestConfig(t *testing.T) {
	Convey("Given terminal settings", t, func() {
		cfg := baseConfig()

		Convey("Then a complete config validates", func() {
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("Then gender is required", func() {
			cfg.Gender = " "
			So(cfg.Validate(), ShouldEqual, errNoGender)
		})

		Convey("Then a non-numeric handicap is rejected", func() {
			cfg.Handicap = "12abc"
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("Then demographics carry the optional fields", func() {
			cfg.Handicap = "7.5"
			d, err := cfg.Demographics()
			So(err, ShouldBeNil)
			So(*d.FirstName, ShouldEqual, "Ana")
			So(*d.Handicap, ShouldEqual, 7.5)
		})

		Convey("Then unknown image options and networks are rejected", func() {
			cfg.Aspect = "round"
			So(errors.Is(cfg.Validate(), share.ErrInvalidOptions), ShouldBeTrue)
			cfg.Aspect = ""
			cfg.ExtraAspects = []string{"panorama"}
			So(errors.Is(cfg.Validate(), share.ErrInvalidOptions), ShouldBeTrue)
			cfg.ExtraAspects = nil
			cfg.Open = "myspace"
			So(errors.Is(cfg.Validate(), share.ErrInvalidOptions), ShouldBeTrue)
		})
	})
}

func TestBegin(t *testing.T) {
	Convey("Given a scoring client", t, func() {
		ctx := context.Background()
		store := bridge.NewMemoryStore()

		Convey("When the session starts", func() {
			ctrl, err := Begin(ctx, &fakeClient{}, store, baseConfig())

			Convey("Then the controller sits on the first frame", func() {
				So(err, ShouldBeNil)
				snap := ctrl.Snapshot()
				So(snap.State, ShouldEqual, assessment.StateAtFrame)
				So(snap.FrameCount, ShouldEqual, 2)
				So(ctrl.SessionID(), ShouldEqual, "sess-1")
			})

			Convey("Then the handed over frames were read once", func() {
				So(store.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the start call fails", func() {
			_, err := Begin(ctx, &fakeClient{startErr: errors.New("boom")}, store, baseConfig())
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "start assessment")
		})
	})
}

func TestModel(t *testing.T) {
	Convey("Given a terminal view over a loaded assessment", t, func() {
		ctx := context.Background()
		client := &fakeClient{}
		ctrl, err := Begin(ctx, client, bridge.NewMemoryStore(), baseConfig())
		So(err, ShouldBeNil)
		m := NewModel(ctx, ctrl)

		Convey("When most and least are picked", func() {
			m, cmd := press(m, " ", "down", " ")

			Convey("Then the selection follows the cursor", func() {
				So(cmd, ShouldBeNil)
				sel := ctrl.Snapshot().Selection
				So(sel.Most, ShouldEqual, "a")
				So(sel.Least, ShouldEqual, "b")
				So(m.View(), ShouldContainSubstring, "enter next")
			})

			Convey("Then enter moves to the next frame", func() {
				m, cmd := press(m, "enter")
				So(cmd, ShouldNotBeNil)
				So(m.busy, ShouldBeTrue)

				m, cmd = settle(m, cmd)
				So(cmd, ShouldBeNil)
				So(m.busy, ShouldBeFalse)
				So(m.cursor, ShouldEqual, 0)
				So(ctrl.Snapshot().FrameIndex, ShouldEqual, 1)
			})
		})

		Convey("When enter is pressed with one slot filled", func() {
			m, cmd := press(m, " ", "enter")
			So(cmd, ShouldBeNil)
			So(m.busy, ShouldBeFalse)
		})

		Convey("When the last frame is finished", func() {
			m, cmd := press(m, " ", "down", " ", "enter")
			m, _ = settle(m, cmd)
			m, cmd = press(m, " ", "down", " ", "enter")
			_, cmd = settle(m, cmd)

			Convey("Then the program quits with a result", func() {
				So(cmd, ShouldNotBeNil)
				_, quit := cmd().(tea.QuitMsg)
				So(quit, ShouldBeTrue)
				_, ok := ctrl.Result()
				So(ok, ShouldBeTrue)
				So(client.completes, ShouldEqual, 1)
			})
		})

		Convey("When the submission fails", func() {
			client.failFirst = true
			m, cmd := press(m, " ", "down", " ", "enter")
			m, _ = settle(m, cmd)
			m, cmd = press(m, " ", "down", " ", "enter")
			m, cmd = settle(m, cmd)

			Convey("Then the error and the retry key are shown", func() {
				So(cmd, ShouldBeNil)
				view := m.View()
				So(view, ShouldContainSubstring, "upstream down")
				So(view, ShouldContainSubstring, "r retry")
			})

			Convey("Then retry resubmits the same answers", func() {
				m, cmd := press(m, "r")
				So(cmd, ShouldNotBeNil)
				_, cmd = settle(m, cmd)
				_, quit := cmd().(tea.QuitMsg)
				So(quit, ShouldBeTrue)
				So(client.completes, ShouldEqual, 2)
			})
		})

		Convey("When q is pressed", func() {
			m, cmd := press(m, "q")
			So(m.quit, ShouldBeTrue)
			_, quit := cmd().(tea.QuitMsg)
			So(quit, ShouldBeTrue)
		})
	})
}

func TestExport(t *testing.T) {
	Convey("Given a completed result", t, func() {
		ctx := context.Background()
		res := model.PublicResult{Assessment: model.AssessmentSession{
			PublicToken: "tok-1",
			Persona:     &model.Persona{Name: "Steady Eddie", Tagline: "Fairways and greens"},
		}}
		images := &fakeImages{supported: true}
		text := &fakeText{}
		opener := &fakeOpener{}
		exp := &Exporter{Rasterizer: stubRasterizer{}, Images: images, Text: text, Opener: opener}

		cfg := baseConfig()
		cfg.OutDir = t.TempDir()
		cfg.Copy = true
		cfg.CopyURL = true
		cfg.Open = "x"
		link := ShareURL("https://bethegolf.com/results/", "tok-1")

		Convey("When every channel is enabled", func() {
			rep, err := exp.Export(ctx, cfg, res, link)
			So(err, ShouldBeNil)

			Convey("Then the card is written under its persona file name", func() {
				So(filepath.Base(rep.File), ShouldEqual, share.Filename("Steady Eddie", "png"))
				data, err := os.ReadFile(rep.File)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "\x89PNG-card")
			})

			Convey("Then the image and the link reach the clipboards", func() {
				So(rep.Copied, ShouldBeTrue)
				So(string(images.got), ShouldEqual, "\x89PNG-card")
				So(rep.CopiedURL, ShouldBeTrue)
				So(text.got, ShouldEqual, "https://bethegolf.com/results/tok-1")
			})

			Convey("Then the share intent is opened", func() {
				So(opener.got, ShouldStartWith, "https://twitter.com/intent/tweet?")
				So(rep.Opened, ShouldEqual, opener.got)
			})
		})

		Convey("When the image clipboard is missing", func() {
			images.supported = false
			rep, err := exp.Export(ctx, cfg, res, link)

			Convey("Then the copy is skipped and nothing is written to it", func() {
				So(err, ShouldBeNil)
				So(rep.Copied, ShouldBeFalse)
				So(images.got, ShouldBeNil)
				So(rep.Skipped, ShouldContain, "image clipboard")
			})
		})

		Convey("When more layouts are requested", func() {
			cfg.ExtraAspects = []string{"vertical", "Landscape"}
			rep, err := exp.Export(ctx, cfg, res, link)

			Convey("Then each is written under its own directory after the primary card", func() {
				So(err, ShouldBeNil)
				name := share.Filename("Steady Eddie", "png")
				So(rep.File, ShouldEqual, filepath.Join(cfg.OutDir, name))
				So(rep.Extra, ShouldResemble, []string{
					filepath.Join(cfg.OutDir, "vertical", name),
					filepath.Join(cfg.OutDir, "landscape", name),
				})
				for _, f := range rep.Extra {
					_, statErr := os.Stat(f)
					So(statErr, ShouldBeNil)
				}
			})
		})

		Convey("When native share is requested on a desktop", func() {
			cfg.NativeShare = true
			exp.Sharer = platform.NoNativeShare{}
			rep, err := exp.Export(ctx, cfg, res, link)

			Convey("Then it is skipped like a missing clipboard", func() {
				So(err, ShouldBeNil)
				So(rep.Shared, ShouldBeFalse)
				So(rep.Skipped, ShouldContain, "native share")
				So(rep.Copied, ShouldBeTrue)
			})
		})

		Convey("When a share sheet is available", func() {
			cfg.NativeShare = true
			sharer := &fakeSharer{}
			exp.Sharer = sharer
			rep, err := exp.Export(ctx, cfg, res, link)

			Convey("Then the card is attached with the share link", func() {
				So(err, ShouldBeNil)
				So(rep.Shared, ShouldBeTrue)
				So(sharer.got, ShouldHaveLength, 1)
				So(sharer.got[0].URL, ShouldEqual, "https://bethegolf.com/results/tok-1")
				So(sharer.got[0].Files, ShouldHaveLength, 1)
				So(sharer.got[0].Files[0].Name, ShouldEqual, share.Filename("Steady Eddie", "png"))
			})
		})

		Convey("When the report is printed", func() {
			rep, err := exp.Export(ctx, cfg, res, link)
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			PrintReport(&buf, res, rep)

			So(buf.String(), ShouldContainSubstring, "Steady Eddie")
			So(buf.String(), ShouldContainSubstring, "card saved to")
			So(strings.Count(buf.String(), "share: "), ShouldEqual, 1)
		})
	})
}

func TestShareURL(t *testing.T) {
	Convey("Share links join base and token", t, func() {
		So(ShareURL("https://x.test/r/", "a b"), ShouldEqual, "https://x.test/r/a%20b")
		So(ShareURL("", "tok"), ShouldBeEmpty)
		So(ShareURL("https://x.test", ""), ShouldBeEmpty)
	})
}
