package platform

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/okian/bethegolf/internal/domain/share"

	. "github.com/smartystreets/goconvey/convey"
)

type call struct {
	name  string
	args  []string
	stdin []byte
	file  []byte
}

type fakeRunner struct {
	installed map[string]bool
	runErr    error
	runs      []call
	starts    []call
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.installed[name] {
		return "/usr/bin/" + name, nil
	}
	return "", errors.New("not found")
}

func (f *fakeRunner) Run(_ context.Context, stdin []byte, name string, args ...string) error {
	c := call{name: name, args: args, stdin: stdin}
	// capture the temp file before it is removed
	for _, a := range args {
		if i := strings.Index(a, "POSIX file \""); i >= 0 {
			path := a[i+len("POSIX file \""):]
			path = path[:strings.Index(path, "\"")]
			c.file, _ = os.ReadFile(path)
		}
	}
	f.runs = append(f.runs, c)
	return f.runErr
}

func (f *fakeRunner) Start(name string, args ...string) error {
	f.starts = append(f.starts, call{name: name, args: args})
	return nil
}

func TestExecClipboard(t *testing.T) {
	ctx := context.Background()

	Convey("Given a linux desktop", t, func() {
		r := &fakeRunner{installed: map[string]bool{}}
		c := NewExecClipboard(r, "linux")
		c.env = func(string) string { return "" }

		Convey("When no tool is installed", func() {
			So(c.SupportsImages(), ShouldBeFalse)
			So(c.WriteImage(ctx, "image/png", []byte("png")), ShouldNotBeNil)
			So(r.runs, ShouldBeEmpty)
		})

		Convey("When xclip is installed", func() {
			r.installed["xclip"] = true
			So(c.SupportsImages(), ShouldBeTrue)
			So(c.WriteImage(ctx, "image/png", []byte("png")), ShouldBeNil)

			Convey("Then the image is piped with its MIME type", func() {
				So(r.runs, ShouldHaveLength, 1)
				So(r.runs[0].name, ShouldEqual, "xclip")
				So(r.runs[0].args, ShouldContain, "image/png")
				So(string(r.runs[0].stdin), ShouldEqual, "png")
			})
		})

		Convey("When running under Wayland with both tools", func() {
			r.installed["xclip"] = true
			r.installed["wl-copy"] = true
			c.env = func(k string) string {
				if k == "WAYLAND_DISPLAY" {
					return "wayland-0"
				}
				return ""
			}
			So(c.WriteImage(ctx, "image/jpeg", []byte("jpg")), ShouldBeNil)
			So(r.runs[0].name, ShouldEqual, "wl-copy")
			So(r.runs[0].args, ShouldResemble, []string{"--type", "image/jpeg"})
		})

		Convey("When the tool fails", func() {
			r.installed["xclip"] = true
			r.runErr = errors.New("exit status 1")
			So(c.WriteImage(ctx, "image/png", []byte("png")), ShouldNotBeNil)
		})
	})

	Convey("Given macOS", t, func() {
		r := &fakeRunner{installed: map[string]bool{"osascript": true}}
		c := NewExecClipboard(r, "darwin")

		So(c.WriteImage(ctx, "image/png", []byte("png-bytes")), ShouldBeNil)

		Convey("Then the image goes through a temporary file", func() {
			So(r.runs, ShouldHaveLength, 1)
			So(r.runs[0].stdin, ShouldBeNil)
			So(r.runs[0].args[1], ShouldContainSubstring, "«class PNGf»")
			So(string(r.runs[0].file), ShouldEqual, "png-bytes")
		})
	})

	Convey("Given windows", t, func() {
		c := NewExecClipboard(&fakeRunner{installed: map[string]bool{"xclip": true}}, "windows")
		So(c.SupportsImages(), ShouldBeFalse)
	})

	Convey("The exec clipboard drives share.CopyToClipboard", t, func() {
		r := &fakeRunner{installed: map[string]bool{}}
		c := NewExecClipboard(r, "linux")
		c.env = func(string) string { return "" }

		err := share.CopyToClipboard(ctx, c, "image/png", []byte("png"))
		So(errors.Is(err, share.ErrUnsupported), ShouldBeTrue)
	})
}

func TestTextClipboard(t *testing.T) {
	Convey("Given a stubbed system clipboard", t, func() {
		var got string
		orig := clipboardWriteAll
		clipboardWriteAll = func(s string) error {
			got = s
			return nil
		}
		defer func() { clipboardWriteAll = orig }()

		tc := TextClipboard{}
		if !tc.Supported() {
			SkipSo(tc.WriteText("x"), ShouldBeNil)
			return
		}

		So(tc.WriteText("https://bethegolf.com/r/abc"), ShouldBeNil)
		So(got, ShouldEqual, "https://bethegolf.com/r/abc")
	})
}

func TestOpener(t *testing.T) {
	Convey("Given an opener", t, func() {
		r := &fakeRunner{installed: map[string]bool{}}

		Convey("When the URL is blank", func() {
			So(NewOpener(r, "linux").Open("  "), ShouldNotBeNil)
		})

		Convey("When on linux without xdg-open", func() {
			So(NewOpener(r, "linux").Open("https://x.test"), ShouldNotBeNil)
			So(r.starts, ShouldBeEmpty)
		})

		Convey("When on linux with xdg-open", func() {
			r.installed["xdg-open"] = true
			So(NewOpener(r, "linux").Open("https://x.test"), ShouldBeNil)
			So(r.starts[0].name, ShouldEqual, "xdg-open")
		})

		Convey("When on darwin", func() {
			So(NewOpener(r, "darwin").Open("mailto:?subject=hi"), ShouldBeNil)
			So(r.starts[0].name, ShouldEqual, "open")
		})

		Convey("When on windows", func() {
			So(NewOpener(r, "windows").Open("https://x.test"), ShouldBeNil)
			So(r.starts[0].name, ShouldEqual, "rundll32")
			So(r.starts[0].args[1], ShouldEqual, "https://x.test")
		})
	})
}

func TestNoNativeShare(t *testing.T) {
	Convey("A platform without a share sheet reports unsupported", t, func() {
		var s NoNativeShare
		So(s.CanShare(share.NativePayload{}), ShouldBeFalse)
		So(errors.Is(s.Share(context.Background(), share.NativePayload{}), share.ErrUnsupported), ShouldBeTrue)
	})
}
