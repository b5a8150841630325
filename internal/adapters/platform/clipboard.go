package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// imageTool is a command that puts an image on the clipboard.
type imageTool struct {
	name string
	args func(mime, path string) []string
	// file tools read from a temporary file instead of stdin
	file bool
}

var (
	wlCopy = imageTool{name: "wl-copy", args: func(mime, _ string) []string { return []string{"--type", mime} }}
	xclip  = imageTool{name: "xclip", args: func(mime, _ string) []string {
		return []string{"-selection", "clipboard", "-t", mime, "-i"}
	}}
	osascript = imageTool{name: "osascript", file: true, args: func(mime, path string) []string {
		class := "PNGf"
		if mime == "image/jpeg" {
			class = "JPEG"
		}
		return []string{"-e", fmt.Sprintf(`set the clipboard to (read (POSIX file %q) as «class %s»)`, path, class)}
	}}
)

// ExecClipboard writes images through the first available desktop tool.
type ExecClipboard struct {
	runner Runner
	goos   string
	env    func(string) string
}

// NewExecClipboard creates an image clipboard for goos ("linux", "darwin", ...).
func NewExecClipboard(r Runner, goos string) *ExecClipboard {
	if r == nil {
		r = ExecRunner{}
	}
	return &ExecClipboard{runner: r, goos: goos, env: os.Getenv}
}

func (c *ExecClipboard) candidates() []imageTool {
	switch c.goos {
	case "darwin":
		return []imageTool{osascript}
	case "windows":
		return nil
	default:
		if c.env("WAYLAND_DISPLAY") != "" {
			return []imageTool{wlCopy, xclip}
		}
		return []imageTool{xclip, wlCopy}
	}
}

func (c *ExecClipboard) tool() (imageTool, bool) {
	for _, t := range c.candidates() {
		if _, err := c.runner.LookPath(t.name); err == nil {
			return t, true
		}
	}
	return imageTool{}, false
}

// SupportsImages reports whether an image clipboard tool is installed.
func (c *ExecClipboard) SupportsImages() bool {
	_, ok := c.tool()
	return ok
}

// WriteImage puts data on the clipboard as mime.
func (c *ExecClipboard) WriteImage(ctx context.Context, mime string, data []byte) error {
	t, ok := c.tool()
	if !ok {
		return fmt.Errorf("no image clipboard tool for %s", c.goos)
	}
	if !t.file {
		return c.runner.Run(ctx, data, t.name, t.args(mime, "")...)
	}

	f, err := os.CreateTemp("", "bethegolf-*"+filepath.Ext("x."+mimeExt(mime)))
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return c.runner.Run(ctx, nil, t.name, t.args(mime, f.Name())...)
}

func mimeExt(mime string) string {
	if mime == "image/jpeg" {
		return "jpg"
	}
	return "png"
}

// TextClipboard copies plain text, such as the share link.
type TextClipboard struct{}

// Supported reports whether the system clipboard is reachable.
func (TextClipboard) Supported() bool { return !clipboard.Unsupported }

// WriteText copies s.
func (TextClipboard) WriteText(s string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("text clipboard unavailable")
	}
	return clipboardWriteAll(s)
}
