package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/bethegolf/internal/domain/share"
)

// Opener opens URLs in the default browser or mail client.
type Opener struct {
	runner Runner
	goos   string
}

// NewOpener creates an opener for goos.
func NewOpener(r Runner, goos string) *Opener {
	if r == nil {
		r = ExecRunner{}
	}
	return &Opener{runner: r, goos: goos}
}

// Open starts the platform handler for rawURL without waiting for it.
func (o *Opener) Open(rawURL string) error {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return errors.New("empty URL")
	}
	switch o.goos {
	case "windows":
		return o.runner.Start("rundll32", "url.dll,FileProtocolHandler", u)
	case "darwin":
		return o.runner.Start("open", u)
	default:
		if _, err := o.runner.LookPath("xdg-open"); err != nil {
			return fmt.Errorf("no opener command found (xdg-open): %w", err)
		}
		return o.runner.Start("xdg-open", u)
	}
}

// NoNativeShare is the share sheet of a platform that has none.
type NoNativeShare struct{}

func (NoNativeShare) CanShare(share.NativePayload) bool { return false }

func (NoNativeShare) Share(context.Context, share.NativePayload) error { return share.ErrUnsupported }
