package play

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/pkg/logger"
)

// TextClipboard puts plain text on the clipboard.
type TextClipboard interface {
	Supported() bool
	WriteText(s string) error
}

// URLOpener opens a link with the desktop's default handler.
type URLOpener interface {
	Open(rawURL string) error
}

// Exporter sends a finished result to the configured share channels.
type Exporter struct {
	Rasterizer share.Rasterizer
	Images     share.ImageClipboard
	Sharer     share.NativeSharer
	Text       TextClipboard
	Opener     URLOpener
}

// Report lists what an export did.
type Report struct {
	File      string
	Extra     []string // cards written for ExtraAspects
	Copied    bool
	Shared    bool
	CopiedURL bool
	Opened    string
	ShareURL  string
	Skipped   []string
}

// ShareURL returns the public page of token under base.
func ShareURL(base, token string) string {
	if token == "" || base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(token)
}

// Export renders the result card and runs every channel cfg enables. A
// channel the platform lacks is skipped and noted, not failed.
func (e *Exporter) Export(ctx context.Context, cfg *Config, res model.PublicResult, shareURL string) (Report, error) {
	log := logger.Get().Named("play")
	rep := Report{ShareURL: shareURL}

	opts, err := cfg.Options()
	if err != nil {
		return rep, err
	}
	card := share.BuildCard(res)
	modal := share.NewModal(card, share.InlineDispatcher{Rasterizer: e.Rasterizer},
		share.WithOptions(opts), share.WithModalLogger(log))
	if err := modal.Open(ctx); err != nil {
		return rep, err
	}
	if _, err := modal.Wait(ctx); err != nil {
		return rep, err
	}

	if cfg.OutDir != "" {
		path, err := writeCard(cfg.OutDir, modal)
		if err != nil {
			return rep, err
		}
		rep.File = path
	}

	if cfg.Copy {
		switch err := modal.Copy(ctx, e.Images); {
		case err == nil:
			rep.Copied = true
		case errors.Is(err, share.ErrUnsupported):
			rep.Skipped = append(rep.Skipped, "image clipboard")
		default:
			return rep, err
		}
	}

	payload := share.NewPayload(card, shareURL)

	if cfg.NativeShare {
		switch err := modal.ShareNative(ctx, e.Sharer, payload); {
		case err == nil:
			rep.Shared = true
		case errors.Is(err, share.ErrUnsupported):
			rep.Skipped = append(rep.Skipped, "native share")
		default:
			return rep, err
		}
	}

	if cfg.CopyURL && shareURL != "" {
		if e.Text == nil || !e.Text.Supported() {
			rep.Skipped = append(rep.Skipped, "text clipboard")
		} else if err := e.Text.WriteText(shareURL); err != nil {
			return rep, fmt.Errorf("copy link: %w", err)
		} else {
			rep.CopiedURL = true
		}
	}

	if cfg.Open != "" {
		link, err := share.Link(share.Network(cfg.Open), payload)
		if err != nil {
			return rep, err
		}
		if err := e.Opener.Open(link); err != nil {
			return rep, fmt.Errorf("open %s: %w", cfg.Open, err)
		}
		rep.Opened = link
	}

	// the other layouts reuse the modal, so the channels above keep the
	// primary aspect
	for _, a := range cfg.ExtraAspects {
		path, err := e.switchAspect(ctx, modal, share.AspectRatio(a), cfg.OutDir)
		if err != nil {
			return rep, err
		}
		if path != "" {
			rep.Extra = append(rep.Extra, path)
		}
	}

	log.Info(ctx, "result exported",
		logger.String("file", rep.File),
		logger.Bool("copied", rep.Copied),
		logger.String("opened", cfg.Open))
	return rep, nil
}

func (e *Exporter) switchAspect(ctx context.Context, modal *share.Modal, a share.AspectRatio, outDir string) (string, error) {
	if err := modal.SetAspectRatio(ctx, a); err != nil {
		return "", err
	}
	img, err := modal.Wait(ctx)
	if err != nil {
		return "", err
	}
	if outDir == "" {
		return "", nil
	}
	return writeCard(filepath.Join(outDir, string(img.AspectRatio)), modal)
}

func writeCard(dir string, modal *share.Modal) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, modal.Filename())
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := modal.Download(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	return path, f.Close()
}
