// Command play takes the playing-style assessment in a terminal and exports
// the resulting share card.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/bethegolf/internal/adapters/bridge"
	"github.com/okian/bethegolf/internal/adapters/browser"
	"github.com/okian/bethegolf/internal/adapters/platform"
	"github.com/okian/bethegolf/internal/adapters/scoringapi"
	"github.com/okian/bethegolf/internal/domain/assessment"
	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/internal/play"
	"github.com/okian/bethegolf/pkg/logger"
)

const (
	defaultAPI       = "http://localhost:8000"
	defaultShareBase = "https://bethegolf.com/results"
	defaultTimeout   = 30 * time.Second
	logFilePerm      = 0o600
)

type flags struct {
	cfg        play.Config
	logFile    string
	logLevel   string
	rasterizer string
	browserBin string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "play",
		Short: "Find your golf playing style from the terminal",
		Long: `Walks through the forced-choice questions, picking the option MOST and
LEAST like you on each, then builds your playing-style card.

The card can be written to a directory, copied to the clipboard and shared
through a social network's share page.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(f.logFile, f.logLevel)
		},
		PersistentPostRun: func(*cobra.Command, []string) { _ = logger.Sync() },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAssessment(cmd.Context(), f, in, out)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.cfg.APIBaseURL, "api", defaultAPI, "scoring API base URL")
	pf.StringVar(&f.cfg.Locale, "locale", "en", "locale for questions and results")
	pf.DurationVar(&f.cfg.Timeout, "timeout", defaultTimeout, "per-request timeout")
	pf.StringVar(&f.cfg.Aspect, "aspect", "square", "card layout: square, vertical or landscape")
	pf.Float64Var(&f.cfg.Scale, "scale", share.DefaultScale, "card pixel scale")
	pf.StringVar(&f.cfg.Format, "format", "png", "card format: png or jpeg")
	pf.StringVar(&f.cfg.OutDir, "out", ".", "directory for the card file; empty to skip")
	pf.StringVar(&f.cfg.ShareBaseURL, "share-base", defaultShareBase, "result page prefix for share links")
	pf.StringSliceVar(&f.cfg.ExtraAspects, "also-aspect", nil, "also render these layouts, each into <out>/<aspect>")
	pf.BoolVar(&f.cfg.NativeShare, "native-share", false, "hand the card to the platform share sheet")
	pf.BoolVar(&f.cfg.Copy, "copy", false, "copy the card image to the clipboard")
	pf.BoolVar(&f.cfg.CopyURL, "copy-link", false, "copy the share link to the clipboard")
	pf.StringVar(&f.cfg.Open, "open", "", "open a share page: facebook, x, linkedin, whatsapp, reddit or email")
	pf.StringVar(&f.rasterizer, "rasterizer", "draw", "card renderer: draw or browser")
	pf.StringVar(&f.browserBin, "browser-bin", "", "browser binary for the browser renderer")
	pf.StringVar(&f.logFile, "log-file", "", "write logs to this file")
	pf.StringVar(&f.logLevel, "log-level", "info", "log level")

	fl := root.Flags()
	fl.StringVar(&f.cfg.FirstName, "first-name", "", "first name shown on the card")
	fl.StringVar(&f.cfg.Gender, "gender", "", "gender (required)")
	fl.StringVar(&f.cfg.Handicap, "handicap", "", "handicap index")

	root.AddCommand(newCardCmd(f, out))
	return root
}

func newCardCmd(f *flags, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "card <token>",
		Short: "Build the card of an already completed assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newClient(&f.cfg)
			if err != nil {
				return err
			}
			res, err := client.PublicResult(ctx, args[0], f.cfg.Locale)
			if err != nil {
				return err
			}
			return export(ctx, f, res, play.ShareURL(f.cfg.ShareBaseURL, args[0]), out)
		},
	}
}

// setupLogging keeps log lines off the terminal the view draws on.
func setupLogging(path, level string) error {
	var w io.Writer = io.Discard
	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		w = file
	}
	if err := logger.Init(logger.WithOutput(w)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.SetLevelString(level)
}

func newClient(cfg *play.Config) (*scoringapi.Client, error) {
	return scoringapi.New(cfg.APIBaseURL,
		scoringapi.WithTimeout(cfg.Timeout),
		scoringapi.WithLogger(logger.Get().Named("scoringapi")),
	)
}

func runAssessment(ctx context.Context, f *flags, in io.Reader, out io.Writer) error {
	if err := f.cfg.Validate(); err != nil {
		return err
	}
	client, err := newClient(&f.cfg)
	if err != nil {
		return err
	}

	ctrl, err := play.Begin(ctx, client, bridge.NewMemoryStore(), &f.cfg,
		assessment.WithLogger(logger.Get().Named("assessment")))
	if err != nil {
		return err
	}

	done, err := play.Run(ctx, ctrl, in, out)
	if err != nil {
		return err
	}

	link := done.ShareURL
	if link == "" {
		link = play.ShareURL(f.cfg.ShareBaseURL, done.Session.PublicToken)
	}
	return export(ctx, f, model.PublicResultFrom(done), link, out)
}

func export(ctx context.Context, f *flags, res model.PublicResult, link string, out io.Writer) error {
	if _, err := f.cfg.Options(); err != nil {
		return err
	}
	for _, a := range f.cfg.ExtraAspects {
		if _, err := share.ParseAspectRatio(a); err != nil {
			return err
		}
	}
	r, closeFn, err := newRasterizer(f)
	if err != nil {
		return err
	}
	defer closeFn()

	runner := platform.ExecRunner{}
	exp := &play.Exporter{
		Rasterizer: r,
		Images:     platform.NewExecClipboard(runner, runtime.GOOS),
		Sharer:     platform.NoNativeShare{},
		Text:       platform.TextClipboard{},
		Opener:     platform.NewOpener(runner, runtime.GOOS),
	}
	rep, err := exp.Export(ctx, &f.cfg, res, link)
	if err != nil {
		return err
	}
	play.PrintReport(out, res, rep)
	return nil
}

func newRasterizer(f *flags) (share.Rasterizer, func(), error) {
	if f.rasterizer == "browser" {
		r := browser.New(browser.WithBin(f.browserBin), browser.WithLogger(logger.Get().Named("browser")))
		return r, func() { _ = r.Close() }, nil
	}
	r, err := share.NewDrawRasterizer()
	if err != nil {
		return nil, nil, err
	}
	return r, func() {}, nil
}
