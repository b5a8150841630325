package play

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/bethegolf/internal/adapters/bridge"
	"github.com/okian/bethegolf/internal/domain/assessment"
	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/pkg/logger"
)

// Client is the part of the scoring API a terminal run calls.
type Client interface {
	Start(ctx context.Context, locale string, d model.Demographics) (model.StartResult, error)
	Complete(ctx context.Context, sessionID, locale string, rs model.ResponseSet) (model.CompletionResult, error)
	PublicResult(ctx context.Context, token, locale string) (model.PublicResult, error)
}

// Begin starts a server session, hands its frames over through store and
// returns a loaded controller for them.
func Begin(ctx context.Context, c Client, store bridge.Store, cfg *Config, opts ...assessment.Option) (*assessment.Controller, error) {
	d, err := cfg.Demographics()
	if err != nil {
		return nil, err
	}

	started, err := c.Start(ctx, cfg.Locale, d)
	if err != nil {
		return nil, fmt.Errorf("start assessment: %w", err)
	}

	scope := uuid.NewString()
	if err := bridge.WriteFrames(ctx, store, scope, started.Frames); err != nil {
		return nil, fmt.Errorf("hand over frames: %w", err)
	}

	logger.Get().Debug(ctx, "assessment started",
		logger.String("session", started.Session.ID),
		logger.Int("frames", len(started.Frames)))

	ctrl := assessment.New(started.Session.ID, cfg.Locale, bridge.Scope{Store: store, ID: scope}, c, opts...)
	if err := ctrl.Load(ctx); err != nil {
		return nil, err
	}
	return ctrl, nil
}
