package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bethegolf/internal/adapters/bridge"
	"github.com/okian/bethegolf/internal/adapters/repository"
	"github.com/okian/bethegolf/internal/domain/assessment"
	"github.com/okian/bethegolf/internal/domain/dedupe"
	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/internal/domain/types"
	"github.com/okian/bethegolf/pkg/logger"
	"github.com/okian/bethegolf/pkg/metrics"
)

// guardedSubmitter lets each server session complete at most once. A failed
// completion is forgotten so the user can retry it.
type guardedSubmitter struct {
	next    ScoringClient
	deduper dedupe.Deduper
	onDone  func(ctx context.Context, locale string, res model.CompletionResult)
}

func (g *guardedSubmitter) Complete(ctx context.Context, sessionID, locale string, rs model.ResponseSet) (model.CompletionResult, error) {
	if g.deduper.SeenAndRecord(ctx, sessionID) {
		return model.CompletionResult{}, fmt.Errorf("session %s: %w", sessionID, ErrAlreadySubmitted)
	}
	res, err := g.next.Complete(ctx, sessionID, locale, rs)
	if err != nil {
		g.deduper.Unrecord(ctx, sessionID)
		return model.CompletionResult{}, err
	}
	if g.onDone != nil {
		g.onDone(ctx, locale, res)
	}
	return res, nil
}

// StartAssessment creates a server session and an attempt that walks its
// frames. The frames travel through the bridge and are read exactly once.
// A load failure still registers the attempt so its error can be shown.
func (s *Service) StartAssessment(ctx context.Context, locale string, d model.Demographics) (types.AttemptView, error) {
	if err := s.running(); err != nil {
		return types.AttemptView{}, err
	}
	if strings.TrimSpace(d.Gender) == "" {
		return types.AttemptView{}, fmt.Errorf("%w: gender is required", ErrInvalidInput)
	}
	locale = s.locale(locale)

	started, err := s.client.Start(ctx, locale, d)
	if err != nil {
		s.logger.Warn(ctx, "assessment start failed", logger.Error(err))
		return types.AttemptView{}, err
	}

	id := uuid.NewString()
	if err := s.handOver(ctx, id, started.Frames); err != nil {
		s.logger.Error(ctx, "frames not handed over", logger.String("attempt", id), logger.Error(err))
		return types.AttemptView{}, err
	}

	ctrl := assessment.New(started.Session.ID, locale,
		bridge.Scope{Store: s.bridge, ID: id},
		&guardedSubmitter{next: s.client, deduper: s.deduper, onDone: s.rememberCompletion},
		assessment.WithMinProcessing(s.minProcessing),
		assessment.WithLogger(s.logger.Named("assessment")),
	)
	a := &repository.Attempt{
		ID:         id,
		SessionID:  started.Session.ID,
		Locale:     locale,
		CreatedAt:  time.Now(),
		Controller: ctrl,
	}
	s.attempts.Put(ctx, a)
	metrics.RecordAttemptStarted()

	loadErr := ctrl.Load(ctx)
	s.logger.Info(ctx, "attempt started",
		logger.String("attempt", id),
		logger.String("session", started.Session.ID),
		logger.Int("frames", len(started.Frames)),
	)
	return s.view(a), loadErr
}

// handOver writes frames to the bridge. Frames that fail validation are
// stored as received and rejected by the controller when it loads them.
func (s *Service) handOver(ctx context.Context, id string, frames []model.Frame) error {
	err := bridge.WriteFrames(ctx, s.bridge, id, frames)
	if !errors.Is(err, model.ErrInvalidFrames) {
		return err
	}
	raw, merr := json.Marshal(frames)
	if merr != nil {
		return merr
	}
	return s.bridge.Put(ctx, id, bridge.FramesKey, raw)
}

// rememberCompletion caches the completed result so the result page does not
// go back to the API.
func (s *Service) rememberCompletion(ctx context.Context, locale string, res model.CompletionResult) {
	token := res.Session.PublicToken
	if token == "" {
		return
	}
	s.results.Put(ctx, &repository.Result{Token: token, Locale: locale, Data: model.PublicResultFrom(res)})
}

func (s *Service) attempt(ctx context.Context, id string) (*repository.Attempt, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	a, err := s.attempts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAttempt, id)
		}
		return nil, err
	}
	return a, nil
}

// Attempt returns the current view of attempt id.
func (s *Service) Attempt(ctx context.Context, id string) (types.AttemptView, error) {
	a, err := s.attempt(ctx, id)
	if err != nil {
		return types.AttemptView{}, err
	}
	return s.view(a), nil
}

// Select applies one option pick to the attempt's current frame.
func (s *Service) Select(ctx context.Context, id, key string) (types.AttemptView, error) {
	a, err := s.attempt(ctx, id)
	if err != nil {
		return types.AttemptView{}, err
	}
	if err := a.Controller.Select(key); err != nil {
		return s.view(a), err
	}
	return s.view(a), nil
}

// Advance records the current frame and submits after the last one.
func (s *Service) Advance(ctx context.Context, id string) (types.AttemptView, error) {
	a, err := s.attempt(ctx, id)
	if err != nil {
		return types.AttemptView{}, err
	}
	if err := a.Controller.Advance(ctx); err != nil {
		return s.view(a), err
	}
	return s.view(a), nil
}

// Retry re-submits after a failed submission.
func (s *Service) Retry(ctx context.Context, id string) (types.AttemptView, error) {
	a, err := s.attempt(ctx, id)
	if err != nil {
		return types.AttemptView{}, err
	}
	if err := a.Controller.Retry(ctx); err != nil {
		return s.view(a), err
	}
	return s.view(a), nil
}

func (s *Service) view(a *repository.Attempt) types.AttemptView {
	snap := a.Controller.Snapshot()
	v := types.AttemptView{
		ID:         a.ID,
		State:      snap.State.String(),
		Locale:     a.Locale,
		FrameIndex: snap.FrameIndex,
		FrameCount: snap.FrameCount,
		Frame:      snap.Frame,
		Selection:  snap.Selection,
		CanAdvance: snap.CanAdvance,
		Answered:   len(snap.Responses),
	}
	if snap.Err != nil {
		v.Error = errorMessage(snap.Err)
	}
	if r := snap.Result; r != nil {
		v.ResultToken = r.Session.PublicToken
		v.ShareURL = r.ShareURL
		if v.ShareURL == "" {
			v.ShareURL = s.shareURL(v.ResultToken)
		}
		v.Persona = r.Session.Persona
		v.Scores = r.Session.Scores
		tips := r.Tips
		v.Tips = &tips
	}
	return v
}

// errorMessage is the text shown to the user for err.
func errorMessage(err error) string {
	var se *assessment.SubmitError
	if errors.As(err, &se) {
		return se.Message()
	}
	return err.Error()
}
