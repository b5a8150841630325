package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/okian/bethegolf/internal/adapters/repository"
	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/internal/domain/types"
	"github.com/okian/bethegolf/pkg/logger"
)

func (s *Service) shareURL(token string) string {
	if token == "" {
		return ""
	}
	return s.shareBaseURL + "/" + url.PathEscape(token)
}

// result returns the public result for token, fetching it on a cache miss.
func (s *Service) result(ctx context.Context, token, locale string) (*repository.Result, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: empty result token", ErrInvalidInput)
	}
	locale = s.locale(locale)

	if r, err := s.results.Get(ctx, token, locale); err == nil {
		return r, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	data, err := s.client.PublicResult(ctx, token, locale)
	if err != nil {
		s.logger.Warn(ctx, "public result fetch failed", logger.String("token", token), logger.Error(err))
		return nil, err
	}
	return s.results.Put(ctx, &repository.Result{Token: token, Locale: locale, Data: data}), nil
}

func (s *Service) payload(r *repository.Result) share.SharePayload {
	return share.NewPayload(share.BuildCard(r.Data), s.shareURL(r.Token))
}

// PublicResult returns the shareable result view for token.
func (s *Service) PublicResult(ctx context.Context, token, locale string) (types.ResultView, error) {
	r, err := s.result(ctx, token, locale)
	if err != nil {
		return types.ResultView{}, err
	}

	p := s.payload(r)
	v := types.ResultView{
		Token:    r.Token,
		Locale:   r.Locale,
		Name:     r.Data.Assessment.DisplayName(),
		Persona:  r.Data.Assessment.Persona,
		Scores:   r.Data.Assessment.Scores,
		Tips:     r.Data.Tips,
		ShareURL: p.URL,
		Filename: share.Filename(share.BuildCard(r.Data).PersonaName, share.FormatPNG.Ext()),
	}
	v.Links = shareLinks(p)
	return v, nil
}

// RenderImage generates the share card of token on the render workers. Each
// call owns its modal, so concurrent requests for different aspect ratios
// never replace each other's image.
func (s *Service) RenderImage(ctx context.Context, token, locale string, opts share.Options) (share.Image, error) {
	r, err := s.result(ctx, token, locale)
	if err != nil {
		return share.Image{}, err
	}

	m := share.NewModal(share.BuildCard(r.Data), s.pool,
		share.WithOptions(opts),
		share.WithModalLogger(s.logger.Named("share")),
	)
	if err := m.Open(ctx); err != nil {
		return share.Image{}, err
	}
	return m.Wait(ctx)
}

// ImageFilename is the download name of token's card in format f.
func (s *Service) ImageFilename(ctx context.Context, token, locale string, f share.Format) (string, error) {
	r, err := s.result(ctx, token, locale)
	if err != nil {
		return "", err
	}
	return share.Filename(share.BuildCard(r.Data).PersonaName, f.Ext()), nil
}

// ShareLinks returns the social share intents of token.
func (s *Service) ShareLinks(ctx context.Context, token, locale string) ([]types.ShareLink, error) {
	r, err := s.result(ctx, token, locale)
	if err != nil {
		return nil, err
	}
	return shareLinks(s.payload(r)), nil
}

func shareLinks(p share.SharePayload) []types.ShareLink {
	links := share.Links(p)
	out := make([]types.ShareLink, 0, len(links))
	for _, l := range links {
		out = append(out, types.ShareLink{Network: string(l.Network), Label: l.Label, URL: l.URL})
	}
	return out
}
