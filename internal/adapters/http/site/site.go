// Package site serves the server-rendered assessment pages.
package site

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	service "github.com/okian/bethegolf/internal/app"
	"github.com/okian/bethegolf/internal/domain/assessment"
	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/internal/domain/types"
	"github.com/okian/bethegolf/pkg/logger"
)

// Error constants
var (
	ErrRender = errors.New("page render failed")
)

// Dependencies are the service operations behind the pages.
type Dependencies interface {
	StartAssessment(ctx context.Context, locale string, d model.Demographics) (types.AttemptView, error)
	Attempt(ctx context.Context, id string) (types.AttemptView, error)
	Select(ctx context.Context, id, key string) (types.AttemptView, error)
	Advance(ctx context.Context, id string) (types.AttemptView, error)
	Retry(ctx context.Context, id string) (types.AttemptView, error)
	PublicResult(ctx context.Context, token, locale string) (types.ResultView, error)
}

// pageData is shared by every template.
type pageData struct {
	Title  string
	Locale string
	Error  string

	Attempt types.AttemptView

	Result      types.ResultView
	Aspects     []share.AspectRatio
	Aspect      share.AspectRatio
	ImageURL    string
	DownloadURL string
}

// Handler renders the pages.
type Handler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewHandler creates a page handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps, logger: logger.Get().Named("site")}
}

// Register attaches the page routes to r.
func Register(_ context.Context, r *mux.Router, deps Dependencies) {
	if r == nil {
		panic("router is nil")
	}
	h := NewHandler(deps)

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(FS()))).Methods(http.MethodGet)
	r.HandleFunc("/", h.HandleStartPage).Methods(http.MethodGet)
	r.HandleFunc("/start", h.HandleStart).Methods(http.MethodPost)
	r.HandleFunc("/attempts/{id}", h.HandleAttempt).Methods(http.MethodGet)
	r.HandleFunc("/attempts/{id}/select", h.HandleSelect).Methods(http.MethodPost)
	r.HandleFunc("/attempts/{id}/advance", h.HandleAdvance).Methods(http.MethodPost)
	r.HandleFunc("/attempts/{id}/retry", h.HandleRetry).Methods(http.MethodPost)
	r.HandleFunc("/results/{token}", h.HandleResult).Methods(http.MethodGet)
}

func (h *Handler) render(ctx context.Context, w http.ResponseWriter, status int, page string, data pageData) {
	var buf bytes.Buffer
	if err := pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error(ctx, "render failed", logger.String("page", page), logger.Error(err))
		http.Error(w, ErrRender.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) renderError(ctx context.Context, w http.ResponseWriter, locale string, err error) {
	status, title := http.StatusBadGateway, "Something went wrong"
	switch {
	case errors.Is(err, service.ErrUnknownAttempt):
		status, title = http.StatusNotFound, "This assessment has expired"
	case errors.Is(err, service.ErrInvalidInput):
		status, title = http.StatusBadRequest, "Check your answers"
	case errors.Is(err, service.ErrNotStarted):
		status = http.StatusServiceUnavailable
	}
	h.render(ctx, w, status, "error", pageData{Title: title, Locale: locale, Error: err.Error()})
}

// HandleStartPage handles GET / requests.
func (h *Handler) HandleStartPage(w http.ResponseWriter, r *http.Request) {
	h.render(r.Context(), w, http.StatusOK, "start", pageData{Title: "Start", Locale: r.URL.Query().Get("locale")})
}

func demographics(r *http.Request) (model.Demographics, error) {
	d := model.Demographics{Gender: strings.TrimSpace(r.PostFormValue("gender"))}
	if name := strings.TrimSpace(r.PostFormValue("first_name")); name != "" {
		d.FirstName = &name
	}
	if s := strings.TrimSpace(r.PostFormValue("handicap")); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return d, errors.New("handicap must be a number")
		}
		d.Handicap = &v
	}
	return d, nil
}

// HandleStart handles POST /start requests.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locale := r.PostFormValue("locale")

	d, err := demographics(r)
	if err != nil {
		h.render(ctx, w, http.StatusBadRequest, "start", pageData{Title: "Start", Locale: locale, Error: err.Error()})
		return
	}

	v, err := h.deps.StartAssessment(ctx, locale, d)
	if err != nil && v.ID == "" {
		status := http.StatusBadGateway
		if errors.Is(err, service.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		h.render(ctx, w, status, "start", pageData{Title: "Start", Locale: locale, Error: err.Error()})
		return
	}
	// a load error is shown on the attempt page
	http.Redirect(w, r, "/attempts/"+url.PathEscape(v.ID), http.StatusSeeOther)
}

// HandleAttempt handles GET /attempts/{id} requests.
func (h *Handler) HandleAttempt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := h.deps.Attempt(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.renderError(ctx, w, r.URL.Query().Get("locale"), err)
		return
	}
	h.showAttempt(w, r, v, "")
}

func (h *Handler) showAttempt(w http.ResponseWriter, r *http.Request, v types.AttemptView, problem string) {
	if v.State == assessment.StateCompleted.String() && v.ResultToken != "" {
		target := "/results/" + url.PathEscape(v.ResultToken) + "?locale=" + url.QueryEscape(v.Locale)
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	status := http.StatusOK
	switch {
	case v.State == assessment.StateLoadError.String():
		status = http.StatusGone
	case problem != "":
		status = http.StatusConflict
	}
	h.render(r.Context(), w, status, "attempt", pageData{Title: "Assessment", Locale: v.Locale, Attempt: v, Error: problem})
}

// act runs one attempt mutation and redirects back to the attempt page.
// Failures other than a submission error are shown inline.
func (h *Handler) act(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (types.AttemptView, error)) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	v, err := fn(ctx, id)
	var se *assessment.SubmitError
	switch {
	case err == nil, errors.As(err, &se):
		http.Redirect(w, r, "/attempts/"+url.PathEscape(id), http.StatusSeeOther)
	case errors.Is(err, service.ErrUnknownAttempt), errors.Is(err, service.ErrNotStarted):
		h.renderError(ctx, w, "", err)
	default:
		h.showAttempt(w, r, v, err.Error())
	}
}

// HandleSelect handles POST /attempts/{id}/select requests.
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	key := r.PostFormValue("key")
	h.act(w, r, func(ctx context.Context, id string) (types.AttemptView, error) {
		return h.deps.Select(ctx, id, key)
	})
}

// HandleAdvance handles POST /attempts/{id}/advance requests.
func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.deps.Advance)
}

// HandleRetry handles POST /attempts/{id}/retry requests.
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.deps.Retry)
}

// HandleResult handles GET /results/{token} requests.
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := mux.Vars(r)["token"]
	q := r.URL.Query()

	res, err := h.deps.PublicResult(ctx, token, q.Get("locale"))
	if err != nil {
		h.renderError(ctx, w, q.Get("locale"), err)
		return
	}

	aspect, err := share.ParseAspectRatio(q.Get("aspect"))
	if err != nil {
		aspect = share.AspectSquare
	}
	img := url.Values{}
	img.Set("aspect", string(aspect))
	img.Set("locale", res.Locale)
	base := "/api/results/" + url.PathEscape(token) + "/image?"
	imageURL := base + img.Encode()
	img.Set("download", "1")

	h.render(ctx, w, http.StatusOK, "result", pageData{
		Title:       "Your playing style",
		Locale:      res.Locale,
		Result:      res,
		Aspects:     []share.AspectRatio{share.AspectSquare, share.AspectVertical, share.AspectLandscape},
		Aspect:      aspect,
		ImageURL:    imageURL,
		DownloadURL: base + img.Encode(),
	})
}
