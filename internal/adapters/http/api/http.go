// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/internal/domain/types"
	"github.com/okian/bethegolf/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AttemptDependencies
	ResultDependencies
}

// AttemptDependencies drive one assessment attempt.
type AttemptDependencies interface {
	StartAssessment(ctx context.Context, locale string, d model.Demographics) (types.AttemptView, error)
	Attempt(ctx context.Context, id string) (types.AttemptView, error)
	Select(ctx context.Context, id, key string) (types.AttemptView, error)
	Advance(ctx context.Context, id string) (types.AttemptView, error)
	Retry(ctx context.Context, id string) (types.AttemptView, error)
}

// ResultDependencies serve public results and their share card.
type ResultDependencies interface {
	PublicResult(ctx context.Context, token, locale string) (types.ResultView, error)
	RenderImage(ctx context.Context, token, locale string, opts share.Options) (share.Image, error)
	ImageFilename(ctx context.Context, token, locale string, f share.Format) (string, error)
	ShareLinks(ctx context.Context, token, locale string) ([]types.ShareLink, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	assessmentsHandler *AssessmentsHandler
	resultsHandler     *ResultsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		assessmentsHandler: NewAssessmentsHandler(deps),
		resultsHandler:     NewResultsHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.Use(MetricsMiddleware)

	r.HandleFunc("/healthz", s.healthHandler.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.healthHandler.HandleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.statsHandler.HandleStats).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api").Subrouter()
	v1.HandleFunc("/assessments/start", s.assessmentsHandler.HandleStart).Methods(http.MethodPost)
	v1.HandleFunc("/attempts/{id}", s.assessmentsHandler.HandleGet).Methods(http.MethodGet)
	v1.HandleFunc("/attempts/{id}/select", s.assessmentsHandler.HandleSelect).Methods(http.MethodPost)
	v1.HandleFunc("/attempts/{id}/advance", s.assessmentsHandler.HandleAdvance).Methods(http.MethodPost)
	v1.HandleFunc("/attempts/{id}/retry", s.assessmentsHandler.HandleRetry).Methods(http.MethodPost)

	v1.HandleFunc("/results/{token}", s.resultsHandler.HandleGet).Methods(http.MethodGet)
	v1.HandleFunc("/results/{token}/image", s.resultsHandler.HandleImage).Methods(http.MethodGet)
	v1.HandleFunc("/results/{token}/share", s.resultsHandler.HandleShare).Methods(http.MethodGet)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure translates a service error into its HTTP response.
func writeFailure(ctx context.Context, w http.ResponseWriter, err error) {
	status, code, msg := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("api").Warn(ctx, "request failed",
			logger.String("op", Op(err)),
			logger.Int("status", status),
			logger.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
