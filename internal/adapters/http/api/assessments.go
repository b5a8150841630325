package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/okian/bethegolf/internal/domain/model"
)

// maxBodyBytes caps request bodies of the JSON API.
const maxBodyBytes = 1 << 16

// AssessmentsHandler handles the attempt lifecycle.
type AssessmentsHandler struct {
	deps AttemptDependencies
}

// NewAssessmentsHandler creates a new assessments handler.
func NewAssessmentsHandler(deps AttemptDependencies) *AssessmentsHandler {
	return &AssessmentsHandler{deps: deps}
}

type startRequest struct {
	FirstName *string  `json:"first_name"`
	Gender    string   `json:"gender"`
	Handicap  *float64 `json:"handicap"`
}

func (s startRequest) demographics() model.Demographics {
	d := model.Demographics{Gender: strings.TrimSpace(s.Gender), Handicap: s.Handicap}
	if s.FirstName != nil {
		if name := strings.TrimSpace(*s.FirstName); name != "" {
			d.FirstName = &name
		}
	}
	return d
}

type selectRequest struct {
	Key string `json:"key"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}

// HandleStart handles POST /api/assessments/start requests.
func (h *AssessmentsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_assessment"
	var req startRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	v, err := h.deps.StartAssessment(r.Context(), r.URL.Query().Get("locale"), req.demographics())
	if err != nil {
		writeFailure(r.Context(), w, withOp(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// HandleGet handles GET /api/attempts/{id} requests.
func (h *AssessmentsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Attempt(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFailure(r.Context(), w, withOp("api.get_attempt", err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleSelect handles POST /api/attempts/{id}/select requests.
func (h *AssessmentsHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	const op = "api.select"
	var req selectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, errors.New("missing key")))
		return
	}

	v, err := h.deps.Select(r.Context(), mux.Vars(r)["id"], req.Key)
	if err != nil {
		writeFailure(r.Context(), w, withOp(op, err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleAdvance handles POST /api/attempts/{id}/advance requests. On the last
// frame the request lasts until the submission settles.
func (h *AssessmentsHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Advance(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFailure(r.Context(), w, withOp("api.advance", err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleRetry handles POST /api/attempts/{id}/retry requests.
func (h *AssessmentsHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.Retry(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFailure(r.Context(), w, withOp("api.retry", err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}
