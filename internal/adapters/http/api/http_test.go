package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/okian/bethegolf/internal/adapters/http/api"
	"github.com/okian/bethegolf/internal/adapters/scoringapi"
	service "github.com/okian/bethegolf/internal/app"
	"github.com/okian/bethegolf/internal/domain/assessment"
	"github.com/okian/bethegolf/internal/domain/model"
	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps records calls and fails with err when set.
type mockDeps struct {
	err error

	started   model.Demographics
	locale    string
	selected  string
	imageOpts share.Options
}

func (m *mockDeps) view(id string) types.AttemptView {
	return types.AttemptView{ID: id, State: "at_frame", FrameCount: 2}
}

func (m *mockDeps) StartAssessment(_ context.Context, locale string, d model.Demographics) (types.AttemptView, error) {
	m.started, m.locale = d, locale
	if m.err != nil {
		return types.AttemptView{}, m.err
	}
	return m.view("a1"), nil
}

func (m *mockDeps) Attempt(_ context.Context, id string) (types.AttemptView, error) {
	if m.err != nil {
		return types.AttemptView{}, m.err
	}
	return m.view(id), nil
}

func (m *mockDeps) Select(_ context.Context, id, key string) (types.AttemptView, error) {
	m.selected = key
	if m.err != nil {
		return types.AttemptView{}, m.err
	}
	v := m.view(id)
	v.Selection = model.Selection{Most: key}
	return v, nil
}

func (m *mockDeps) Advance(_ context.Context, id string) (types.AttemptView, error) {
	if m.err != nil {
		return types.AttemptView{}, m.err
	}
	v := m.view(id)
	v.FrameIndex = 1
	return v, nil
}

func (m *mockDeps) Retry(_ context.Context, id string) (types.AttemptView, error) {
	if m.err != nil {
		return types.AttemptView{}, m.err
	}
	v := m.view(id)
	v.State = "completed"
	return v, nil
}

func (m *mockDeps) PublicResult(_ context.Context, token, locale string) (types.ResultView, error) {
	if m.err != nil {
		return types.ResultView{}, m.err
	}
	return types.ResultView{Token: token, Locale: locale, Filename: "bethegolf-playing-style-x.png"}, nil
}

func (m *mockDeps) RenderImage(_ context.Context, _, _ string, opts share.Options) (share.Image, error) {
	m.imageOpts = opts
	if m.err != nil {
		return share.Image{}, m.err
	}
	return share.Image{Blob: []byte("img"), MIME: opts.Format.MIME(), Format: opts.Format, Width: 10, Height: 20}, nil
}

func (m *mockDeps) ImageFilename(_ context.Context, _, _ string, f share.Format) (string, error) {
	return share.Filename("Course Manager", f.Ext()), nil
}

func (m *mockDeps) ShareLinks(_ context.Context, _, _ string) ([]types.ShareLink, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []types.ShareLink{{Network: "x", Label: "X", URL: "https://twitter.com/intent/tweet"}}, nil
}

type mockStats struct{}

func (mockStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "attempts": 3}
}

func newRouter(deps *mockDeps) *mux.Router {
	r := mux.NewRouter()
	api.NewServer(deps, mockStats{}).Register(context.Background(), r)
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorBody(rec *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}

func TestAssessmentRoutes(t *testing.T) {
	Convey("Given the API router", t, func() {
		deps := &mockDeps{}
		r := newRouter(deps)

		Convey("When starting an assessment", func() {
			rec := do(r, http.MethodPost, "/api/assessments/start?locale=de", `{"first_name":"  Ana ","gender":"female","handicap":12.5}`)

			Convey("Then the attempt is created with trimmed demographics", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				So(deps.locale, ShouldEqual, "de")
				So(*deps.started.FirstName, ShouldEqual, "Ana")
				So(*deps.started.Handicap, ShouldEqual, 12.5)

				var v types.AttemptView
				So(json.Unmarshal(rec.Body.Bytes(), &v), ShouldBeNil)
				So(v.ID, ShouldEqual, "a1")
			})
		})

		Convey("When the start body is not JSON", func() {
			rec := do(r, http.MethodPost, "/api/assessments/start", `nope`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(errorBody(rec)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the start body is empty", func() {
			rec := do(r, http.MethodPost, "/api/assessments/start", ``)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a blank first name is sent it is dropped", func() {
			do(r, http.MethodPost, "/api/assessments/start", `{"first_name":"  ","gender":"male"}`)
			So(deps.started.FirstName, ShouldBeNil)
		})

		Convey("When selecting an option", func() {
			rec := do(r, http.MethodPost, "/api/attempts/a1/select", `{"key":"k2"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(deps.selected, ShouldEqual, "k2")
		})

		Convey("When selecting without a key", func() {
			rec := do(r, http.MethodPost, "/api/attempts/a1/select", `{}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reading, advancing and retrying", func() {
			So(do(r, http.MethodGet, "/api/attempts/a1", "").Code, ShouldEqual, http.StatusOK)
			So(do(r, http.MethodPost, "/api/attempts/a1/advance", "").Code, ShouldEqual, http.StatusOK)
			So(do(r, http.MethodPost, "/api/attempts/a1/retry", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("When using the wrong method", func() {
			So(do(r, http.MethodGet, "/api/attempts/a1/advance", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"unknown attempt", fmt.Errorf("%w: a9", service.ErrUnknownAttempt), http.StatusNotFound, "not_found", ""},
		{"load failure", &assessment.LoadError{Kind: assessment.LoadMissing}, http.StatusGone, "load_error", ""},
		{"incomplete selection", assessment.ErrCannotAdvance, http.StatusConflict, "conflict", ""},
		{"unknown option", assessment.ErrUnknownOption, http.StatusConflict, "conflict", ""},
		{"completed", assessment.ErrCompleted, http.StatusConflict, "conflict", ""},
		{"submit failure", &assessment.SubmitError{Kind: assessment.SubmitServer, Err: errors.New("Scores unavailable")}, http.StatusBadGateway, "submit_failed", "Scores unavailable"},
		{"generation failure", &share.GenerationError{Aspect: share.AspectSquare, Err: errors.New("boom")}, http.StatusInternalServerError, "generation_failed", ""},
		{"invalid input", service.ErrInvalidInput, http.StatusBadRequest, "bad_request", ""},
		{"not started", service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable", ""},
		{"context deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", ""},
		{"upstream not found", &scoringapi.Error{Kind: scoringapi.KindServer, Status: 404, Message: "HTTP error! status: 404"}, http.StatusNotFound, "not_found", "HTTP error! status: 404"},
		{"upstream failure", &scoringapi.Error{Kind: scoringapi.KindServer, Status: 500, Message: "down"}, http.StatusBadGateway, "upstream_error", "down"},
		{"anything else", errors.New("boom"), http.StatusInternalServerError, "internal", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(&mockDeps{err: tc.err})
			rec := do(r, http.MethodPost, "/api/attempts/a1/advance", "")
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			body := errorBody(rec)
			if body["code"] != tc.code {
				t.Errorf("code = %q, want %q", body["code"], tc.code)
			}
			if tc.msg != "" && body["message"] != tc.msg {
				t.Errorf("message = %q, want %q", body["message"], tc.msg)
			}
		})
	}
}

func TestResultRoutes(t *testing.T) {
	Convey("Given the API router", t, func() {
		deps := &mockDeps{}
		r := newRouter(deps)

		Convey("When fetching a result", func() {
			rec := do(r, http.MethodGet, "/api/results/tok?locale=en", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"token":"tok"`)
		})

		Convey("When fetching the image with defaults", func() {
			rec := do(r, http.MethodGet, "/api/results/tok/image", "")

			Convey("Then a square PNG at scale 2 is served inline", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldEqual, "image/png")
				So(rec.Header().Get("Content-Disposition"), ShouldBeEmpty)
				So(rec.Body.String(), ShouldEqual, "img")
				So(deps.imageOpts.AspectRatio, ShouldEqual, share.AspectSquare)
				So(deps.imageOpts.Scale, ShouldEqual, share.DefaultScale)
			})
		})

		Convey("When downloading a vertical JPEG", func() {
			rec := do(r, http.MethodGet, "/api/results/tok/image?aspect=vertical&format=jpg&scale=1&quality=0.8&download=1", "")

			Convey("Then the attachment carries the share file name", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldEqual, "image/jpeg")
				So(rec.Header().Get("Content-Disposition"), ShouldEqual, `attachment; filename=bethegolf-playing-style-course-manager.jpg`)
				So(deps.imageOpts.AspectRatio, ShouldEqual, share.AspectVertical)
				So(deps.imageOpts.Quality, ShouldEqual, 0.8)
			})
		})

		Convey("When the image options are invalid", func() {
			for _, q := range []string{"aspect=portrait", "format=gif", "scale=big", "quality=2"} {
				rec := do(r, http.MethodGet, "/api/results/tok/image?"+q, "")
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When listing share links", func() {
			rec := do(r, http.MethodGet, "/api/results/tok/share", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"network":"x"`)
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given the API router", t, func() {
		r := newRouter(&mockDeps{})

		Convey("Health answers JSON by default", func() {
			rec := do(r, http.MethodGet, "/healthz", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Health serves metrics to scrapers", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Accept", "text/plain")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "# TYPE")
		})

		Convey("Metrics include requests seen by the middleware", func() {
			do(r, http.MethodGet, "/api/attempts/a1", "")
			rec := do(r, http.MethodGet, "/metrics", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "/api/attempts/{id}")
		})

		Convey("Stats are served as JSON", func() {
			rec := do(r, http.MethodGet, "/stats", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"attempts":3`)
		})
	})
}
