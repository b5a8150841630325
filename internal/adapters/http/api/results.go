package api

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/okian/bethegolf/internal/domain/share"
)

// ResultsHandler serves public results and their share card.
type ResultsHandler struct {
	deps ResultDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// HandleGet handles GET /api/results/{token} requests.
func (h *ResultsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.PublicResult(r.Context(), mux.Vars(r)["token"], r.URL.Query().Get("locale"))
	if err != nil {
		writeFailure(r.Context(), w, withOp("api.get_result", err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// imageOptions reads aspect, scale, quality and format from the query.
// Missing values keep their defaults.
func imageOptions(r *http.Request) (share.Options, error) {
	q := r.URL.Query()
	o := share.DefaultOptions()

	if s := q.Get("aspect"); s != "" {
		a, err := share.ParseAspectRatio(s)
		if err != nil {
			return o, err
		}
		o.AspectRatio = a
	}
	if s := q.Get("format"); s != "" {
		f, err := share.ParseFormat(s)
		if err != nil {
			return o, err
		}
		o.Format = f
	}
	if s := q.Get("scale"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return o, fmt.Errorf("%w: scale %q", share.ErrInvalidOptions, s)
		}
		o.Scale = v
	}
	if s := q.Get("quality"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return o, fmt.Errorf("%w: quality %q", share.ErrInvalidOptions, s)
		}
		o.Quality = v
	}
	return o.Normalize()
}

// HandleImage handles GET /api/results/{token}/image requests. With
// download=1 the image is sent as an attachment under its share file name.
func (h *ResultsHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	const op = "api.result_image"
	token := mux.Vars(r)["token"]
	locale := r.URL.Query().Get("locale")

	opts, err := imageOptions(r)
	if err != nil {
		writeFailure(r.Context(), w, withOp(op, err))
		return
	}

	img, err := h.deps.RenderImage(r.Context(), token, locale, opts)
	if err != nil {
		writeFailure(r.Context(), w, withOp(op, err))
		return
	}

	if download, _ := strconv.ParseBool(r.URL.Query().Get("download")); download {
		name, err := h.deps.ImageFilename(r.Context(), token, locale, img.Format)
		if err != nil {
			writeFailure(r.Context(), w, withOp(op, err))
			return
		}
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}

	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Blob)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Image-Width", strconv.Itoa(img.Width))
	w.Header().Set("X-Image-Height", strconv.Itoa(img.Height))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Blob)
}

// HandleShare handles GET /api/results/{token}/share requests.
func (h *ResultsHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	links, err := h.deps.ShareLinks(r.Context(), mux.Vars(r)["token"], r.URL.Query().Get("locale"))
	if err != nil {
		writeFailure(r.Context(), w, withOp("api.share_links", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}
