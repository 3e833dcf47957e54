package sequence

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"image-sequence/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// Scroller accepts scroll input from the control surface.
type Scroller interface {
	ScrollTo(offset float64)
	ScrollBy(delta float64)
}

// Resizer changes the viewport geometry.
type Resizer interface {
	Resize(width, height, contentHeight float64) error
}

// Snapshotter encodes the current backing surface as PNG.
type Snapshotter interface {
	WritePNG(w io.Writer) error
}

// Handler exposes the engine over HTTP using go-chi.
type Handler struct {
	engine   *Engine
	scroll   Scroller
	resize   Resizer
	snapshot Snapshotter
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewHandler returns a Handler. Metrics may be nil to disable metric
// recording (e.g. in tests).
func NewHandler(e *Engine, scroll Scroller, resize Resizer, snapshot Snapshotter, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{engine: e, scroll: scroll, resize: resize, snapshot: snapshot, log: log, metrics: m}
}

type scrollRequest struct {
	Offset *float64 `json:"offset"`
	Delta  *float64 `json:"delta"`
}

type viewportRequest struct {
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	ContentHeight float64 `json:"content_height"`
}

// GetProgress handles GET /progress.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.LoadingProgress())
}

// GetState handles GET /state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.State())
}

// Scroll handles POST /scroll.
// Body: { "offset": 1200 } or { "delta": -40 }.
func (h *Handler) Scroll(w http.ResponseWriter, r *http.Request) {
	var req scrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid scroll body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch {
	case req.Offset != nil && req.Delta == nil:
		h.scroll.ScrollTo(*req.Offset)
	case req.Delta != nil && req.Offset == nil:
		h.scroll.ScrollBy(*req.Delta)
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if h.metrics != nil {
		h.metrics.IncScrollSignals()
	}
	w.WriteHeader(http.StatusAccepted)
}

// PutViewport handles PUT /viewport.
// Body: { "width": 1280, "height": 720, "content_height": 3600 }.
func (h *Handler) PutViewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid viewport body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := h.resize.Resize(req.Width, req.Height, req.ContentHeight); err != nil {
		h.log.Info("viewport rejected",
			slog.Float64("width", req.Width),
			slog.Float64("height", req.Height),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReloadFrame handles POST /frames/{index}/reload.
func (h *Handler) ReloadFrame(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	load, err := h.engine.Reload(index)
	switch {
	case errors.Is(err, ErrIndexOutOfRange):
		w.WriteHeader(http.StatusNotFound)
		return
	case err != nil:
		h.log.Error("reload failed", slog.Int("index", index), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	if _, err := load.Wait(r.Context()); err != nil {
		h.log.Info("frame reload did not succeed", slog.Int("index", index), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	h.log.Debug("frame reloaded", slog.Int("index", index))
	w.WriteHeader(http.StatusOK)
}

// GetFrame handles GET /frame.png.
func (h *Handler) GetFrame(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.snapshot.WritePNG(&buf); err != nil {
		h.log.Error("snapshot failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
