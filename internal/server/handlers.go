package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/menta2k/photostrip"
	"github.com/menta2k/photostrip/pkg/layout"
	"github.com/menta2k/photostrip/pkg/types"
)

// Engine is the part of photostrip.Engine the HTTP layer needs
type Engine interface {
	Layout(key types.TemplateKey) (layout.Layout, error)
	ComposeFiles(ctx context.Context, req photostrip.FileRequest) (photostrip.FileResult, error)
	BuildPrintPageFile(ctx context.Context, stripPath, outPath string) (string, error)
	Status() photostrip.Status
}

// Handler serves the kiosk endpoints
type Handler struct {
	engine Engine
	config Config
	logger *slog.Logger
}

// Config holds configuration for the handlers
type Config struct {
	// OutputDir confines /print-page to strips inside it. Empty allows any path.
	OutputDir string
}

// New creates a Handler backed by engine with no path restrictions
func New(engine Engine, logger *slog.Logger) *Handler {
	return NewWithConfig(engine, Config{}, logger)
}

// NewWithConfig creates a Handler with custom configuration
func NewWithConfig(engine Engine, config Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, config: config, logger: logger}
}

// LayoutResponse is the preview overlay for one frame
type LayoutResponse struct {
	FrameID    string              `json:"frame_id"`
	FilterType string              `json:"filter_type"`
	Source     types.LayoutSource  `json:"source"`
	Reason     string              `json:"reason,omitempty"`
	Slots      []types.PercentRect `json:"slots"`
}

// ProcessRequest asks for a strip composed from captured photos
type ProcessRequest struct {
	Photos     []string `json:"photos"`
	FilterType string   `json:"filter_type"`
	FrameID    string   `json:"frame_id"`
}

// ProcessResponse names the written strip and print page
type ProcessResponse struct {
	Status    string             `json:"status"`
	ID        string             `json:"id"`
	Path      string             `json:"path"`
	PrintPath string             `json:"print_path"`
	Source    types.LayoutSource `json:"source"`
}

// PrintPageRequest asks for a print page built from an existing strip
type PrintPageRequest struct {
	Path string `json:"path"`
}

// Routes returns the mux with every endpoint registered
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /frame-layout", h.HandleFrameLayout)
	mux.HandleFunc("POST /process", h.HandleProcess)
	mux.HandleFunc("POST /print-page", h.HandlePrintPage)
	mux.HandleFunc("GET /status", h.HandleStatus)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			h.logger.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// HandleFrameLayout returns slot percentages for the camera preview
func (h *Handler) HandleFrameLayout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, err := templateKey(q.Get("filter_type"), q.Get("frame_id"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	l, err := h.engine.Layout(key)
	if err != nil {
		h.writeError(w, "Unable to resolve frame layout: "+err.Error(), statusFor(err))
		return
	}

	h.writeJSON(w, http.StatusOK, LayoutResponse{
		FrameID:    key.FrameID,
		FilterType: key.Filter.Dir(),
		Source:     l.Source,
		Reason:     l.Reason,
		Slots:      l.Percentages(),
	})
}

// HandleProcess composes the strip and its print page
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	key, err := templateKey(req.FilterType, req.FrameID)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Photos) == 0 {
		h.writeError(w, "No photos provided", http.StatusBadRequest)
		return
	}

	res, err := h.engine.ComposeFiles(r.Context(), photostrip.FileRequest{Photos: req.Photos, Key: key})
	if err != nil {
		h.writeError(w, "Processing failed: "+err.Error(), statusFor(err))
		return
	}

	h.writeJSON(w, http.StatusOK, ProcessResponse{
		Status:    "processed",
		ID:        res.ID,
		Path:      res.StripPath,
		PrintPath: res.PrintPath,
		Source:    res.Layout.Source,
	})
}

// HandlePrintPage builds a print page from a strip already on disk
func (h *Handler) HandlePrintPage(w http.ResponseWriter, r *http.Request) {
	var req PrintPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		h.writeError(w, "path is required", http.StatusBadRequest)
		return
	}

	if !h.allowedStrip(req.Path) {
		h.writeError(w, "path must be inside the output directory", http.StatusForbidden)
		return
	}

	out, err := h.engine.BuildPrintPageFile(r.Context(), req.Path, "")
	if err != nil {
		h.writeError(w, "Print page failed: "+err.Error(), statusFor(err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "processed", "print_path": out})
}

// HandleStatus reports engine activity
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Status())
}

// allowedStrip reports whether path lies under the configured output
// directory. The print page is written next to the strip, so this confines
// both the read and the write.
func (h *Handler) allowedStrip(path string) bool {
	if h.config.OutputDir == "" {
		return true
	}
	root, err := filepath.Abs(h.config.OutputDir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func templateKey(filterType, frameID string) (types.TemplateKey, error) {
	mode, err := types.ParseFilterMode(filterType)
	if err != nil {
		return types.TemplateKey{}, err
	}
	frameID = strings.TrimSpace(frameID)
	if frameID == "" {
		return types.TemplateKey{}, errors.New("frame_id is required")
	}
	return types.TemplateKey{Filter: mode, FrameID: frameID}, nil
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrPhotoLoad):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.logger.Error(message, "status", code)
	http.Error(w, message, code)
}
