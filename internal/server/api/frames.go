// Package api provides the HTTP API handlers for the lookout detection service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/lookout/internal/detect"
	"github.com/ayusman/lookout/internal/store"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// FrameHandler handles HTTP requests for persisted frame resources.
type FrameHandler struct {
	store *store.Store
}

// NewFrameHandler creates a new FrameHandler with the given store.
func NewFrameHandler(s *store.Store) *FrameHandler {
	return &FrameHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/frames, /api/frames/latest, /api/frames/{id}
func (h *FrameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/frames")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		h.list(w, r)
	case "latest":
		h.latest(w, r)
	default:
		h.get(w, r, path)
	}
}

// Response types

type frameResponse struct {
	ID         string `json:"id"`
	Seq        int64  `json:"seq"`
	Source     string `json:"source"`
	CapturedAt string `json:"captured_at,omitempty"`
	RawCount   int    `json:"raw_count"`
	KeptCount  int    `json:"kept_count"`
	CreatedAt  string `json:"created_at"`
}

type frameDetailResponse struct {
	frameResponse
	Detections []detect.Detection `json:"detections"`
}

type listFramesResponse struct {
	Frames []frameResponse `json:"frames"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toFrameResponse converts a store.FrameRecord to a frameResponse.
func toFrameResponse(f *store.FrameRecord) frameResponse {
	capturedAt := ""
	if !f.CapturedAt.IsZero() {
		capturedAt = f.CapturedAt.Format(timeFormat)
	}
	return frameResponse{
		ID:         f.ID,
		Seq:        f.Seq,
		Source:     f.Source,
		CapturedAt: capturedAt,
		RawCount:   f.RawCount,
		KeptCount:  f.KeptCount,
		CreatedAt:  f.CreatedAt.Format(timeFormat),
	}
}

// toFrameDetail converts a store.FrameRecord to a frameDetailResponse with
// its detections attached.
func toFrameDetail(f *store.FrameRecord) frameDetailResponse {
	detections := f.Detections
	if detections == nil {
		detections = []detect.Detection{}
	}
	return frameDetailResponse{
		frameResponse: toFrameResponse(f),
		Detections:    detections,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/frames and returns recent frame summaries.
// The limit query parameter caps the result count (default 20).
func (h *FrameHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	frames, err := h.store.Frames().ListRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list frames")
		return
	}

	response := listFramesResponse{
		Frames: make([]frameResponse, 0, len(frames)),
	}
	for _, f := range frames {
		response.Frames = append(response.Frames, toFrameResponse(f))
	}

	writeJSON(w, http.StatusOK, response)
}

// latest handles GET /api/frames/latest and returns the newest frame with its
// detections.
func (h *FrameHandler) latest(w http.ResponseWriter, r *http.Request) {
	frame, err := h.store.Frames().Latest()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No frames yet")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get latest frame")
		return
	}

	writeJSON(w, http.StatusOK, toFrameDetail(frame))
}

// get handles GET /api/frames/{id} and returns a single frame with its
// detections.
func (h *FrameHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	frame, err := h.store.Frames().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Frame not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get frame")
		return
	}

	writeJSON(w, http.StatusOK, toFrameDetail(frame))
}

// ClassHandler handles GET /api/classes, the per-class detection aggregate.
type ClassHandler struct {
	store *store.Store
}

// NewClassHandler creates a new ClassHandler with the given store.
func NewClassHandler(s *store.Store) *ClassHandler {
	return &ClassHandler{store: s}
}

type classResponse struct {
	ClassName     string  `json:"class_name"`
	Count         int     `json:"count"`
	MaxConfidence float64 `json:"max_confidence"`
}

type listClassesResponse struct {
	Classes []classResponse `json:"classes"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ClassHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts, err := h.store.Frames().ClassCounts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate classes")
		return
	}

	response := listClassesResponse{
		Classes: make([]classResponse, 0, len(counts)),
	}
	for _, c := range counts {
		response.Classes = append(response.Classes, classResponse{
			ClassName:     c.ClassName,
			Count:         c.Count,
			MaxConfidence: c.MaxConfidence,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
