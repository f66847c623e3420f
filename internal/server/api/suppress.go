package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/lookout/internal/detect"
)

// SuppressHandler handles POST /api/suppress, one-shot suppression for
// external callers that run their own model but want the same box filtering
// the pipeline applies.
type SuppressHandler struct {
	defaultThreshold float64
}

// NewSuppressHandler creates a new SuppressHandler. The threshold is used
// when a request does not carry its own.
func NewSuppressHandler(defaultThreshold float64) *SuppressHandler {
	if defaultThreshold <= 0 {
		defaultThreshold = detect.DefaultIoUThreshold
	}
	return &SuppressHandler{defaultThreshold: defaultThreshold}
}

type suppressRequest struct {
	Detections []detect.Detection `json:"detections"`
	// IoUThreshold overrides the server default when present, including an
	// explicit zero.
	IoUThreshold *float64 `json:"iou_threshold"`
}

type suppressResponse struct {
	Input        int                `json:"input"`
	Kept         int                `json:"kept"`
	IoUThreshold float64            `json:"iou_threshold"`
	Detections   []detect.Detection `json:"detections"`
}

// ServeHTTP implements the http.Handler interface.
func (h *SuppressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req suppressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	threshold := h.defaultThreshold
	if req.IoUThreshold != nil {
		threshold = *req.IoUThreshold
	}

	kept := detect.Suppress(req.Detections, threshold)
	if kept == nil {
		kept = []detect.Detection{}
	}

	writeJSON(w, http.StatusOK, suppressResponse{
		Input:        len(req.Detections),
		Kept:         len(kept),
		IoUThreshold: threshold,
		Detections:   kept,
	})
}
