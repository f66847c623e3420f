package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/lookout/internal/app"
)

// streamPollInterval is how often the stream handler checks for a new result.
const streamPollInterval = 50 * time.Millisecond

// StreamHandler serves processed results as newline-delimited JSON. Each line
// is one result; slow readers see the most recent result and may skip
// intermediate frames.
type StreamHandler struct {
	app *app.App
}

// NewStreamHandler creates a new StreamHandler for the given pipeline.
func NewStreamHandler(a *app.App) *StreamHandler {
	return &StreamHandler{app: a}
}

// ServeHTTP streams results to the client until it disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	encoder := json.NewEncoder(w)
	var lastSeq int64 = -1
	sent := false

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		result, ok := h.app.Latest()
		if !ok || (sent && result.Seq == lastSeq) {
			time.Sleep(streamPollInterval)
			continue
		}
		lastSeq = result.Seq
		sent = true

		if err := encoder.Encode(result); err != nil {
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
