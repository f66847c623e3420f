// Package server provides the HTTP surface of the lookout detection service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/lookout/internal/app"
	"github.com/ayusman/lookout/internal/detect"
	"github.com/ayusman/lookout/internal/server/api"
	"github.com/ayusman/lookout/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
}

// Server serves the lookout HTTP API.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// One-shot suppression works without a store or pipeline
	threshold := detect.DefaultIoUThreshold
	if s.config.App != nil {
		threshold = s.config.App.IoUThreshold()
	}
	s.mux.Handle("/api/suppress", api.NewSuppressHandler(threshold))

	// Register persistence-backed handlers if Store is configured
	if s.config.Store != nil {
		frameHandler := api.NewFrameHandler(s.config.Store)
		s.mux.Handle("/api/frames", frameHandler)
		s.mux.Handle("/api/frames/", frameHandler)

		s.mux.Handle("/api/classes", api.NewClassHandler(s.config.Store))

		ruleHandler := api.NewRuleHandler(s.config.Store)
		s.mux.Handle("/api/rules", ruleHandler)
		s.mux.Handle("/api/rules/", ruleHandler)
	}

	// Register live endpoints if the pipeline is configured
	if s.config.App != nil {
		s.mux.HandleFunc("/api/stats", s.handleStats)

		live := NewLiveHandler()
		s.config.App.OnResult(live.Broadcast)
		s.mux.Handle("/api/live", live)

		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleStats handles GET requests to /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.config.App.Stats()); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
