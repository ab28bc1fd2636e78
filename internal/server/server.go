// Package server provides the HTTP server for live status, manual control and sequences.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/handservo/internal/server/api"
	"github.com/ayusman/handservo/internal/store"
)

// FrameSource provides the latest encoded camera frame.
type FrameSource interface {
	Latest() ([]byte, uint64)
}

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Controller api.Controller
	Frames     FrameSource
}

// Server represents the HTTP server for the arm controller.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	status *StatusHandler

	mu         sync.Mutex
	httpServer *http.Server
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

	if s.config.Controller != nil {
		api.NewControlHandler(s.config.Controller).Register(s.mux)

		s.status = NewStatusHandler(s.config.Controller)
		s.mux.Handle("/api/ws", s.status)
	}

	if s.config.Store != nil {
		sequences := api.NewSequenceHandler(s.config.Store, s.config.Controller)
		s.mux.Handle("/api/sequences", sequences)
		s.mux.Handle("/api/sequences/", sequences)
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
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
	if s.config.Controller != nil {
		response["connected"] = s.config.Controller.Snapshot().Connected
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	return srv.ListenAndServe()
}

// Shutdown stops the status broadcaster and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.status != nil {
		s.status.Close()
	}

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
