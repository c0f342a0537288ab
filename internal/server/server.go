// Package server provides the HTTP server for signbridge.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/ayusman/signbridge/internal/metrics"
	"github.com/ayusman/signbridge/internal/server/api"
	"github.com/ayusman/signbridge/internal/store"
	"github.com/ayusman/signbridge/internal/stream"
)

// Config holds the server configuration.
type Config struct {
	// Controller drives the camera and owns the session. Required for
	// the recognition endpoints.
	Controller api.Controller
	// Frames is the latest annotated frame cell served at /video_feed.
	Frames   *stream.Cell
	Composer api.Composer
	Store    *store.Store
	Metrics  *metrics.Metrics

	// OutputDir holds composed videos served under /static/.
	OutputDir string
	// StaticDir is an optional front end build served at /.
	StaticDir  string
	PublicURL  string
	CORSOrigin string
	// AnswerAPIKey, when set, must accompany /submit_answer requests.
	AnswerAPIKey string
	OnJob        func(*store.Job)
	Logger       *slog.Logger
}

// Server represents the HTTP server for the signbridge application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	hub     *SessionHub
	logger  *slog.Logger
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		logger: logger.With("component", "server"),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = s.withCORS(s.mux)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics.Handler())
	}

	if ctrl := s.config.Controller; ctrl != nil {
		sessionHandler := api.NewSessionHandler(ctrl, s.config.AnswerAPIKey, s.logger)
		s.mux.HandleFunc("/start_camera", sessionHandler.StartCamera)
		s.mux.HandleFunc("/stop_camera", sessionHandler.StopCamera)
		s.mux.HandleFunc("/predict", sessionHandler.Predict)
		s.mux.HandleFunc("/reset", sessionHandler.Reset)
		s.mux.HandleFunc("/submit_answer", sessionHandler.SubmitAnswer)
		s.hub = NewSessionHub(ctrl.Session(), s.logger)
		s.mux.Handle("/api/session/ws", s.hub)

		if s.config.Frames != nil {
			s.mux.Handle("/video_feed", stream.NewHandler(s.config.Frames, stream.Config{
				Running: ctrl.Session().Running,
				Metrics: s.config.Metrics,
				Logger:  s.logger,
			}))
		}
	}

	if s.config.Composer != nil {
		cfg := api.GlossConfig{
			Composer:  s.config.Composer,
			PublicURL: s.config.PublicURL,
			OnJob:     s.config.OnJob,
			Logger:    s.logger,
		}
		if s.config.Controller != nil {
			cfg.Session = s.config.Controller.Session()
		}
		if s.config.Store != nil {
			cfg.Jobs = s.config.Store.Jobs()
		}
		s.mux.Handle("/process_gloss_sentence", api.NewGlossHandler(cfg))
	}

	if s.config.Store != nil {
		jobsHandler := api.NewJobsHandler(s.config.Store)
		s.mux.Handle("/api/jobs", jobsHandler)
		s.mux.Handle("/api/jobs/", jobsHandler)
	}

	if s.config.OutputDir != "" {
		s.mux.Handle("/static/", http.StripPrefix("/static/", s.serveOutput()))
	}

	// Serve the front end build if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// serveOutput serves composed videos. Only plain file names inside
// OutputDir are reachable.
func (s *Server) serveOutput() http.Handler {
	files := http.FileServer(http.Dir(s.config.OutputDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") || path.Clean(name) != name {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// withCORS allows the configured front end origin to call the API.
func (s *Server) withCORS(next http.Handler) http.Handler {
	origin := s.config.CORSOrigin
	if origin == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqOrigin := r.Header.Get("Origin"); reqOrigin != "" && (origin == "*" || reqOrigin == origin) {
			w.Header().Set("Access-Control-Allow-Origin", reqOrigin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
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
		response["running"] = s.config.Controller.Session().Running()
	}
	if s.hub != nil {
		response["ws_clients"] = s.hub.Clients()
	}
	if s.config.Store != nil {
		if err := s.config.Store.DB().PingContext(r.Context()); err != nil {
			s.logger.Warn("database ping failed", "error", err)
			response["status"] = "degraded"
			response["database"] = "unavailable"
		} else {
			response["database"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// NewHTTPServer wraps s in an http.Server listening on addr.
// Write timeouts are left unset because /video_feed streams indefinitely.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
