// Package api serves the meeting recorder's HTTP interface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// DefaultMaxUploadBytes caps the size of a recorded meeting upload.
const DefaultMaxUploadBytes = 200 << 20

// Config holds the API server configuration.
type Config struct {
	ListenAddr     string
	AppName        string
	Environment    string
	AllowedOrigins []string
	MaxUploadBytes int64

	// AdminSecret enables bearer-token auth on /admin routes when set
	AdminSecret   string
	AdminTokenTTL time.Duration
}

// Server represents the API HTTP server.
type Server struct {
	config   Config
	service  MeetingService
	history  UsageHistory
	server   *http.Server
	router   *mux.Router
	auth     *TokenAuth
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
	logger   zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config, service MeetingService, history UsageHistory, logger zerolog.Logger) *Server {
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	s := &Server{
		config:  cfg,
		service: service,
		history: history,
		router:  mux.NewRouter(),
		logger:  logger.With().Str("component", "api").Logger(),
	}

	if cfg.AdminSecret != "" {
		s.auth = NewTokenAuth(cfg.AdminSecret, cfg.AdminTokenTTL)
	}

	s.setupRoutes()

	// Write timeout covers transcription retries plus summarization
	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(MetricsMiddleware)

	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	meetingHandler := NewMeetingHandler(s.service, s.config.MaxUploadBytes, s.logger)
	s.router.HandleFunc("/meetings/record", meetingHandler.Record).Methods("POST")
	s.router.HandleFunc("/meetings", meetingHandler.List).Methods("GET")
	s.router.HandleFunc("/meetings/", meetingHandler.List).Methods("GET")
	s.router.HandleFunc("/meetings/{id}", meetingHandler.Get).Methods("GET")
	s.router.HandleFunc("/meetings/{id}", meetingHandler.Delete).Methods("DELETE")

	admin := s.router.PathPrefix("/admin").Subrouter()
	if s.auth != nil {
		admin.Use(AuthMiddleware(s.auth, s.logger))
	}

	usageHandler := NewUsageHandler(s.service, s.history, s.logger)
	admin.HandleFunc("/stt/usage", usageHandler.Status).Methods("GET")
	admin.HandleFunc("/stt/usage/history", usageHandler.History).Methods("GET")
}

// Handler returns the router wrapped with CORS handling.
func (s *Server) Handler() http.Handler {
	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(s.router)
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting API server")

	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated API listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()

	return nil
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         s.config.AppName,
		"environment": s.config.Environment,
	})
}
