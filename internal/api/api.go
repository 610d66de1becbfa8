// Package api provides the HTTP surface for the VoiceCredit backend.
//
// It exposes RESTful endpoints for session lifecycle, answer submission, the
// browser speech relay (directive polling and event reporting), server-side
// synthesis/transcription, standalone scoring and the assessment archive.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/voicecredit-ai/voicecredit/internal/dialog"
	"github.com/voicecredit-ai/voicecredit/internal/models"
	"github.com/voicecredit-ai/voicecredit/internal/scoring"
	"github.com/voicecredit-ai/voicecredit/internal/speech"
	"github.com/voicecredit-ai/voicecredit/internal/store"
)

// Server timeouts.
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	AllowedOrigins []string
	Voice          *speech.OpenAIEngine
	Archive        store.Store
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithAllowedOrigins sets the CORS allow-list.
func WithAllowedOrigins(origins []string) Option {
	return func(o *Opts) { o.AllowedOrigins = origins }
}

// WithVoice enables the server-side synthesis/transcription endpoints.
func WithVoice(v *speech.OpenAIEngine) Option {
	return func(o *Opts) { o.Voice = v }
}

// WithArchiveStore enables the assessment archive endpoints.
func WithArchiveStore(st store.Store) Option {
	return func(o *Opts) { o.Archive = st }
}

// Server wires the conversation engine, speech relay and scoring service
// into an HTTP API.
type Server struct {
	router  *chi.Mux
	httpSrv *http.Server
	engine  *dialog.Engine
	relay   *speech.Relay
	scorer  scoring.Service
	voice   *speech.OpenAIEngine
	archive store.Store
}

// NewServer creates the API server with the given collaborators.
func NewServer(engine *dialog.Engine, relay *speech.Relay, scorer scoring.Service, opts ...Option) *Server {
	cfg := Opts{
		Addr:           ":8080",
		AllowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))

	s := &Server{
		router:  r,
		engine:  engine,
		relay:   relay,
		scorer:  scorer,
		voice:   cfg.Voice,
		archive: cfg.Archive,
	}
	s.routes()

	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
	slog.Debug("api.NewServer: server configured", "addr", cfg.Addr,
		"hasVoice", cfg.Voice != nil, "hasArchive", cfg.Archive != nil)
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	s.router.Post("/api/sessions", s.handleCreateSession)
	s.router.Get("/api/sessions/{id}", s.handleSnapshot)
	s.router.Get("/api/sessions/{id}/transcript", s.handleTranscript)
	s.router.Post("/api/sessions/{id}/start", s.handleStart)
	s.router.Post("/api/sessions/{id}/answer", s.handleAnswer)
	s.router.Post("/api/sessions/{id}/reset", s.handleReset)
	s.router.Post("/api/sessions/{id}/demo", s.handleDemo)

	s.router.Get("/api/sessions/{id}/directive", s.handleDirective)
	s.router.Post("/api/sessions/{id}/events", s.handleEvent)

	s.router.Post("/api/speech/synthesize", s.handleSynthesize)
	s.router.Post("/api/speech/transcribe", s.handleTranscribe)

	s.router.Post("/api/predict", s.handlePredict)
	s.router.Get("/api/applications", s.handleApplications)
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler { return s.router }

// Run serves HTTP until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("api.Server.Run: listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("api.Server.Run: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidPhase):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmptyUtterance):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
