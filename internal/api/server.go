package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/interviewos/internal/captions"
	"github.com/MikeSquared-Agency/interviewos/internal/events"
	"github.com/MikeSquared-Agency/interviewos/internal/tavus"
)

// Gateway is the upstream conversation provider.
type Gateway interface {
	CreateConversation(ctx context.Context, personaID, replicaID, conversationalContext string) (*tavus.Conversation, error)
	GetConversation(ctx context.Context, id string) (json.RawMessage, error)
	EndConversation(ctx context.Context, id string) (json.RawMessage, error)
	Configured() bool
}

type Options struct {
	Port        int
	PersonaID   string
	ReplicaID   string
	Environment string
	// StaticDir, when set, serves the built landing page with an index.html fallback.
	StaticDir string
}

type Server struct {
	router    *chi.Mux
	http      *http.Server
	opts      Options
	gateway   Gateway
	captions  *captions.Hub
	lifecycle *events.Lifecycle
	logger    *slog.Logger
	now       func() time.Time
}

func NewServer(opts Options, gw Gateway, hub *captions.Hub, lc *events.Lifecycle, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		opts:      opts,
		gateway:   gw,
		captions:  hub,
		lifecycle: lc,
		logger:    logger,
		now:       time.Now,
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Post("/create-conversation", s.createConversation)
		r.Route("/conversation/{id}", func(r chi.Router) {
			r.Get("/", s.getConversation)
			r.Post("/end", s.endConversation)
			r.Get("/captions", s.getCaptions)
			r.Post("/captions", s.postCaption)
			r.Get("/captions/ws", s.captionSocket)
		})
	})
	router.NotFound(s.notFound)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"timestamp":        s.now().UTC().Format(time.RFC3339),
		"environment":      s.opts.Environment,
		"tavus_configured": s.gateway.Configured(),
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details any) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}
