package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/patchgest/internal/config"
	"github.com/dgallion1/patchgest/internal/fetch"
	"github.com/dgallion1/patchgest/internal/pipeline"
	"github.com/dgallion1/patchgest/internal/store"
)

// Server is the HTTP API server for patchgest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        *store.Store
	fetchStats   *fetch.LatencyStats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, st *store.Store, fetchStats *fetch.LatencyStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		store:        st,
		fetchStats:   fetchStats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/parse", s.handleParse)

		r.Post("/api/fetch", s.handleFetch)
		r.Get("/api/fetch/{jobID}/status", s.handleFetchStatus)
		r.Get("/api/stats/fetch", s.handleFetchStats)

		r.Get("/api/patches", s.handleListPatches)
		r.Get("/api/patches/{version}", s.handleGetPatch)
		r.Get("/api/patches/{version}/sections", s.handleSections)
		r.Get("/api/patches/{version}/buckets", s.handleBuckets)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
