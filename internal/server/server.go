package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lazypower/newsletter/internal/engine"
	"github.com/lazypower/newsletter/internal/logger"
	"github.com/lazypower/newsletter/internal/status"
)

// Server is the newsletter HTTP surface: the click-tracking redirect plus a
// small JSON API over the interest engine.
type Server struct {
	engine  *engine.Engine
	status  *status.Status
	log     logger.Logger
	router  chi.Router
	version string
	started time.Time
	next    func() time.Time
}

// New creates a new Server. st may be nil when no scheduled run is reported.
func New(e *engine.Engine, st *status.Status, log logger.Logger, version string) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	s := &Server{
		engine:  e,
		status:  st,
		log:     log,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// SetNextRun reports the next scheduled digest on /api/status.
func (s *Server) SetNextRun(next func() time.Time) {
	s.next = next
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)

	r.Get("/track", s.handleTrack)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/keywords", s.handleKeywords)
		r.Post("/keywords/extract", s.handleExtract)
		r.Post("/score", s.handleScore)
		r.Post("/articles", s.handleTrackArticle)
	})

	s.router = r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.DebugObj("http request", "http_request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbOK := true
	if _, err := s.engine.Repo.ArticleCount(ctx); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"uptime":    time.Since(s.started).Seconds(),
		"db":        dbOK,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
