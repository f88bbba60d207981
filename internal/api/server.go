// Package api exposes the storage service over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"storagecore/internal/config"
	"storagecore/internal/core"
)

// Server routes HTTP requests onto a core.Service.
type Server struct {
	service *core.Service
	runtime config.Runtime
	logger  zerolog.Logger
	router  chi.Router
}

// Options configures optional server behavior.
type Options struct {
	// RateLimit caps requests per minute per client IP. Zero disables limiting.
	RateLimit int
	Logger    zerolog.Logger
}

// NewServer builds the HTTP server around the given service.
func NewServer(service *core.Service, runtime config.Runtime, opts Options) *Server {
	s := &Server{
		service: service,
		runtime: runtime,
		logger:  opts.Logger,
		router:  chi.NewRouter(),
	}
	s.routes(opts)
	return s
}

func (s *Server) routes(opts Options) {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(s.logMiddleware)
	if opts.RateLimit > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
	}

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/objects", s.handleListObjects)
		r.Put("/objects/*", s.handlePutObject)
		r.Get("/objects/*", s.handleGetObject)
		r.Head("/objects/*", s.handleStatObject)
		r.Delete("/objects/*", s.handleDeleteObject)
		r.Post("/presign", s.handlePresign)
		r.Get("/records", s.handleListRecords)
		r.Get("/plugins", s.handleListPlugins)
		r.Post("/admin/flags", s.handleSetFlags)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
