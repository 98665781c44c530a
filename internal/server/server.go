// Package server wires the HTTP surface: the MCP JSON-RPC endpoint, health
// probes, version, and the metrics proxy.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/observability"
	"github.com/repolens/repolens/internal/server/handlers"
	servermw "github.com/repolens/repolens/internal/server/middleware"
	"github.com/repolens/repolens/internal/tools"
)

// Options carries the server construction parameters.
type Options struct {
	Host         string
	Port         int
	Version      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Registry     *tools.Registry
}

// Server is the HTTP server hosting the tool endpoint.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	registry *tools.Registry
	host     string
	port     int
	version  string

	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
}

// New creates the server and registers all routes.
func New(opts Options) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// Custom middleware in order: RequestID early for correlation, metrics
	// around everything, recovery outermost.
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.ErrorHandler)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router:       r,
		registry:     opts.Registry,
		host:         opts.Host,
		port:         opts.Port,
		version:      opts.Version,
		readTimeout:  defaultDuration(opts.ReadTimeout, 30*time.Second),
		writeTimeout: defaultDuration(opts.WriteTimeout, 60*time.Second),
		idleTimeout:  defaultDuration(opts.IdleTimeout, 120*time.Second),
	}

	handlers.SetHTTPErrorResponder(HandleError)
	s.registerRoutes()

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.host),
			zap.Int("port", s.port),
			zap.String("addr", addr))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured server port.
func (s *Server) Port() int {
	return s.port
}

func defaultDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
