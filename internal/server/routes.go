package server

import (
	"github.com/repolens/repolens/internal/server/handlers"
)

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes() {
	// The MCP tool endpoint.
	s.router.Post("/mcp", s.MCPHandler)

	// Standard health endpoints.
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint.
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics proxy (in server package to access HandleError).
	s.router.Get("/metrics", MetricsHandler)
}
