package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/observability"
)

// responseWriter wraps http.ResponseWriter to capture status code and size.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// getEndpointPattern resolves the chi route pattern so metric labels keep
// bounded cardinality.
func getEndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if routePattern := rctx.RoutePattern(); routePattern != "" {
			return routePattern
		}
	}

	switch r.URL.Path {
	case "/health", "/health/live", "/health/ready", "/health/startup":
		return "/health/*"
	case "/mcp":
		return "/mcp"
	case "/version":
		return "/version"
	case "/metrics":
		return "/metrics"
	case "/":
		return "/"
	default:
		return "/unknown"
	}
}

// RequestMetrics captures per-request counters, latency, and sizes.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		requestSize := int64(0)
		if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
			if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
				requestSize = size
			}
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		endpoint := getEndpointPattern(r)

		commonLabels := map[string]string{
			"method":   r.Method,
			"endpoint": endpoint,
			"status":   strconv.Itoa(wrapped.statusCode),
		}

		_ = observability.TelemetrySystem.Counter("http_requests_total", 1, commonLabels)
		_ = observability.TelemetrySystem.Histogram("http_request_duration_ms", duration, commonLabels)

		sizeLabels := map[string]string{
			"method":   r.Method,
			"endpoint": endpoint,
		}
		_ = observability.TelemetrySystem.Gauge("http_request_size_bytes", float64(requestSize), sizeLabels)
		_ = observability.TelemetrySystem.Gauge("http_response_size_bytes", float64(wrapped.bytesWritten), sizeLabels)

		if wrapped.statusCode >= 400 {
			errorType := "client_error"
			if wrapped.statusCode >= 500 {
				errorType = "server_error"
			}
			_ = observability.TelemetrySystem.Counter("http_errors_total", 1, map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     strconv.Itoa(wrapped.statusCode),
				"error_type": errorType,
			})
		}

		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", duration),
				zap.Int64("request_size", requestSize),
				zap.Int64("response_size", wrapped.bytesWritten),
				zap.String("requestID", GetRequestID(r.Context())),
			)
		}
	})
}
