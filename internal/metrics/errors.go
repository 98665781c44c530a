package metrics

import (
	"strconv"

	"github.com/repolens/repolens/internal/observability"
)

// Error metric names.
const (
	ErrorsTotalName      = "mcp_errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

// RecordError records an error with its stable code and HTTP status.
func RecordError(errorCode string, httpStatus int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsTotalName,
			1,
			map[string]string{
				"error_code":  errorCode,
				"http_status": strconv.Itoa(httpStatus),
			},
		)
	}
}

// RecordToolError records an error attributed to a specific tool.
func RecordToolError(tool string, errorCode string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsTotalName,
			1,
			map[string]string{
				"tool_name":  tool,
				"error_code": errorCode,
			},
		)
	}
}

// RecordPanic records a recovered panic.
func RecordPanic() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			PanicsTotalName,
			1,
			nil,
		)
	}
}

// RecordErrorByEndpoint records an error keyed by HTTP endpoint.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsByEndpointName,
			1,
			map[string]string{
				"endpoint":   endpoint,
				"error_code": errorCode,
			},
		)
	}
}
