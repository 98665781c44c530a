package metrics

import (
	"strconv"
	"time"

	"github.com/repolens/repolens/internal/observability"
)

// Metric names, kept stable for dashboards.
const (
	ToolCallsTotalName      = "mcp_tool_calls_total"
	ToolDurationName        = "mcp_tool_duration_ms"
	ActiveRequestsName      = "mcp_active_requests"
	GitHubAPICallsTotalName = "github_api_calls_total"
	GitHubAPIDurationName   = "github_api_duration_ms"
	RateLimitRemainingName  = "github_rate_limit_remaining"
)

// RecordToolCall records one tool invocation with its final status
// ("success" or "failure").
func RecordToolCall(tool string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ToolCallsTotalName,
			1,
			map[string]string{
				"tool_name": tool,
				"status":    status,
			},
		)
	}
}

// ObserveToolDuration records how long a tool invocation took.
func ObserveToolDuration(tool string, d time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			ToolDurationName,
			d,
			map[string]string{
				"tool_name": tool,
			},
		)
	}
}

// SetActiveRequests publishes the number of tool calls currently in flight.
func SetActiveRequests(count int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ActiveRequestsName,
			float64(count),
			nil,
		)
	}
}

// RecordGitHubAPICall records one underlying GitHub API attempt. The endpoint
// label is the request path template, which keeps cardinality bounded; status
// zero means the request never produced a response.
func RecordGitHubAPICall(endpoint string, status int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			GitHubAPICallsTotalName,
			1,
			map[string]string{
				"endpoint":    endpoint,
				"status_code": strconv.Itoa(status),
			},
		)
	}
}

// ObserveGitHubAPIDuration records the latency of one GitHub API attempt.
func ObserveGitHubAPIDuration(endpoint string, d time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			GitHubAPIDurationName,
			d,
			map[string]string{
				"endpoint": endpoint,
			},
		)
	}
}

// SetRateLimitRemaining publishes the last observed remaining-quota value.
func SetRateLimitRemaining(remaining int) {
	if remaining < 0 {
		return
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			RateLimitRemainingName,
			float64(remaining),
			nil,
		)
	}
}
