// Package tools implements the GitHub analysis tools exposed over the MCP
// endpoint and the CLI. Every handler is orchestration over the shared
// resilient GitHub client; none of them talk to the network directly.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/repolens/repolens/internal/github"
	"github.com/repolens/repolens/internal/metrics"
)

// Handler executes one tool invocation with already-decoded arguments.
type Handler func(ctx context.Context, args map[string]any) (*Result, error)

// Tool describes one callable tool.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     Handler
}

// Deps carries the shared infrastructure handed to every tool handler.
type Deps struct {
	GitHub *github.Client
	Sink   github.Sink
	Logger *logging.Logger
}

func (d Deps) sink() github.Sink {
	if d.Sink != nil {
		return d.Sink
	}
	return github.NopSink{}
}

// Registry holds the tool set in registration order.
type Registry struct {
	deps     Deps
	order    []string
	tools    map[string]Tool
	inFlight atomic.Int64
}

// NewRegistry builds the full tool set.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{
		deps:  deps,
		tools: make(map[string]Tool),
	}

	r.register(newHealthTool(deps))
	r.register(newIssuesSummaryTool(deps))
	r.register(newContributorsTool(deps))
	r.register(newCompareTool(deps))
	r.register(newReleasesSummaryTool(deps))
	r.register(newCommitStatisticsTool(deps))
	r.register(newActivityTimelineTool(deps))

	return r
}

func (r *Registry) register(t Tool) {
	r.order = append(r.order, t.Name)
	r.tools[t.Name] = t
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Call invokes the named tool, recording the call metrics around it.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (*Result, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, github.NewValidationError("unknown tool %q", name)
	}

	metrics.SetActiveRequests(r.inFlight.Add(1))
	start := time.Now()

	result, err := t.Handler(ctx, args)

	metrics.ObserveToolDuration(name, time.Since(start))
	metrics.RecordToolCall(name, err == nil)
	metrics.SetActiveRequests(r.inFlight.Add(-1))

	if err != nil {
		apiErr := github.AsAPIError(err)
		metrics.RecordToolError(name, string(apiErr.Code))
		return nil, apiErr
	}
	return result, nil
}

// Argument decoding helpers. JSON-decoded arguments carry numbers as float64.

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", github.NewValidationError("missing required parameter %q", key)
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", github.NewValidationError("parameter %q must be a non-empty string", key)
	}
	return strings.TrimSpace(s), nil
}

func optionalStringArg(args map[string]any, key, def string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", github.NewValidationError("parameter %q must be a string", key)
	}
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return strings.TrimSpace(s), nil
}

func intArg(args map[string]any, key string, def, lo, hi int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return def, nil
	}

	var n int
	switch v := raw.(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	case int64:
		n = int(v)
	default:
		return 0, github.NewValidationError("parameter %q must be an integer", key)
	}

	if n < lo || n > hi {
		return 0, github.NewValidationError("parameter %q must be between %d and %d, got %d", key, lo, hi, n)
	}
	return n, nil
}

func stringListArg(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, github.NewValidationError("parameter %q must be a list of strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, github.NewValidationError("parameter %q must be a list of strings", key)
	}
}

// ownerRepoArgs extracts and validates the owner and repo parameters shared
// by every single-repository tool.
func ownerRepoArgs(args map[string]any) (string, string, error) {
	owner, err := stringArg(args, "owner")
	if err != nil {
		return "", "", err
	}
	repo, err := stringArg(args, "repo")
	if err != nil {
		return "", "", err
	}
	if strings.Contains(owner, "/") {
		return "", "", github.NewValidationError("parameter \"owner\" must not contain '/'")
	}
	if strings.Contains(repo, "/") {
		return "", "", github.NewValidationError("parameter \"repo\" must not contain '/'")
	}
	return owner, repo, nil
}

// Schema fragments shared by the tool input schemas.

func ownerRepoSchema(extra map[string]any) map[string]any {
	props := map[string]any{
		"owner": map[string]any{
			"type":        "string",
			"description": "Repository owner (username or organization name)",
		},
		"repo": map[string]any{
			"type":        "string",
			"description": "Repository name",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"owner", "repo"},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func percent(part, total int) string {
	if total <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}
