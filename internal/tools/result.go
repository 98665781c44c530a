package tools

// Result is the dual-shaped outcome of a tool invocation: a human-readable
// text rendering, a structured payload for programmatic consumers, and an
// operation metadata map.
type Result struct {
	Text       string
	Structured any
	Meta       map[string]any
}

func meta(owner, repo, operation string, extra map[string]any) map[string]any {
	m := map[string]any{
		"owner":     owner,
		"repo":      repo,
		"operation": operation,
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}
