package cmd

import (
	"golang.org/x/time/rate"

	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/github"
	"github.com/repolens/repolens/internal/tools"
)

// newGitHubClient builds the upstream client with the process-wide rate
// limiter derived from configuration. Every caller shares the returned
// client so the aggregate request rate honors the configured budget.
func newGitHubClient(cfg *config.Config) *github.Client {
	limiter := rate.NewLimiter(rate.Limit(cfg.Rate.RequestsPerSecond), cfg.Rate.Burst)
	return github.NewClient(github.Config{
		BaseURL:     cfg.GitHub.BaseURL,
		Token:       cfg.GitHub.Token,
		UserAgent:   cfg.GitHub.UserAgent,
		Timeout:     cfg.GitHub.Timeout,
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
	}, limiter)
}

// newToolDeps assembles tool dependencies around a fresh GitHub client.
func newToolDeps(cfg *config.Config, sink github.Sink) tools.Deps {
	return tools.Deps{
		GitHub: newGitHubClient(cfg),
		Sink:   sink,
	}
}
