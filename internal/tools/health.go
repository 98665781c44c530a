package tools

import (
	"context"
	"fmt"
	"strings"
)

func newHealthTool(deps Deps) Tool {
	return Tool{
		Name: "get_repository_health",
		Description: "Reports repository health metrics: open issues (excluding pull requests), " +
			"open pull requests, stars, forks, watchers, primary language, archived/disabled flags, " +
			"and the age of the latest commit.",
		InputSchema: ownerRepoSchema(nil),
		Handler: func(ctx context.Context, args map[string]any) (*Result, error) {
			owner, repo, err := ownerRepoArgs(args)
			if err != nil {
				return nil, err
			}

			sink := deps.sink()
			sink.Progress(0, 100)
			sink.Info(fmt.Sprintf("collecting health metrics for %s/%s", owner, repo))

			m, err := collectRepoMetrics(ctx, deps, owner, repo)
			if err != nil {
				return nil, err
			}
			sink.Progress(90, 100)

			var b strings.Builder
			fmt.Fprintf(&b, "Repository health for %s\n\n", m.Repository)
			fmt.Fprintf(&b, "Open issues: %d\n", m.OpenIssuesCount)
			fmt.Fprintf(&b, "Open pull requests: %d\n", m.OpenPRsCount)
			fmt.Fprintf(&b, "Stars: %d\n", m.StarsCount)
			fmt.Fprintf(&b, "Forks: %d\n", m.ForksCount)
			fmt.Fprintf(&b, "Watchers: %d\n", m.WatchersCount)
			if m.Language != "" {
				fmt.Fprintf(&b, "Primary language: %s\n", m.Language)
			}
			if m.LastCommitAgeDays != nil {
				fmt.Fprintf(&b, "Last commit: %d days ago (%s)\n", *m.LastCommitAgeDays, m.LastCommitDate)
			} else {
				b.WriteString("Last commit: unknown\n")
			}
			if m.IsArchived {
				b.WriteString("Warning: repository is archived\n")
			}
			if m.IsDisabled {
				b.WriteString("Warning: repository is disabled\n")
			}

			sink.Progress(100, 100)
			return &Result{
				Text:       b.String(),
				Structured: m,
				Meta:       meta(owner, repo, "get_repository_health", nil),
			}, nil
		},
	}
}
