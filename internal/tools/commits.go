package tools

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/repolens/repolens/internal/github"
)

const (
	commitsPerPage  = 100
	commitsMaxPages = 10
	topAuthors      = 10
)

// AuthorCount is one row of the per-author commit statistics.
type AuthorCount struct {
	Name    string `json:"name"`
	Commits int    `json:"commits"`
}

// CommitStatsReport is the structured payload of get_commit_statistics.
type CommitStatsReport struct {
	Repository    string        `json:"repository"`
	PeriodDays    int           `json:"period_days"`
	TotalCommits  int           `json:"total_commits"`
	UniqueAuthors int           `json:"unique_authors"`
	TopAuthors    []AuthorCount `json:"top_authors"`
	BusiestAuthor string        `json:"busiest_author,omitempty"`
	FirstCommit   string        `json:"first_commit,omitempty"`
	LastCommit    string        `json:"last_commit,omitempty"`
}

func newCommitStatisticsTool(deps Deps) Tool {
	return Tool{
		Name: "get_commit_statistics",
		Description: "Analyzes commit activity over a day window: total commits, per-author " +
			"counts, the busiest author, and the first and last commit in the window.",
		InputSchema: ownerRepoSchema(map[string]any{
			"days": map[string]any{
				"type":        "integer",
				"description": "Day window to analyze, counted back from now",
				"default":     30,
				"minimum":     1,
				"maximum":     365,
			},
		}),
		Handler: func(ctx context.Context, args map[string]any) (*Result, error) {
			owner, repo, err := ownerRepoArgs(args)
			if err != nil {
				return nil, err
			}
			days, err := intArg(args, "days", 30, 1, 365)
			if err != nil {
				return nil, err
			}

			sink := deps.sink()
			full := owner + "/" + repo
			sink.Info(fmt.Sprintf("collecting %d days of commits for %s", days, full))

			since := time.Now().AddDate(0, 0, -days).UTC().Format(time.RFC3339)
			commits, err := fetchCommits(ctx, deps, owner, repo, since)
			if err != nil {
				return nil, err
			}

			byAuthor := make(map[string]int)
			for _, c := range commits {
				name := c.Commit.Author.Name
				if name == "" {
					name = "Unknown"
				}
				byAuthor[name]++
			}

			top := make([]AuthorCount, 0, len(byAuthor))
			for name, count := range byAuthor {
				top = append(top, AuthorCount{Name: name, Commits: count})
			}
			sort.SliceStable(top, func(i, j int) bool {
				if top[i].Commits != top[j].Commits {
					return top[i].Commits > top[j].Commits
				}
				return top[i].Name < top[j].Name
			})
			if len(top) > topAuthors {
				top = top[:topAuthors]
			}

			report := &CommitStatsReport{
				Repository:    full,
				PeriodDays:    days,
				TotalCommits:  len(commits),
				UniqueAuthors: len(byAuthor),
				TopAuthors:    top,
			}
			if len(top) > 0 {
				report.BusiestAuthor = top[0].Name
			}
			if len(commits) > 0 {
				// The commits endpoint returns newest first.
				report.LastCommit = commits[0].Commit.Author.Date
				report.FirstCommit = commits[len(commits)-1].Commit.Author.Date
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Commit statistics for %s (last %d days)\n\n", full, days)
			fmt.Fprintf(&b, "Total commits: %d\n", report.TotalCommits)
			fmt.Fprintf(&b, "Unique authors: %d\n", report.UniqueAuthors)
			if report.BusiestAuthor != "" {
				fmt.Fprintf(&b, "Busiest author: %s\n", report.BusiestAuthor)
			}
			if len(top) > 0 {
				b.WriteString("\nTop authors:\n")
				for i, a := range top {
					fmt.Fprintf(&b, "  %d. %s: %d commits (%s)\n", i+1, a.Name, a.Commits, percent(a.Commits, report.TotalCommits))
				}
			}

			return &Result{
				Text:       b.String(),
				Structured: report,
				Meta:       meta(owner, repo, "get_commit_statistics", map[string]any{"days": days}),
			}, nil
		},
	}
}

// fetchCommits pages through the commits endpoint from the given timestamp,
// capped at commitsMaxPages (1000 commits).
func fetchCommits(ctx context.Context, deps Deps, owner, repo, since string) ([]github.Commit, error) {
	sink := deps.sink()
	path := fmt.Sprintf("/repos/%s/%s/commits", owner, repo)

	var all []github.Commit
	for page := 1; page <= commitsMaxPages; page++ {
		query := url.Values{}
		query.Set("since", since)
		query.Set("per_page", strconv.Itoa(commitsPerPage))
		query.Set("page", strconv.Itoa(page))

		var pageCommits []github.Commit
		if _, err := deps.GitHub.GetJSON(ctx, path, query, sink, &pageCommits); err != nil {
			return nil, err
		}
		if len(pageCommits) == 0 {
			break
		}
		all = append(all, pageCommits...)
		sink.Progress(page, commitsMaxPages)

		if len(pageCommits) < commitsPerPage {
			break
		}
	}
	return all, nil
}
