package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/repolens/repolens/internal/github"
)

const (
	issuesPerPage  = 100
	issuesMaxPages = 10
	recentIssues   = 5
)

// IssueSummary is the trimmed issue shape returned in structured content.
type IssueSummary struct {
	Number    int      `json:"number"`
	Title     string   `json:"title"`
	State     string   `json:"state"`
	Labels    []string `json:"labels"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// IssuesReport is the structured payload of get_repository_issues_summary.
type IssuesReport struct {
	Repository    string         `json:"repository"`
	TotalIssues   int            `json:"total_issues"`
	OpenIssues    int            `json:"open_issues"`
	ClosedIssues  int            `json:"closed_issues"`
	AnalyzedCount int            `json:"analyzed_count"`
	IssuesByLabel map[string]int `json:"issues_by_label"`
	RecentIssues  []IssueSummary `json:"recent_issues"`
}

func newIssuesSummaryTool(deps Deps) Tool {
	return Tool{
		Name: "get_repository_issues_summary",
		Description: "Summarizes repository issues: open/closed totals, distribution by label, " +
			"and the most recent issues. Pull requests are excluded. Supports a state filter " +
			"(open, closed, all) and an optional label filter.",
		InputSchema: ownerRepoSchema(map[string]any{
			"state": map[string]any{
				"type":        "string",
				"description": "Issue state filter: open, closed, or all",
				"enum":        []string{"open", "closed", "all"},
				"default":     "open",
			},
			"labels": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Restrict to issues carrying all of these labels",
			},
		}),
		Handler: func(ctx context.Context, args map[string]any) (*Result, error) {
			owner, repo, err := ownerRepoArgs(args)
			if err != nil {
				return nil, err
			}
			state, err := optionalStringArg(args, "state", "open")
			if err != nil {
				return nil, err
			}
			if state != "open" && state != "closed" && state != "all" {
				return nil, github.NewValidationError("parameter \"state\" must be open, closed, or all, got %q", state)
			}
			labels, err := stringListArg(args, "labels")
			if err != nil {
				return nil, err
			}

			sink := deps.sink()
			full := owner + "/" + repo
			sink.Info(fmt.Sprintf("collecting issues for %s (state=%s)", full, state))

			issues, err := fetchIssues(ctx, deps, owner, repo, state, labels)
			if err != nil {
				return nil, err
			}

			open, closed := issueTotals(ctx, deps, full, issues)

			byLabel := make(map[string]int)
			for _, issue := range issues {
				for _, l := range issue.Labels {
					if l.Name != "" {
						byLabel[l.Name]++
					}
				}
			}

			recent := make([]IssueSummary, 0, recentIssues)
			for _, issue := range issues {
				if len(recent) == recentIssues {
					break
				}
				names := make([]string, 0, len(issue.Labels))
				for _, l := range issue.Labels {
					names = append(names, l.Name)
				}
				recent = append(recent, IssueSummary{
					Number:    issue.Number,
					Title:     issue.Title,
					State:     issue.State,
					Labels:    names,
					CreatedAt: issue.CreatedAt,
					UpdatedAt: issue.UpdatedAt,
				})
			}

			report := &IssuesReport{
				Repository:    full,
				TotalIssues:   open + closed,
				OpenIssues:    open,
				ClosedIssues:  closed,
				AnalyzedCount: len(issues),
				IssuesByLabel: byLabel,
				RecentIssues:  recent,
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Issues summary for %s\n\n", full)
			fmt.Fprintf(&b, "Total issues: %d (open %d, closed %d)\n", report.TotalIssues, open, closed)
			fmt.Fprintf(&b, "Analyzed in detail: %d\n", len(issues))
			if len(byLabel) > 0 {
				b.WriteString("\nBy label:\n")
				for _, name := range sortedKeys(byLabel) {
					fmt.Fprintf(&b, "  %s: %d\n", name, byLabel[name])
				}
			}
			if len(recent) > 0 {
				b.WriteString("\nMost recent:\n")
				for i, issue := range recent {
					fmt.Fprintf(&b, "  %d. #%d %s [%s]\n", i+1, issue.Number, issue.Title, issue.State)
				}
			}

			return &Result{
				Text:       b.String(),
				Structured: report,
				Meta:       meta(owner, repo, "get_repository_issues_summary", map[string]any{"state": state}),
			}, nil
		},
	}
}

// fetchIssues pages through the issues endpoint, capped at issuesMaxPages,
// dropping pull requests from every page.
func fetchIssues(ctx context.Context, deps Deps, owner, repo, state string, labels []string) ([]github.Issue, error) {
	sink := deps.sink()
	path := fmt.Sprintf("/repos/%s/%s/issues", owner, repo)

	var all []github.Issue
	for page := 1; page <= issuesMaxPages; page++ {
		query := url.Values{}
		query.Set("state", state)
		query.Set("per_page", strconv.Itoa(issuesPerPage))
		query.Set("page", strconv.Itoa(page))
		if len(labels) > 0 {
			query.Set("labels", strings.Join(labels, ","))
		}

		var pageIssues []github.Issue
		if _, err := deps.GitHub.GetJSON(ctx, path, query, sink, &pageIssues); err != nil {
			return nil, err
		}
		if len(pageIssues) == 0 {
			break
		}

		for _, issue := range pageIssues {
			if issue.PullRequest == nil {
				all = append(all, issue)
			}
		}
		sink.Progress(page, issuesMaxPages)

		if len(pageIssues) < issuesPerPage {
			break
		}
	}
	return all, nil
}

// issueTotals resolves open/closed issue totals via the search API, falling
// back to counting the fetched sample when search is unavailable.
func issueTotals(ctx context.Context, deps Deps, full string, fetched []github.Issue) (open, closed int) {
	sink := deps.sink()

	count := func(state string) (int, bool) {
		query := url.Values{}
		query.Set("q", fmt.Sprintf("repo:%s type:issue state:%s", full, state))
		query.Set("per_page", "1")
		var result github.SearchResult
		if _, err := deps.GitHub.GetJSON(ctx, "/search/issues", query, sink, &result); err != nil {
			return 0, false
		}
		return result.TotalCount, true
	}

	open, okOpen := count("open")
	closed, okClosed := count("closed")
	if okOpen && okClosed {
		return open, closed
	}

	sink.Info("search API unavailable, issue totals derived from the fetched sample")
	open, closed = 0, 0
	for _, issue := range fetched {
		if issue.State == "open" {
			open++
		} else {
			closed++
		}
	}
	return open, closed
}
