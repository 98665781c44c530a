package tools

import (
	"context"
	"fmt"
	"net/url"

	"github.com/repolens/repolens/internal/github"
)

// RepoMetrics is the per-repository metric bag shared by the health tool and
// the comparison aggregator.
type RepoMetrics struct {
	Repository        string `json:"repository"`
	OpenIssuesCount   int    `json:"open_issues_count"`
	OpenPRsCount      int    `json:"open_prs_count"`
	StarsCount        int    `json:"stars_count"`
	ForksCount        int    `json:"forks_count"`
	WatchersCount     int    `json:"watchers_count"`
	Language          string `json:"language,omitempty"`
	IsArchived        bool   `json:"is_archived"`
	IsDisabled        bool   `json:"is_disabled"`
	LastCommitDate    string `json:"last_commit_date,omitempty"`
	LastCommitAgeDays *int   `json:"last_commit_age_days"`
}

// collectRepoMetrics gathers one repository's metric bag with three
// sequential calls: repo metadata, open-PR count via the search API, latest
// commit. The metadata call is load-bearing; the other two degrade to zero
// values so one flaky sub-resource does not fail the whole collection.
func collectRepoMetrics(ctx context.Context, deps Deps, owner, repo string) (*RepoMetrics, error) {
	sink := deps.sink()
	full := owner + "/" + repo

	var repoData github.Repository
	if _, err := deps.GitHub.GetJSON(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo), nil, sink, &repoData); err != nil {
		return nil, err
	}

	openPRs := 0
	query := url.Values{}
	query.Set("q", fmt.Sprintf("repo:%s type:pr state:open", full))
	query.Set("per_page", "1")
	var search github.SearchResult
	if _, err := deps.GitHub.GetJSON(ctx, "/search/issues", query, sink, &search); err == nil {
		openPRs = search.TotalCount
	} else {
		sink.Info(fmt.Sprintf("open PR count unavailable for %s, assuming 0", full))
	}

	m := &RepoMetrics{
		Repository:      full,
		OpenIssuesCount: clampNonNegative(repoData.OpenIssuesCount - openPRs),
		OpenPRsCount:    openPRs,
		StarsCount:      repoData.StargazersCount,
		ForksCount:      repoData.ForksCount,
		WatchersCount:   repoData.WatchersCount,
		Language:        repoData.Language,
		IsArchived:      repoData.Archived,
		IsDisabled:      repoData.Disabled,
	}

	commitQuery := url.Values{}
	commitQuery.Set("per_page", "1")
	var commits []github.Commit
	if _, err := deps.GitHub.GetJSON(ctx, fmt.Sprintf("/repos/%s/%s/commits", owner, repo), commitQuery, sink, &commits); err == nil {
		if len(commits) > 0 {
			if t, ok := github.ParseTime(commits[0].Commit.Author.Date); ok {
				age := github.DaysSince(t)
				m.LastCommitDate = commits[0].Commit.Author.Date
				m.LastCommitAgeDays = &age
			}
		}
	} else {
		// Empty repositories return 409 on the commits endpoint; treat any
		// commit lookup failure as "age unknown".
		sink.Info(fmt.Sprintf("latest commit unavailable for %s", full))
	}

	return m, nil
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
