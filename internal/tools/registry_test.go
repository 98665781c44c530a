package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/repolens/repolens/internal/github"
)

func TestRegistryListsAllTools(t *testing.T) {
	registry := NewRegistry(Deps{})

	names := make([]string, 0)
	for _, tool := range registry.List() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, "%s needs a description", tool.Name)
		assert.NotNil(t, tool.InputSchema, "%s needs an input schema", tool.Name)
		assert.NotNil(t, tool.Handler, "%s needs a handler", tool.Name)
	}

	assert.Equal(t, []string{
		"get_repository_health",
		"get_repository_issues_summary",
		"get_repository_contributors",
		"compare_repositories",
		"get_releases_summary",
		"get_commit_statistics",
		"get_activity_timeline",
	}, names)
}

func TestRegistryUnknownTool(t *testing.T) {
	registry := NewRegistry(Deps{})
	_, err := registry.Call(context.Background(), "no_such_tool", nil)
	require.Error(t, err)
	assert.Equal(t, github.CodeValidation, github.AsAPIError(err).Code)
}

func TestIssuesSummaryFiltersPullRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/a/b/issues":
			if r.URL.Query().Get("page") != "1" {
				_, _ = w.Write([]byte(`[]`))
				return
			}
			_, _ = w.Write([]byte(`[
				{"number":3,"title":"real issue","state":"open","labels":[{"name":"bug"}]},
				{"number":2,"title":"a pr","state":"open","pull_request":{}},
				{"number":1,"title":"another issue","state":"open","labels":[{"name":"bug"},{"name":"docs"}]}
			]`))
		case "/search/issues":
			q := r.URL.Query().Get("q")
			count := 2
			if q == "repo:a/b type:issue state:closed" {
				count = 7
			}
			_ = json.NewEncoder(w).Encode(map[string]int{"total_count": count})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(github.Config{BaseURL: srv.URL, Timeout: 5 * time.Second, BaseDelay: time.Millisecond}, rate.NewLimiter(rate.Inf, 1))
	registry := NewRegistry(Deps{GitHub: client})

	result, err := registry.Call(context.Background(), "get_repository_issues_summary", map[string]any{
		"owner": "a", "repo": "b",
	})
	require.NoError(t, err)

	report, ok := result.Structured.(*IssuesReport)
	require.True(t, ok)
	assert.Equal(t, 2, report.AnalyzedCount, "the pull request must be filtered out")
	assert.Equal(t, 2, report.OpenIssues)
	assert.Equal(t, 7, report.ClosedIssues)
	assert.Equal(t, 9, report.TotalIssues)
	assert.Equal(t, 2, report.IssuesByLabel["bug"])
	assert.Equal(t, 1, report.IssuesByLabel["docs"])
	require.Len(t, report.RecentIssues, 2)
	assert.Equal(t, 3, report.RecentIssues[0].Number)
}

func TestIssuesSummaryRejectsBadState(t *testing.T) {
	registry := NewRegistry(Deps{})
	_, err := registry.Call(context.Background(), "get_repository_issues_summary", map[string]any{
		"owner": "a", "repo": "b", "state": "stale",
	})
	require.Error(t, err)
	assert.Equal(t, github.CodeValidation, github.AsAPIError(err).Code)
}

func TestContributorsToolBounds(t *testing.T) {
	registry := NewRegistry(Deps{})
	_, err := registry.Call(context.Background(), "get_repository_contributors", map[string]any{
		"owner": "a", "repo": "b", "top_n": float64(101),
	})
	require.Error(t, err)
	assert.Equal(t, github.CodeValidation, github.AsAPIError(err).Code)
}

func TestContributorsTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/a/b/contributors", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`[
			{"login":"lead","contributions":90,"type":"User"},
			{"login":"bot","contributions":40,"type":"Bot"},
			{"login":"drive-by","contributions":1,"type":"User"}
		]`))
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(github.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, rate.NewLimiter(rate.Inf, 1))
	registry := NewRegistry(Deps{GitHub: client})

	result, err := registry.Call(context.Background(), "get_repository_contributors", map[string]any{
		"owner": "a", "repo": "b", "top_n": float64(3),
	})
	require.NoError(t, err)

	report, ok := result.Structured.(*ContributorsReport)
	require.True(t, ok)
	assert.Equal(t, 3, report.TotalContributors)
	assert.Equal(t, "lead", report.TopContributors[0].Login)
	assert.Contains(t, result.Text, "1. lead: 90 contributions (User)")
}

func TestCommitStatisticsTool(t *testing.T) {
	now := time.Now().UTC()
	commit := func(name string, daysAgo int) string {
		date := now.AddDate(0, 0, -daysAgo).Format(time.RFC3339)
		return fmt.Sprintf(`{"sha":"x","commit":{"author":{"name":%q,"date":%q}}}`, name, date)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/a/b/commits", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		if r.URL.Query().Get("page") != "1" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		payload := "[" + commit("alice", 1) + "," + commit("bob", 2) + "," + commit("alice", 3) + "]"
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(github.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, rate.NewLimiter(rate.Inf, 1))
	registry := NewRegistry(Deps{GitHub: client})

	result, err := registry.Call(context.Background(), "get_commit_statistics", map[string]any{
		"owner": "a", "repo": "b", "days": float64(7),
	})
	require.NoError(t, err)

	report, ok := result.Structured.(*CommitStatsReport)
	require.True(t, ok)
	assert.Equal(t, 3, report.TotalCommits)
	assert.Equal(t, 2, report.UniqueAuthors)
	assert.Equal(t, "alice", report.BusiestAuthor)
	assert.Equal(t, 2, report.TopAuthors[0].Commits)
}

func TestActivityTimelineTool(t *testing.T) {
	now := time.Now().UTC()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/a/b/events", r.URL.Path)
		event := func(typ string, daysAgo int) string {
			return fmt.Sprintf(`{"type":%q,"actor":{"login":"dev"},"created_at":%q}`, typ, now.AddDate(0, 0, -daysAgo).Format(time.RFC3339))
		}
		payload := "[" + event("PushEvent", 1) + "," + event("PushEvent", 1) + "," + event("IssuesEvent", 2) + "," + event("PushEvent", 90) + "]"
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(github.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, rate.NewLimiter(rate.Inf, 1))
	registry := NewRegistry(Deps{GitHub: client})

	result, err := registry.Call(context.Background(), "get_activity_timeline", map[string]any{
		"owner": "a", "repo": "b", "days": float64(30),
	})
	require.NoError(t, err)

	report, ok := result.Structured.(*TimelineReport)
	require.True(t, ok)
	assert.Equal(t, 3, report.TotalEvents, "the 90-day-old event falls outside the window")
	assert.Equal(t, 2, report.ActiveDays)
	assert.Equal(t, 2, report.EventsByType["PushEvent"])
	assert.Equal(t, 1, report.EventsByType["IssuesEvent"])
}

func TestReleasesSummaryTool(t *testing.T) {
	published := time.Now().UTC().AddDate(0, 0, -14).Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/a/b/releases", r.URL.Path)
		fmt.Fprintf(w, `[
			{"tag_name":"v1.2.0","name":"Minor","published_at":%q,"prerelease":false,"draft":false},
			{"tag_name":"v1.2.0-rc1","name":"","published_at":%q,"prerelease":true,"draft":false}
		]`, published, published)
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(github.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, rate.NewLimiter(rate.Inf, 1))
	registry := NewRegistry(Deps{GitHub: client})

	result, err := registry.Call(context.Background(), "get_releases_summary", map[string]any{
		"owner": "a", "repo": "b",
	})
	require.NoError(t, err)

	report, ok := result.Structured.(*ReleasesReport)
	require.True(t, ok)
	assert.Equal(t, 2, report.TotalReleases)
	assert.Equal(t, 1, report.PrereleaseCount)
	require.NotNil(t, report.LatestRelease)
	assert.Equal(t, "v1.2.0", report.LatestRelease.TagName)
	require.NotNil(t, report.DaysSinceLatest)
	assert.Equal(t, 14, *report.DaysSinceLatest)
	assert.Equal(t, "v1.2.0-rc1", report.Releases[1].Name, "tag name stands in for a missing release name")
}
