package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/repolens/repolens/internal/github"
)

// fakeRepo drives the fake GitHub used by the tool tests.
type fakeRepo struct {
	stars, forks, watchers int
	openIssues             int
	openPRs                int
	lastCommitDaysAgo      int // -1 means no commits
	status                 int // non-zero forces this status on the metadata call
}

func fakeGitHub(t *testing.T, repos map[string]fakeRepo) Deps {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/search/issues" {
			q := r.URL.Query().Get("q")
			for full, repo := range repos {
				if strings.Contains(q, "repo:"+full+" ") && strings.Contains(q, "type:pr") {
					_ = json.NewEncoder(w).Encode(map[string]int{"total_count": repo.openPRs})
					return
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]int{"total_count": 0})
			return
		}

		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/repos/"), "/")
		if len(parts) < 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		full := parts[0] + "/" + parts[1]
		repo, ok := repos[full]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}

		if len(parts) == 2 {
			if repo.status != 0 {
				w.WriteHeader(repo.status)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"full_name":         full,
				"stargazers_count":  repo.stars,
				"forks_count":       repo.forks,
				"watchers_count":    repo.watchers,
				"open_issues_count": repo.openIssues,
			})
			return
		}

		if parts[2] == "commits" {
			if repo.lastCommitDaysAgo < 0 {
				_, _ = w.Write([]byte(`[]`))
				return
			}
			date := time.Now().AddDate(0, 0, -repo.lastCommitDaysAgo).UTC().Format(time.RFC3339)
			fmt.Fprintf(w, `[{"sha":"abc","commit":{"author":{"name":"dev","date":%q}}}]`, date)
			return
		}

		w.WriteHeader(http.StatusNotFound)
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := github.NewClient(github.Config{
		BaseURL:     srv.URL,
		Timeout:     5 * time.Second,
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
	}, rate.NewLimiter(rate.Inf, 1))

	return Deps{GitHub: client}
}

func targets(specs ...string) []CompareTarget {
	out, err := ParseTargets(specs)
	if err != nil {
		panic(err)
	}
	return out
}

func TestValidateTargetsBounds(t *testing.T) {
	_, err := ValidateTargets([]CompareTarget{{Owner: "a", Repo: "b"}})
	require.Error(t, err)
	assert.Equal(t, github.CodeValidation, github.AsAPIError(err).Code)

	six := make([]CompareTarget, 6)
	for i := range six {
		six[i] = CompareTarget{Owner: "o", Repo: fmt.Sprintf("r%d", i)}
	}
	_, err = ValidateTargets(six)
	require.Error(t, err)

	_, err = ValidateTargets([]CompareTarget{
		{Owner: "a", Repo: "b"},
		{Owner: "A", Repo: "B"},
	})
	require.Error(t, err, "duplicates differing only in case must be rejected")
}

func TestValidateTargetsRejectsBeforeNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no network call may happen on validation failure")
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(github.Config{BaseURL: srv.URL}, rate.NewLimiter(rate.Inf, 1))
	_, err := CompareRepositories(context.Background(), Deps{GitHub: client}, []CompareTarget{{Owner: "a", Repo: "b"}}, nil)
	require.Error(t, err)
}

func TestParseTargets(t *testing.T) {
	parsed, err := ParseTargets([]string{"octocat/hello", "golang/go"})
	require.NoError(t, err)
	assert.Equal(t, []CompareTarget{{Owner: "octocat", Repo: "hello"}, {Owner: "golang", Repo: "go"}}, parsed)

	_, err = ParseTargets([]string{"octocat/hello", "noslash"})
	require.Error(t, err)
}

func TestCompareRankings(t *testing.T) {
	deps := fakeGitHub(t, map[string]fakeRepo{
		"alpha/fresh":   {stars: 100, forks: 40, watchers: 100, openIssues: 10, openPRs: 3, lastCommitDaysAgo: 2},
		"beta/popular":  {stars: 500, forks: 200, watchers: 500, openIssues: 50, openPRs: 10, lastCommitDaysAgo: 30},
		"gamma/dormant": {stars: 20, forks: 5, watchers: 20, openIssues: 4, openPRs: 0, lastCommitDaysAgo: -1},
	})

	report, err := CompareRepositories(context.Background(), deps,
		targets("alpha/fresh", "beta/popular", "gamma/dormant"), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.SucceededCount)
	assert.Equal(t, 0, report.FailedCount)
	assert.Equal(t, "alpha/fresh", report.Summary.MostActive)
	assert.Equal(t, "beta/popular", report.Summary.MostPopular)
	assert.Equal(t, "beta/popular", report.Summary.MostForked)

	// Missing commit history sorts last via the sentinel age.
	assert.Equal(t, missingCommitAge, report.ComparisonMetrics["last_commit_age"]["gamma/dormant"])
	// Open issues exclude open PRs.
	assert.Equal(t, 7, report.ComparisonMetrics["open_issues"]["alpha/fresh"])
}

func TestComparePartialFailure(t *testing.T) {
	deps := fakeGitHub(t, map[string]fakeRepo{
		"ok/one": {stars: 10, forks: 1, openIssues: 2, lastCommitDaysAgo: 1},
		"ok/two": {stars: 30, forks: 9, openIssues: 5, lastCommitDaysAgo: 4},
	})

	report, err := CompareRepositories(context.Background(), deps,
		targets("ok/one", "missing/gone", "ok/two"), nil)
	require.NoError(t, err, "partial failure is not an error")

	require.Len(t, report.Repositories, 3, "failed targets keep their slot")
	assert.Equal(t, 2, report.SucceededCount)
	assert.Equal(t, 1, report.FailedCount)

	failed := report.Repositories[1]
	assert.Equal(t, "missing", failed.Owner)
	assert.Nil(t, failed.Metrics)
	assert.Equal(t, string(github.CodeNotFound), failed.Code)
	assert.NotEmpty(t, failed.Error)

	// Rankings computed over successes only.
	assert.Equal(t, "ok/one", report.Summary.MostActive)
	assert.Equal(t, "ok/two", report.Summary.MostPopular)
	_, inPivot := report.ComparisonMetrics["stars"]["missing/gone"]
	assert.False(t, inPivot)
}

func TestCompareAllFailedEmptyRankings(t *testing.T) {
	deps := fakeGitHub(t, map[string]fakeRepo{})

	report, err := CompareRepositories(context.Background(), deps,
		targets("gone/one", "gone/two"), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, report.SucceededCount)
	assert.Equal(t, 2, report.FailedCount)
	assert.Empty(t, report.Summary.MostActive)
	assert.Empty(t, report.Summary.MostPopular)
	assert.Empty(t, report.Summary.MostForked)
}

func TestCompareTieBreakByInputOrder(t *testing.T) {
	deps := fakeGitHub(t, map[string]fakeRepo{
		"first/repo":  {stars: 100, forks: 10, lastCommitDaysAgo: 5},
		"second/repo": {stars: 100, forks: 10, lastCommitDaysAgo: 5},
	})

	report, err := CompareRepositories(context.Background(), deps,
		targets("first/repo", "second/repo"), nil)
	require.NoError(t, err)

	assert.Equal(t, "first/repo", report.Summary.MostActive)
	assert.Equal(t, "first/repo", report.Summary.MostPopular)
	assert.Equal(t, "first/repo", report.Summary.MostForked)
}

func TestCompareMetricFilter(t *testing.T) {
	deps := fakeGitHub(t, map[string]fakeRepo{
		"a/x": {stars: 1, forks: 2, lastCommitDaysAgo: 1},
		"b/y": {stars: 9, forks: 8, lastCommitDaysAgo: 2},
	})

	report, err := CompareRepositories(context.Background(), deps,
		targets("a/x", "b/y"), []string{"stars"})
	require.NoError(t, err)

	assert.Len(t, report.ComparisonMetrics, 1)
	assert.Contains(t, report.ComparisonMetrics, "stars")
	assert.Equal(t, "b/y", report.Summary.MostPopular)
	assert.Empty(t, report.Summary.MostActive, "unselected metrics produce no ranking")
	assert.Empty(t, report.Summary.MostForked)
}

func TestCompareUnknownMetricRejected(t *testing.T) {
	deps := fakeGitHub(t, map[string]fakeRepo{})
	_, err := CompareRepositories(context.Background(), deps,
		targets("a/x", "b/y"), []string{"velocity"})
	require.Error(t, err)
	assert.Equal(t, github.CodeValidation, github.AsAPIError(err).Code)
}

func TestCompareToolHandler(t *testing.T) {
	deps := fakeGitHub(t, map[string]fakeRepo{
		"a/x": {stars: 5, forks: 1, lastCommitDaysAgo: 3},
		"b/y": {stars: 50, forks: 4, lastCommitDaysAgo: 1},
	})
	registry := NewRegistry(deps)

	result, err := registry.Call(context.Background(), "compare_repositories", map[string]any{
		"repositories": []any{
			map[string]any{"owner": "a", "repo": "x"},
			map[string]any{"owner": "b", "repo": "y"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	report, ok := result.Structured.(*CompareReport)
	require.True(t, ok)
	assert.Equal(t, "b/y", report.Summary.MostPopular)
	assert.Contains(t, result.Text, "Most popular: b/y")
	assert.Equal(t, "compare_repositories", result.Meta["operation"])
}
