package tools

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/repolens/repolens/internal/github"
)

const (
	minCompareTargets = 2
	maxCompareTargets = 5

	// missingCommitAge is the sentinel for targets whose latest commit could
	// not be determined; it sorts them last in the activity ranking.
	missingCommitAge = 9999
)

// defaultCompareMetrics is the full metric set computed when the caller does
// not restrict it.
var defaultCompareMetrics = []string{
	"open_issues",
	"open_prs",
	"stars",
	"forks",
	"watchers",
	"last_commit_age",
}

// CompareTarget identifies one repository submitted for comparison.
type CompareTarget struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func (t CompareTarget) String() string {
	return t.Owner + "/" + t.Repo
}

// TargetOutcome is one comparison slot: either a metric bag or a recorded
// failure. Failed targets are never dropped from the report.
type TargetOutcome struct {
	Owner   string       `json:"owner"`
	Repo    string       `json:"repo"`
	Metrics *RepoMetrics `json:"metrics,omitempty"`
	Error   string       `json:"error,omitempty"`
	Code    string       `json:"error_code,omitempty"`
}

// CompareSummary holds the cross-target rankings, computed over successful
// targets only. Empty when no target succeeded.
type CompareSummary struct {
	MostActive  string `json:"most_active,omitempty"`
	MostPopular string `json:"most_popular,omitempty"`
	MostForked  string `json:"most_forked,omitempty"`
}

// CompareReport is the structured payload of compare_repositories.
type CompareReport struct {
	Repositories      []TargetOutcome           `json:"repositories"`
	ComparisonMetrics map[string]map[string]any `json:"comparison_metrics"`
	Summary           CompareSummary            `json:"summary"`
	SucceededCount    int                       `json:"succeeded_count"`
	FailedCount       int                       `json:"failed_count"`
}

// ParseTargets converts "owner/repo" strings into validated targets.
func ParseTargets(specs []string) ([]CompareTarget, error) {
	targets := make([]CompareTarget, 0, len(specs))
	for _, spec := range specs {
		owner, repo, ok := strings.Cut(strings.TrimSpace(spec), "/")
		if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
			return nil, github.NewValidationError("repository %q must have the form owner/repo", spec)
		}
		targets = append(targets, CompareTarget{Owner: owner, Repo: repo})
	}
	return ValidateTargets(targets)
}

// ValidateTargets enforces the 2..5 distinct-targets invariant before any
// network call is made.
func ValidateTargets(targets []CompareTarget) ([]CompareTarget, error) {
	if len(targets) < minCompareTargets {
		return nil, github.NewValidationError("at least %d repositories are required for comparison, got %d", minCompareTargets, len(targets))
	}
	if len(targets) > maxCompareTargets {
		return nil, github.NewValidationError("at most %d repositories can be compared, got %d", maxCompareTargets, len(targets))
	}

	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if t.Owner == "" || t.Repo == "" {
			return nil, github.NewValidationError("every repository needs both owner and repo")
		}
		key := strings.ToLower(t.String())
		if _, dup := seen[key]; dup {
			return nil, github.NewValidationError("duplicate repository %s in comparison", t)
		}
		seen[key] = struct{}{}
	}
	return targets, nil
}

// CompareRepositories runs the fan-out: one concurrent collection per target,
// one slot per target in the result regardless of individual failures, then
// rankings over the successes. Used by both the MCP tool and the CLI.
func CompareRepositories(ctx context.Context, deps Deps, targets []CompareTarget, metricNames []string) (*CompareReport, error) {
	targets, err := ValidateTargets(targets)
	if err != nil {
		return nil, err
	}
	selected, err := selectMetrics(metricNames)
	if err != nil {
		return nil, err
	}

	sink := deps.sink()
	sink.Info(fmt.Sprintf("comparing %d repositories", len(targets)))

	outcomes := make([]TargetOutcome, len(targets))
	var g errgroup.Group
	for i, target := range targets {
		g.Go(func() error {
			m, err := collectRepoMetrics(ctx, deps, target.Owner, target.Repo)
			if err != nil {
				apiErr := github.AsAPIError(err)
				sink.Error(fmt.Sprintf("collection failed for %s: %s", target, apiErr.Message))
				outcomes[i] = TargetOutcome{
					Owner: target.Owner,
					Repo:  target.Repo,
					Error: apiErr.Message,
					Code:  string(apiErr.Code),
				}
				return nil
			}
			outcomes[i] = TargetOutcome{Owner: target.Owner, Repo: target.Repo, Metrics: m}
			return nil
		})
	}
	_ = g.Wait()

	report := &CompareReport{
		Repositories:      outcomes,
		ComparisonMetrics: pivotMetrics(outcomes, selected),
	}
	for _, o := range outcomes {
		if o.Metrics != nil {
			report.SucceededCount++
		} else {
			report.FailedCount++
		}
	}
	report.Summary = rankTargets(outcomes, selected)

	return report, nil
}

func selectMetrics(names []string) ([]string, error) {
	if len(names) == 0 {
		return defaultCompareMetrics, nil
	}

	known := make(map[string]struct{}, len(defaultCompareMetrics))
	for _, m := range defaultCompareMetrics {
		known[m] = struct{}{}
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if _, ok := known[name]; !ok {
			return nil, github.NewValidationError("unknown metric %q, valid metrics: %s", name, strings.Join(defaultCompareMetrics, ", "))
		}
		out = append(out, name)
	}
	return out, nil
}

func metricValue(m *RepoMetrics, name string) any {
	switch name {
	case "open_issues":
		return m.OpenIssuesCount
	case "open_prs":
		return m.OpenPRsCount
	case "stars":
		return m.StarsCount
	case "forks":
		return m.ForksCount
	case "watchers":
		return m.WatchersCount
	case "last_commit_age":
		return commitAge(m)
	}
	return nil
}

func commitAge(m *RepoMetrics) int {
	if m.LastCommitAgeDays == nil {
		return missingCommitAge
	}
	return *m.LastCommitAgeDays
}

// pivotMetrics turns per-target bags into metric-name keyed maps. Failed
// targets simply have no entry under any metric.
func pivotMetrics(outcomes []TargetOutcome, selected []string) map[string]map[string]any {
	pivot := make(map[string]map[string]any, len(selected))
	for _, name := range selected {
		values := make(map[string]any)
		for _, o := range outcomes {
			if o.Metrics != nil {
				values[o.Metrics.Repository] = metricValue(o.Metrics, name)
			}
		}
		pivot[name] = values
	}
	return pivot
}

// rankTargets derives the summary rankings over successful targets, ties
// broken by input order. A ranking is only produced when its underlying
// metric was selected.
func rankTargets(outcomes []TargetOutcome, selected []string) CompareSummary {
	wants := make(map[string]bool, len(selected))
	for _, name := range selected {
		wants[name] = true
	}

	var summary CompareSummary
	best := struct {
		activeAge, popularStars, forkedForks int
	}{}
	for _, o := range outcomes {
		if o.Metrics == nil {
			continue
		}
		m := o.Metrics

		if wants["last_commit_age"] {
			if summary.MostActive == "" || commitAge(m) < best.activeAge {
				summary.MostActive = m.Repository
				best.activeAge = commitAge(m)
			}
		}
		if wants["stars"] {
			if summary.MostPopular == "" || m.StarsCount > best.popularStars {
				summary.MostPopular = m.Repository
				best.popularStars = m.StarsCount
			}
		}
		if wants["forks"] {
			if summary.MostForked == "" || m.ForksCount > best.forkedForks {
				summary.MostForked = m.Repository
				best.forkedForks = m.ForksCount
			}
		}
	}
	return summary
}

func newCompareTool(deps Deps) Tool {
	return Tool{
		Name: "compare_repositories",
		Description: "Compares 2 to 5 repositories side by side on open issues, open pull " +
			"requests, stars, forks, watchers, and last-commit age, with most-active, " +
			"most-popular, and most-forked rankings. Failed repositories are reported " +
			"alongside the successful ones.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repositories": map[string]any{
					"type":        "array",
					"description": "Repositories to compare, each with owner and repo",
					"minItems":    minCompareTargets,
					"maxItems":    maxCompareTargets,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"owner": map[string]any{"type": "string"},
							"repo":  map[string]any{"type": "string"},
						},
						"required": []string{"owner", "repo"},
					},
				},
				"metrics": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Restrict the comparison to these metrics",
				},
			},
			"required": []string{"repositories"},
		},
		Handler: func(ctx context.Context, args map[string]any) (*Result, error) {
			targets, err := decodeCompareTargets(args)
			if err != nil {
				return nil, err
			}
			metricNames, err := stringListArg(args, "metrics")
			if err != nil {
				return nil, err
			}

			report, err := CompareRepositories(ctx, deps, targets, metricNames)
			if err != nil {
				return nil, err
			}

			names := make([]string, len(targets))
			for i, t := range targets {
				names[i] = t.String()
			}

			return &Result{
				Text:       renderCompareText(report),
				Structured: report,
				Meta: map[string]any{
					"operation":    "compare_repositories",
					"repositories": names,
				},
			}, nil
		},
	}
}

func decodeCompareTargets(args map[string]any) ([]CompareTarget, error) {
	raw, ok := args["repositories"]
	if !ok || raw == nil {
		return nil, github.NewValidationError("missing required parameter \"repositories\"")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, github.NewValidationError("parameter \"repositories\" must be a list")
	}

	targets := make([]CompareTarget, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case map[string]any:
			owner, _ := v["owner"].(string)
			repo, _ := v["repo"].(string)
			targets = append(targets, CompareTarget{Owner: strings.TrimSpace(owner), Repo: strings.TrimSpace(repo)})
		case string:
			owner, repo, ok := strings.Cut(strings.TrimSpace(v), "/")
			if !ok {
				return nil, github.NewValidationError("repository %q must have the form owner/repo", v)
			}
			targets = append(targets, CompareTarget{Owner: owner, Repo: repo})
		default:
			return nil, github.NewValidationError("every repository must be an object with owner and repo")
		}
	}
	return targets, nil
}

func renderCompareText(report *CompareReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository comparison (%d succeeded, %d failed)\n", report.SucceededCount, report.FailedCount)

	if report.Summary.MostActive != "" {
		fmt.Fprintf(&b, "\nMost active:  %s\n", report.Summary.MostActive)
	}
	if report.Summary.MostPopular != "" {
		fmt.Fprintf(&b, "Most popular: %s\n", report.Summary.MostPopular)
	}
	if report.Summary.MostForked != "" {
		fmt.Fprintf(&b, "Most forked:  %s\n", report.Summary.MostForked)
	}

	for _, o := range report.Repositories {
		full := o.Owner + "/" + o.Repo
		if o.Metrics == nil {
			fmt.Fprintf(&b, "\n%s: FAILED (%s) %s\n", full, o.Code, o.Error)
			continue
		}
		m := o.Metrics
		fmt.Fprintf(&b, "\n%s:\n", full)
		fmt.Fprintf(&b, "  stars %d, forks %d, watchers %d\n", m.StarsCount, m.ForksCount, m.WatchersCount)
		fmt.Fprintf(&b, "  open issues %d, open PRs %d\n", m.OpenIssuesCount, m.OpenPRsCount)
		if m.LastCommitAgeDays != nil {
			fmt.Fprintf(&b, "  last commit %d days ago\n", *m.LastCommitAgeDays)
		} else {
			b.WriteString("  last commit unknown\n")
		}
	}
	return b.String()
}
