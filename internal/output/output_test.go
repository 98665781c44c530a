package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/tools"
)

func sampleReport() *tools.CompareReport {
	return &tools.CompareReport{
		Repositories: []tools.TargetOutcome{
			{Owner: "acme", Repo: "rocket", Metrics: &tools.RepoMetrics{Repository: "acme/rocket"}},
			{Owner: "acme", Repo: "gone", Error: "repository not found", Code: "NOT_FOUND"},
		},
		ComparisonMetrics: map[string]map[string]any{
			"stars":           {"acme/rocket": 120},
			"forks":           {"acme/rocket": 14},
			"open_issues":     {"acme/rocket": 3},
			"open_prs":        {"acme/rocket": 1},
			"watchers":        {"acme/rocket": 120},
			"last_commit_age": {"acme/rocket": 2},
		},
		Summary: tools.CompareSummary{
			MostActive:  "acme/rocket",
			MostPopular: "acme/rocket",
			MostForked:  "acme/rocket",
		},
		SucceededCount: 1,
		FailedCount:    1,
	}
}

func TestParseFormat(t *testing.T) {
	for value, expected := range map[string]Format{
		"":          FormatTable,
		"table":     FormatTable,
		"JSON":      FormatJSON,
		" markdown": FormatMarkdown,
	} {
		format, err := ParseFormat(value)
		require.NoError(t, err, "value %q", value)
		assert.Equal(t, expected, format)
	}

	_, err := ParseFormat("yaml")
	assert.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	rendered, err := (&TableFormatter{}).FormatCompare(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, rendered, "acme/rocket")
	assert.Contains(t, rendered, "120")
	assert.Contains(t, rendered, "not_found")
	assert.Contains(t, rendered, "1/2 succeeded")
	assert.Contains(t, rendered, "Most popular: acme/rocket")
}

func TestTableFormatterHonorsMetricFilter(t *testing.T) {
	report := sampleReport()
	report.ComparisonMetrics = map[string]map[string]any{
		"stars": {"acme/rocket": 120},
	}
	report.Summary = tools.CompareSummary{MostPopular: "acme/rocket"}

	rendered, err := (&TableFormatter{}).FormatCompare(report)
	require.NoError(t, err)

	assert.Contains(t, rendered, "Stars")
	assert.NotContains(t, rendered, "Forks")
	assert.NotContains(t, rendered, "Most active")
}

func TestJSONFormatter(t *testing.T) {
	rendered, err := (&JSONFormatter{Indent: true}).FormatCompare(sampleReport())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rendered, "{"))
	assert.Contains(t, rendered, `"most_popular": "acme/rocket"`)
	assert.Contains(t, rendered, `"error_code": "NOT_FOUND"`)
}

func TestMarkdownFormatter(t *testing.T) {
	rendered, err := (&MarkdownFormatter{}).FormatCompare(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, rendered, "| Repository |")
	assert.Contains(t, rendered, "| acme/rocket |")
	assert.Contains(t, rendered, "| not_found |")
	assert.Contains(t, rendered, "**Succeeded**: 1/2")
}

func TestFormattersHandleNilReport(t *testing.T) {
	for _, f := range []Formatter{&TableFormatter{}, &JSONFormatter{}, &MarkdownFormatter{}} {
		rendered, err := f.FormatCompare(nil)
		require.NoError(t, err)
		assert.Empty(t, rendered)
	}
}
