package output

import (
	"fmt"
	"strings"

	"github.com/repolens/repolens/internal/tools"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders a comparison report.
type Formatter interface {
	FormatCompare(report *tools.CompareReport) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// metricColumns is the display order for per-repository metric columns.
var metricColumns = []struct {
	Key   string
	Title string
}{
	{"stars", "Stars"},
	{"forks", "Forks"},
	{"watchers", "Watchers"},
	{"open_issues", "Open Issues"},
	{"open_prs", "Open PRs"},
	{"last_commit_age", "Commit Age (d)"},
}

// metricCell renders one metric value for a repository, "-" when the
// repository failed or the metric was filtered out of the report.
func metricCell(report *tools.CompareReport, key, repository string) string {
	values, ok := report.ComparisonMetrics[key]
	if !ok {
		return ""
	}
	value, ok := values[repository]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%v", value)
}

// statusCell renders the outcome column for a comparison slot.
func statusCell(outcome tools.TargetOutcome) string {
	if outcome.Error == "" {
		return "ok"
	}
	if outcome.Code != "" {
		return strings.ToLower(outcome.Code)
	}
	return "error"
}

// presentColumns filters the column set down to metrics present in the
// report, preserving display order.
func presentColumns(report *tools.CompareReport) []struct{ Key, Title string } {
	columns := make([]struct{ Key, Title string }, 0, len(metricColumns))
	for _, col := range metricColumns {
		if _, ok := report.ComparisonMetrics[col.Key]; ok {
			columns = append(columns, struct{ Key, Title string }{col.Key, col.Title})
		}
	}
	return columns
}

// summaryLines renders the cross-target rankings as display lines.
func summaryLines(summary tools.CompareSummary) []string {
	lines := make([]string, 0, 3)
	if summary.MostActive != "" {
		lines = append(lines, fmt.Sprintf("Most active: %s", summary.MostActive))
	}
	if summary.MostPopular != "" {
		lines = append(lines, fmt.Sprintf("Most popular: %s", summary.MostPopular))
	}
	if summary.MostForked != "" {
		lines = append(lines, fmt.Sprintf("Most forked: %s", summary.MostForked))
	}
	return lines
}
