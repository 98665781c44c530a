package output

import (
	"fmt"
	"strings"

	"github.com/repolens/repolens/internal/tools"
)

// MarkdownFormatter renders a comparison report as a markdown table.
type MarkdownFormatter struct{}

// FormatCompare renders the report as Markdown.
func (f *MarkdownFormatter) FormatCompare(report *tools.CompareReport) (string, error) {
	if report == nil {
		return "", nil
	}

	columns := presentColumns(report)

	var sb strings.Builder
	sb.WriteString("## Repository comparison\n\n")

	sb.WriteString("| Repository |")
	for _, col := range columns {
		sb.WriteString(" " + col.Title + " |")
	}
	sb.WriteString(" Status |\n")

	sb.WriteString("|------------|")
	for range columns {
		sb.WriteString("---|")
	}
	sb.WriteString("---|\n")

	for _, outcome := range report.Repositories {
		full := outcome.Owner + "/" + outcome.Repo
		sb.WriteString(fmt.Sprintf("| %s |", escapeMarkdownCell(full)))
		for _, col := range columns {
			sb.WriteString(fmt.Sprintf(" %s |", escapeMarkdownCell(metricCell(report, col.Key, full))))
		}
		sb.WriteString(fmt.Sprintf(" %s |\n", escapeMarkdownCell(statusCell(outcome))))
	}

	sb.WriteString(fmt.Sprintf("\n**Succeeded**: %d/%d\n",
		report.SucceededCount, report.SucceededCount+report.FailedCount))

	for _, line := range summaryLines(report.Summary) {
		sb.WriteString(fmt.Sprintf("\n**%s**\n", line))
	}

	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
