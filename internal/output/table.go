package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/repolens/repolens/internal/tools"
)

// TableFormatter renders a comparison report as an ASCII table.
type TableFormatter struct{}

// FormatCompare renders the report as a table with one row per repository.
func (f *TableFormatter) FormatCompare(report *tools.CompareReport) (string, error) {
	if report == nil {
		return "", nil
	}

	columns := presentColumns(report)

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)

	header := table.Row{"Repository"}
	for _, col := range columns {
		header = append(header, col.Title)
	}
	header = append(header, "Status")
	t.AppendHeader(header)

	for _, outcome := range report.Repositories {
		full := outcome.Owner + "/" + outcome.Repo
		row := table.Row{full}
		for _, col := range columns {
			row = append(row, metricCell(report, col.Key, full))
		}
		row = append(row, statusCell(outcome))
		t.AppendRow(row)
	}

	summary := fmt.Sprintf("%d/%d succeeded", report.SucceededCount, report.SucceededCount+report.FailedCount)
	footer := make(table.Row, len(columns)+2)
	footer[0] = summary
	t.AppendFooter(footer)

	rendered := t.Render()
	if lines := summaryLines(report.Summary); len(lines) > 0 {
		rendered += "\n" + strings.Join(lines, "\n")
	}
	return rendered, nil
}
