package output

import (
	"encoding/json"

	"github.com/repolens/repolens/internal/tools"
)

// JSONFormatter renders a comparison report as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatCompare renders the report as JSON.
func (f *JSONFormatter) FormatCompare(report *tools.CompareReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
