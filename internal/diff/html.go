package diff

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aymerick/raymond"
)

//go:embed templates/report.html
var reportTemplate string

const summaryText = `This report is a high level view of the migration with diffs listed
between source and destination. Each entity shows a color coded overall
accuracy along with the accuracy of every compared endpoint. Anything at
90% or above is considered a success; items below 90% merit further
investigation. This report does not replace user acceptance testing.`

const (
	colorSuccess = "#008000"
	colorFailure = "#ff0000"
	colorTitle   = "#6699CC"
)

// maxDiffSize bounds the rendered diff of one endpoint.
const maxDiffSize = 100000

// AsPercentage formats an accuracy for display.
func AsPercentage(f float64) string {
	if f <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", f*100)
}

func resultColor(result string) string {
	switch strings.ToLower(result) {
	case Success:
		return colorSuccess
	case Failure:
		return colorFailure
	}
	return colorTitle
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (r *Report) view() map[string]interface{} {
	entities := make([]map[string]interface{}, 0, len(r.Entities))
	for _, key := range r.Keys() {
		entities = append(entities, entityView(key, r.Entities[key]))
	}
	return map[string]interface{}{
		"title":           titleCase(r.Kind),
		"summaryText":     summaryText,
		"summaryLabel":    strings.ReplaceAll(titleCase(r.SummaryKey()), "_", " "),
		"titleColor":      colorTitle,
		"summaryColor":    resultColor(r.Summary.Result),
		"staged":          len(r.Entities),
		"successful":      r.Successful(),
		"summaryAccuracy": AsPercentage(r.Summary.OverallAccuracy),
		"summaryResult":   r.Summary.Result,
		"entities":        entities,
	}
}

func entityView(key string, e *EntityReport) map[string]interface{} {
	names := make([]string, 0, len(e.Endpoints))
	for n := range e.Endpoints {
		names = append(names, n)
	}
	sort.Strings(names)
	endpoints := make([]map[string]interface{}, 0, len(names))
	for _, n := range names {
		res := e.Endpoints[n]
		endpoints = append(endpoints, map[string]interface{}{
			"name":     n,
			"accuracy": AsPercentage(res.Accuracy),
			"diff":     renderDelta(res.Diff),
		})
	}

	countNames := make([]string, 0, len(e.Counts))
	for n := range e.Counts {
		countNames = append(countNames, n)
	}
	sort.Strings(countNames)
	counts := make([]map[string]interface{}, 0, len(countNames))
	for _, n := range countNames {
		c := e.Counts[n]
		counts = append(counts, map[string]interface{}{
			"name":        n,
			"source":      c.Source,
			"destination": c.Destination,
		})
	}

	return map[string]interface{}{
		"name":      key,
		"accuracy":  AsPercentage(e.Overall.Accuracy),
		"result":    e.Overall.Result,
		"color":     resultColor(e.Overall.Result),
		"error":     e.Error,
		"info":      e.Info,
		"endpoints": endpoints,
		"counts":    counts,
	}
}

func renderDelta(d Delta) string {
	if len(d) == 0 {
		return ""
	}
	b, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return err.Error()
	}
	if len(b) > maxDiffSize {
		return "diff too large to display"
	}
	return string(b)
}

// RenderHTML renders the report as a standalone HTML page.
func (r *Report) RenderHTML() (string, error) {
	out, err := raymond.Render(reportTemplate, r.view())
	if err != nil {
		return "", fmt.Errorf("rendering %s report: %w", r.Kind, err)
	}
	return out, nil
}

// WriteHTML renders the report into path, creating parent directories.
func (r *Report) WriteHTML(path string) error {
	page, err := r.RenderHTML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
