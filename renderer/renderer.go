// Package renderer turns analyses, vault items, saved reports and scenarios
// into markdown, and markdown into terminal or HTML output.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
	"time"

	"github.com/etnz/finsight"
)

//go:embed *.md
var templates embed.FS

// comparisonPartials are the sections of comparison.md, in no particular order.
var comparisonPartials = map[string]string{
	"comparison_title":       "comparison_title.md",
	"comparison_summary":     "comparison_summary.md",
	"comparison_differences": "comparison_differences.md",
	"comparison_alerts":      "comparison_alerts.md",
	"comparison_risk":        "comparison_risk.md",
	"comparison_forecast":    "comparison_forecast.md",
	"comparison_insights":    "comparison_insights.md",
	"comparison_context":     "comparison_context.md",
}

// RenderComparison renders a fresh analysis result.
func RenderComparison(r *finsight.ComparisonResult, sources []string, opts Options) string {
	c := NewComparison("Financial Analysis", r, opts)
	c.Sources = strings.Join(sources, ", ")
	return renderTemplate("comparison", "comparison.md", comparisonPartials, c)
}

// RenderSavedReport renders a saved report with its title, date and sources.
func RenderSavedReport(r finsight.SavedReport, opts Options) string {
	c := NewComparison(r.Title, &r.Result, opts)
	if t := r.Time(); !t.IsZero() {
		c.Date = t.Format(time.DateTime)
	} else {
		c.Date = r.Date
	}
	c.Sources = strings.Join(r.FileNames, ", ")
	return renderTemplate("comparison", "comparison.md", comparisonPartials, c)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			var readErr error
			content, readErr = fs.ReadFile(templates, file)
			if readErr != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, readErr)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
