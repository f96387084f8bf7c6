package renderer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/etnz/finsight"
)

// Options tunes the rendering of numbers.
type Options struct {
	Currency string // ISO code used for chart values, plain numbers when empty
}

// Row is a name and a formatted value.
type Row struct {
	Name  string
	Value string
}

// Difference is a row of the comparison matrix.
type Difference struct {
	Parameter string
	A, B      string
	Trend     string
}

// Forecast is a formatted forecast period.
type Forecast struct {
	Period   string
	Actual   string
	Forecast string
	Range    string
}

// Comparison is a ComparisonResult prepared for the markdown templates.
type Comparison struct {
	Title        string
	Date         string
	Sources      string
	Summary      []string
	Differences  []Difference
	Sentiment    string
	Confidence   int
	Risk         string
	Implications string
	Alerts       []finsight.Alert
	Chart        []Row
	Pie          []Row
	Bankruptcy   string
	AltmanZ      string
	Fraud        string
	RiskDetails  string
	Forecast     []Forecast
	Insights     []finsight.ActionableInsight
	Advice       []string
	Plugins      []Row
	History      string
}

var arrows = map[finsight.Trend]string{
	finsight.TrendUp:      "▲",
	finsight.TrendDown:    "▼",
	finsight.TrendNeutral: "=",
}

// NewComparison prepares r for rendering.
func NewComparison(title string, r *finsight.ComparisonResult, opts Options) *Comparison {
	c := &Comparison{
		Title:        title,
		Summary:      r.SummaryPoints,
		Sentiment:    fmt.Sprintf("%s (%d/100)", r.SentimentLabel, r.SentimentScore),
		Confidence:   r.ConfidenceScore,
		Risk:         r.RiskAssessment,
		Implications: r.FinancialImplications,
		Alerts:       r.Alerts,
		Bankruptcy:   finsight.Percent(r.PredictiveRisk.BankruptcyProbability).String(),
		AltmanZ:      fmt.Sprintf("%.2f", r.PredictiveRisk.AltmanZScore),
		Fraud:        fmt.Sprintf("%.0f/100", r.PredictiveRisk.FraudRiskScore),
		RiskDetails:  r.PredictiveRisk.Details,
		Insights:     r.ActionableInsights,
		Advice:       r.StrategicRecommendations,
		History:      strings.TrimSpace(r.HistoricalContext),
	}
	for _, d := range r.KeyDifferences {
		c.Differences = append(c.Differences, Difference{Parameter: d.Parameter, A: d.ValueDoc1, B: d.ValueDoc2, Trend: arrow(d.Trend)})
	}
	for _, p := range r.ChartData {
		c.Chart = append(c.Chart, Row{p.Name, finsight.M(p.Value, opts.Currency).String()})
	}
	for _, p := range r.PieChartData {
		c.Pie = append(c.Pie, Row{p.Name, finsight.M(p.Value, opts.Currency).String()})
	}
	for _, f := range r.ForecastData {
		row := Forecast{Period: f.Period, Actual: amount(f.Actual, opts), Forecast: amount(f.Forecast, opts)}
		if f.LowerBound != nil && f.UpperBound != nil {
			row.Range = amount(f.LowerBound, opts) + " - " + amount(f.UpperBound, opts)
		}
		c.Forecast = append(c.Forecast, row)
	}
	names := make([]string, 0, len(r.PluginData))
	for name := range r.PluginData {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.Plugins = append(c.Plugins, Row{name, r.PluginData[name]})
	}
	return c
}

func arrow(t finsight.Trend) string {
	if a, ok := arrows[t]; ok {
		return a + " " + string(t)
	}
	return string(t)
}

func amount(v *float64, opts Options) string {
	if v == nil {
		return ""
	}
	return finsight.M(*v, opts.Currency).String()
}
