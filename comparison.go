package finsight

import (
	"errors"
	"fmt"
	"slices"
)

// Closed enumerations of a ComparisonResult. Values outside these sets are rejected.
type (
	Trend           string
	AlertType       string
	AlertCategory   string
	SentimentLabel  string
	InsightCategory string
	Priority        string
)

const (
	TrendUp      Trend = "UP"
	TrendDown    Trend = "DOWN"
	TrendNeutral Trend = "NEUTRAL"

	Critical AlertType = "CRITICAL"
	Warning  AlertType = "WARNING"
	Info     AlertType = "INFO"

	Cashflow      AlertCategory = "CASHFLOW"
	Expense       AlertCategory = "EXPENSE"
	Profitability AlertCategory = "PROFITABILITY"
	Operational   AlertCategory = "OPERATIONAL"
	Audit         AlertCategory = "AUDIT"

	Bullish  SentimentLabel = "BULLISH"
	Bearish  SentimentLabel = "BEARISH"
	Neutral  SentimentLabel = "NEUTRAL"
	Cautious SentimentLabel = "CAUTIOUS"

	Cost     InsightCategory = "COST"
	Revenue  InsightCategory = "REVENUE"
	Risk     InsightCategory = "RISK"
	Strategy InsightCategory = "STRATEGY"

	High   Priority = "HIGH"
	Medium Priority = "MEDIUM"
	Low    Priority = "LOW"
)

var (
	Trends            = []Trend{TrendUp, TrendDown, TrendNeutral}
	AlertTypes        = []AlertType{Critical, Warning, Info}
	AlertCategories   = []AlertCategory{Cashflow, Expense, Profitability, Operational, Audit}
	SentimentLabels   = []SentimentLabel{Bullish, Bearish, Neutral, Cautious}
	InsightCategories = []InsightCategory{Cost, Revenue, Risk, Strategy}
	Priorities        = []Priority{High, Medium, Low}
)

// ChartPoint is a named value of a bar or pie chart.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// DifferenceItem is one row of the comparison matrix.
type DifferenceItem struct {
	Parameter string `json:"parameter"`
	ValueDoc1 string `json:"valueDoc1"`
	ValueDoc2 string `json:"valueDoc2"`
	Trend     Trend  `json:"trend"`
}

// Alert is an anomaly detected by the analysis.
type Alert struct {
	Type     AlertType     `json:"type"`
	Category AlertCategory `json:"category"`
	Message  string        `json:"message"`
}

// ForecastPoint is one period of the cash-flow forecast. Actual is nil for
// projected periods and Forecast is nil for historical ones.
type ForecastPoint struct {
	Period     string   `json:"period"`
	Actual     *float64 `json:"actual"`
	Forecast   *float64 `json:"forecast"`
	LowerBound *float64 `json:"lowerBound,omitempty"`
	UpperBound *float64 `json:"upperBound,omitempty"`
}

// RiskScorecard holds the predictive risk indicators.
type RiskScorecard struct {
	BankruptcyProbability float64 `json:"bankruptcyProbability"` // 0-100
	AltmanZScore          float64 `json:"altmanZScore"`
	FraudRiskScore        float64 `json:"fraudRiskScore"` // 0-100
	Details               string  `json:"details"`
}

// ActionableInsight is a concrete recommendation with its estimated impact.
type ActionableInsight struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ImpactValue string          `json:"impactValue"` // e.g. "$12k Savings"
	Category    InsightCategory `json:"category"`
	Priority    Priority        `json:"priority"`
}

// ComparisonResult is the structured outcome of an analysis.
//
// Numeric fields are advisory: nothing guarantees that chart totals match the
// narrative figures.
type ComparisonResult struct {
	SummaryPoints            []string            `json:"summaryPoints"`
	KeyDifferences           []DifferenceItem    `json:"keyDifferences"`
	RiskAssessment           string              `json:"riskAssessment"`
	FinancialImplications    string              `json:"financialImplications"`
	ChartData                []ChartPoint        `json:"chartData"`
	PieChartData             []ChartPoint        `json:"pieChartData"`
	SentimentScore           int                 `json:"sentimentScore"`
	SentimentLabel           SentimentLabel      `json:"sentimentLabel"`
	StrategicRecommendations []string            `json:"strategicRecommendations"`
	ConfidenceScore          int                 `json:"confidenceScore"`
	Alerts                   []Alert             `json:"alerts"`
	PluginData               map[string]string   `json:"pluginData,omitempty"`
	HistoricalContext        string              `json:"historicalContext,omitempty"`
	ForecastData             []ForecastPoint     `json:"forecastData"`
	PredictiveRisk           RiskScorecard       `json:"predictiveRisk"`
	ActionableInsights       []ActionableInsight `json:"actionableInsights"`
}

// Validate checks every invariant of the result and returns all violations
// joined in a single response-shape error.
func (r *ComparisonResult) Validate() error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if len(r.SummaryPoints) == 0 {
		add("summaryPoints must not be empty")
	}
	for i, d := range r.KeyDifferences {
		if !slices.Contains(Trends, d.Trend) {
			add("keyDifferences[%d].trend %q is not one of %v", i, d.Trend, Trends)
		}
	}
	if r.SentimentScore < 0 || r.SentimentScore > 100 {
		add("sentimentScore %d is out of [0,100]", r.SentimentScore)
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 100 {
		add("confidenceScore %d is out of [0,100]", r.ConfidenceScore)
	}
	if !slices.Contains(SentimentLabels, r.SentimentLabel) {
		add("sentimentLabel %q is not one of %v", r.SentimentLabel, SentimentLabels)
	}
	for i, a := range r.Alerts {
		if !slices.Contains(AlertTypes, a.Type) {
			add("alerts[%d].type %q is not one of %v", i, a.Type, AlertTypes)
		}
		if !slices.Contains(AlertCategories, a.Category) {
			add("alerts[%d].category %q is not one of %v", i, a.Category, AlertCategories)
		}
	}
	for i, f := range r.ForecastData {
		if f.Period == "" {
			add("forecastData[%d].period is empty", i)
		}
		if f.LowerBound != nil && f.UpperBound != nil && *f.LowerBound > *f.UpperBound {
			add("forecastData[%d] lowerBound %v is greater than upperBound %v", i, *f.LowerBound, *f.UpperBound)
		}
	}
	if p := r.PredictiveRisk.BankruptcyProbability; p < 0 || p > 100 {
		add("predictiveRisk.bankruptcyProbability %v is out of [0,100]", p)
	}
	if p := r.PredictiveRisk.FraudRiskScore; p < 0 || p > 100 {
		add("predictiveRisk.fraudRiskScore %v is out of [0,100]", p)
	}
	for i, in := range r.ActionableInsights {
		if !slices.Contains(InsightCategories, in.Category) {
			add("actionableInsights[%d].category %q is not one of %v", i, in.Category, InsightCategories)
		}
		if !slices.Contains(Priorities, in.Priority) {
			add("actionableInsights[%d].priority %q is not one of %v", i, in.Priority, Priorities)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return NewError(KindResponseShape, "validate", errors.Join(errs...))
}

// Normalize drops empty optional sections, so that a result equals its
// stored copy once loaded back.
func (r *ComparisonResult) Normalize() {
	if len(r.PluginData) == 0 {
		r.PluginData = nil
	}
}

// AlertsOf returns the alerts of the given type, in order.
func (r *ComparisonResult) AlertsOf(t AlertType) []Alert {
	var res []Alert
	for _, a := range r.Alerts {
		if a.Type == t {
			res = append(res, a)
		}
	}
	return res
}

// HasCritical reports whether the result raised at least one CRITICAL alert.
func (r *ComparisonResult) HasCritical() bool { return len(r.AlertsOf(Critical)) > 0 }
