// Package schema defines the response contracts of every structured
// generation request, and validates response texts against them.
//
// The same *genai.Schema value is sent to the model as the response schema and
// used locally by Validate, so that the model and the parser share a single
// contract.
package schema

import "google.golang.org/genai"

func ptr[T any](v T) *T { return &v }

func str(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

func enum(description string, values ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description, Enum: values}
}

func score(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeInteger, Description: description, Minimum: ptr(0.0), Maximum: ptr(100.0)}
}

func chartPoints(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: description,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":  {Type: genai.TypeString},
				"value": {Type: genai.TypeNumber},
			},
			Required: []string{"name", "value"},
		},
	}
}

// Comparison is the contract of a full analysis.
var Comparison = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summaryPoints": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			MinItems:    ptr(int64(1)),
			Description: "A comprehensive executive summary consisting of 8-10 detailed bullet points. Explain 'why' and 'how'.",
		},
		"keyDifferences": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"parameter": str("The specific metric or clause (e.g., 'Net Interest Margin')."),
					"valueDoc1": str("Detailed value/extract from first source."),
					"valueDoc2": str("Detailed value/extract from second source."),
					"trend":     enum("Directional change.", "UP", "DOWN", "NEUTRAL"),
				},
				Required: []string{"parameter", "valueDoc1", "valueDoc2", "trend"},
			},
			Description: "Comparison table. Identify numerical and qualitative shifts.",
		},
		"riskAssessment":        str("Deep-dive risk assessment (Credit, Market, Operational)."),
		"financialImplications": str("Forecast and impact analysis."),
		"chartData":             chartPoints("5-8 key financial metrics for bar chart."),
		"pieChartData":          chartPoints("Data for pie chart (expenses/revenue breakdown)."),
		"sentimentScore":        score("0-100 score."),
		"sentimentLabel":        enum("", "BULLISH", "BEARISH", "NEUTRAL", "CAUTIOUS"),
		"confidenceScore":       score("0-100 confidence."),
		"strategicRecommendations": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"alerts": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type":     enum("", "CRITICAL", "WARNING", "INFO"),
					"category": enum("", "CASHFLOW", "EXPENSE", "PROFITABILITY", "OPERATIONAL", "AUDIT"),
					"message":  {Type: genai.TypeString},
				},
				Required: []string{"type", "category", "message"},
			},
			Description: "Detect anomalies: Cashflow drops, expense spikes, payroll increases, or negative financial ratio trends.",
		},
		"pluginData": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"valuation_dcf": str("Output for Valuation Plugin if active. Calculated Intrinsic Value."),
				"saas_metrics":  str("Output for SaaS Plugin if active. LTV, CAC, Churn."),
				"fraud_check":   str("Output for Fraud Plugin if active. Anomalies found."),
			},
			Description: "Specific outputs for enabled plugins.",
		},
		"historicalContext": str("Insights derived by comparing current documents against the provided 'Vault' history."),
		"forecastData": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"period":     str("Month/Year string, e.g. 'Jan 24'"),
					"actual":     {Type: genai.TypeNumber, Nullable: ptr(true)},
					"forecast":   {Type: genai.TypeNumber, Nullable: ptr(true)},
					"lowerBound": {Type: genai.TypeNumber, Description: "Confidence interval lower bound"},
					"upperBound": {Type: genai.TypeNumber, Description: "Confidence interval upper bound"},
				},
				Required: []string{"period"},
			},
			Description: "12-month rolling cashflow forecast. First 6 months actuals (if avail), next 6 forecast.",
		},
		"predictiveRisk": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"bankruptcyProbability": {Type: genai.TypeNumber, Minimum: ptr(0.0), Maximum: ptr(100.0), Description: "0-100% estimated probability based on Altman Z-Score factors."},
				"altmanZScore":          {Type: genai.TypeNumber, Description: "Calculated Altman Z-Score."},
				"fraudRiskScore":        {Type: genai.TypeNumber, Minimum: ptr(0.0), Maximum: ptr(100.0), Description: "0-100 Score based on anomalies."},
				"details":               str("Explanation of the scores."),
			},
			Required: []string{"bankruptcyProbability", "altmanZScore", "fraudRiskScore", "details"},
		},
		"actionableInsights": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":       {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
					"impactValue": str("Estimated financial impact (e.g. '$12k Savings')."),
					"category":    enum("", "COST", "REVENUE", "RISK", "STRATEGY"),
					"priority":    enum("", "HIGH", "MEDIUM", "LOW"),
				},
				Required: []string{"title", "description", "impactValue", "category", "priority"},
			},
		},
	},
	Required: []string{
		"summaryPoints", "keyDifferences", "riskAssessment", "chartData", "pieChartData",
		"financialImplications", "sentimentScore", "sentimentLabel", "strategicRecommendations",
		"confidenceScore", "alerts", "predictiveRisk", "actionableInsights", "forecastData",
	},
}

// FactExtraction is the contract of a single document fact extraction.
var FactExtraction = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": str("Brief 1-sentence summary of the document."),
		"facts": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"metric":      str("Name of the data point (e.g. 'Revenue Q3', 'Vendor Name')"),
					"value":       str("The value (e.g. '$1.5M', 'Acme Corp')"),
					"dateContext": str("Associated date or period."),
					"sourceDoc":   str("Always leave empty, will be filled by app."),
				},
				Required: []string{"metric", "value", "dateContext"},
			},
		},
	},
	Required: []string{"summary", "facts"},
}

// Scenario is the contract of a what-if simulation.
var Scenario = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"projectedNetIncome": str("Projected Net Income value."),
		"projectedMargin":    str("Projected Margin value."),
		"riskShift":          str("Analysis of how risk profile changes."),
		"impactAnalysis":     str("Detailed impact analysis."),
		"chartData": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":      {Type: genai.TypeString},
					"baseline":  {Type: genai.TypeNumber, Description: "Original value"},
					"projected": {Type: genai.TypeNumber, Description: "Projected value"},
				},
				Required: []string{"name", "baseline", "projected"},
			},
			Description: "Comparative data for charts (Baseline vs Projected).",
		},
	},
	Required: []string{"projectedNetIncome", "projectedMargin", "riskShift", "impactAnalysis", "chartData"},
}
