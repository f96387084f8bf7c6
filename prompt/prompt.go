// Package prompt builds the instructions sent to the generation model.
//
// Every function of this package is pure: the same inputs always produce the
// same text and nothing is read from or written to the outside world.
package prompt

import (
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/marketplace"
)

// System personas.
const (
	SystemAnalyst   = "You are an expert financial analyst. Your output must be comprehensive, professional, and detailed. Do not summarize briefly; provide depth."
	SystemSimulator = "You are a financial simulation engine. Calculate projected values accurately based on the percentage modifiers provided."
	SystemAssistant = "You are a specialized banking and financial assistant. Provide detailed, evidence-based answers citing the documents provided."
)

// Delimiters framing the memory vault in an analysis prompt.
const (
	VaultBegin = "### BEGIN KNOWLEDGE VAULT ###"
	VaultEnd   = "### END KNOWLEDGE VAULT ###"
)

// Request gathers the inputs of an analysis prompt.
type Request struct {
	Mode          finsight.AnalysisMode
	DocumentTypes []finsight.DocumentType // one per document, in submission order
	Links         []finsight.Link
	VaultContext  string
	Integrations  []marketplace.Integration // connected only
	Plugins       []marketplace.Plugin      // active only
}

// Prompt is the analysis instruction and whether web search must be enabled.
type Prompt struct {
	Text      string
	WebSearch bool
}

// modeClauses maps each mode to its single instruction clause. GENERAL has none.
var modeClauses = map[finsight.AnalysisMode]string{
	finsight.PeriodVsPeriod: "Focus on trend analysis, growth rates (YoY, QoQ), and variance analysis.",
	finsight.EntityVsEntity: "Focus on competitive benchmarking, relative strength, and efficiency ratios.",
	finsight.ActualVsBudget: "Focus on performance gaps, over/under-spending, and realization rates.",
	finsight.CrossDocAudit: "CRITICAL TASK: Perform a Cross-Document Consistency Audit. Verify that data points in one document " +
		"(e.g. Invoice Amount) match corresponding entries in others (e.g. Bank Statement or P&L). " +
		"Highlight ANY discrepancy as a 'CRITICAL' Alert.",
}

// ModeClause returns the instruction clause of a mode, empty for GENERAL.
func ModeClause(m finsight.AnalysisMode) string { return modeClauses[m] }

// pluginClauses are the dedicated instructions of the recognized plugins.
var pluginClauses = map[string]string{
	marketplace.ValuationDCF: "Calculate a simplified DCF valuation based on available cash flow data.",
	marketplace.SaaSMetrics:  "Extract or estimate SaaS metrics: ARR, MRR, Churn, LTV/CAC.",
	marketplace.FraudCheck:   "Scan specifically for Benford's Law anomalies or round number patterns that suggest manipulation.",
}

// PluginClause returns the dedicated instruction of a plugin, empty for unrecognized ids.
func PluginClause(id string) string { return pluginClauses[id] }

const closing = `Perform a rigorous comparison and insight generation.
1. **Executive Summary**: Narrative summary.
2. **Detailed Comparison**: Extract specific data points.
3. **Risk & Alerts**: Identify anomalies.
4. **Sentiment & Strategy**: Analyze tone and provide recommendations.
5. **PREDICTIVE ANALYTICS**:
    - Generate a 12-period Cashflow Forecast (6 historical, 6 projected) based on trends.
    - Calculate an estimated **Altman Z-Score** to predict bankruptcy risk.
    - Calculate a **Fraud Risk Score** based on data irregularity.
6. **ACTIONABLE INSIGHTS**:
    - Provide concrete, specific recommendations (e.g. "Renegotiate Cloud Vendor X").
    - Estimate the financial impact in dollars (e.g. "$12k Savings").

IMPORTANT: Be extremely precise with numbers.
`

// Build assembles the analysis prompt. Sections appear in a fixed order:
// preamble, mode clause, vault, integrations, plugins, links, closing tasks.
func Build(req Request) Prompt {
	mode := req.Mode
	if mode == "" {
		mode = finsight.DefaultMode
	}
	var b strings.Builder

	fmt.Fprintf(&b, "You are a senior Chief Financial Officer and Data Scientist using Predictive Analytics.\n")
	fmt.Fprintf(&b, "Task: Conduct a deep-dive forensic analysis of the attached documents.\n")
	fmt.Fprintf(&b, "Analysis Mode: **%s**\n", mode)
	if types := distinctTypes(req.DocumentTypes); len(types) > 0 {
		fmt.Fprintf(&b, "Document Context: These appear to be %s documents. Adjust your extraction logic accordingly.\n", strings.Join(types, ", "))
	}

	if clause := ModeClause(mode); clause != "" {
		fmt.Fprintf(&b, "\n%s\n", clause)
	}

	if vault := strings.TrimSpace(req.VaultContext); vault != "" {
		fmt.Fprintf(&b, "\n%s\n%s\n%s\n", VaultBegin, vault, VaultEnd)
		b.WriteString("INSTRUCTION: The above 'Knowledge Vault' contains historical data and facts from previous documents. " +
			"Use this to identify LONG-TERM TRENDS, RECURRING ANOMALIES, or CONTRADICTIONS between past and present data. " +
			"Populate the 'historicalContext' field with these findings.\n")
	}

	if len(req.Integrations) > 0 {
		b.WriteString("\n### INTEGRATED DATA SOURCES (LIVE CONTEXT) ###\n")
		for _, i := range req.Integrations {
			fmt.Fprintf(&b, "SOURCE: %s\nDATA: %s\n", i.Name, i.Context)
		}
		b.WriteString("INSTRUCTION: Cross-reference the uploaded documents with this live data. " +
			"Highlight discrepancies between the documents and the integrated data sources in the 'Risk' and 'Alerts' sections.\n")
	}

	if len(req.Plugins) > 0 {
		b.WriteString("\n### ACTIVE ANALYTICS PLUGINS ###\n")
		for _, p := range req.Plugins {
			fmt.Fprintf(&b, "PLUGIN: %s (%s)\n", p.Name, p.ID)
			fmt.Fprintf(&b, "INSTRUCTION: Perform specific analysis related to %s. Return the result in the 'pluginData' field under the key '%s'.\n", p.Name, p.ID)
			if clause := PluginClause(p.ID); clause != "" {
				fmt.Fprintf(&b, "%s\n", clause)
			}
		}
	}

	webSearch := len(req.Links) > 0
	if webSearch {
		urls := make([]string, len(req.Links))
		for i, l := range req.Links {
			urls[i] = l.URL
		}
		fmt.Fprintf(&b, "\nAlso analyze the following external resources: %s.\n", strings.Join(urls, ", "))
		b.WriteString("Use Google Search to cross-reference data and verify claims.\n")
	}

	b.WriteString("\n")
	b.WriteString(closing)
	return Prompt{Text: b.String(), WebSearch: webSearch}
}

// distinctTypes returns the classifications in first-seen order, unclassified
// documents count as OTHER.
func distinctTypes(types []finsight.DocumentType) []string {
	var res []string
	for _, t := range types {
		s := string(t.OrOther())
		if !slices.Contains(res, s) {
			res = append(res, s)
		}
	}
	return res
}

// Extraction returns the instruction of a fact extraction for one document.
func Extraction(t finsight.DocumentType) string {
	kind := "document"
	if t != "" {
		kind = string(t)
	}
	return fmt.Sprintf(`Extract key financial facts from this %s.
Identify important metrics, dates, and values that would be useful for long-term historical comparison.
Example: { "metric": "Total Revenue", "value": "$1.2M", "dateContext": "Q3 2023" }
Also provide a 1-sentence summary.
`, kind)
}
