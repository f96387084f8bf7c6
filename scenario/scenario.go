// Package scenario runs what-if simulations on top of an existing analysis.
package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/etnz/finsight"
)

// Generator runs the simulation prompt. *gemini.Client implements it.
type Generator interface {
	SimulateScenario(ctx context.Context, prompt string) (*finsight.ScenarioResult, error)
}

// Simulator issues simulations. When runs overlap only the most recent one
// returns a result, older ones fail with finsight.ErrStale.
type Simulator struct {
	gen Generator
	seq finsight.Sequence
}

// New returns a simulator.
func New(gen Generator) *Simulator { return &Simulator{gen: gen} }

// Prompt summarizes the analysis and embeds the modifiers exactly, they are
// neither clamped nor rounded.
func Prompt(result *finsight.ComparisonResult, mods finsight.ScenarioModifiers) string {
	chart, err := json.Marshal(result.ChartData)
	if err != nil {
		chart = []byte("[]")
	}
	var b strings.Builder
	b.WriteString("Perform a 'What-If' Scenario Analysis based on the previous financial context.\n\n")
	b.WriteString("Context Summary:\n")
	fmt.Fprintf(&b, "- Current Sentiment: %s\n", result.SentimentLabel)
	fmt.Fprintf(&b, "- Risk Profile: %s\n", result.RiskAssessment)
	fmt.Fprintf(&b, "- Key Metrics: %s\n\n", chart)
	b.WriteString("User Defined Modifiers (Hypothetical Changes):\n")
	fmt.Fprintf(&b, "- Revenue: %s\n", mods.RevenueChange.Exact())
	fmt.Fprintf(&b, "- Cost of Goods/Services: %s\n", mods.CostChange.Exact())
	fmt.Fprintf(&b, "- Operational Efficiency: %s\n\n", mods.OperationalEfficiency.Exact())
	b.WriteString("Task:\n")
	b.WriteString("1. Recalculate Net Income and Margins based on these modifiers.\n")
	b.WriteString("2. Analyze how the risk profile shifts (e.g., does lower cost reduce operational risk?).\n")
	b.WriteString("3. Generate comparative chart data (Baseline vs Projected) for Revenue, Costs, and Net Income.\n")
	return b.String()
}

// Run simulates mods on result. The original result is not modified.
func (s *Simulator) Run(ctx context.Context, result *finsight.ComparisonResult, mods finsight.ScenarioModifiers) (*finsight.ScenarioResult, error) {
	if result == nil {
		return nil, fmt.Errorf("no analysis to simulate")
	}
	tok := s.seq.Next()
	res, err := s.gen.SimulateScenario(ctx, Prompt(result, mods))
	if !s.seq.Current(tok) {
		return nil, finsight.ErrStale
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
