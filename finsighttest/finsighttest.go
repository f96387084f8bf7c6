// Package finsighttest provides fixtures and fakes shared by the tests of the
// finsight packages.
package finsighttest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/etnz/finsight"
	"google.golang.org/genai"
)

func ptr[T any](v T) *T { return &v }

// Result returns a valid comparison result.
func Result() finsight.ComparisonResult {
	return finsight.ComparisonResult{
		SummaryPoints: []string{"Revenue grew 12% year over year.", "Operating costs were flat."},
		KeyDifferences: []finsight.DifferenceItem{
			{Parameter: "Revenue", ValueDoc1: "$1.0M", ValueDoc2: "$1.12M", Trend: finsight.TrendUp},
			{Parameter: "Operating Costs", ValueDoc1: "$600k", ValueDoc2: "$600k", Trend: finsight.TrendNeutral},
			{Parameter: "Cash", ValueDoc1: "$300k", ValueDoc2: "$250k", Trend: finsight.TrendDown},
		},
		RiskAssessment:        "Moderate liquidity risk.",
		FinancialImplications: "Margins should improve.",
		ChartData: []finsight.ChartPoint{
			{Name: "Revenue", Value: 1120000},
			{Name: "Costs", Value: 600000},
			{Name: "Net Income", Value: 520000},
		},
		PieChartData: []finsight.ChartPoint{
			{Name: "Payroll", Value: 400000},
			{Name: "Cloud", Value: 200000},
		},
		SentimentScore:           72,
		SentimentLabel:           finsight.Bullish,
		StrategicRecommendations: []string{"Renegotiate cloud contract."},
		ConfidenceScore:          85,
		Alerts: []finsight.Alert{
			{Type: finsight.Warning, Category: finsight.Cashflow, Message: "Cash decreased by 16%."},
		},
		ForecastData: []finsight.ForecastPoint{
			{Period: "Jan 24", Actual: ptr(100.0), LowerBound: ptr(90.0), UpperBound: ptr(110.0)},
			{Period: "Feb 24", Forecast: ptr(105.0), LowerBound: ptr(95.0), UpperBound: ptr(115.0)},
		},
		PredictiveRisk: finsight.RiskScorecard{
			BankruptcyProbability: 4.5,
			AltmanZScore:          3.1,
			FraudRiskScore:        10,
			Details:               "Healthy balance sheet.",
		},
		ActionableInsights: []finsight.ActionableInsight{
			{Title: "Renegotiate Cloud Vendor", Description: "Commit to a 3 year plan.", ImpactValue: "$12k Savings", Category: finsight.Cost, Priority: finsight.High},
		},
	}
}

// JSON marshals v, it panics on error.
func JSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Call records a GenerateContent invocation.
type Call struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// Text returns the concatenation of every text part of the call.
func (c Call) Text() string {
	var b strings.Builder
	for _, content := range c.Contents {
		for _, p := range content.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Blobs returns every inline blob of the call.
func (c Call) Blobs() []*genai.Blob {
	var res []*genai.Blob
	for _, content := range c.Contents {
		for _, p := range content.Parts {
			if p.InlineData != nil {
				res = append(res, p.InlineData)
			}
		}
	}
	return res
}

// Generator is a fake generation backend. Respond computes the answer of
// the n-th call (0-indexed), by default it answers Text.
type Generator struct {
	Text    string
	Respond func(n int, call Call) (string, error)

	mu    sync.Mutex
	calls []Call
}

// ErrUnavailable is a transport failure returned by fakes.
var ErrUnavailable = errors.New("service unavailable")

// GenerateContent implements gemini.Generator.
func (g *Generator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	call := Call{Model: model, Contents: contents, Config: config}
	g.mu.Lock()
	n := len(g.calls)
	g.calls = append(g.calls, call)
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := g.Text
	if g.Respond != nil {
		var err error
		if text, err = g.Respond(n, call); err != nil {
			return nil, err
		}
	}
	return TextResponse(text), nil
}

// Calls returns the recorded calls.
func (g *Generator) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// TextResponse builds a single candidate response with a text part.
func TextResponse(text string) *genai.GenerateContentResponse {
	if text == "" {
		return &genai.GenerateContentResponse{}
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

// Documents returns n small text documents named doc1.txt, doc2.txt, ...
func Documents(n int) []finsight.Document {
	docs := make([]finsight.Document, n)
	for i := range docs {
		name := "doc" + string(rune('1'+i)) + ".txt"
		docs[i] = finsight.NewDocument(name, "text/plain", []byte("content of "+name))
	}
	return docs
}
