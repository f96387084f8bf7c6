package gemini

import (
	"context"
	"errors"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/prompt"
	"github.com/etnz/finsight/schema"
	"google.golang.org/genai"
)

// Operation names, used in errors and logs.
const (
	OpAnalyze  = "analyze"
	OpExtract  = "extract-facts"
	OpSimulate = "simulate-scenario"
	OpChat     = "chat"
)

// relabel attributes a validation error to op.
func relabel(op string, err error) error {
	var e *finsight.Error
	if errors.As(err, &e) {
		return finsight.NewError(e.Kind, op, e.Err)
	}
	return finsight.NewError(finsight.KindResponseShape, op, err)
}

// decode validates text against s, unmarshals it into v and wraps failures as
// response-shape errors.
func decode(op string, s *genai.Schema, text string, v any) error {
	if err := schema.Decode(s, text, v); err != nil {
		return finsight.NewError(finsight.KindResponseShape, op, err)
	}
	return nil
}

// Analyze sends every document inline, then the extra texts (link snapshots),
// then the prompt, and decodes a comparison result.
func (c *Client) Analyze(ctx context.Context, docs []finsight.Document, p prompt.Prompt, extra ...string) (*finsight.ComparisonResult, error) {
	if err := c.checkConfig(OpAnalyze); err != nil {
		return nil, err
	}
	parts := make([]*genai.Part, 0, len(docs)+len(extra)+1)
	for _, d := range docs {
		parts = append(parts, blob(d))
	}
	for _, e := range extra {
		parts = append(parts, &genai.Part{Text: e})
	}
	parts = append(parts, &genai.Part{Text: p.Text})

	config := &genai.GenerateContentConfig{
		SystemInstruction: system(prompt.SystemAnalyst),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema.Comparison,
	}
	if p.WebSearch {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	text, err := c.generate(ctx, OpAnalyze, parts, config)
	if err != nil {
		return nil, err
	}
	var res finsight.ComparisonResult
	if err := decode(OpAnalyze, schema.Comparison, text, &res); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, relabel(OpAnalyze, err)
	}
	res.Normalize()
	return &res, nil
}

// ExtractFacts summarizes one document for the memory vault.
func (c *Client) ExtractFacts(ctx context.Context, doc finsight.Document) (*finsight.FactExtraction, error) {
	if err := c.checkConfig(OpExtract); err != nil {
		return nil, err
	}
	parts := []*genai.Part{blob(doc), {Text: prompt.Extraction(doc.Type)}}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema.FactExtraction,
	}
	text, err := c.generate(ctx, OpExtract, parts, config)
	if err != nil {
		return nil, err
	}
	var res finsight.FactExtraction
	if err := decode(OpExtract, schema.FactExtraction, text, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SimulateScenario sends a scenario prompt and decodes the projection.
func (c *Client) SimulateScenario(ctx context.Context, text string) (*finsight.ScenarioResult, error) {
	if err := c.checkConfig(OpSimulate); err != nil {
		return nil, err
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: system(prompt.SystemSimulator),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema.Scenario,
	}
	answer, err := c.generate(ctx, OpSimulate, []*genai.Part{{Text: text}}, config)
	if err != nil {
		return nil, err
	}
	var res finsight.ScenarioResult
	if err := decode(OpSimulate, schema.Scenario, answer, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
