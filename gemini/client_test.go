package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/finsighttest"
	"github.com/etnz/finsight/prompt"
	"github.com/etnz/finsight/schema"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

func TestMissingKeyFailsBeforeAnyCall(t *testing.T) {
	gen := &finsighttest.Generator{Text: finsighttest.JSON(finsighttest.Result())}
	c := New(Config{APIKey: "  "}, WithGenerator(gen))
	ctx := context.Background()
	doc := finsighttest.Documents(1)[0]

	_, errAnalyze := c.Analyze(ctx, []finsight.Document{doc}, prompt.Build(prompt.Request{}))
	_, errExtract := c.ExtractFacts(ctx, doc)
	_, errSimulate := c.SimulateScenario(ctx, "what if")
	_, errChat := c.NewChat(ctx, nil, nil)

	for name, err := range map[string]error{"analyze": errAnalyze, "extract": errExtract, "simulate": errSimulate, "chat": errChat} {
		if !errors.Is(err, finsight.ErrConfiguration) {
			t.Errorf("%s: got %v, want a configuration error", name, err)
		}
	}
	if n := len(gen.Calls()); n != 0 {
		t.Errorf("generator called %d times without a credential", n)
	}
}

func TestNew_DoesNotValidate(t *testing.T) {
	c := New(Config{})
	if c.Configured() {
		t.Error("Configured() = true without a key")
	}
	if c.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", c.Model(), DefaultModel)
	}
}

func TestAnalyze(t *testing.T) {
	want := finsighttest.Result()
	gen := &finsighttest.Generator{Text: finsighttest.JSON(want)}
	c := New(Config{APIKey: "key", Model: "gemini-test"}, WithGenerator(gen))

	docs := []finsight.Document{
		finsight.NewDocument("q2.pdf", "application/pdf", []byte("%PDF q2")),
		finsight.NewDocument("q3.csv", "text/csv", []byte("a,b")),
	}
	p := prompt.Build(prompt.Request{Links: []finsight.Link{{URL: "https://example.com"}}})
	got, err := c.Analyze(context.Background(), docs, p, "LINK SNAPSHOT")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}

	calls := gen.Calls()
	if len(calls) != 1 {
		t.Fatalf("generator called %d times, want 1", len(calls))
	}
	call := calls[0]
	if call.Model != "gemini-test" {
		t.Errorf("model = %q", call.Model)
	}
	if len(call.Contents) != 1 || call.Contents[0].Role != "user" {
		t.Fatalf("contents = %+v, want a single user message", call.Contents)
	}
	parts := call.Contents[0].Parts
	if len(parts) != 4 {
		t.Fatalf("got %d parts, want 2 blobs + snapshot + prompt", len(parts))
	}
	if b := parts[0].InlineData; b == nil || b.MIMEType != "application/pdf" || string(b.Data) != "%PDF q2" {
		t.Errorf("first part = %+v", parts[0])
	}
	if b := parts[1].InlineData; b == nil || b.MIMEType != "text/csv" {
		t.Errorf("second part = %+v", parts[1])
	}
	if parts[2].Text != "LINK SNAPSHOT" || parts[3].Text != p.Text {
		t.Error("text parts are not the snapshot then the prompt")
	}
	cfg := call.Config
	if cfg.ResponseMIMEType != "application/json" || cfg.ResponseSchema != schema.Comparison {
		t.Errorf("config does not request the comparison schema: %+v", cfg)
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != prompt.SystemAnalyst {
		t.Error("analyst persona is missing")
	}
	if len(cfg.Tools) != 1 || cfg.Tools[0].GoogleSearch == nil {
		t.Errorf("tools = %+v, want google search", cfg.Tools)
	}
}

func TestAnalyze_NoLinksNoSearch(t *testing.T) {
	gen := &finsighttest.Generator{Text: finsighttest.JSON(finsighttest.Result())}
	c := New(Config{APIKey: "key"}, WithGenerator(gen))
	if _, err := c.Analyze(context.Background(), finsighttest.Documents(1), prompt.Build(prompt.Request{})); err != nil {
		t.Fatal(err)
	}
	if tools := gen.Calls()[0].Config.Tools; len(tools) != 0 {
		t.Errorf("tools = %+v, want none", tools)
	}
}

func TestAnalyze_EmptyPluginData(t *testing.T) {
	text := strings.TrimSuffix(finsighttest.JSON(finsighttest.Result()), "}") + `,"pluginData":{}}`
	c := New(Config{APIKey: "key"}, WithGenerator(&finsighttest.Generator{Text: text}))
	res, err := c.Analyze(context.Background(), finsighttest.Documents(1), prompt.Build(prompt.Request{}))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.PluginData != nil {
		t.Errorf("PluginData = %#v, want nil", res.PluginData)
	}
}

func TestAnalyze_Failures(t *testing.T) {
	bad := finsighttest.Result()
	bad.SentimentLabel = "EUPHORIC"
	inverted := finsighttest.Result()
	lb, ub := 10.0, 5.0
	inverted.ForecastData[0].LowerBound, inverted.ForecastData[0].UpperBound = &lb, &ub

	tests := []struct {
		name     string
		respond  func(int, finsighttest.Call) (string, error)
		wantKind *finsight.Error
		wantMsg  string
	}{
		{
			name:     "transport",
			respond:  func(int, finsighttest.Call) (string, error) { return "", finsighttest.ErrUnavailable },
			wantKind: finsight.ErrTransport,
			wantMsg:  "service unavailable",
		},
		{
			name:     "empty",
			respond:  func(int, finsighttest.Call) (string, error) { return "", nil },
			wantKind: finsight.ErrResponseShape,
			wantMsg:  "no response from Gemini",
		},
		{
			name:     "not json",
			respond:  func(int, finsighttest.Call) (string, error) { return "I could not read the files.", nil },
			wantKind: finsight.ErrResponseShape,
			wantMsg:  "not valid JSON",
		},
		{
			name:     "enum violation",
			respond:  func(int, finsighttest.Call) (string, error) { return finsighttest.JSON(bad), nil },
			wantKind: finsight.ErrResponseShape,
			wantMsg:  `"EUPHORIC" is not one of`,
		},
		{
			name:     "semantic violation",
			respond:  func(int, finsighttest.Call) (string, error) { return finsighttest.JSON(inverted), nil },
			wantKind: finsight.ErrResponseShape,
			wantMsg:  "lowerBound 10 is greater than upperBound 5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &finsighttest.Generator{Respond: tt.respond}
			c := New(Config{APIKey: "key"}, WithGenerator(gen))
			res, err := c.Analyze(context.Background(), finsighttest.Documents(1), prompt.Build(prompt.Request{}))
			if res != nil {
				t.Errorf("Analyze() returned a result with error %v", err)
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("Analyze() = %v, want kind %v", err, tt.wantKind.Kind)
			}
			if err != nil && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Analyze() = %v, want message containing %q", err, tt.wantMsg)
			}
			if err != nil && strings.Count(err.Error(), finsight.KindResponseShape.String()) > 1 {
				t.Errorf("Analyze() = %v, the kind is reported twice", err)
			}
			if n := len(gen.Calls()); n != 1 {
				t.Errorf("generator called %d times, failures must not be retried", n)
			}
		})
	}
}

func TestExtractFacts(t *testing.T) {
	gen := &finsighttest.Generator{Text: `{"summary":"Q3 invoice from Acme.","facts":[{"metric":"Total","value":"$10,000","dateContext":"Q3 2024"}]}`}
	c := New(Config{APIKey: "key"}, WithGenerator(gen))
	doc := finsight.NewDocument("acme.pdf", "application/pdf", []byte("%PDF"))
	doc.Type = finsight.Invoice

	got, err := c.ExtractFacts(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	want := &finsight.FactExtraction{
		Summary: "Q3 invoice from Acme.",
		Facts:   []finsight.FinancialFact{{Metric: "Total", Value: "$10,000", DateContext: "Q3 2024"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractFacts() mismatch (-want +got):\n%s", diff)
	}
	call := gen.Calls()[0]
	if call.Config.ResponseSchema != schema.FactExtraction {
		t.Error("fact extraction schema not requested")
	}
	if !strings.Contains(call.Text(), "from this INVOICE") {
		t.Errorf("extraction prompt = %q", call.Text())
	}
	if len(call.Blobs()) != 1 {
		t.Errorf("got %d blobs, want 1", len(call.Blobs()))
	}
}

func TestSimulateScenario(t *testing.T) {
	gen := &finsighttest.Generator{Text: `{"projectedNetIncome":"$600k","projectedMargin":"20%","riskShift":"Lower","impactAnalysis":"Better","chartData":[{"name":"Revenue","baseline":100,"projected":110}]}`}
	c := New(Config{APIKey: "key"}, WithGenerator(gen))
	got, err := c.SimulateScenario(context.Background(), "Revenue: +10%")
	if err != nil {
		t.Fatal(err)
	}
	if got.ProjectedMargin != "20%" || len(got.ChartData) != 1 || got.ChartData[0].Projected != 110 {
		t.Errorf("SimulateScenario() = %+v", got)
	}
	call := gen.Calls()[0]
	if call.Text() != "Revenue: +10%" || len(call.Blobs()) != 0 {
		t.Errorf("scenario call = %q", call.Text())
	}
	if call.Config.SystemInstruction.Parts[0].Text != prompt.SystemSimulator {
		t.Error("simulator persona is missing")
	}

	// chartData rows must have every field
	gen.Text = `{"projectedNetIncome":"x","projectedMargin":"x","riskShift":"x","impactAnalysis":"x","chartData":[{"name":"Revenue"}]}`
	if _, err := c.SimulateScenario(context.Background(), "x"); !errors.Is(err, finsight.ErrResponseShape) {
		t.Errorf("SimulateScenario() = %v, want a response-shape error", err)
	}
}

// blocking never answers until the context is done.
type blocking struct{}

func (blocking) GenerateContent(ctx context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTimeout(t *testing.T) {
	c := New(Config{APIKey: "key", Timeout: 10 * time.Millisecond}, WithGenerator(blocking{}))
	_, err := c.SimulateScenario(context.Background(), "x")
	if !errors.Is(err, finsight.ErrTransport) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("SimulateScenario() = %v, want a transport error caused by the deadline", err)
	}
}

func TestRateLimit_Cancel(t *testing.T) {
	gen := &finsighttest.Generator{Text: "{}"}
	c := New(Config{APIKey: "key", RequestsPerMinute: 1}, WithGenerator(gen))
	// the first call consumes the burst
	c.SimulateScenario(context.Background(), "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SimulateScenario(ctx, "x")
	if !errors.Is(err, finsight.ErrTransport) {
		t.Errorf("SimulateScenario() = %v, want a transport error", err)
	}
	if n := len(gen.Calls()); n != 1 {
		t.Errorf("generator called %d times, want 1", n)
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
		{Text: "thinking...", Thought: true},
		{Text: `{"a":`},
		{Text: `1}`},
	}}}}}
	if got := responseText(resp); got != `{"a":1}` {
		t.Errorf("responseText() = %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Errorf("responseText(nil) = %q", got)
	}
}
