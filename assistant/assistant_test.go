package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/finsighttest"
	"github.com/etnz/finsight/gemini"
	"github.com/etnz/finsight/renderer"
	"github.com/etnz/finsight/report"
	"github.com/etnz/finsight/store"
	"github.com/etnz/finsight/vault"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

// script is a chat session answering with canned responses.
type script struct {
	responses []*genai.GenerateContentResponse
	sent      [][]*genai.Part
}

func (s *script) Send(_ context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error) {
	s.sent = append(s.sent, parts)
	if len(s.sent) > len(s.responses) {
		return nil, errors.New("unexpected message")
	}
	return s.responses[len(s.sent)-1], nil
}

type opener struct {
	chat  *script
	tools []*genai.Tool
}

func (o *opener) NewChat(_ context.Context, tools []*genai.Tool, _ []*genai.Content) (gemini.ChatSession, error) {
	o.tools = tools
	return o.chat, nil
}

func answer(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}}}
}

func call(name string, args map[string]any) *genai.Part {
	return &genai.Part{FunctionCall: &genai.FunctionCall{ID: name + "-1", Name: name, Args: args}}
}

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	repo := store.NewMemory[finsight.VaultItem]()
	if err := repo.Append(finsight.VaultItem{
		ID: "v1", FileName: "q2.pdf", DateIndexed: "2024-07-01T00:00:00Z", DocType: finsight.FinancialReport,
		Summary: "Q2 report.", Facts: []finsight.FinancialFact{{Metric: "Revenue", Value: "$1.0M", DateContext: "Q2 2024"}},
	}); err != nil {
		t.Fatal(err)
	}
	return vault.New(repo, nil)
}

func TestAsk_FunctionCall(t *testing.T) {
	chat := &script{responses: []*genai.GenerateContentResponse{
		answer(call("vault_facts", nil)),
		answer(&genai.Part{Text: "thinking", Thought: true}, &genai.Part{Text: "Q2 revenue was $1.0M."}),
	}}
	o := &opener{chat: chat}
	a := New(o, finsighttest.Documents(2), VaultFacts(testVault(t)))

	got, err := a.Ask(context.Background(), "What was the revenue last quarter?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Q2 revenue was $1.0M." {
		t.Errorf("Ask() = %q", got)
	}
	if len(o.tools) != 1 || o.tools[0].FunctionDeclarations[0].Name != "vault_facts" {
		t.Errorf("tools = %v", o.tools)
	}

	first := chat.sent[0]
	if len(first) != 3 || first[0].InlineData == nil || first[1].InlineData == nil || first[2].Text != "What was the revenue last quarter?" {
		t.Errorf("first message parts = %v, want 2 documents then the question", first)
	}
	resp := chat.sent[1][0].FunctionResponse
	if resp == nil || resp.ID != "vault_facts-1" {
		t.Fatalf("second message = %v, want the function response", chat.sent[1])
	}
	if out, _ := resp.Response["output"].(string); !strings.Contains(out, vault.Header) || !strings.Contains(out, "- Revenue: $1.0M (Q2 2024)") {
		t.Errorf("vault_facts output = %q", out)
	}

	h := a.History()
	if len(h) != 3 || h[1].Role != finsight.RoleUser || h[2].Text != "Q2 revenue was $1.0M." {
		t.Errorf("History() = %v", h)
	}
}

func inlineParts(parts []*genai.Part) int {
	n := 0
	for _, p := range parts {
		if p.InlineData != nil {
			n++
		}
	}
	return n
}

func TestAsk_DocumentsSentOnce(t *testing.T) {
	ok := answer(&genai.Part{Text: "Noted."})
	chat := &script{responses: []*genai.GenerateContentResponse{ok, ok, ok, ok, ok}}
	a := New(&opener{chat: chat}, finsighttest.Documents(2))

	for _, q := range []string{"one", "two", "three"} {
		if _, err := a.Ask(context.Background(), q); err != nil {
			t.Fatal(err)
		}
	}
	a.Attach(finsighttest.Documents(1))
	for _, q := range []string{"four", "five"} {
		if _, err := a.Ask(context.Background(), q); err != nil {
			t.Fatal(err)
		}
	}

	var got []int
	for _, parts := range chat.sent {
		got = append(got, inlineParts(parts))
	}
	if diff := cmp.Diff([]int{2, 0, 0, 1, 0}, got); diff != "" {
		t.Errorf("documents per message mismatch (-want +got):\n%s", diff)
	}
}

func TestAsk_DocumentsResentAfterFailure(t *testing.T) {
	chat := &script{responses: []*genai.GenerateContentResponse{answer(&genai.Part{Text: "Noted."})}}
	failing := &failOnce{next: chat}
	a := New(nil, finsighttest.Documents(2))
	a.chat = failing

	if _, err := a.Ask(context.Background(), "one"); err == nil {
		t.Fatal("Ask() succeeded, want the send error")
	}
	if _, err := a.Ask(context.Background(), "one again"); err != nil {
		t.Fatal(err)
	}
	if n := inlineParts(chat.sent[0]); n != 2 {
		t.Errorf("retried question sent %d documents, want 2", n)
	}
}

// failOnce fails the first message and forwards the others.
type failOnce struct {
	next   gemini.ChatSession
	failed bool
}

func (f *failOnce) Send(ctx context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error) {
	if !f.failed {
		f.failed = true
		return nil, errors.New("connection reset")
	}
	return f.next.Send(ctx, parts...)
}

func TestAsk_TooManyCalls(t *testing.T) {
	loop := answer(call("vault_facts", map[string]any{"query": "q2"}))
	chat := &script{responses: []*genai.GenerateContentResponse{loop, loop, loop}}
	a := New(&opener{chat: chat}, nil, VaultFacts(testVault(t)))
	a.MaxCalls = 2

	_, err := a.Ask(context.Background(), "loop")
	if !errors.Is(err, finsight.ErrResponseShape) {
		t.Errorf("Ask() = %v, want a response-shape error", err)
	}
	if len(chat.sent) != 3 {
		t.Errorf("%d messages sent, want 3", len(chat.sent))
	}
}

func TestAsk_EmptyResponse(t *testing.T) {
	a := New(&opener{chat: &script{responses: []*genai.GenerateContentResponse{{}}}}, nil)
	if _, err := a.Ask(context.Background(), "hello"); !errors.Is(err, finsight.ErrResponseShape) {
		t.Errorf("Ask() = %v, want a response-shape error", err)
	}
}

func TestLibrary(t *testing.T) {
	reports := report.New(store.NewMemory[finsight.SavedReport]())
	saved := reports.Save("Q3 vs Q2", finsighttest.Result(), []string{"q3.pdf"})
	lib := NewLibrary([]Function{VaultFacts(testVault(t)), SavedReports(reports, renderer.Options{})})
	ctx := context.Background()

	tests := []struct {
		call    *genai.FunctionCall
		output  string
		errText string
	}{
		{call: &genai.FunctionCall{Name: "saved_reports"}, output: saved.ID},
		{call: &genai.FunctionCall{Name: "saved_reports", Args: map[string]any{"id": saved.ID}}, output: "# Q3 vs Q2"},
		{call: &genai.FunctionCall{Name: "saved_reports", Args: map[string]any{"id": "nope"}}, errText: "no saved report"},
		{call: &genai.FunctionCall{Name: "saved_reports", Args: map[string]any{"id": 12.0}}, errText: "not a string"},
		{call: &genai.FunctionCall{Name: "vault_facts", Args: map[string]any{"query": "Q2"}}, output: "q2.pdf"},
		{call: &genai.FunctionCall{Name: "vault_facts", Args: map[string]any{"query": "nothing"}}, output: "The vault is empty"},
		{call: &genai.FunctionCall{Name: "stock_quote"}, errText: "unknown function stock_quote"},
	}
	for _, tt := range tests {
		t.Run(tt.call.Name, func(t *testing.T) {
			resp := lib(ctx, tt.call)
			if resp.Name != tt.call.Name {
				t.Errorf("response name = %q", resp.Name)
			}
			if tt.errText != "" {
				if e, _ := resp.Response["error"].(string); !strings.Contains(e, tt.errText) {
					t.Errorf("error = %q, want %q", e, tt.errText)
				}
				return
			}
			if out, _ := resp.Response["output"].(string); !strings.Contains(out, tt.output) {
				t.Errorf("output = %q, want %q", out, tt.output)
			}
		})
	}
}

func TestRun(t *testing.T) {
	chat := &script{responses: []*genai.GenerateContentResponse{
		answer(&genai.Part{Text: "Revenue grew 12%."}),
		answer(&genai.Part{Text: "Costs were flat."}),
	}}
	a := New(&opener{chat: chat}, nil)
	var out strings.Builder
	err := a.Run(context.Background(), &out, strings.NewReader("\nAnd costs?\nbye\nnever asked\n"), nil, "How did revenue evolve?")
	if err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{Welcome, "ask> How did revenue evolve?\nRevenue grew 12%.\n", "Costs were flat.\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output does not contain %q:\n%s", want, got)
		}
	}
	if len(chat.sent) != 2 {
		t.Errorf("%d questions sent, want 2", len(chat.sent))
	}
}

func TestRun_EOF(t *testing.T) {
	chat := &script{responses: []*genai.GenerateContentResponse{answer(&genai.Part{Text: "ok"})}}
	a := New(&opener{chat: chat}, nil)
	var out strings.Builder
	if err := a.Run(context.Background(), &out, strings.NewReader("last question"), nil); err != nil {
		t.Fatal(err)
	}
	if len(chat.sent) != 1 {
		t.Error("a question without a trailing newline was dropped")
	}
}

func TestRun_ErrorsKeepTheLoop(t *testing.T) {
	a := New(&opener{chat: &script{}}, nil)
	var out strings.Builder
	if err := a.Run(context.Background(), &out, strings.NewReader("first\nsecond\n"), nil); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out.String(), "I encountered an error"); n != 2 {
		t.Errorf("%d errors printed, want 2:\n%s", n, out.String())
	}
}

func TestRun_MissingKey(t *testing.T) {
	a := New(gemini.New(gemini.Config{}), nil)
	var out strings.Builder
	err := a.Run(context.Background(), &out, strings.NewReader("hello\n"), nil)
	if !errors.Is(err, finsight.ErrConfiguration) {
		t.Errorf("Run() = %v, want a configuration error", err)
	}
}
