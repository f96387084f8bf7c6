package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/export"
	"github.com/etnz/finsight/finsighttest"
	"github.com/etnz/finsight/gemini"
	"github.com/etnz/finsight/marketplace"
	"github.com/etnz/finsight/renderer"
	"github.com/etnz/finsight/report"
	"github.com/etnz/finsight/session"
	"github.com/etnz/finsight/store"
	"github.com/etnz/finsight/vault"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

const facts = `{"summary":"Q2 report.","facts":[{"metric":"Revenue","value":"$1.0M","dateContext":"Q2 2024"}]}`

type chatter struct{}

func (chatter) NewChat(context.Context, string, *genai.GenerateContentConfig, []*genai.Content) (gemini.ChatSession, error) {
	return chatter{}, nil
}

func (chatter) Send(context.Context, ...*genai.Part) (*genai.GenerateContentResponse, error) {
	return finsighttest.TextResponse("Revenue grew 12%."), nil
}

// newServer returns a test server over gen, with a credential when key is set.
func newServer(t *testing.T, gen gemini.Generator, key string) *httptest.Server {
	t.Helper()
	client := gemini.New(gemini.Config{APIKey: key}, gemini.WithGenerator(gen), gemini.WithChatter(chatter{}))
	v := vault.New(store.NewMemory[finsight.VaultItem](), client)
	reports := report.New(store.NewMemory[finsight.SavedReport]())
	factory := func() *session.Session {
		return session.New(client, v, reports, session.WithConnector(&marketplace.MockConnector{Delay: -1}))
	}
	ts := httptest.NewServer(New(factory, renderer.Options{Currency: "USD"}))
	t.Cleanup(ts.Close)
	return ts
}

type form struct {
	files  map[string]string
	values map[string][]string
}

func (f form) encode(t *testing.T) (io.Reader, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range f.files {
		part, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	for key, values := range f.values {
		for _, v := range values {
			w.WriteField(key, v)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, w.FormDataContentType()
}

func do(t *testing.T, method, url, contentType string, body io.Reader, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postJSON(t *testing.T, url string, v any, header ...string) *http.Response {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return do(t, http.MethodPost, url, "application/json", bytes.NewReader(data), header...)
}

func read[T any](t *testing.T, resp *http.Response, want int) T {
	t.Helper()
	var v T
	if resp.StatusCode != want {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, data)
	}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	ts := newServer(t, &finsighttest.Generator{}, "key")
	if resp := do(t, http.MethodGet, ts.URL+"/healthz", "", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("status %d", resp.StatusCode)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		key    string
		form   form
		want   int
	}{
		{"no evidence", "", "key", form{values: map[string][]string{"mode": {"GENERAL"}}}, http.StatusBadRequest},
		{"missing key", "", "", form{files: map[string]string{"q3.txt": "Revenue 10"}}, http.StatusServiceUnavailable},
		{"not json", "Sure! Here is the analysis.", "key", form{files: map[string]string{"q3.txt": "Revenue 10"}}, http.StatusBadGateway},
		{"bad mode", "", "key", form{files: map[string]string{"q3.txt": "Revenue 10"}, values: map[string][]string{"mode": {"YEARLY"}}}, http.StatusBadRequest},
		{"bad type", "", "key", form{files: map[string]string{"q3.txt": "Revenue 10"}, values: map[string][]string{"types": {"MEMO"}}}, http.StatusBadRequest},
		{"bad link", "", "key", form{values: map[string][]string{"links": {"ftp://example.com"}}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &finsighttest.Generator{Text: tt.answer}
			ts := newServer(t, gen, tt.key)
			body, ct := tt.form.encode(t)
			got := read[map[string]string](t, do(t, http.MethodPost, ts.URL+"/api/analyze", ct, body), tt.want)
			if got["error"] == "" {
				t.Error("no error message")
			}
			if tt.want != http.StatusBadGateway && len(gen.Calls()) != 0 {
				t.Error("the model was called")
			}
		})
	}
}

func TestAnalyzeSaveAndExport(t *testing.T) {
	gen := &finsighttest.Generator{Text: finsighttest.JSON(finsighttest.Result())}
	ts := newServer(t, gen, "key")

	body, ct := form{
		files:  map[string]string{"q3.csv": "metric,value\nrevenue,1120000\n"},
		values: map[string][]string{"types": {"FINANCIAL_REPORT"}, "mode": {"period_vs_period"}, "save": {"Q3 review"}},
	}.encode(t)
	got := read[analyzeResponse](t, do(t, http.MethodPost, ts.URL+"/api/analyze", ct, body), http.StatusOK)
	if got.Report == nil || got.Report.Title != "Q3 review" {
		t.Fatalf("report not saved: %+v", got.Report)
	}
	if diff := cmp.Diff([]string{"q3.csv"}, got.Sources); diff != "" {
		t.Errorf("Sources mismatch (-want +got):\n%s", diff)
	}
	id := got.Report.ID

	list := read[[]finsight.SavedReport](t, do(t, http.MethodGet, ts.URL+"/api/reports", "", nil), http.StatusOK)
	if len(list) != 1 || list[0].ID != id {
		t.Errorf("GET /api/reports = %v", list)
	}
	title := read[string](t, do(t, http.MethodGet, ts.URL+"/api/reports/"+id+"?q=$.title", "", nil), http.StatusOK)
	if title != "Q3 review" {
		t.Errorf("query $.title = %q", title)
	}

	xlsx := do(t, http.MethodGet, ts.URL+"/api/reports/"+id+"/export.xlsx", "", nil)
	if xlsx.StatusCode != http.StatusOK {
		t.Fatalf("export.xlsx status %d", xlsx.StatusCode)
	}
	rows, err := export.ReadComparison(xlsx.Body)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(finsighttest.Result().KeyDifferences, rows); diff != "" {
		t.Errorf("workbook mismatch (-want +got):\n%s", diff)
	}

	for format, want := range map[string]string{
		"pdf":  "application/pdf",
		"md":   "text/markdown; charset=utf-8",
		"html": "text/html; charset=utf-8",
	} {
		resp := do(t, http.MethodGet, ts.URL+"/api/reports/"+id+"/export."+format, "", nil)
		if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != want {
			t.Errorf("export.%s: status %d, content type %q", format, resp.StatusCode, resp.Header.Get("Content-Type"))
		}
	}
	if resp := do(t, http.MethodGet, ts.URL+"/api/reports/"+id+"/export.docx", "", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("export.docx status %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, ts.URL+"/api/reports/"+id+"/export.pdf?kind=MEMO", "", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("export.pdf?kind=MEMO status %d", resp.StatusCode)
	}

	if resp := do(t, http.MethodDelete, ts.URL+"/api/reports/"+id, "", nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, ts.URL+"/api/reports/"+id, "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET deleted report status %d", resp.StatusCode)
	}
}

func TestSaveReport(t *testing.T) {
	ts := newServer(t, &finsighttest.Generator{}, "key")
	result := finsighttest.Result()

	saved := read[finsight.SavedReport](t, postJSON(t, ts.URL+"/api/reports", saveRequest{Title: "Manual", Result: &result, FileNames: []string{"a.pdf"}}), http.StatusCreated)
	if saved.Title != "Manual" || saved.ID == "" {
		t.Errorf("POST /api/reports = %+v", saved)
	}
	read[map[string]string](t, postJSON(t, ts.URL+"/api/reports", saveRequest{Title: "nothing"}), http.StatusBadRequest)

	result.SentimentScore = 140
	read[map[string]string](t, postJSON(t, ts.URL+"/api/reports", saveRequest{Result: &result}), http.StatusBadRequest)
}

func TestScenario(t *testing.T) {
	gen := &finsighttest.Generator{Text: `{"projectedNetIncome":"$610k","projectedMargin":"21%","riskShift":"Lower","impactAnalysis":"Better","chartData":[]}`}
	ts := newServer(t, gen, "key")
	mods := finsight.ScenarioModifiers{RevenueChange: 10, CostChange: -5}

	read[map[string]string](t, postJSON(t, ts.URL+"/api/scenario", scenarioRequest{Modifiers: mods}), http.StatusBadRequest)
	read[map[string]string](t, postJSON(t, ts.URL+"/api/scenario", scenarioRequest{Modifiers: finsight.ScenarioModifiers{RevenueChange: 75}}), http.StatusBadRequest)
	read[map[string]string](t, postJSON(t, ts.URL+"/api/scenario", scenarioRequest{ReportID: "missing", Modifiers: mods}), http.StatusNotFound)
	if len(gen.Calls()) != 0 {
		t.Error("the model was called for an invalid request")
	}

	result := finsighttest.Result()
	got := read[scenarioResponse](t, postJSON(t, ts.URL+"/api/scenario", scenarioRequest{Result: &result, Modifiers: mods}), http.StatusOK)
	if got.Result.ProjectedNetIncome != "$610k" || got.Modifiers != mods {
		t.Errorf("POST /api/scenario = %+v", got)
	}
}

func TestMarketplace(t *testing.T) {
	ts := newServer(t, &finsighttest.Generator{}, "key")
	alice := []string{SessionHeader, "alice"}

	toggled := read[map[string]any](t, do(t, http.MethodPost, ts.URL+"/api/plugins/valuation_dcf/toggle", "", nil, alice...), http.StatusOK)
	if toggled["active"] != true {
		t.Errorf("toggle = %v", toggled)
	}
	read[map[string]string](t, do(t, http.MethodPost, ts.URL+"/api/plugins/crystal_ball/toggle", "", nil), http.StatusNotFound)

	conn := read[marketplace.Integration](t, do(t, http.MethodPost, ts.URL+"/api/integrations/stripe", "", nil, alice...), http.StatusOK)
	if conn.Status != marketplace.Connected || !strings.Contains(conn.Context, "STRIPE LIVE DATA") {
		t.Errorf("connect = %+v", conn)
	}
	read[map[string]string](t, do(t, http.MethodPost, ts.URL+"/api/integrations/quickbooks", "", nil), http.StatusNotFound)

	type catalog struct {
		Plugins      []marketplace.Plugin      `json:"plugins"`
		Integrations []marketplace.Integration `json:"integrations"`
	}
	mine := read[catalog](t, do(t, http.MethodGet, ts.URL+"/api/marketplace", "", nil, alice...), http.StatusOK)
	other := read[catalog](t, do(t, http.MethodGet, ts.URL+"/api/marketplace", "", nil), http.StatusOK)
	if !mine.Plugins[0].Active || other.Plugins[0].Active {
		t.Error("plugin toggles leak between sessions")
	}
	if mine.Integrations[0].Status != marketplace.Connected || other.Integrations[0].Status != marketplace.Disconnected {
		t.Error("integrations leak between sessions")
	}

	if resp := do(t, http.MethodDelete, ts.URL+"/api/integrations/stripe", "", nil, alice...); resp.StatusCode != http.StatusNoContent {
		t.Errorf("disconnect status %d", resp.StatusCode)
	}
}

func TestVault(t *testing.T) {
	ts := newServer(t, &finsighttest.Generator{Text: facts}, "key")

	read[map[string]string](t, do(t, http.MethodPost, ts.URL+"/api/vault/index", "", strings.NewReader("")), http.StatusBadRequest)

	body, ct := form{files: map[string]string{"q2.txt": "Revenue 1.0M"}}.encode(t)
	indexed := read[map[string][]finsight.VaultItem](t, do(t, http.MethodPost, ts.URL+"/api/vault/index", ct, body), http.StatusOK)
	if len(indexed["items"]) != 1 || indexed["items"][0].FileName != "q2.txt" {
		t.Errorf("index = %v", indexed)
	}

	resp := do(t, http.MethodGet, ts.URL+"/api/vault/context", "", nil)
	text, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(text), "DOCUMENT: q2.txt") || !strings.Contains(string(text), "- Revenue: $1.0M (Q2 2024)") {
		t.Errorf("context = %s", text)
	}

	if resp := do(t, http.MethodDelete, ts.URL+"/api/vault", "", nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("clear status %d", resp.StatusCode)
	}
	items := read[map[string][]finsight.VaultItem](t, do(t, http.MethodGet, ts.URL+"/api/vault", "", nil), http.StatusOK)
	if len(items["items"]) != 0 {
		t.Errorf("vault not cleared: %v", items)
	}
}

func TestChat(t *testing.T) {
	ts := newServer(t, &finsighttest.Generator{}, "key")
	got := read[map[string]string](t, postJSON(t, ts.URL+"/api/chat", map[string]string{"message": "How is revenue?"}), http.StatusOK)
	if got["reply"] != "Revenue grew 12%." {
		t.Errorf("reply = %q", got["reply"])
	}
	read[map[string]string](t, postJSON(t, ts.URL+"/api/chat", map[string]string{"message": " "}), http.StatusBadRequest)
	read[map[string]string](t, postJSON(t, ts.URL+"/api/chat", map[string]string{"text": "hi"}), http.StatusBadRequest)
}

// hanging answers only when the context is done.
type hanging struct{}

func (hanging) GenerateContent(ctx context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAnalyze_Timeout(t *testing.T) {
	client := gemini.New(gemini.Config{APIKey: "key", Timeout: 10 * time.Millisecond}, gemini.WithGenerator(hanging{}))
	v := vault.New(store.NewMemory[finsight.VaultItem](), client)
	reports := report.New(store.NewMemory[finsight.SavedReport]())
	ts := httptest.NewServer(New(func() *session.Session { return session.New(client, v, reports) }, renderer.Options{}))
	defer ts.Close()

	body, ct := form{files: map[string]string{"q3.txt": "Revenue 10"}}.encode(t)
	got := read[map[string]string](t, do(t, http.MethodPost, ts.URL+"/api/analyze", ct, body), http.StatusGatewayTimeout)
	if !strings.Contains(got["error"], "deadline exceeded") {
		t.Errorf("error = %q", got["error"])
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"configuration", finsight.NewError(finsight.KindConfiguration, "analyze", nil), http.StatusServiceUnavailable},
		{"transport timeout", finsight.NewError(finsight.KindTransport, "analyze", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"transport", finsight.NewError(finsight.KindTransport, "analyze", io.ErrUnexpectedEOF), http.StatusBadGateway},
		{"shape", finsight.NewError(finsight.KindResponseShape, "analyze", io.EOF), http.StatusBadGateway},
		{"stale", finsight.ErrStale, http.StatusConflict},
		{"other", io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status(tt.err); got != tt.want {
				t.Errorf("status(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestSession_IdleSessionsDropped(t *testing.T) {
	created := 0
	srv := New(func() *session.Session {
		created++
		return session.New(gemini.New(gemini.Config{}), nil, nil)
	}, renderer.Options{})
	now := time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return now }
	srv.ttl = time.Hour

	request := func(id string) *session.Session {
		r := httptest.NewRequest(http.MethodGet, "/api/marketplace", nil)
		r.Header.Set(SessionHeader, id)
		return srv.session(r)
	}
	alice := request("alice")
	request("bob")
	now = now.Add(50 * time.Minute)
	if request("alice") != alice {
		t.Error("active session was replaced")
	}
	now = now.Add(50 * time.Minute)
	request("alice")
	if _, ok := srv.sessions["bob"]; ok {
		t.Error("idle session is still kept")
	}
	if len(srv.sessions) != 1 || created != 2 {
		t.Errorf("%d sessions kept, %d created, want 1 and 2", len(srv.sessions), created)
	}
}
