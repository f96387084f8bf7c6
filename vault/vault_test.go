package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/finsighttest"
	"github.com/etnz/finsight/gemini"
	"github.com/etnz/finsight/store"
)

// extractor answers one fact per document, named after the document.
type extractor struct {
	failAt int // 1-indexed, 0 never fails
	calls  int
}

func (e *extractor) ExtractFacts(_ context.Context, doc finsight.Document) (*finsight.FactExtraction, error) {
	e.calls++
	if e.calls == e.failAt {
		return nil, finsight.Errorf(finsight.KindTransport, gemini.OpExtract, "boom")
	}
	return &finsight.FactExtraction{
		Summary: "Summary of " + doc.Name,
		Facts: []finsight.FinancialFact{
			{Metric: "Revenue " + doc.Name, Value: fmt.Sprintf("$%dM", e.calls), DateContext: "Q3 2024"},
			{Metric: "Vendor", Value: "Acme Corp", DateContext: "2024"},
		},
	}, nil
}

// broken is a repository whose every operation fails, like a full disk.
type broken struct{}

var errQuota = finsight.NewError(finsight.KindPersistence, "write", errors.New("quota exceeded"))

func (broken) List() ([]finsight.VaultItem, error) { return nil, errQuota }
func (broken) Get(string) (finsight.VaultItem, bool, error) {
	return finsight.VaultItem{}, false, errQuota
}
func (broken) Append(finsight.VaultItem) error { return errQuota }
func (broken) Delete(string) error             { return errQuota }
func (broken) Clear() error                    { return errQuota }

func fixedClock() time.Time { return time.Date(2024, 10, 1, 9, 30, 0, 0, time.UTC) }

func TestRetrieve_Empty(t *testing.T) {
	v := New(store.NewMemory[finsight.VaultItem](), &extractor{})
	if got := v.Retrieve(); got != "" {
		t.Errorf("Retrieve() on an empty vault = %q, want empty", got)
	}
}

func TestRetrieve(t *testing.T) {
	v := New(store.NewMemory[finsight.VaultItem](), &extractor{}, WithClock(fixedClock))
	docs := finsighttest.Documents(2)
	docs[1].Type = finsight.Invoice
	if _, err := v.IndexAll(context.Background(), docs); err != nil {
		t.Fatal(err)
	}

	want := Header + "\n" +
		"\nDOCUMENT: doc2.txt (2024-10-01T09:30:00Z)\nSUMMARY: Summary of doc2.txt\nKEY FACTS:\n" +
		"- Revenue doc2.txt: $2M (Q3 2024)\n- Vendor: Acme Corp (2024)\n" +
		"\nDOCUMENT: doc1.txt (2024-10-01T09:30:00Z)\nSUMMARY: Summary of doc1.txt\nKEY FACTS:\n" +
		"- Revenue doc1.txt: $1M (Q3 2024)\n- Vendor: Acme Corp (2024)\n" +
		"\n" + Footer + "\n"
	got := v.Retrieve()
	if got != want {
		t.Errorf("Retrieve() =\n%s\nwant:\n%s", got, want)
	}
	if again := v.Retrieve(); again != got {
		t.Error("Retrieve() is not idempotent")
	}
}

func TestIndex(t *testing.T) {
	v := New(store.NewMemory[finsight.VaultItem](), &extractor{}, WithClock(fixedClock))
	doc := finsighttest.Documents(1)[0]
	doc.Type = ""
	item, err := v.Index(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if item.ID == "" || item.FileName != "doc1.txt" || item.DocType != finsight.OtherDocument || item.DateIndexed != "2024-10-01T09:30:00Z" {
		t.Errorf("Index() = %+v", item)
	}
	for _, f := range item.Facts {
		if f.SourceDoc != "doc1.txt" {
			t.Errorf("fact %q has source %q", f.Metric, f.SourceDoc)
		}
	}
}

func TestIndexAll_FailFast(t *testing.T) {
	const n = 5
	for k := 1; k <= n; k++ {
		t.Run(fmt.Sprintf("fail at %d", k), func(t *testing.T) {
			// the failure comes from the generation backend, through the real client
			gen := &finsighttest.Generator{Respond: func(i int, call finsighttest.Call) (string, error) {
				if i == k-1 {
					return "", finsighttest.ErrUnavailable
				}
				return `{"summary":"s","facts":[{"metric":"m","value":"v","dateContext":"d"}]}`, nil
			}}
			client := gemini.New(gemini.Config{APIKey: "key"}, gemini.WithGenerator(gen))
			repo := store.NewMemory[finsight.VaultItem]()
			v := New(repo, client)

			items, err := v.IndexAll(context.Background(), finsighttest.Documents(n))
			if !errors.Is(err, finsight.ErrTransport) {
				t.Fatalf("IndexAll() = %v, want a transport error", err)
			}
			if !strings.Contains(err.Error(), fmt.Sprintf("doc%d.txt", k)) {
				t.Errorf("error %q does not name the failing document", err)
			}
			stored, _ := repo.List()
			if len(items) != k-1 || len(stored) != k-1 {
				t.Errorf("got %d returned and %d stored items, want %d", len(items), len(stored), k-1)
			}
			if calls := len(gen.Calls()); calls != k {
				t.Errorf("%d extraction calls, documents after the failure must not be attempted", calls)
			}
		})
	}
}

func TestIndex_PersistenceFailureDegrades(t *testing.T) {
	v := New(broken{}, &extractor{})
	item, err := v.Index(context.Background(), finsighttest.Documents(1)[0])
	if err != nil {
		t.Fatalf("Index() = %v, persistence failures must not propagate", err)
	}
	if item.Summary != "Summary of doc1.txt" {
		t.Errorf("Index() = %+v, want the in-memory item", item)
	}
	if got := v.Retrieve(); got != "" {
		t.Errorf("Retrieve() on an unreadable vault = %q, want empty", got)
	}
	if got := v.Items(); len(got) != 0 {
		t.Errorf("Items() = %v, want empty", got)
	}
	if err := v.Clear(); !errors.Is(err, finsight.ErrPersistence) {
		t.Errorf("Clear() = %v, want a persistence error", err)
	}
}

func TestRetrieve_Capacity(t *testing.T) {
	repo := store.NewMemory[finsight.VaultItem]()
	full := New(repo, &extractor{}, WithClock(fixedClock))
	full.IndexAll(context.Background(), finsighttest.Documents(3))

	byItems := New(repo, nil, WithMaxItems(2)).Retrieve()
	if strings.Contains(byItems, "doc1.txt") || !strings.Contains(byItems, "doc3.txt") || !strings.Contains(byItems, "doc2.txt") {
		t.Errorf("WithMaxItems(2) did not keep the 2 most recent items:\n%s", byItems)
	}

	one := len(section(full.Items()[0]))
	budget := len(Header) + len(Footer) + 3 + one
	byBytes := New(repo, nil, WithMaxBytes(budget)).Retrieve()
	if strings.Count(byBytes, "DOCUMENT:") != 1 || !strings.Contains(byBytes, "doc3.txt") {
		t.Errorf("WithMaxBytes(%d) = \n%s", budget, byBytes)
	}
	if len(byBytes) > budget {
		t.Errorf("Retrieve() is %d bytes, over the %d budget", len(byBytes), budget)
	}
	if got := New(repo, nil, WithMaxBytes(10)).Retrieve(); got != "" {
		t.Errorf("a budget smaller than one item must yield an empty block, got %q", got)
	}
}

func TestSearchAndClear(t *testing.T) {
	v := New(store.NewMemory[finsight.VaultItem](), &extractor{})
	v.IndexAll(context.Background(), finsighttest.Documents(3))

	if got := v.Search("DOC2"); len(got) != 1 || got[0].FileName != "doc2.txt" {
		t.Errorf("Search(DOC2) = %v", got)
	}
	if got := v.Search("summary of"); len(got) != 3 {
		t.Errorf("Search(summary of) returned %d items, want 3", len(got))
	}
	if got := v.Search("$2m"); len(got) != 1 || got[0].FileName != "doc2.txt" {
		t.Errorf("Search($2m) = %v, want the document with that fact value", got)
	}
	if got := v.Search("acme"); len(got) != 3 {
		t.Errorf("Search(acme) returned %d items, want 3", len(got))
	}
	if err := v.Clear(); err != nil {
		t.Fatal(err)
	}
	if got := v.Retrieve(); got != "" {
		t.Errorf("Retrieve() after Clear = %q", got)
	}
}

func TestIndex_ReadOnly(t *testing.T) {
	v := New(store.NewMemory[finsight.VaultItem](), nil)
	if _, err := v.Index(context.Background(), finsighttest.Documents(1)[0]); err == nil {
		t.Error("Index() without extractor succeeded")
	}
}
