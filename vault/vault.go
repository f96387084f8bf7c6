// Package vault is the memory vault: facts extracted from previously
// analyzed documents, flattened into a text block and re-injected as
// historical context into later analyses.
package vault

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Markers framing the flattened vault.
const (
	Header = "### HISTORICAL KNOWLEDGE VAULT (INTERNAL MEMORY) ###"
	Footer = "### END OF VAULT ###"
)

// Extractor summarizes a document into facts. *gemini.Client implements it.
type Extractor interface {
	ExtractFacts(ctx context.Context, doc finsight.Document) (*finsight.FactExtraction, error)
}

// Vault indexes documents and retrieves their facts.
type Vault struct {
	repo     store.Repository[finsight.VaultItem]
	ex       Extractor
	now      func() time.Time
	maxItems int
	maxBytes int
	log      *logrus.Entry
}

// Option customizes a Vault.
type Option func(*Vault)

// WithMaxItems limits Retrieve to the n most recent items. Zero means no limit.
func WithMaxItems(n int) Option { return func(v *Vault) { v.maxItems = n } }

// WithMaxBytes limits the size of the block returned by Retrieve, dropping the
// oldest items first. Zero means no limit.
func WithMaxBytes(n int) Option { return func(v *Vault) { v.maxBytes = n } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(v *Vault) { v.now = now } }

// New returns a vault stored in repo. ex may be nil for a read-only vault.
func New(repo store.Repository[finsight.VaultItem], ex Extractor, opts ...Option) *Vault {
	v := &Vault{repo: repo, ex: ex, now: time.Now, log: logrus.WithField("component", "vault")}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Index extracts the facts of one document and prepends them to the vault.
//
// A persistence failure is logged and the item is still returned: the caller
// keeps working with it even if it was not saved.
func (v *Vault) Index(ctx context.Context, doc finsight.Document) (finsight.VaultItem, error) {
	if v.ex == nil {
		return finsight.VaultItem{}, fmt.Errorf("cannot index %q: the vault has no extractor", doc.Name)
	}
	ext, err := v.ex.ExtractFacts(ctx, doc)
	if err != nil {
		return finsight.VaultItem{}, err
	}
	facts := make([]finsight.FinancialFact, len(ext.Facts))
	for i, f := range ext.Facts {
		f.SourceDoc = doc.Name
		facts[i] = f
	}
	item := finsight.VaultItem{
		ID:          uuid.NewString(),
		FileName:    doc.Name,
		DateIndexed: v.now().UTC().Format(time.RFC3339),
		DocType:     doc.Type.OrOther(),
		Facts:       facts,
		Summary:     ext.Summary,
	}
	if err := v.repo.Append(item); err != nil {
		v.log.WithError(err).WithField("file", doc.Name).Warn("vault item not persisted")
	}
	v.log.WithFields(logrus.Fields{"file": doc.Name, "facts": len(facts)}).Info("document indexed")
	return item, nil
}

// IndexAll indexes documents one after the other and stops at the first
// failure: documents before it stay indexed, documents after it are not
// attempted. It returns the items indexed so far.
func (v *Vault) IndexAll(ctx context.Context, docs []finsight.Document) ([]finsight.VaultItem, error) {
	items := make([]finsight.VaultItem, 0, len(docs))
	for i, doc := range docs {
		item, err := v.Index(ctx, doc)
		if err != nil {
			return items, fmt.Errorf("cannot index %q (%d/%d): %w", doc.Name, i+1, len(docs), err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Items returns the vault content, most recent first. Read failures yield an empty list.
func (v *Vault) Items() []finsight.VaultItem {
	items, err := v.repo.List()
	if err != nil {
		v.log.WithError(err).Warn("cannot read the vault")
		return nil
	}
	return items
}

// Search returns the items whose file name, summary or one of the facts
// contains term, ignoring case.
func (v *Vault) Search(term string) []finsight.VaultItem {
	term = strings.ToLower(strings.TrimSpace(term))
	var res []finsight.VaultItem
	for _, it := range v.Items() {
		if matches(it, term) {
			res = append(res, it)
		}
	}
	return res
}

func matches(it finsight.VaultItem, term string) bool {
	fields := []string{it.FileName, it.Summary}
	for _, f := range it.Facts {
		fields = append(fields, f.Metric, f.Value, f.DateContext)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// Clear wipes the vault.
func (v *Vault) Clear() error {
	if err := v.repo.Clear(); err != nil {
		v.log.WithError(err).Warn("cannot clear the vault")
		return err
	}
	return nil
}

// Retrieve flattens the vault into a text block, most recent item first.
// It never fails: an empty (or unreadable) vault yields "", which callers
// treat as "no historical context".
func (v *Vault) Retrieve() string {
	items := v.Items()
	if v.maxItems > 0 && len(items) > v.maxItems {
		items = items[:v.maxItems]
	}
	if len(items) == 0 {
		return ""
	}

	sections := make([]string, 0, len(items))
	size := len(Header) + len(Footer) + 3
	for _, it := range items {
		s := section(it)
		if v.maxBytes > 0 && size+len(s) > v.maxBytes {
			if len(sections) == 0 {
				v.log.WithField("max_bytes", v.maxBytes).Warn("most recent vault item exceeds the vault budget")
			}
			break
		}
		size += len(s)
		sections = append(sections, s)
	}
	if len(sections) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(Header + "\n")
	for _, s := range sections {
		b.WriteString(s)
	}
	b.WriteString("\n" + Footer + "\n")
	return b.String()
}

func section(it finsight.VaultItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nDOCUMENT: %s (%s)\nSUMMARY: %s\nKEY FACTS:\n", it.FileName, it.DateIndexed, it.Summary)
	for _, f := range it.Facts {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", f.Metric, f.Value, f.DateContext)
	}
	return b.String()
}
