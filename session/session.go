// Package session ties the components of finsight together for one user:
// the marketplace toggles, the memory vault, the saved reports, the
// generation client and the last analysis.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/assistant"
	"github.com/etnz/finsight/gemini"
	"github.com/etnz/finsight/links"
	"github.com/etnz/finsight/marketplace"
	"github.com/etnz/finsight/prompt"
	"github.com/etnz/finsight/renderer"
	"github.com/etnz/finsight/report"
	"github.com/etnz/finsight/scenario"
	"github.com/etnz/finsight/vault"
	"github.com/sirupsen/logrus"
)

// ErrNoAnalysis is returned when the last analysis is needed but none ran yet.
var ErrNoAnalysis = errors.New("no analysis yet, run an analysis first")

// Request is an analysis request.
type Request struct {
	Documents  []finsight.Document
	Links      []finsight.Link
	Mode       finsight.AnalysisMode // finsight.DefaultMode when empty
	UseVault   bool                  // inject the vault context
	FetchLinks bool                  // send the readable text of the links
}

// Analysis is the outcome of a request.
type Analysis struct {
	Result  *finsight.ComparisonResult
	Sources []string // document names then link URLs
}

// Session is the state of one user. Vault and reports may be shared between
// sessions, the catalog and the last analysis are not.
type Session struct {
	Catalog *marketplace.Catalog
	Vault   *vault.Vault
	Reports *report.Store
	Client  *gemini.Client

	simulator *scenario.Simulator
	connector marketplace.Connector
	fetcher   *links.Fetcher
	options   renderer.Options
	log       *logrus.Entry

	analyses finsight.Sequence
	chats    finsight.Sequence

	mu        sync.Mutex
	last      *Analysis
	documents []finsight.Document
	assistant *assistant.Assistant
}

// Option customizes a Session.
type Option func(*Session)

// WithConnector replaces the integration connector (a MockConnector by default).
func WithConnector(c marketplace.Connector) Option { return func(s *Session) { s.connector = c } }

// WithFetcher replaces the link fetcher.
func WithFetcher(f *links.Fetcher) Option { return func(s *Session) { s.fetcher = f } }

// WithRendering sets the options of the markdown returned to the assistant.
func WithRendering(o renderer.Options) Option { return func(s *Session) { s.options = o } }

// New returns a session with a fresh catalog.
func New(client *gemini.Client, v *vault.Vault, reports *report.Store, opts ...Option) *Session {
	s := &Session{
		Catalog:   marketplace.NewCatalog(),
		Vault:     v,
		Reports:   reports,
		Client:    client,
		simulator: scenario.New(client),
		connector: &marketplace.MockConnector{},
		fetcher:   &links.Fetcher{},
		log:       logrus.WithField("component", "session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze compares the documents and links. Documents that are not ready are
// ignored. Without any evidence left it fails with finsight.ErrNoEvidence and
// nothing is sent. When a newer analysis started meanwhile it fails with
// finsight.ErrStale.
func (s *Session) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	var docs []finsight.Document
	for _, d := range req.Documents {
		if d.Ready() {
			docs = append(docs, d)
		} else {
			s.log.WithField("document", d.Name).Warn("document is not ready, skipped")
		}
	}
	if len(docs) == 0 && len(req.Links) == 0 {
		return nil, finsight.ErrNoEvidence
	}
	mode := req.Mode
	if mode == "" {
		mode = finsight.DefaultMode
	}

	preq := prompt.Request{
		Mode:          mode,
		Links:         req.Links,
		Integrations:  s.Catalog.Connected(),
		Plugins:       s.Catalog.ActivePlugins(),
		DocumentTypes: make([]finsight.DocumentType, len(docs)),
	}
	for i, d := range docs {
		preq.DocumentTypes[i] = d.Type
	}
	if req.UseVault && s.Vault != nil {
		preq.VaultContext = s.Vault.Retrieve()
	}
	var extra []string
	if req.FetchLinks {
		extra = s.fetcher.Snapshots(ctx, req.Links)
	}

	tok := s.analyses.Next()
	s.log.WithFields(logrus.Fields{"mode": mode, "documents": len(docs), "links": len(req.Links)}).Info("analyzing")
	res, err := s.Client.Analyze(ctx, docs, prompt.Build(preq), extra...)
	if !s.analyses.Current(tok) {
		return nil, finsight.ErrStale
	}
	if err != nil {
		return nil, err
	}

	a := &Analysis{Result: res, Sources: finsight.SourceNames(docs, req.Links)}
	s.mu.Lock()
	s.last = a
	s.documents = docs
	if s.assistant != nil {
		s.assistant.Attach(docs)
	}
	s.mu.Unlock()
	return a, nil
}

// Last returns the last successful analysis, nil if none.
func (s *Session) Last() *Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Index adds the documents to the vault, in order, stopping at the first
// failure.
func (s *Session) Index(ctx context.Context, docs []finsight.Document) ([]finsight.VaultItem, error) {
	if len(docs) == 0 {
		return nil, errors.New("no document to index")
	}
	return s.Vault.IndexAll(ctx, docs)
}

// Simulate runs a what-if scenario on result, or on the last analysis when
// result is nil. Modifiers outside the accepted range are rejected.
func (s *Session) Simulate(ctx context.Context, result *finsight.ComparisonResult, mods finsight.ScenarioModifiers) (*finsight.ScenarioResult, error) {
	if err := mods.Validate(); err != nil {
		return nil, err
	}
	if result == nil {
		if last := s.Last(); last != nil {
			result = last.Result
		}
	}
	if result == nil {
		return nil, ErrNoAnalysis
	}
	return s.simulator.Run(ctx, result, mods)
}

// Save records an analysis as a report. Without result the last analysis is
// saved with its sources.
func (s *Session) Save(title string, result *finsight.ComparisonResult, sources []string) (finsight.SavedReport, error) {
	if result == nil {
		last := s.Last()
		if last == nil {
			return finsight.SavedReport{}, ErrNoAnalysis
		}
		result, sources = last.Result, last.Sources
	}
	return s.Reports.Save(title, *result, sources), nil
}

// Connect connects an integration of the catalog.
func (s *Session) Connect(ctx context.Context, id string) (marketplace.Integration, error) {
	i, err := s.Catalog.Connect(ctx, s.connector, id)
	if err != nil {
		return i, err
	}
	s.log.WithField("integration", id).Info("integration connected")
	return i, nil
}

// Chat asks the assistant, the documents of the last analysis are attached.
// When a newer question was asked meanwhile it fails with finsight.ErrStale.
func (s *Session) Chat(ctx context.Context, message string) (string, error) {
	if message == "" {
		return "", errors.New("empty message")
	}
	a := s.Assistant()
	tok := s.chats.Next()
	answer, err := a.Ask(ctx, message)
	if !s.chats.Current(tok) {
		return "", finsight.ErrStale
	}
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return answer, nil
}

// Assistant returns the assistant of the session, created on first use with
// access to the vault and the saved reports.
func (s *Session) Assistant() *assistant.Assistant {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assistant == nil {
		s.assistant = assistant.New(s.Client, s.documents,
			assistant.VaultFacts(s.Vault),
			assistant.SavedReports(s.Reports, s.options))
	}
	return s.assistant
}
