// Package report keeps the analyses saved by the user.
//
// Persistence is best effort: a report that cannot be written is still
// returned to the caller, and reads that fail look like an empty store.
package report

import (
	"strings"
	"time"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store saves and retrieves reports.
type Store struct {
	repo store.Repository[finsight.SavedReport]
	now  func() time.Time
	log  *logrus.Entry
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New returns a store backed by repo.
func New(repo store.Repository[finsight.SavedReport], opts ...Option) *Store {
	s := &Store{repo: repo, now: time.Now, log: logrus.WithField("component", "report")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save records result under title ("Analysis - <date>" when blank).
func (s *Store) Save(title string, result finsight.ComparisonResult, sources []string) finsight.SavedReport {
	now := s.now()
	result.Normalize()
	if strings.TrimSpace(title) == "" {
		title = finsight.DefaultTitle(now)
	}
	r := finsight.SavedReport{
		ID:        uuid.NewString(),
		Title:     title,
		Date:      now.UTC().Format(time.RFC3339),
		Result:    result,
		FileNames: append([]string{}, sources...),
	}
	if err := s.repo.Append(r); err != nil {
		s.log.WithError(err).WithField("id", r.ID).Warn("report not persisted")
	}
	return r
}

// List returns every report, most recent first.
func (s *Store) List() []finsight.SavedReport {
	reports, err := s.repo.List()
	if err != nil {
		s.log.WithError(err).Warn("cannot read reports")
		return []finsight.SavedReport{}
	}
	if reports == nil {
		return []finsight.SavedReport{}
	}
	return reports
}

// Get returns the report with the given id.
func (s *Store) Get(id string) (finsight.SavedReport, bool) {
	r, ok, err := s.repo.Get(id)
	if err != nil {
		s.log.WithError(err).WithField("id", id).Warn("cannot read report")
		return finsight.SavedReport{}, false
	}
	return r, ok
}

// Delete removes a report.
func (s *Store) Delete(id string) {
	if err := s.repo.Delete(id); err != nil {
		s.log.WithError(err).WithField("id", id).Warn("report not deleted")
	}
}
