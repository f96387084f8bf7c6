package finsight

import "time"

// SavedReport is an analysis result saved by the user. Never mutated, only deleted.
type SavedReport struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Date      string           `json:"date"` // RFC 3339
	Result    ComparisonResult `json:"result"`
	FileNames []string         `json:"fileNames"`
}

// Key returns the report identifier.
func (r SavedReport) Key() string { return r.ID }

// Time parses Date, the zero time is returned for malformed dates.
func (r SavedReport) Time() time.Time {
	t, _ := time.Parse(time.RFC3339, r.Date)
	return t
}

// DefaultTitle is the title given to a report saved without one.
func DefaultTitle(now time.Time) string {
	return "Analysis - " + now.Format("2006-01-02")
}
