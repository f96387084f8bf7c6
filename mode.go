package finsight

import (
	"fmt"
	"strings"
)

// AnalysisMode selects the framing of an analysis.
type AnalysisMode string

const (
	PeriodVsPeriod AnalysisMode = "PERIOD_VS_PERIOD"
	EntityVsEntity AnalysisMode = "ENTITY_VS_ENTITY"
	ActualVsBudget AnalysisMode = "ACTUAL_VS_BUDGET"
	CrossDocAudit  AnalysisMode = "CROSS_DOC_AUDIT"
	General        AnalysisMode = "GENERAL"
)

// DefaultMode is the mode used when none is given.
const DefaultMode = PeriodVsPeriod

// AnalysisModes lists every mode.
var AnalysisModes = []AnalysisMode{PeriodVsPeriod, EntityVsEntity, ActualVsBudget, CrossDocAudit, General}

// ParseAnalysisMode parses a mode, the empty string yields DefaultMode.
func ParseAnalysisMode(s string) (AnalysisMode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultMode, nil
	}
	for _, m := range AnalysisModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid analysis mode %q, expected one of %v", s, AnalysisModes)
}

// Set implements flag.Value.
func (m *AnalysisMode) Set(s string) error {
	v, err := ParseAnalysisMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m AnalysisMode) String() string { return string(m) }
