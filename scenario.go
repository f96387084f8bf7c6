package finsight

import (
	"errors"
	"fmt"
)

// Bounds of a scenario modifier as offered to the user.
const (
	MinModifier Percent = -50
	MaxModifier Percent = 50
)

// ScenarioModifiers are the hypothetical changes of a what-if simulation.
type ScenarioModifiers struct {
	RevenueChange         Percent `json:"revenueChange"`
	CostChange            Percent `json:"costChange"`
	OperationalEfficiency Percent `json:"operationalEfficiency"`
}

// Validate checks that every modifier is within [MinModifier, MaxModifier].
// Input layers call it, the simulator itself never clamps.
func (m ScenarioModifiers) Validate() error {
	var errs []error
	for _, v := range []struct {
		name string
		p    Percent
	}{
		{"revenue", m.RevenueChange},
		{"cost", m.CostChange},
		{"operational efficiency", m.OperationalEfficiency},
	} {
		if !v.p.InRange(MinModifier, MaxModifier) {
			errs = append(errs, fmt.Errorf("%s modifier %v is out of [%v,%v]", v.name, float64(v.p), float64(MinModifier), float64(MaxModifier)))
		}
	}
	return errors.Join(errs...)
}

// ScenarioPoint compares a baseline value to its projection.
type ScenarioPoint struct {
	Name      string  `json:"name"`
	Baseline  float64 `json:"baseline"`
	Projected float64 `json:"projected"`
}

// ScenarioResult is the projection of a what-if simulation. It is never persisted.
type ScenarioResult struct {
	ProjectedNetIncome string          `json:"projectedNetIncome"`
	ProjectedMargin    string          `json:"projectedMargin"`
	RiskShift          string          `json:"riskShift"`
	ImpactAnalysis     string          `json:"impactAnalysis"`
	ChartData          []ScenarioPoint `json:"chartData"`
}
