package finsight

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a signed percentage: 12.5 means 12.5%.
type Percent float64

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", p)
}

// Exact renders the shortest decimal that reads back as p, without rounding,
// with an explicit '+' for positive values: "+12.5%", "-7%", "0%".
func (p Percent) Exact() string {
	d := decimal.NewFromFloat(float64(p))
	if d.IsPositive() {
		return "+" + d.String() + "%"
	}
	return d.String() + "%"
}

// InRange reports whether p is in [min, max].
func (p Percent) InRange(min, max Percent) bool { return p >= min && p <= max }
