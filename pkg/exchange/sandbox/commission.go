package sandbox

import (
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

// CommissionSchedule charges Rate per unit, at least Minimum and at most
// MaximumRate of the traded notional.
type CommissionSchedule struct {
	Rate        fixed.Point
	Minimum     fixed.Point
	MaximumRate fixed.Point
}

var DefaultCommissionSchedule = CommissionSchedule{
	Rate:        fixed.FromInt64(5, 3),
	Minimum:     fixed.One,
	MaximumRate: fixed.FromInt64(1, 2),
}

// Commission applies the minimum first, so the notional cap wins on small fills.
func (c CommissionSchedule) Commission(quantity, price fixed.Point) fixed.Point {
	return fixed.Clamp(c.Rate.Mul(quantity), c.Minimum, c.MaximumRate.Mul(quantity).Mul(price))
}
