package common

import (
	"time"

	"go.uber.org/zap"
)

// Progress reports the simulated clock of a running day.
type Progress struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Meta
}

// Fraction is how much of the day has been simulated, in [0, 1].
func (p Progress) Fraction() float64 {
	total := p.End.Sub(p.Start)
	if total <= 0 {
		return 1
	}
	return float64(p.TimeStamp.Sub(p.Start)) / float64(total)
}

func (p Progress) Fields() []zap.Field {
	return []zap.Field{
		zap.Time("ts", p.TimeStamp),
		zap.Float64("fraction", p.Fraction()),
		zap.Stringer("run_id", p.RunId),
	}
}

// Failure carries an error raised inside the engine. OrderId is zero when the
// failure is not tied to an order.
type Failure struct {
	Err     error   `json:"-"`
	OrderId OrderId `json:"order_id,omitempty"`

	Meta
}

func (f Failure) Fields() []zap.Field {
	return []zap.Field{
		zap.Error(f.Err),
		zap.Int64("order_id", f.OrderId),
		zap.String("src", f.Source),
		zap.Time("ts", f.TimeStamp),
	}
}
