package sandbox

import (
	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
	"github.com/peter-kozarec/sandbox/pkg/simulation"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

const (
	DefaultAccountCode = "DU0000000"
	DefaultCurrency    = "USD"
)

var DefaultBalance = fixed.FromInt64(1_000_000, 0)

type Option func(*Exchange)

func WithSymbols(symbols ...exchange.SymbolInfo) Option {
	return func(e *Exchange) {
		for _, symbol := range symbols {
			e.symbols[exchange.Key(symbol.Ticker)] = symbol
		}
	}
}

func WithAccount(code, currency string, balance fixed.Point) Option {
	return func(e *Exchange) {
		e.account = common.NewAccount(code, currency, balance)
	}
}

func WithCommissionSchedule(schedule CommissionSchedule) Option {
	return func(e *Exchange) {
		e.commission = schedule
	}
}

// WithAudit records fills and the net liquidation curve of every run.
func WithAudit(audit *simulation.Audit) Option {
	return func(e *Exchange) {
		e.audit = audit
	}
}

// WithClock overrides the clock used to stamp events. Defaults to the scheduler.
func WithClock(clock exchange.Clock) Option {
	return func(e *Exchange) {
		e.clock = clock
	}
}
