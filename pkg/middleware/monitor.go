package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/bus"
	"github.com/peter-kozarec/sandbox/pkg/common"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorOrders
	MonitorExecutions
	MonitorPositions
	MonitorPnL
	MonitorAccount
	MonitorProgress
	MonitorErrors
)

var monitorFlagNames = map[string]MonitorFlags{
	"none":       MonitorNone,
	"all":        MonitorAll,
	"orders":     MonitorOrders,
	"executions": MonitorExecutions,
	"positions":  MonitorPositions,
	"pnl":        MonitorPnL,
	"account":    MonitorAccount,
	"progress":   MonitorProgress,
	"errors":     MonitorErrors,
}

// ParseMonitorFlags combines flag names such as "orders" or "executions".
// Unknown names are returned separately.
func ParseMonitorFlags(names []string) (flags MonitorFlags, unknown []string) {
	for _, name := range names {
		flag, found := monitorFlagNames[name]
		if !found {
			unknown = append(unknown, name)
			continue
		}
		flags |= flag
	}
	return flags, unknown
}

// Monitor logs the events selected by its flags before passing them on.
type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger.Named("monitor"),
		flags:  flags,
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func (m *Monitor) WithOrderUpdate(handler bus.OrderUpdateEventHandler) bus.OrderUpdateEventHandler {
	return func(ctx context.Context, update common.OrderUpdate) {
		if m.enabled(MonitorOrders) {
			m.logger.Info("order update", update.Fields()...)
		}
		handler(ctx, update)
	}
}

func (m *Monitor) WithOrderExecution(handler bus.OrderExecutionEventHandler) bus.OrderExecutionEventHandler {
	return func(ctx context.Context, execution common.Execution) {
		if m.enabled(MonitorExecutions) {
			m.logger.Info("order execution", execution.Fields()...)
		}
		handler(ctx, execution)
	}
}

func (m *Monitor) WithPositionUpdate(handler bus.PositionUpdateEventHandler) bus.PositionUpdateEventHandler {
	return func(ctx context.Context, position common.Position) {
		if m.enabled(MonitorPositions) {
			m.logger.Info("position update", position.Fields()...)
		}
		handler(ctx, position)
	}
}

func (m *Monitor) WithPnLUpdate(handler bus.PnLUpdateEventHandler) bus.PnLUpdateEventHandler {
	return func(ctx context.Context, pnl common.PnL) {
		if m.enabled(MonitorPnL) {
			m.logger.Info("pnl update", pnl.Fields()...)
		}
		handler(ctx, pnl)
	}
}

func (m *Monitor) WithAccountValue(handler bus.AccountValueEventHandler) bus.AccountValueEventHandler {
	return func(ctx context.Context, value common.AccountValue) {
		if m.enabled(MonitorAccount) {
			m.logger.Info("account value", value.Fields()...)
		}
		handler(ctx, value)
	}
}

func (m *Monitor) WithProgress(handler bus.ProgressEventHandler) bus.ProgressEventHandler {
	return func(ctx context.Context, progress common.Progress) {
		if m.enabled(MonitorProgress) {
			m.logger.Info("progress", progress.Fields()...)
		}
		handler(ctx, progress)
	}
}

func (m *Monitor) WithError(handler bus.ErrorEventHandler) bus.ErrorEventHandler {
	return func(ctx context.Context, failure common.Failure) {
		if m.enabled(MonitorErrors) {
			m.logger.Warn("failure", failure.Fields()...)
		}
		handler(ctx, failure)
	}
}
