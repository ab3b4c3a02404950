package middleware

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/bus"
	"github.com/peter-kozarec/sandbox/pkg/common"
)

// Telemetry counts the events that pass through it.
type Telemetry struct {
	logger *zap.Logger

	orderUpdateEventCounter    atomic.Int64
	orderExecutionEventCounter atomic.Int64
	positionUpdateEventCounter atomic.Int64
	pnlUpdateEventCounter      atomic.Int64
	accountValueEventCounter   atomic.Int64
	progressEventCounter       atomic.Int64
	errorEventCounter          atomic.Int64
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger: logger.Named("telemetry"),
	}
}

func (t *Telemetry) WithOrderUpdate(handler bus.OrderUpdateEventHandler) bus.OrderUpdateEventHandler {
	return func(ctx context.Context, update common.OrderUpdate) {
		t.orderUpdateEventCounter.Add(1)
		handler(ctx, update)
	}
}

func (t *Telemetry) WithOrderExecution(handler bus.OrderExecutionEventHandler) bus.OrderExecutionEventHandler {
	return func(ctx context.Context, execution common.Execution) {
		t.orderExecutionEventCounter.Add(1)
		handler(ctx, execution)
	}
}

func (t *Telemetry) WithPositionUpdate(handler bus.PositionUpdateEventHandler) bus.PositionUpdateEventHandler {
	return func(ctx context.Context, position common.Position) {
		t.positionUpdateEventCounter.Add(1)
		handler(ctx, position)
	}
}

func (t *Telemetry) WithPnLUpdate(handler bus.PnLUpdateEventHandler) bus.PnLUpdateEventHandler {
	return func(ctx context.Context, pnl common.PnL) {
		t.pnlUpdateEventCounter.Add(1)
		handler(ctx, pnl)
	}
}

func (t *Telemetry) WithAccountValue(handler bus.AccountValueEventHandler) bus.AccountValueEventHandler {
	return func(ctx context.Context, value common.AccountValue) {
		t.accountValueEventCounter.Add(1)
		handler(ctx, value)
	}
}

func (t *Telemetry) WithProgress(handler bus.ProgressEventHandler) bus.ProgressEventHandler {
	return func(ctx context.Context, progress common.Progress) {
		t.progressEventCounter.Add(1)
		handler(ctx, progress)
	}
}

func (t *Telemetry) WithError(handler bus.ErrorEventHandler) bus.ErrorEventHandler {
	return func(ctx context.Context, failure common.Failure) {
		t.errorEventCounter.Add(1)
		handler(ctx, failure)
	}
}

func (t *Telemetry) PrintStatistics() {
	t.logger.Info("event statistics",
		zap.Int64("order_update_events", t.orderUpdateEventCounter.Load()),
		zap.Int64("order_execution_events", t.orderExecutionEventCounter.Load()),
		zap.Int64("position_update_events", t.positionUpdateEventCounter.Load()),
		zap.Int64("pnl_update_events", t.pnlUpdateEventCounter.Load()),
		zap.Int64("account_value_events", t.accountValueEventCounter.Load()),
		zap.Int64("progress_events", t.progressEventCounter.Load()),
		zap.Int64("error_events", t.errorEventCounter.Load()))
}
