package middleware

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/bus"
	"github.com/peter-kozarec/sandbox/pkg/common"
)

// Performance accumulates the time spent in the wrapped handlers.
type Performance struct {
	logger *zap.Logger

	totalOrderUpdateHandlerDur    atomic.Int64
	totalOrderExecutionHandlerDur atomic.Int64
	totalPositionHandlerDur       atomic.Int64
	totalPnLHandlerDur            atomic.Int64
	totalAccountValueHandlerDur   atomic.Int64
	totalProgressHandlerDur       atomic.Int64
	totalErrorHandlerDur          atomic.Int64
}

func NewPerformance(logger *zap.Logger) *Performance {
	return &Performance{
		logger: logger.Named("performance"),
	}
}

func measure[T any](total *atomic.Int64, handler func(context.Context, T)) func(context.Context, T) {
	return func(ctx context.Context, event T) {
		startTime := time.Now()
		handler(ctx, event)
		total.Add(int64(time.Since(startTime)))
	}
}

func (p *Performance) WithOrderUpdate(handler bus.OrderUpdateEventHandler) bus.OrderUpdateEventHandler {
	return measure[common.OrderUpdate](&p.totalOrderUpdateHandlerDur, handler)
}

func (p *Performance) WithOrderExecution(handler bus.OrderExecutionEventHandler) bus.OrderExecutionEventHandler {
	return measure[common.Execution](&p.totalOrderExecutionHandlerDur, handler)
}

func (p *Performance) WithPositionUpdate(handler bus.PositionUpdateEventHandler) bus.PositionUpdateEventHandler {
	return measure[common.Position](&p.totalPositionHandlerDur, handler)
}

func (p *Performance) WithPnLUpdate(handler bus.PnLUpdateEventHandler) bus.PnLUpdateEventHandler {
	return measure[common.PnL](&p.totalPnLHandlerDur, handler)
}

func (p *Performance) WithAccountValue(handler bus.AccountValueEventHandler) bus.AccountValueEventHandler {
	return measure[common.AccountValue](&p.totalAccountValueHandlerDur, handler)
}

func (p *Performance) WithProgress(handler bus.ProgressEventHandler) bus.ProgressEventHandler {
	return measure[common.Progress](&p.totalProgressHandlerDur, handler)
}

func (p *Performance) WithError(handler bus.ErrorEventHandler) bus.ErrorEventHandler {
	return measure[common.Failure](&p.totalErrorHandlerDur, handler)
}

func (p *Performance) PrintStatistics() {
	p.logger.Info("handler durations",
		zap.Duration("order_update", time.Duration(p.totalOrderUpdateHandlerDur.Load())),
		zap.Duration("order_execution", time.Duration(p.totalOrderExecutionHandlerDur.Load())),
		zap.Duration("position_update", time.Duration(p.totalPositionHandlerDur.Load())),
		zap.Duration("pnl_update", time.Duration(p.totalPnLHandlerDur.Load())),
		zap.Duration("account_value", time.Duration(p.totalAccountValueHandlerDur.Load())),
		zap.Duration("progress", time.Duration(p.totalProgressHandlerDur.Load())),
		zap.Duration("error", time.Duration(p.totalErrorHandlerDur.Load())))
}
