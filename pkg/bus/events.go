package bus

import (
	"context"

	"github.com/peter-kozarec/sandbox/pkg/common"
)

type EventId uint8

const (
	OrderUpdateEvent EventId = iota
	OrderExecutionEvent
	PositionUpdateEvent
	PnLUpdateEvent
	AccountValueEvent
	ProgressEvent
	ErrorEvent
)

func (id EventId) String() string {
	switch id {
	case OrderUpdateEvent:
		return "order_update"
	case OrderExecutionEvent:
		return "order_execution"
	case PositionUpdateEvent:
		return "position_update"
	case PnLUpdateEvent:
		return "pnl_update"
	case AccountValueEvent:
		return "account_value"
	case ProgressEvent:
		return "progress"
	case ErrorEvent:
		return "error"
	default:
		return "unknown"
	}
}

type EventHandler[T any] = func(context.Context, T)

type OrderUpdateEventHandler EventHandler[common.OrderUpdate]
type OrderExecutionEventHandler EventHandler[common.Execution]
type PositionUpdateEventHandler EventHandler[common.Position]
type PnLUpdateEventHandler EventHandler[common.PnL]
type AccountValueEventHandler EventHandler[common.AccountValue]
type ProgressEventHandler EventHandler[common.Progress]
type ErrorEventHandler EventHandler[common.Failure]

func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, event T) {
		for _, handler := range handlers {
			if handler != nil {
				handler(ctx, event)
			}
		}
	}
}
