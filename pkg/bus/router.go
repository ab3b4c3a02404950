package bus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var ErrCapacityReached = errors.New("event capacity reached")

type event struct {
	id   EventId
	data any
}

// Router fans engine events out to the registered handlers on its own goroutine.
// Handlers must be assigned before Exec is called.
type Router struct {
	logger *zap.Logger
	events chan event

	OnOrderUpdate    OrderUpdateEventHandler
	OnOrderExecution OrderExecutionEventHandler
	OnPositionUpdate PositionUpdateEventHandler
	OnPnLUpdate      PnLUpdateEventHandler
	OnAccountValue   AccountValueEventHandler
	OnProgress       ProgressEventHandler
	OnError          ErrorEventHandler

	runTime       atomic.Int64
	postCount     atomic.Uint64
	postFails     atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
}

func NewRouter(logger *zap.Logger, eventCapacity int) *Router {
	return &Router{
		logger: logger.Named("bus"),
		events: make(chan event, eventCapacity),
	}
}

// Post never blocks the caller; a full buffer is reported as ErrCapacityReached.
func (r *Router) Post(id EventId, data any) error {
	select {
	case r.events <- event{id, data}:
		r.postCount.Add(1)
		return nil
	default:
		r.postFails.Add(1)
		return fmt.Errorf("%s: %w", id, ErrCapacityReached)
	}
}

// Exec dispatches events until ctx is done. Events already buffered when ctx ends
// are still dispatched before the returned channel yields ctx.Err().
func (r *Router) Exec(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	go func() {
		start := time.Now()
		defer func() {
			r.runTime.Add(int64(time.Since(start)))
		}()

		for {
			select {
			case <-ctx.Done():
				r.drain(ctx)
				done <- ctx.Err()
				return
			case ev := <-r.events:
				r.handle(ctx, ev)
			}
		}
	}()

	return done
}

func (r *Router) Statistics() Statistics {
	runTime := time.Duration(r.runTime.Load())
	stats := Statistics{
		RunTime:       runTime,
		PostCount:     r.postCount.Load(),
		PostFails:     r.postFails.Load(),
		DispatchCount: r.dispatchCount.Load(),
		DispatchFails: r.dispatchFails.Load(),
	}
	if runTime > 0 {
		stats.Throughput = float64(stats.DispatchCount) / runTime.Seconds()
	}
	return stats
}

func (r *Router) drain(ctx context.Context) {
	for {
		select {
		case ev := <-r.events:
			r.handle(ctx, ev)
		default:
			return
		}
	}
}

func (r *Router) handle(ctx context.Context, ev event) {
	r.dispatchCount.Add(1)
	if err := r.dispatch(ctx, ev); err != nil {
		r.dispatchFails.Add(1)
		r.logger.Warn("dispatch failed", zap.Error(err), zap.Stringer("event", ev.id))
	}
}

func (r *Router) dispatch(ctx context.Context, ev event) error {
	switch ev.id {
	case OrderUpdateEvent:
		return invoke(ctx, r.OnOrderUpdate, ev)
	case OrderExecutionEvent:
		return invoke(ctx, r.OnOrderExecution, ev)
	case PositionUpdateEvent:
		return invoke(ctx, r.OnPositionUpdate, ev)
	case PnLUpdateEvent:
		return invoke(ctx, r.OnPnLUpdate, ev)
	case AccountValueEvent:
		return invoke(ctx, r.OnAccountValue, ev)
	case ProgressEvent:
		return invoke(ctx, r.OnProgress, ev)
	case ErrorEvent:
		return invoke(ctx, r.OnError, ev)
	default:
		return fmt.Errorf("unsupported event id: %d", ev.id)
	}
}

func invoke[T any, H ~func(context.Context, T)](ctx context.Context, handler H, ev event) error {
	data, ok := ev.data.(T)
	if !ok {
		return fmt.Errorf("invalid type assertion for %s event: %T", ev.id, ev.data)
	}
	if fn := (func(context.Context, T))(handler); fn != nil {
		fn(ctx, data)
	}
	return nil
}
