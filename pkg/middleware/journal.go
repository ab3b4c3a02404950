package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/bus"
	"github.com/peter-kozarec/sandbox/pkg/common"
)

type ExecutionStore interface {
	InsertExecution(ctx context.Context, execution common.Execution) error
}

// Journal persists every execution before passing it on. A failed insert is
// logged and does not stop the event.
type Journal struct {
	logger  *zap.Logger
	store   ExecutionStore
	timeout time.Duration
}

func NewJournal(logger *zap.Logger, store ExecutionStore) *Journal {
	return &Journal{
		logger:  logger.Named("journal"),
		store:   store,
		timeout: 5 * time.Second,
	}
}

func (j *Journal) WithOrderExecution(handler bus.OrderExecutionEventHandler) bus.OrderExecutionEventHandler {
	return func(ctx context.Context, execution common.Execution) {
		// the router context is already done while it drains the last events
		insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.timeout)
		defer cancel()

		if err := j.store.InsertExecution(insertCtx, execution); err != nil {
			j.logger.Warn("unable to insert execution", append(execution.Fields(), zap.Error(err))...)
		}
		handler(ctx, execution)
	}
}
