package simulation

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotConnected     = errors.New("scheduler is not connected")
	ErrAlreadyConnected = errors.New("scheduler is already connected")
	ErrCancelled        = errors.New("cancelled")
	ErrEngineFault      = errors.New("engine fault")
	ErrDayOver          = errors.New("trading day is over")
	ErrReset            = errors.New("simulation reset")
	ErrTimeout          = errors.New("timeout")
	ErrInvalidRange     = errors.New("invalid simulation range")
)

// contextError maps a finished caller context to the error reported to the caller.
func contextError(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
