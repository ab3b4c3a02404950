package sandbox

import (
	"errors"
	"fmt"

	"github.com/peter-kozarec/sandbox/pkg/common"
)

var (
	ErrInvalidOrder         = errors.New("invalid order")
	ErrOrderNotFound        = errors.New("order not found")
	ErrIllegalState         = errors.New("illegal order state")
	ErrOrderCancelled       = errors.New("order cancelled")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")
	ErrUnknownSymbol        = errors.New("unknown symbol")
)

// IllegalStateError rejects an operation on an order whose current state does
// not allow it. It matches ErrIllegalState.
type IllegalStateError struct {
	OrderId   common.OrderId
	State     OrderTrackState
	Operation string
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("cannot %s order %d: order is %s", e.Operation, e.OrderId, e.State)
}

func (e *IllegalStateError) Is(target error) bool {
	return target == ErrIllegalState
}
