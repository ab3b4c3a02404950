package middleware

import (
	"context"

	"github.com/peter-kozarec/sandbox/pkg/common"
)

//goland:noinspection ALL
var (
	NoopOrderUpdateHdl    = func(context.Context, common.OrderUpdate) {}
	NoopOrderExecutionHdl = func(context.Context, common.Execution) {}
	NoopPositionHdl       = func(context.Context, common.Position) {}
	NoopPnLHdl            = func(context.Context, common.PnL) {}
	NoopAccountValueHdl   = func(context.Context, common.AccountValue) {}
	NoopProgressHdl       = func(context.Context, common.Progress) {}
	NoopErrorHdl          = func(context.Context, common.Failure) {}
)
