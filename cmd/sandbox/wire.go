package main

import (
	"github.com/peter-kozarec/sandbox/pkg/bus"
	"github.com/peter-kozarec/sandbox/pkg/middleware"
)

func wire(router *bus.Router, telemetry *middleware.Telemetry, performance *middleware.Performance, monitor *middleware.Monitor, journal *middleware.Journal) {
	executions := []func(bus.OrderExecutionEventHandler) bus.OrderExecutionEventHandler{
		telemetry.WithOrderExecution,
		performance.WithOrderExecution,
		monitor.WithOrderExecution,
	}
	if journal != nil {
		executions = append(executions, journal.WithOrderExecution)
	}

	router.OnOrderUpdate = middleware.Chain(telemetry.WithOrderUpdate, performance.WithOrderUpdate, monitor.WithOrderUpdate)(middleware.NoopOrderUpdateHdl)
	router.OnOrderExecution = middleware.Chain(executions...)(middleware.NoopOrderExecutionHdl)
	router.OnPositionUpdate = middleware.Chain(telemetry.WithPositionUpdate, performance.WithPositionUpdate, monitor.WithPositionUpdate)(middleware.NoopPositionHdl)
	router.OnPnLUpdate = middleware.Chain(telemetry.WithPnLUpdate, performance.WithPnLUpdate, monitor.WithPnLUpdate)(middleware.NoopPnLHdl)
	router.OnAccountValue = middleware.Chain(telemetry.WithAccountValue, performance.WithAccountValue, monitor.WithAccountValue)(middleware.NoopAccountValueHdl)
	router.OnProgress = middleware.Chain(telemetry.WithProgress, performance.WithProgress, monitor.WithProgress)(middleware.NoopProgressHdl)
	router.OnError = middleware.Chain(telemetry.WithError, performance.WithError, monitor.WithError)(middleware.NoopErrorHdl)
}
