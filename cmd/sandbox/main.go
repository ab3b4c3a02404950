package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peter-kozarec/sandbox/pkg/bus"
	"github.com/peter-kozarec/sandbox/pkg/config"
	"github.com/peter-kozarec/sandbox/pkg/exchange/sandbox"
	"github.com/peter-kozarec/sandbox/pkg/logging"
	"github.com/peter-kozarec/sandbox/pkg/middleware"
	"github.com/peter-kozarec/sandbox/pkg/simulation"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file, defaults to $"+config.EnvConfigFile)
	sellAll := flag.Bool("sell-all", false, "close every position one second before the end of the day")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.Must(cfg.Log.Level, cfg.Log.Development)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, cfg, *sellAll); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("done")
}

func run(ctx context.Context, logger *zap.Logger, cfg *config.Config, sellAll bool) error {
	tapes, err := openTapes(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer tapes.Close()

	router := bus.NewRouter(logger, cfg.Simulation.RouterCapacity)
	telemetry := middleware.NewTelemetry(logger)
	performance := middleware.NewPerformance(logger)

	flags, unknown := middleware.ParseMonitorFlags(cfg.Monitor)
	if len(unknown) > 0 {
		logger.Warn("ignoring unknown monitor flags", zap.Strings("flags", unknown))
	}
	monitor := middleware.NewMonitor(logger, flags)

	wire(router, telemetry, performance, monitor, tapes.journal(logger))

	scheduler, err := simulation.NewScheduler(logger, router, cfg.SimulationConfiguration())
	if err != nil {
		return err
	}

	audit := simulation.NewAudit(cfg.Simulation.SnapshotInterval)
	exchange, err := sandbox.NewExchange(logger, router, scheduler, tapes.tape,
		sandbox.WithSymbols(cfg.SymbolInfos()...),
		sandbox.WithAccount(cfg.Account.Code, cfg.Account.Currency, cfg.Account.Balance),
		sandbox.WithCommissionSchedule(cfg.CommissionSchedule()),
		sandbox.WithAudit(audit))
	if err != nil {
		return err
	}
	exchange.PrintDetails()

	routerCtx, stopRouter := context.WithCancel(context.Background())
	g := new(errgroup.Group)
	g.Go(func() error {
		if err := <-router.Exec(routerCtx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	simErr := simulate(ctx, logger, scheduler, exchange, audit, cfg, sellAll)

	scheduler.Disconnect()
	stopRouter()
	if err := g.Wait(); err != nil {
		logger.Warn("router stopped with error", zap.Error(err))
	}

	router.Statistics().Print(logger)
	telemetry.PrintStatistics()
	performance.PrintStatistics()
	if tapes.cached != nil {
		hits, misses := tapes.cached.Stats()
		logger.Info("tape cache", zap.Uint64("hits", hits), zap.Uint64("misses", misses))
	}
	return simErr
}

func simulate(ctx context.Context, logger *zap.Logger, scheduler *simulation.Scheduler, exchange *sandbox.Exchange, audit *simulation.Audit, cfg *config.Config, sellAll bool) error {
	closing := make(chan struct{})
	if sellAll {
		closeAt := cfg.Simulation.End.Add(-2 * time.Second).Truncate(time.Second)
		if closeAt.Before(cfg.Simulation.Start) {
			logger.Warn("day too short to sell all positions", zap.Time("close_at", closeAt))
			sellAll = false
		} else {
			closed := false
			scheduler.Subscribe(func(_ context.Context, now time.Time) error {
				if !closed && !now.Before(closeAt) {
					closed = true
					scheduler.Stop()
					close(closing)
				}
				return nil
			})
		}
	}

	if err := scheduler.Connect(ctx); err != nil {
		return err
	}

	for i, scripted := range cfg.Orders {
		order, err := scripted.ToOrder()
		if err != nil {
			return fmt.Errorf("orders[%d]: %w", i, err)
		}
		placed, err := exchange.PlaceOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("orders[%d]: %w", i, err)
		}
		logger.Info("scripted order placed", placed.Fields()...)
	}

	future, err := scheduler.Start()
	if err != nil {
		return err
	}

	if sellAll {
		select {
		case <-closing:
			if err := closePositions(ctx, logger, scheduler, exchange); err != nil {
				return err
			}
		case r := <-future:
			// the run ended before the closing tick, put it back for Await
			future <- r
		case <-ctx.Done():
		}
	}

	stats, err := future.Await(ctx)
	if err != nil {
		return err
	}
	stats.Print(logger)

	account, err := exchange.Account(ctx)
	if err != nil {
		return err
	}
	logger.Info("final account",
		zap.String("account", account.Code),
		zap.String("cash", account.Cash[account.BaseCurrency].String()),
		zap.String("net_liquidation", account.NetLiquidation(account.BaseCurrency).String()))

	audit.GenerateReport().Print(logger)
	return nil
}

// closePositions places the closing market sells while the clock is paused
// one tick before the end, then resumes it so they can fill.
func closePositions(ctx context.Context, logger *zap.Logger, scheduler *simulation.Scheduler, exchange *sandbox.Exchange) error {
	futures, err := exchange.PlaceClosingOrders(ctx)
	if err != nil {
		return fmt.Errorf("sell all: %w", err)
	}

	if _, err := scheduler.Start(); err != nil {
		return err
	}

	executions, err := simulation.AwaitAll(ctx, futures)
	for _, execution := range executions {
		logger.Info("position closed", execution.Fields()...)
	}
	if err != nil {
		return fmt.Errorf("sell all: %w", err)
	}
	return nil
}
