package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/config"
	"github.com/peter-kozarec/sandbox/pkg/datasource"
	"github.com/peter-kozarec/sandbox/pkg/datasource/duckdb"
	"github.com/peter-kozarec/sandbox/pkg/datasource/historical"
	"github.com/peter-kozarec/sandbox/pkg/datasource/memory"
	"github.com/peter-kozarec/sandbox/pkg/datasource/postgres"
	"github.com/peter-kozarec/sandbox/pkg/datasource/synthetic"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
	"github.com/peter-kozarec/sandbox/pkg/middleware"
)

type tapes struct {
	tape     exchange.MarketTape
	cached   *datasource.Cached
	postgres *postgres.Tape
	closers  []func()
}

func openTapes(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*tapes, error) {
	t := &tapes{}

	switch cfg.Tape.Driver {
	case config.TapeMemory:
		t.tape = memory.NewTape(cfg.Observations()...)
	case config.TapeSynthetic:
		t.tape = synthetic.NewTape(logger, cfg.Tape.Synthetic.Seed, cfg.Simulation.Start, cfg.Tape.Synthetic.Parameters())
	case config.TapeHistorical:
		t.tape = historical.NewTape(logger, cfg.Tape.DSN)
	case config.TapeDuckDB:
		tape, err := duckdb.Open(logger, cfg.Tape.DSN)
		if err != nil {
			return nil, err
		}
		t.closers = append(t.closers, func() { _ = tape.Close() })
		t.tape = tape
	case config.TapePostgres:
		tape, err := postgres.NewTape(ctx, logger, cfg.Tape.DSN)
		if err != nil {
			return nil, err
		}
		t.closers = append(t.closers, tape.Close)
		if cfg.Journal {
			if err := tape.CreateSchema(ctx); err != nil {
				t.Close()
				return nil, err
			}
		}
		t.postgres = tape
		t.tape = tape
	default:
		return nil, fmt.Errorf("%w: unknown tape driver %q", config.ErrInvalidConfig, cfg.Tape.Driver)
	}

	if cfg.Tape.Retries > 0 {
		t.tape = datasource.NewRetrying(logger, t.tape, cfg.Tape.Retries)
	}
	if cfg.Tape.Cache {
		t.cached = datasource.NewCached(t.tape)
		t.tape = t.cached
	}

	logger.Info("market tape ready",
		zap.String("driver", cfg.Tape.Driver),
		zap.Uint64("retries", cfg.Tape.Retries),
		zap.Bool("cache", cfg.Tape.Cache))
	return t, nil
}

// journal is nil unless executions go to postgres.
func (t *tapes) journal(logger *zap.Logger) *middleware.Journal {
	if t.postgres == nil {
		return nil
	}
	return middleware.NewJournal(logger, t.postgres)
}

func (t *tapes) Close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		t.closers[i]()
	}
}
