package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

const componentName = "datasource.postgres"

const schema = `
CREATE TABLE IF NOT EXISTS quotes (
	ticker   TEXT        NOT NULL,
	ts       TIMESTAMPTZ NOT NULL,
	bid      NUMERIC     NOT NULL,
	ask      NUMERIC     NOT NULL,
	bid_size NUMERIC     NOT NULL DEFAULT 0,
	ask_size NUMERIC     NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS quotes_ticker_ts_idx ON quotes (ticker, ts);
CREATE TABLE IF NOT EXISTS executions (
	run_id       UUID        NOT NULL,
	execution_id BIGINT      NOT NULL,
	order_id     BIGINT      NOT NULL,
	ticker       TEXT        NOT NULL,
	side         TEXT        NOT NULL,
	quantity     NUMERIC     NOT NULL,
	price        NUMERIC     NOT NULL,
	commission   NUMERIC     NOT NULL,
	currency     TEXT        NOT NULL,
	realized_pnl NUMERIC     NOT NULL,
	ts           TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, execution_id)
);`

// Tape reads observations from the quotes table of a Postgres database.
type Tape struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func NewTape(ctx context.Context, logger *zap.Logger, dsn string) (*Tape, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Tape{
		logger: logger.Named(componentName),
		pool:   pool,
	}, nil
}

func (t *Tape) Close() {
	t.pool.Close()
}

func (t *Tape) CreateSchema(ctx context.Context) error {
	if _, err := t.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (t *Tape) Insert(ctx context.Context, observations ...common.BidAsk) error {
	batch := &pgx.Batch{}
	for _, obs := range observations {
		batch.Queue(
			`INSERT INTO quotes (ticker, ts, bid, ask, bid_size, ask_size) VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6::numeric)`,
			exchange.Key(obs.Ticker), obs.TimeStamp, obs.Bid.String(), obs.Ask.String(), obs.BidSize.String(), obs.AskSize.String())
	}
	if err := t.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert observations: %w", err)
	}
	return nil
}

func (t *Tape) Fetch(ctx context.Context, ticker string, from, to time.Time) ([]common.BidAsk, error) {
	key := exchange.Key(ticker)

	rows, err := t.pool.Query(ctx, `
		SELECT ts, bid::text, ask::text, bid_size::text, ask_size::text
		FROM quotes
		WHERE ticker = $1 AND ts >= $2 AND ts < $3
		ORDER BY ts`, key, from, to)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}

	observations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (common.BidAsk, error) {
		var (
			obs                        = common.BidAsk{Ticker: key}
			bid, ask, bidSize, askSize string
		)
		if err := row.Scan(&obs.TimeStamp, &bid, &ask, &bidSize, &askSize); err != nil {
			return obs, err
		}
		obs.TimeStamp = obs.TimeStamp.UTC()
		for _, field := range []struct {
			dst *fixed.Point
			src string
		}{{&obs.Bid, bid}, {&obs.Ask, ask}, {&obs.BidSize, bidSize}, {&obs.AskSize, askSize}} {
			if *field.dst, err = fixed.Parse(field.src); err != nil {
				return obs, err
			}
		}
		return obs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan quotes: %w", err)
	}

	t.logger.Debug("fetched observations", zap.String("ticker", key), zap.Int("count", len(observations)))
	return observations, nil
}
