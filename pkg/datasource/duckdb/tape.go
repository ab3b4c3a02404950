package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
)

const componentName = "datasource.duckdb"

const schema = `
CREATE TABLE IF NOT EXISTS quotes (
	ticker   VARCHAR   NOT NULL,
	ts       TIMESTAMP NOT NULL,
	bid      DECIMAL(18, 6) NOT NULL,
	ask      DECIMAL(18, 6) NOT NULL,
	bid_size DECIMAL(18, 6) NOT NULL DEFAULT 0,
	ask_size DECIMAL(18, 6) NOT NULL DEFAULT 0
)`

// Tape reads observations from the quotes table of a DuckDB database.
type Tape struct {
	logger *zap.Logger
	db     *sql.DB
}

// Open connects to the database at dataSourceName; an empty name opens an
// in-memory database.
func Open(logger *zap.Logger, dataSourceName string) (*Tape, error) {
	db, err := sql.Open("duckdb", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("unable to open duckdb %q: %w", dataSourceName, err)
	}
	// an in-memory database lives as long as its single connection
	db.SetMaxOpenConns(1)
	return &Tape{
		logger: logger.Named(componentName),
		db:     db,
	}, nil
}

func (t *Tape) Close() error {
	return t.db.Close()
}

func (t *Tape) CreateSchema(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("unable to create schema: %w", err)
	}
	return nil
}

func (t *Tape) Insert(ctx context.Context, observations ...common.BidAsk) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO quotes (ticker, ts, bid, ask, bid_size, ask_size) VALUES (?, ?, ?::DECIMAL(18, 6), ?::DECIMAL(18, 6), ?::DECIMAL(18, 6), ?::DECIMAL(18, 6))`)
	if err != nil {
		return fmt.Errorf("unable to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, obs := range observations {
		if _, err := stmt.ExecContext(ctx,
			exchange.Key(obs.Ticker), obs.TimeStamp.UTC(),
			obs.Bid.String(), obs.Ask.String(), obs.BidSize.String(), obs.AskSize.String()); err != nil {
			return fmt.Errorf("unable to insert observation: %w", err)
		}
	}
	return tx.Commit()
}

func (t *Tape) Fetch(ctx context.Context, ticker string, from, to time.Time) ([]common.BidAsk, error) {
	key := exchange.Key(ticker)

	rows, err := t.db.QueryContext(ctx, `
		SELECT ts, bid::DOUBLE, ask::DOUBLE, bid_size::DOUBLE, ask_size::DOUBLE
		FROM quotes
		WHERE ticker = ? AND ts >= ? AND ts < ?
		ORDER BY ts`, key, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("error querying quotes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var observations []common.BidAsk
	for rows.Next() {
		obs := common.BidAsk{Ticker: key}
		if err := rows.Scan(&obs.TimeStamp, &obs.Bid, &obs.Ask, &obs.BidSize, &obs.AskSize); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		obs.TimeStamp = obs.TimeStamp.UTC()
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning rows: %w", err)
	}

	t.logger.Debug("fetched observations", zap.String("ticker", key), zap.Int("count", len(observations)))
	return observations, nil
}
