package historical

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
)

const componentName = "datasource.historical"

// Tape serves observations from one <TICKER>.bin file per ticker in dir.
// Records in a file must be ordered by timestamp.
type Tape struct {
	logger *zap.Logger
	dir    string
}

func NewTape(logger *zap.Logger, dir string) *Tape {
	return &Tape{
		logger: logger.Named(componentName),
		dir:    dir,
	}
}

func (t *Tape) Path(ticker string) string {
	return filepath.Join(t.dir, exchange.Key(ticker)+".bin")
}

func (t *Tape) Fetch(ctx context.Context, ticker string, from, to time.Time) ([]common.BidAsk, error) {
	key := exchange.Key(ticker)

	source, err := NewSource[BinaryBidAsk](t.Path(key))
	if err != nil {
		return nil, err
	}
	if err := source.Open(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.logger.Warn("no recorded data for ticker", zap.String("ticker", key))
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = source.Close() }()

	begin := from.UnixNano()
	end := to.UnixNano()

	idx, err := source.Search(func(record *BinaryBidAsk) bool { return record.TimeStamp < begin })
	if err != nil {
		return nil, fmt.Errorf("unable to look up start index: %w", err)
	}

	var (
		observations []common.BidAsk
		record       BinaryBidAsk
	)
	for ; idx < source.Count(); idx++ {
		if idx%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := source.Read(idx, &record); err != nil {
			return nil, err
		}
		if record.TimeStamp >= end {
			break
		}
		observations = append(observations, record.ToBidAsk(key))
	}

	t.logger.Debug("fetched observations",
		zap.String("ticker", key),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("count", len(observations)))
	return observations, nil
}
