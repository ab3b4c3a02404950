package synthetic

import (
	"context"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
)

// Tape generates a reproducible quote stream per ticker. The stream of a
// ticker depends only on the seed, the ticker and the origin, so repeated
// fetches return the same observations.
type Tape struct {
	logger *zap.Logger
	seed   uint64
	origin time.Time
	params Parameters
}

func NewTape(logger *zap.Logger, seed uint64, origin time.Time, params Parameters) *Tape {
	return &Tape{
		logger: logger.Named("synthetic"),
		seed:   seed,
		origin: origin,
		params: params,
	}
}

func (t *Tape) Fetch(ctx context.Context, ticker string, from, to time.Time) ([]common.BidAsk, error) {
	key := exchange.Key(ticker)
	hash := fnv.New64a()
	_, _ = hash.Write([]byte(key))

	generator := NewGenerator(key, rand.New(rand.NewPCG(t.seed, hash.Sum64())), t.origin, t.params)

	var observations []common.BidAsk
	for i := 0; ; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		obs := generator.Next()
		if !obs.TimeStamp.Before(to) {
			break
		}
		if !obs.TimeStamp.Before(from) {
			observations = append(observations, obs)
		}
	}

	t.logger.Debug("generated observations",
		zap.String("ticker", key),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("count", len(observations)))
	return observations, nil
}
