package synthetic

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

const secondsPerYear = 365.25 * 24 * 3600

// Parameters shape a geometric brownian motion quote stream.
type Parameters struct {
	StartPrice float64
	// Spread is the typical full spread; it drifts between half and one and a half of it.
	Spread           float64
	SpreadVolatility float64
	// Mu and Sigma are annualised drift and volatility.
	Mu    float64
	Sigma float64
	// Interval is the average time between observations.
	Interval            time.Duration
	IntervalVariability float64
	AverageSize         float64
	SizeVariability     float64
	PriceDigits         int
	SizeDigits          int
}

var DefaultParameters = Parameters{
	StartPrice:          100,
	Spread:              0.02,
	SpreadVolatility:    0.12,
	Mu:                  0.05,
	Sigma:               0.25,
	Interval:            time.Second,
	IntervalVariability: 0.45,
	AverageSize:         100,
	SizeVariability:     0.65,
	PriceDigits:         2,
	SizeDigits:          0,
}

// Generator walks one ticker forward from its origin.
type Generator struct {
	ticker string
	params Parameters
	rng    *rand.Rand

	drift     float64
	diffusion float64

	lastTime      time.Time
	lastPrice     float64
	currentSpread float64
}

func NewGenerator(ticker string, rng *rand.Rand, origin time.Time, params Parameters) *Generator {
	deltaT := params.Interval.Seconds() / secondsPerYear
	return &Generator{
		ticker:        ticker,
		params:        params,
		rng:           rng,
		drift:         (params.Mu - params.Sigma*params.Sigma*0.5) * deltaT,
		diffusion:     params.Sigma * math.Sqrt(deltaT),
		lastTime:      origin,
		lastPrice:     params.StartPrice,
		currentSpread: params.Spread,
	}
}

func (g *Generator) Next() common.BidAsk {
	g.lastPrice *= math.Exp(g.drift + g.diffusion*g.rng.NormFloat64())
	g.updateSpread()
	g.lastTime = g.lastTime.Add(g.interval())

	half := g.currentSpread / 2
	bid, ask := g.lastPrice-half, g.lastPrice+half

	tickSize := g.currentSpread / 10
	bid += g.rng.NormFloat64() * 0.1 * tickSize
	ask += g.rng.NormFloat64() * 0.1 * tickSize
	if bid >= ask {
		mid := (bid + ask) / 2
		bid, ask = mid-tickSize, mid+tickSize
	}

	obs := common.BidAsk{
		Ticker:    g.ticker,
		TimeStamp: g.lastTime,
		Bid:       fixed.FromFloat64(bid).Rescale(g.params.PriceDigits),
		Ask:       fixed.FromFloat64(ask).Rescale(g.params.PriceDigits),
		BidSize:   fixed.FromFloat64(g.size()).Rescale(g.params.SizeDigits),
		AskSize:   fixed.FromFloat64(g.size()).Rescale(g.params.SizeDigits),
	}
	// rounding can collapse a tight spread
	if obs.Bid.Gte(obs.Ask) {
		obs.Ask = obs.Bid.Add(fixed.FromInt64(1, g.params.PriceDigits))
	}
	return obs
}

func (g *Generator) updateSpread() {
	if g.params.SpreadVolatility <= 0 {
		return
	}
	spread := g.currentSpread * (1 + g.rng.NormFloat64()*g.params.SpreadVolatility)
	g.currentSpread = min(max(spread, g.params.Spread*0.5), g.params.Spread*1.5)
}

func (g *Generator) interval() time.Duration {
	average := float64(g.params.Interval)
	if g.params.IntervalVariability <= 0 {
		return g.params.Interval
	}
	interval := g.rng.ExpFloat64() * average
	interval = min(max(interval, average*(1-g.params.IntervalVariability)), average*(1+g.params.IntervalVariability*3))
	return time.Duration(interval)
}

func (g *Generator) size() float64 {
	size := g.params.AverageSize * math.Exp(g.rng.NormFloat64()*g.params.SizeVariability)
	return max(size, 1)
}
