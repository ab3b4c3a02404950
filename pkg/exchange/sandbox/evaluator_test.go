package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		side   common.OrderSide
		kind   common.OrderKind
		obs    common.BidAsk
		filled bool
		price  string
	}{
		{"market buy fills at ask", common.OrderSideBuy, &common.MarketOrder{}, quote("28.00", "28.10"), true, "28.10"},
		{"market sell fills at bid", common.OrderSideSell, &common.MarketOrder{}, quote("28.00", "28.10"), true, "28.00"},
		{"nil kind is market", common.OrderSideBuy, nil, quote("28.00", "28.10"), true, "28.10"},
		{"buy limit at ask", common.OrderSideBuy, &common.LimitOrder{LmtPrice: p("28.10")}, quote("28.00", "28.10"), true, "28.10"},
		{"buy limit below ask", common.OrderSideBuy, &common.LimitOrder{LmtPrice: p("28.09")}, quote("28.00", "28.10"), false, ""},
		{"buy limit fills at better ask", common.OrderSideBuy, &common.LimitOrder{LmtPrice: p("29.00")}, quote("28.00", "28.10"), true, "28.10"},
		{"sell limit at bid", common.OrderSideSell, &common.LimitOrder{LmtPrice: p("28.00")}, quote("28.00", "28.10"), true, "28.00"},
		{"sell limit above bid", common.OrderSideSell, &common.LimitOrder{LmtPrice: p("28.01")}, quote("28.00", "28.10"), false, ""},
		{"buy stop reached by ask", common.OrderSideBuy, &common.StopOrder{StopPrice: p("28.10")}, quote("28.00", "28.10"), true, "28.10"},
		{"buy stop above ask", common.OrderSideBuy, &common.StopOrder{StopPrice: p("28.20")}, quote("28.00", "28.10"), false, ""},
		{"sell stop reached by bid", common.OrderSideSell, &common.StopOrder{StopPrice: p("28.00")}, quote("28.00", "28.10"), true, "28.00"},
		{"sell stop below bid", common.OrderSideSell, &common.StopOrder{StopPrice: p("27.90")}, quote("28.00", "28.10"), false, ""},
		{"buy touched by bid", common.OrderSideBuy, &common.MarketIfTouchedOrder{TouchPrice: p("28.00")}, quote("28.00", "28.10"), true, "28.10"},
		{"buy not touched", common.OrderSideBuy, &common.MarketIfTouchedOrder{TouchPrice: p("27.99")}, quote("28.00", "28.10"), false, ""},
		{"sell touched by ask", common.OrderSideSell, &common.MarketIfTouchedOrder{TouchPrice: p("28.10")}, quote("28.00", "28.10"), true, "28.00"},
		{"sell not touched", common.OrderSideSell, &common.MarketIfTouchedOrder{TouchPrice: p("28.11")}, quote("28.00", "28.10"), false, ""},
		{"zero bid is skipped", common.OrderSideBuy, &common.MarketOrder{}, quote("0", "28.10"), false, ""},
		{"negative ask is skipped", common.OrderSideSell, &common.MarketOrder{}, quote("28.00", "-1"), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := common.NewOrder("AAPL", tt.side, p("10"), tt.kind)

			filled, price, err := Evaluate(&order, tt.obs)
			require.NoError(t, err)
			assert.Equal(t, tt.filled, filled)
			if tt.filled {
				assertPoint(t, tt.price, price)
			}
		})
	}
}

func TestEvaluate_TrailingBuyRatchetsDown(t *testing.T) {
	kind := &common.TrailingStopOrder{TrailingAmount: p("0.20")}
	order := common.NewOrder("AAPL", common.OrderSideBuy, p("10"), kind)

	asks := []string{"30.00", "29.80", "29.50", "29.70"}
	stops := []string{"30.20", "30.00", "29.70", "29.70"}

	for i, ask := range asks {
		filled, _, err := Evaluate(&order, quote("1", ask))
		require.NoError(t, err)
		assert.False(t, filled, "ask %s", ask)
		assertPoint(t, stops[i], kind.StopPrice, "after ask %s", ask)
	}

	filled, price, err := Evaluate(&order, quote("1", "29.71"))
	require.NoError(t, err)
	assert.True(t, filled)
	assertPoint(t, "29.71", price)
}

func TestEvaluate_TrailingSellPercent(t *testing.T) {
	kind := &common.TrailingStopOrder{TrailingAmount: p("0.01"), Unit: common.TrailingUnitPercent}
	order := common.NewOrder("AAPL", common.OrderSideSell, p("10"), kind)

	filled, _, err := Evaluate(&order, quote("100", "100.10"))
	require.NoError(t, err)
	assert.False(t, filled)
	assertPoint(t, "99", kind.StopPrice)

	filled, _, err = Evaluate(&order, quote("110", "110.10"))
	require.NoError(t, err)
	assert.False(t, filled)
	assertPoint(t, "108.9", kind.StopPrice)

	filled, price, err := Evaluate(&order, quote("108.80", "108.90"))
	require.NoError(t, err)
	assert.True(t, filled)
	assertPoint(t, "108.80", price)
}

func TestEvaluate_TrailingKeepsPresetStop(t *testing.T) {
	kind := &common.TrailingStopOrder{TrailingAmount: p("1"), StopPrice: p("95")}
	order := common.NewOrder("AAPL", common.OrderSideSell, p("10"), kind)

	filled, _, err := Evaluate(&order, quote("95.50", "95.60"))
	require.NoError(t, err)
	assert.False(t, filled)
	assertPoint(t, "95", kind.StopPrice)
}

func TestEvaluate_RelativeBuyFollowsBid(t *testing.T) {
	kind := &common.RelativeOrder{Offset: p("0.05")}
	order := common.NewOrder("AAPL", common.OrderSideBuy, p("10"), kind)

	filled, _, err := Evaluate(&order, quote("28.00", "28.10"))
	require.NoError(t, err)
	assert.False(t, filled)
	assertPoint(t, "28.05", kind.CurrentPrice)

	// a falling bid leaves the peg where it was
	filled, _, err = Evaluate(&order, quote("27.90", "28.10"))
	require.NoError(t, err)
	assert.False(t, filled)
	assertPoint(t, "28.05", kind.CurrentPrice)
	assertPoint(t, "28.00", kind.Anchor)

	filled, price, err := Evaluate(&order, quote("28.10", "28.12"))
	require.NoError(t, err)
	assert.True(t, filled)
	assertPoint(t, "28.15", kind.CurrentPrice)
	assertPoint(t, "28.12", price)
}

func TestEvaluate_RelativeBuyCap(t *testing.T) {
	kind := &common.RelativeOrder{Offset: p("0.05"), Cap: p("28.06")}
	order := common.NewOrder("AAPL", common.OrderSideBuy, p("10"), kind)

	filled, _, err := Evaluate(&order, quote("28.10", "28.12"))
	require.NoError(t, err)
	assert.False(t, filled)
	assertPoint(t, "28.06", kind.CurrentPrice)
}

func TestEvaluate_RelativeSellFollowsAsk(t *testing.T) {
	kind := &common.RelativeOrder{Offset: p("0.05"), Cap: p("27.50")}
	order := common.NewOrder("AAPL", common.OrderSideSell, p("10"), kind)

	filled, _, err := Evaluate(&order, quote("28.00", "28.10"))
	require.NoError(t, err)
	assert.False(t, filled)
	assertPoint(t, "28.05", kind.CurrentPrice)

	filled, price, err := Evaluate(&order, quote("28.00", "28.04"))
	require.NoError(t, err)
	assert.True(t, filled)
	assertPoint(t, "27.99", kind.CurrentPrice)
	assertPoint(t, "28.00", price)
}

func TestCarryState(t *testing.T) {
	t.Run("trailing keeps the ratcheted stop", func(t *testing.T) {
		next := &common.TrailingStopOrder{TrailingAmount: p("0.50")}
		carryState(common.OrderSideSell, &common.TrailingStopOrder{TrailingAmount: p("0.20"), StopPrice: p("29.80")}, next)
		assertPoint(t, "29.80", next.StopPrice)
		assertPoint(t, "0.50", next.TrailingAmount)
	})

	t.Run("explicit stop wins", func(t *testing.T) {
		next := &common.TrailingStopOrder{TrailingAmount: p("0.50"), StopPrice: p("29.00")}
		carryState(common.OrderSideSell, &common.TrailingStopOrder{TrailingAmount: p("0.20"), StopPrice: p("29.80")}, next)
		assertPoint(t, "29", next.StopPrice)
	})

	t.Run("relative buy repegs on the kept anchor", func(t *testing.T) {
		next := &common.RelativeOrder{Offset: p("0.10")}
		carryState(common.OrderSideBuy, &common.RelativeOrder{Offset: p("0.05"), Anchor: p("28.00"), CurrentPrice: p("28.05")}, next)
		assertPoint(t, "28", next.Anchor)
		assertPoint(t, "28.10", next.CurrentPrice)
	})

	t.Run("relative buy respects the new cap", func(t *testing.T) {
		next := &common.RelativeOrder{Offset: p("0.10"), Cap: p("28.08")}
		carryState(common.OrderSideBuy, &common.RelativeOrder{Offset: p("0.05"), Anchor: p("28.00"), CurrentPrice: p("28.05")}, next)
		assertPoint(t, "28.08", next.CurrentPrice)
	})

	t.Run("relative sell", func(t *testing.T) {
		next := &common.RelativeOrder{Offset: p("0.10")}
		carryState(common.OrderSideSell, &common.RelativeOrder{Offset: p("0.05"), Anchor: p("28.10"), CurrentPrice: p("28.05")}, next)
		assertPoint(t, "28.10", next.Anchor)
		assertPoint(t, "28", next.CurrentPrice)
	})

	t.Run("unevaluated order carries nothing", func(t *testing.T) {
		next := &common.RelativeOrder{Offset: p("0.10")}
		carryState(common.OrderSideBuy, &common.RelativeOrder{Offset: p("0.05")}, next)
		assert.True(t, next.Anchor.IsZero())
		assert.True(t, next.CurrentPrice.IsZero())
	})

	t.Run("kind change carries nothing", func(t *testing.T) {
		next := &common.TrailingStopOrder{TrailingAmount: p("0.50")}
		carryState(common.OrderSideSell, &common.LimitOrder{LmtPrice: p("29")}, next)
		assert.True(t, next.StopPrice.IsZero())
	})
}

func drawQuote(t *rapid.T, label string) common.BidAsk {
	bid := rapid.Int64Range(1, 100_000).Draw(t, label+"_bid")
	spread := rapid.Int64Range(0, 500).Draw(t, label+"_spread")
	return common.BidAsk{
		Ticker: "AAPL",
		Bid:    fixed.FromInt64(bid, 2),
		Ask:    fixed.FromInt64(bid+spread, 2),
	}
}

func TestProperty_FillPriceIsTheCrossedSide(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		obs := drawQuote(t, "obs")
		limit := fixed.FromInt64(rapid.Int64Range(1, 100_000).Draw(t, "limit"), 2)
		side := common.OrderSide(rapid.IntRange(0, 1).Draw(t, "side"))

		order := common.NewOrder("AAPL", side, fixed.One, &common.LimitOrder{LmtPrice: limit})
		filled, price, err := Evaluate(&order, obs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !filled {
			return
		}
		if side == common.OrderSideBuy && (!price.Eq(obs.Ask) || price.Gt(limit)) {
			t.Fatalf("buy filled at %s with ask %s and limit %s", price, obs.Ask, limit)
		}
		if side == common.OrderSideSell && (!price.Eq(obs.Bid) || price.Lt(limit)) {
			t.Fatalf("sell filled at %s with bid %s and limit %s", price, obs.Bid, limit)
		}
	})
}

func TestProperty_TrailingStopOnlyMovesTowardsThePrice(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		side := common.OrderSide(rapid.IntRange(0, 1).Draw(t, "side"))
		unit := common.TrailingUnit(rapid.IntRange(0, 1).Draw(t, "unit"))
		amount := fixed.FromInt64(rapid.Int64Range(1, 500).Draw(t, "amount"), 2)
		if unit == common.TrailingUnitPercent {
			amount = fixed.FromInt64(rapid.Int64Range(1, 20).Draw(t, "percent"), 2)
		}

		kind := &common.TrailingStopOrder{TrailingAmount: amount, Unit: unit}
		order := common.NewOrder("AAPL", side, fixed.One, kind)

		n := rapid.IntRange(1, 50).Draw(t, "n")
		var previous fixed.Point
		for i := range n {
			filled, _, err := Evaluate(&order, drawQuote(t, "obs"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filled {
				return
			}
			if i > 0 {
				if side == common.OrderSideBuy && kind.StopPrice.Gt(previous) {
					t.Fatalf("buy stop moved up from %s to %s", previous, kind.StopPrice)
				}
				if side == common.OrderSideSell && kind.StopPrice.Lt(previous) {
					t.Fatalf("sell stop moved down from %s to %s", previous, kind.StopPrice)
				}
			}
			previous = kind.StopPrice
		}
	})
}
