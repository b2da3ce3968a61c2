package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/portfolio"
)

func buy(symbol string, qty, price float64) portfolio.OrderIntent {
	return portfolio.OrderIntent{Symbol: symbol, Side: portfolio.Buy, Quantity: qty, Price: price}
}

func TestDisabledConfigPassesThrough(t *testing.T) {
	t.Parallel()

	e := NewEngine(Disabled())
	p := portfolio.New(100000)

	// Even an absurd order passes untouched.
	intent := buy("AAPL", 1e6, 100)
	d := e.Evaluate(intent, p)
	assert.Equal(t, Accepted, d.Outcome)
	assert.Equal(t, intent, d.Intent)

	e.ObserveEquity(1)
	assert.Nil(t, e.SweepExits(p))
	assert.Equal(t, Stats{}, e.Stats())
}

func TestPositionSizeResize(t *testing.T) {
	t.Parallel()

	// Equity 100000, cap 10%: a 20000 order resizes to exactly 10000.
	e := NewEngine(Config{Enabled: true, MaxPositionPct: Float(0.10)})
	p := portfolio.New(100000)

	d := e.Evaluate(buy("AAPL", 200, 100), p)
	assert.Equal(t, Resized, d.Outcome)
	assert.Equal(t, CodePositionSize, d.Code)
	assert.InDelta(t, 100.0, d.Intent.Quantity, 1e-9)
	assert.InDelta(t, 10000.0, d.Intent.Value(), 1e-9)

	assert.Equal(t, 1, e.Stats().Resizes)
}

func TestPositionSizeUnderCapAccepted(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{Enabled: true, MaxPositionPct: Float(0.10)})
	p := portfolio.New(100000)

	d := e.Evaluate(buy("AAPL", 50, 100), p)
	assert.Equal(t, Accepted, d.Outcome)
	assert.InDelta(t, 50.0, d.Intent.Quantity, 1e-9)
	assert.Equal(t, 0, e.Stats().Resizes)
}

func TestExposureCapRejects(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{Enabled: true, MaxExposurePct: Float(0.50)})
	p := portfolio.New(100000)
	assert.NoError(t, p.Apply(buy("MSFT", 450, 100), time.Time{}))

	// Exposure 45000 + 10000 > 50000 cap.
	d := e.Evaluate(buy("AAPL", 100, 100), p)
	assert.Equal(t, Rejected, d.Outcome)
	assert.Equal(t, CodeExposure, d.Code)
	assert.Equal(t, 1, e.Stats().Rejections)

	// A smaller order still fits.
	d = e.Evaluate(buy("AAPL", 40, 100), p)
	assert.Equal(t, Accepted, d.Outcome)
}

func TestSellsBypassSizingRules(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{
		Enabled:        true,
		MaxPositionPct: Float(0.01),
		MaxExposurePct: Float(0.01),
	})
	p := portfolio.New(100000)

	d := e.Evaluate(portfolio.OrderIntent{
		Symbol: "AAPL", Side: portfolio.Sell, Quantity: 1e6, Price: 100,
	}, p)
	assert.Equal(t, Accepted, d.Outcome)
}

func TestDrawdownSuppressionAndRecovery(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{Enabled: true, MaxDrawdownPct: Float(0.20)})
	p := portfolio.New(100000)

	e.ObserveEquity(100000)
	assert.Equal(t, Accepted, e.Evaluate(buy("AAPL", 10, 100), p).Outcome)

	// 25% below peak: buys suppressed.
	e.ObserveEquity(75000)
	d := e.Evaluate(buy("AAPL", 10, 100), p)
	assert.Equal(t, Rejected, d.Outcome)
	assert.Equal(t, CodeDrawdown, d.Code)
	assert.True(t, e.Stats().BuysSuppressed)

	// Sells still pass while suppressed.
	sell := portfolio.OrderIntent{Symbol: "AAPL", Side: portfolio.Sell, Quantity: 10, Price: 100}
	assert.Equal(t, Accepted, e.Evaluate(sell, p).Outcome)

	// Recovery below the threshold lifts suppression.
	e.ObserveEquity(90000)
	assert.Equal(t, Accepted, e.Evaluate(buy("AAPL", 10, 100), p).Outcome)
	assert.False(t, e.Stats().BuysSuppressed)
}

func TestPeakEquityRatchets(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{Enabled: true, MaxDrawdownPct: Float(0.20)})
	e.ObserveEquity(100000)
	e.ObserveEquity(120000)
	e.ObserveEquity(110000)
	assert.InDelta(t, 120000, e.Stats().PeakEquity, 1e-9)
	assert.False(t, e.Stats().BuysSuppressed)
}

func TestRuleOrderPositionSizeBeforeExposure(t *testing.T) {
	t.Parallel()

	// The resized order must also clear the exposure cap; here it does,
	// so the decision is the resize, not a rejection.
	e := NewEngine(Config{
		Enabled:        true,
		MaxPositionPct: Float(0.10),
		MaxExposurePct: Float(0.50),
	})
	p := portfolio.New(100000)

	d := e.Evaluate(buy("AAPL", 600, 100), p)
	assert.Equal(t, Resized, d.Outcome)
	assert.InDelta(t, 10000.0, d.Intent.Value(), 1e-9)
}

func TestResizeSurvivesFullChain(t *testing.T) {
	t.Parallel()

	// Every rule enabled. The clamp happens first; exposure and drawdown
	// then accept the shrunk intent, and the decision must still report
	// the resize, not a bare accept.
	e := NewEngine(Config{
		Enabled:        true,
		MaxPositionPct: Float(0.10),
		MaxExposurePct: Float(0.80),
		MaxDrawdownPct: Float(0.50),
	})
	p := portfolio.New(100000)
	e.ObserveEquity(100000)

	d := e.Evaluate(buy("AAPL", 200, 100), p)
	assert.Equal(t, Resized, d.Outcome)
	assert.Equal(t, CodePositionSize, d.Code)
	assert.NotEmpty(t, d.Reason)
	assert.InDelta(t, 100.0, d.Intent.Quantity, 1e-9)
	assert.Equal(t, 1, e.Stats().Resizes)
	assert.Equal(t, 0, e.Stats().Rejections)
}

func TestSweepExitsStopLoss(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{Enabled: true, StopLossPct: Float(0.05)})
	p := portfolio.New(100000)
	assert.NoError(t, p.Apply(buy("AAPL", 100, 100), time.Time{}))

	// Down 4%: no exit yet.
	p.MarkToMarket(market.Bar{Symbol: "AAPL", Close: 96})
	assert.Empty(t, e.SweepExits(p))

	// Down 6%: forced sell of the whole position at the mark.
	p.MarkToMarket(market.Bar{Symbol: "AAPL", Close: 94})
	exits := e.SweepExits(p)
	assert.Len(t, exits, 1)
	assert.Equal(t, ReasonStopLoss, exits[0].Reason)
	assert.Equal(t, portfolio.Sell, exits[0].Intent.Side)
	assert.InDelta(t, 100.0, exits[0].Intent.Quantity, 1e-9)
	assert.InDelta(t, 94.0, exits[0].Intent.Price, 1e-9)
	assert.Equal(t, 1, e.Stats().ForcedExits)
}

func TestSweepExitsTakeProfit(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{Enabled: true, TakeProfitPct: Float(0.10)})
	p := portfolio.New(100000)
	assert.NoError(t, p.Apply(buy("AAPL", 100, 100), time.Time{}))

	p.MarkToMarket(market.Bar{Symbol: "AAPL", Close: 111})
	exits := e.SweepExits(p)
	assert.Len(t, exits, 1)
	assert.Equal(t, ReasonTakeProfit, exits[0].Reason)
}

func TestSweepExitsSortedBySymbol(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{Enabled: true, StopLossPct: Float(0.05)})
	p := portfolio.New(1000000)
	assert.NoError(t, p.Apply(buy("MSFT", 100, 100), time.Time{}))
	assert.NoError(t, p.Apply(buy("AAPL", 100, 100), time.Time{}))

	p.MarkToMarket(market.Bar{Symbol: "AAPL", Close: 90})
	p.MarkToMarket(market.Bar{Symbol: "MSFT", Close: 90})

	exits := e.SweepExits(p)
	assert.Len(t, exits, 2)
	assert.Equal(t, "AAPL", exits[0].Intent.Symbol)
	assert.Equal(t, "MSFT", exits[1].Intent.Symbol)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"empty", Config{}, false},
		{"disabled", Disabled(), false},
		{"valid", Config{MaxPositionPct: Float(0.1), StopLossPct: Float(1.0)}, false},
		{"zero pct", Config{MaxPositionPct: Float(0)}, true},
		{"negative pct", Config{StopLossPct: Float(-0.1)}, true},
		{"over one", Config{MaxDrawdownPct: Float(1.5)}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
