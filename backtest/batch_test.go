package backtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/risk"
)

func TestRunBatch(t *testing.T) {
	t.Parallel()

	bars := dayBars("AAPL", 10, 10, 10, 12, 14, 16, 10, 8)
	feedFor := func() FeedFunc {
		return func() (market.Feed, error) { return market.NewSliceFeed(bars), nil }
	}

	withRisk := crossConfig()
	withRisk.Risk = risk.Config{Name: "caps", Enabled: true, MaxPositionPct: risk.Float(0.10)}

	runs := []BatchRun{
		{Name: "baseline", Config: crossConfig(), Feed: feedFor()},
		{Name: "managed", Config: withRisk, Feed: feedFor()},
		{Name: "noop", Config: RunConfig{Strategy: "noop", Risk: risk.Disabled(), InitialCapital: 100000}, Feed: feedFor()},
	}

	results := RunBatch(runs)
	assert.Len(t, results, 3)

	// Results keep input order.
	assert.Equal(t, "baseline", results[0].Name)
	assert.Equal(t, "managed", results[1].Name)
	assert.Equal(t, "noop", results[2].Name)

	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.NotNil(t, r.Result)
	}

	// The capped run committed less per position than the baseline.
	assert.Less(t,
		results[1].Result.Trades[0].Quantity,
		results[0].Result.Trades[0].Quantity)
	assert.Empty(t, results[2].Result.Trades)
}

func TestRunBatchFeedError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	runs := []BatchRun{
		{
			Name:   "broken",
			Config: crossConfig(),
			Feed:   func() (market.Feed, error) { return nil, boom },
		},
		{
			Name:   "ok",
			Config: crossConfig(),
			Feed: func() (market.Feed, error) {
				return market.NewSliceFeed(dayBars("AAPL", 10, 10, 10, 12, 14, 16, 10, 8)), nil
			},
		},
	}

	results := RunBatch(runs)
	assert.ErrorIs(t, results[0].Err, boom)
	assert.Nil(t, results[0].Result)
	assert.NoError(t, results[1].Err)
}

func TestCompare(t *testing.T) {
	t.Parallel()

	bars := dayBars("AAPL", 10, 10, 10, 12, 14, 16, 10, 8)

	baseline, err := Run(crossConfig(), market.NewSliceFeed(bars))
	assert.NoError(t, err)

	capped := crossConfig()
	capped.Risk = risk.Config{Name: "caps", Enabled: true, MaxPositionPct: risk.Float(0.05)}
	managed, err := Run(capped, market.NewSliceFeed(bars))
	assert.NoError(t, err)

	c := Compare(managed, baseline)
	assert.InDelta(t,
		managed.Metrics.TotalReturn-baseline.Metrics.TotalReturn,
		c.TotalReturnDiff, 1e-9)
	assert.Equal(t, managed.Metrics.NumTrades-baseline.Metrics.NumTrades, c.NumTradesDiff)

	// A smaller position means a smaller drawdown: improvement is positive.
	if baseline.Metrics.MaxDrawdown > 0 {
		assert.Greater(t, c.DrawdownImprovementPct, 0.0)
	}
}

func TestCompareZeroBaselineDrawdown(t *testing.T) {
	t.Parallel()

	a := &Result{}
	b := &Result{}
	c := Compare(a, b)
	assert.Equal(t, 0.0, c.DrawdownImprovementPct)
}
