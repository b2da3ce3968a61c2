package market

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"
)

// Regime selects the drift/volatility profile for generated data.
type Regime string

const (
	RegimeBullish  Regime = "bullish"
	RegimeBearish  Regime = "bearish"
	RegimeSideways Regime = "sideways"
	RegimeMixed    Regime = "mixed"
)

// GenerateOptions controls sample-data generation.
type GenerateOptions struct {
	Symbols []string
	Start   time.Time
	End     time.Time
	Regime  Regime
	// Seed offsets the per-symbol PRNG seed so distinct datasets can be
	// generated for the same symbols. Zero is a valid seed.
	Seed int64
}

// GenerateSample produces a deterministic OHLCV series per symbol over
// business days in [Start, End]: a geometric Brownian motion close path with
// a regime-dependent drift/volatility, and open/high/low sampled around it.
// The same options always produce the same bars.
func GenerateSample(opts GenerateOptions) ([]Bar, error) {
	if len(opts.Symbols) == 0 {
		return nil, fmt.Errorf("generate: at least one symbol required")
	}
	if opts.End.Before(opts.Start) {
		return nil, fmt.Errorf("generate: end %s before start %s",
			opts.End.Format("2006-01-02"), opts.Start.Format("2006-01-02"))
	}
	switch opts.Regime {
	case RegimeBullish, RegimeBearish, RegimeSideways, RegimeMixed:
	case "":
		opts.Regime = RegimeMixed
	default:
		return nil, fmt.Errorf("generate: unknown regime %q", opts.Regime)
	}

	dates := businessDays(opts.Start, opts.End)
	if len(dates) == 0 {
		return nil, fmt.Errorf("generate: no business days in range")
	}

	var all []Bar
	for _, symbol := range opts.Symbols {
		rng := rand.New(rand.NewSource(symbolSeed(symbol) + opts.Seed))

		price := 50 + rng.Float64()*150
		closes := make([]float64, len(dates))
		closes[0] = price

		for i := 1; i < len(dates); i++ {
			drift, vol := regimeParams(opts.Regime, i)
			price *= 1 + drift + vol*rng.NormFloat64()
			closes[i] = price
		}

		for i, day := range dates {
			c := closes[i]
			dailyRange := c * (0.01 + rng.Float64()*0.02)

			high := c + rng.Float64()*dailyRange
			low := c - rng.Float64()*dailyRange
			open := low + rng.Float64()*(high-low)

			// Keep OHLC relationships consistent.
			high = math.Max(high, math.Max(open, c))
			low = math.Min(low, math.Min(open, c))

			volume := float64(100_000 + rng.Intn(9_900_000))

			all = append(all, Bar{
				Symbol: symbol,
				Time:   day,
				Open:   round2(open),
				High:   round2(high),
				Low:    round2(low),
				Close:  round2(c),
				Volume: volume,
			})
		}
	}

	SortBars(all)
	return all, nil
}

func regimeParams(regime Regime, i int) (drift, vol float64) {
	switch regime {
	case RegimeBullish:
		return 0.0008, 0.015
	case RegimeBearish:
		return -0.0006, 0.020
	case RegimeSideways:
		return 0.0001, 0.012
	default: // mixed: rotate regimes every 60 bars
		switch (i / 60) % 3 {
		case 0:
			return 0.0008, 0.015
		case 1:
			return -0.0004, 0.018
		default:
			return 0.0001, 0.012
		}
	}
}

func businessDays(start, end time.Time) []time.Time {
	var days []time.Time
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for !day.After(last) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return days
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64() & math.MaxInt64)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
