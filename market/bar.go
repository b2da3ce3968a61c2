// Package market provides OHLCV bar data: types, feeds, CSV loading, and
// deterministic sample-data generation.
package market

import (
	"sort"
	"time"
)

// Bar is one OHLCV record for a symbol at a timestamp. Bars are immutable;
// the ordering key is (Time, Symbol).
type Bar struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"timestamp"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Feed yields bars one at a time in (Time, Symbol) order.
// Implementations should be deterministic and return (ok=false, err=nil) at EOF.
type Feed interface {
	Next() (b Bar, ok bool, err error)
	Close() error
}

// SliceFeed replays an in-memory slice of bars. The slice is sorted by
// (Time, Symbol) on construction.
type SliceFeed struct {
	bars []Bar
	pos  int
}

func NewSliceFeed(bars []Bar) *SliceFeed {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	SortBars(sorted)
	return &SliceFeed{bars: sorted}
}

func (f *SliceFeed) Next() (Bar, bool, error) {
	if f.pos >= len(f.bars) {
		return Bar{}, false, nil
	}
	b := f.bars[f.pos]
	f.pos++
	return b, true, nil
}

func (f *SliceFeed) Close() error { return nil }

// SortBars orders bars by (Time, Symbol) in place.
func SortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		if !bars[i].Time.Equal(bars[j].Time) {
			return bars[i].Time.Before(bars[j].Time)
		}
		return bars[i].Symbol < bars[j].Symbol
	})
}

// Symbols returns the sorted set of distinct symbols in bars.
func Symbols(bars []Bar) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, b := range bars {
		if _, ok := seen[b.Symbol]; !ok {
			seen[b.Symbol] = struct{}{}
			out = append(out, b.Symbol)
		}
	}
	sort.Strings(out)
	return out
}
