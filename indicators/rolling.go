package indicators

import (
	"fmt"

	"github.com/quantlab/backsim/market"
)

// RollingHigh is a streaming maximum of bar highs over 'period' bars.
// Breakout strategies read Value() before feeding the current bar so the
// window reflects only prior bars.
type RollingHigh struct {
	period int
	highs  []float64
}

// NewRollingHigh creates a rolling-high indicator with the given lookback.
func NewRollingHigh(period int) *RollingHigh {
	return &RollingHigh{
		period: period,
		highs:  make([]float64, 0, period),
	}
}

func (r *RollingHigh) Name() string {
	return fmt.Sprintf("RollingHigh(%d)", r.period)
}

func (r *RollingHigh) Warmup() int {
	return r.period
}

func (r *RollingHigh) Reset() {
	r.highs = r.highs[:0]
}

func (r *RollingHigh) Update(b market.Bar) {
	r.highs = append(r.highs, b.High)
	if len(r.highs) > r.period {
		r.highs = r.highs[1:]
	}
}

func (r *RollingHigh) Ready() bool {
	return len(r.highs) >= r.period
}

func (r *RollingHigh) Value() float64 {
	if !r.Ready() {
		return 0
	}

	max := r.highs[0]
	for _, h := range r.highs[1:] {
		if h > max {
			max = h
		}
	}
	return max
}

// RollingLow is the mirror of RollingHigh: a streaming minimum of bar lows
// over 'period' bars.
type RollingLow struct {
	period int
	lows   []float64
}

// NewRollingLow creates a rolling-low indicator with the given lookback.
func NewRollingLow(period int) *RollingLow {
	return &RollingLow{
		period: period,
		lows:   make([]float64, 0, period),
	}
}

func (r *RollingLow) Name() string {
	return fmt.Sprintf("RollingLow(%d)", r.period)
}

func (r *RollingLow) Warmup() int {
	return r.period
}

func (r *RollingLow) Reset() {
	r.lows = r.lows[:0]
}

func (r *RollingLow) Update(b market.Bar) {
	r.lows = append(r.lows, b.Low)
	if len(r.lows) > r.period {
		r.lows = r.lows[1:]
	}
}

func (r *RollingLow) Ready() bool {
	return len(r.lows) >= r.period
}

func (r *RollingLow) Value() float64 {
	if !r.Ready() {
		return 0
	}

	min := r.lows[0]
	for _, l := range r.lows[1:] {
		if l < min {
			min = l
		}
	}
	return min
}
