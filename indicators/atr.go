package indicators

import (
	"fmt"
	"math"

	"github.com/quantlab/backsim/market"
)

// ATR is a streaming Average True Range: the rolling mean of the true range
// over 'period' bars, where
// TR = max(high-low, |high-prevClose|, |low-prevClose|).
type ATR struct {
	period  int
	ranges  []float64
	prev    market.Bar
	hasPrev bool
}

// NewATR creates an Average True Range indicator with the given period.
func NewATR(period int) *ATR {
	return &ATR{
		period: period,
		ranges: make([]float64, 0, period),
	}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

func (a *ATR) Warmup() int {
	// Need period+1 bars because TR requires the previous close.
	return a.period + 1
}

func (a *ATR) Reset() {
	a.ranges = a.ranges[:0]
	a.prev = market.Bar{}
	a.hasPrev = false
}

func (a *ATR) Update(b market.Bar) {
	if !a.hasPrev {
		a.prev = b
		a.hasPrev = true
		return
	}

	tr := trueRange(b, a.prev)
	a.prev = b

	a.ranges = append(a.ranges, tr)
	if len(a.ranges) > a.period {
		a.ranges = a.ranges[1:]
	}
}

func (a *ATR) Ready() bool {
	return len(a.ranges) >= a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}

	sum := 0.0
	for _, tr := range a.ranges {
		sum += tr
	}
	return sum / float64(len(a.ranges))
}

func trueRange(current, previous market.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}
