package indicators

import (
	"fmt"

	"github.com/quantlab/backsim/market"
)

// RSI is a streaming Relative Strength Index using Wilder's smoothing.
//
// The first value is computed from the simple average of gains and losses
// over 'period' deltas; subsequent values use
// avg = (avg*(period-1) + current) / period.
//
// Degenerate inputs never error: a flat series (zero gain, zero loss) reads
// 50, a loss-free series reads 100.
type RSI struct {
	period int

	prevClose float64
	hasPrev   bool
	count     int

	gainSum, lossSum float64 // warmup accumulators
	avgGain, avgLoss float64
}

// NewRSI creates a Relative Strength Index indicator with the given period.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}

func (r *RSI) Warmup() int {
	// Need period+1 closes because deltas require a previous close.
	return r.period + 1
}

func (r *RSI) Reset() {
	r.prevClose = 0
	r.hasPrev = false
	r.count = 0
	r.gainSum = 0
	r.lossSum = 0
	r.avgGain = 0
	r.avgLoss = 0
}

func (r *RSI) Update(b market.Bar) {
	if !r.hasPrev {
		r.prevClose = b.Close
		r.hasPrev = true
		return
	}

	delta := b.Close - r.prevClose
	r.prevClose = b.Close

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.count < r.period {
		r.gainSum += gain
		r.lossSum += loss
		r.count++
		if r.count == r.period {
			r.avgGain = r.gainSum / float64(r.period)
			r.avgLoss = r.lossSum / float64(r.period)
		}
		return
	}

	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.count++
}

func (r *RSI) Ready() bool {
	return r.count >= r.period
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			// Flat series: no momentum either way.
			return 50
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
