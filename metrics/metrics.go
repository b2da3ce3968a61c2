// Package metrics reduces a finished equity curve and trade history into a
// performance report. Everything here is a pure function over completed run
// history; numeric degeneracies map to sentinel values, never errors.
package metrics

import (
	"math"
	"sort"

	"github.com/quantlab/backsim/portfolio"
)

// tradingDays is the annualization factor for daily returns.
const tradingDays = 252

// ProfitFactorCap is the sentinel reported when gross loss is zero but gross
// profit is positive. A capped value keeps reports JSON-encodable, which an
// infinity would not be.
const ProfitFactorCap = 9999.0

// Report is the performance summary for one run. Field names match the
// surrounding JSON API.
type Report struct {
	TotalReturn          float64 `json:"total_return"`
	CAGR                 float64 `json:"cagr"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	Volatility           float64 `json:"volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	WinRate              float64 `json:"win_rate"`
	AvgWin               float64 `json:"avg_win"`
	AvgLoss              float64 `json:"avg_loss"`
	NumTrades            int     `json:"num_trades"`
	FinalEquity          float64 `json:"final_equity"`
	ProfitFactor         float64 `json:"profit_factor"`
	MaxConsecutiveWins   int     `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
}

// Calculate computes the full report from an equity curve and trade history.
// Only closed trades contribute to trade statistics; streaks are measured in
// exit-time order.
func Calculate(equity []portfolio.EquitySnapshot, trades []portfolio.Trade, initialCapital float64) Report {
	closed := closedByExit(trades)
	returns := dailyReturns(equity)

	r := Report{
		TotalReturn:  totalReturn(equity, initialCapital),
		CAGR:         cagr(equity, initialCapital),
		MaxDrawdown:  MaxDrawdown(equity),
		FinalEquity:  finalEquity(equity, initialCapital),
		NumTrades:    len(closed),
		ProfitFactor: profitFactor(closed),
	}

	sd := stdev(returns)
	r.Volatility = sd * math.Sqrt(tradingDays) * 100
	if sd > 0 {
		r.SharpeRatio = mean(returns) / sd * math.Sqrt(tradingDays)
	}

	var wins, losses int
	var winSum, lossSum float64
	for _, t := range closed {
		if t.PnL > 0 {
			wins++
			winSum += t.PnL
		} else if t.PnL < 0 {
			losses++
			lossSum += t.PnL
		}
	}
	if len(closed) > 0 {
		r.WinRate = float64(wins) / float64(len(closed)) * 100
	}
	if wins > 0 {
		r.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		r.AvgLoss = lossSum / float64(losses)
	}

	r.MaxConsecutiveWins = longestStreak(closed, func(pnl float64) bool { return pnl > 0 })
	r.MaxConsecutiveLosses = longestStreak(closed, func(pnl float64) bool { return pnl < 0 })

	return r
}

func totalReturn(equity []portfolio.EquitySnapshot, initial float64) float64 {
	if initial == 0 || len(equity) == 0 {
		return 0
	}
	final := equity[len(equity)-1].Equity
	return (final - initial) / initial * 100
}

func cagr(equity []portfolio.EquitySnapshot, initial float64) float64 {
	if len(equity) < 2 || initial == 0 {
		return 0
	}
	days := equity[len(equity)-1].Time.Sub(equity[0].Time).Hours() / 24
	if days == 0 {
		return 0
	}
	final := equity[len(equity)-1].Equity
	return (math.Pow(final/initial, 365.25/days) - 1) * 100
}

// MaxDrawdown is the largest peak-to-trough equity decline, as a percentage
// of the running peak.
func MaxDrawdown(equity []portfolio.EquitySnapshot) float64 {
	var peak, maxDD float64
	for _, e := range equity {
		if e.Equity > peak {
			peak = e.Equity
		}
		if peak > 0 {
			dd := (peak - e.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD * 100
}

func finalEquity(equity []portfolio.EquitySnapshot, initial float64) float64 {
	if len(equity) == 0 {
		return initial
	}
	return equity[len(equity)-1].Equity
}

func profitFactor(closed []portfolio.Trade) float64 {
	var grossProfit, grossLoss float64
	for _, t := range closed {
		if t.PnL > 0 {
			grossProfit += t.PnL
		} else {
			grossLoss += -t.PnL
		}
	}
	if grossLoss == 0 {
		if grossProfit > 0 {
			return ProfitFactorCap
		}
		return 0
	}
	return grossProfit / grossLoss
}

func longestStreak(closed []portfolio.Trade, match func(pnl float64) bool) int {
	var best, cur int
	for _, t := range closed {
		if match(t.PnL) {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

// closedByExit filters to closed trades, ordered chronologically by exit.
func closedByExit(trades []portfolio.Trade) []portfolio.Trade {
	var closed []portfolio.Trade
	for _, t := range trades {
		if t.Status == portfolio.StatusClosed {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].ExitTime.Before(closed[j].ExitTime)
	})
	return closed
}

// dailyReturns are percentage changes between consecutive equity snapshots.
func dailyReturns(equity []portfolio.EquitySnapshot) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (equity[i].Equity-prev)/prev)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the sample standard deviation.
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
