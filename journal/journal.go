// Package journal persists backtest runs, trades, and equity curves.
// Backends: SQLite for queryable history, CSV for flat exports.
package journal

import "time"

// RunRecord is the headline summary of one backtest run.
type RunRecord struct {
	RunID      string
	Created    time.Time
	Strategy   string
	RiskConfig string

	Start time.Time
	End   time.Time

	InitialCapital float64
	FinalEquity    float64

	TotalReturn  float64
	MaxDrawdown  float64
	SharpeRatio  float64
	WinRate      float64
	ProfitFactor float64
	NumTrades    int
}

// TradeRecord is one trade row, keyed to its run.
type TradeRecord struct {
	TradeID string
	RunID   string

	Symbol     string
	Side       string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	EntryTime  time.Time
	ExitTime   time.Time
	PnL        float64
	PnLPct     float64
	Status     string
}

// EquityRecord is one equity-curve point, keyed to its run.
type EquityRecord struct {
	RunID string

	Time           time.Time
	Equity         float64
	Cash           float64
	PositionsValue float64
}

type Journal interface {
	RecordRun(RunRecord) error
	RecordTrade(TradeRecord) error
	RecordEquity(EquityRecord) error
	Close() error
}
