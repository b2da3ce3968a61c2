// Package portfolio owns cash, open positions, the trade history, and the
// equity curve for a single backtest run.
package portfolio

import "time"

// Side of an order intent.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderIntent is a request produced by a strategy (or synthesized by the risk
// engine). Quantity is in shares/units and never negative; Price is the
// reference price the fill will use.
type OrderIntent struct {
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"reference_price"`
}

// Value returns the notional value of the intent.
func (o OrderIntent) Value() float64 {
	return o.Quantity * o.Price
}

// Position is a single open long position. At most one exists per symbol;
// it is removed from the portfolio when quantity returns to zero.
type Position struct {
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"average_entry_price"`
	EntryTime  time.Time `json:"entry_timestamp"`

	mark float64 // last close used for valuation
}

// MarketValue is the position's value at its last mark.
func (p *Position) MarketValue() float64 { return p.Quantity * p.mark }

// CostBasis is the position's value at its average entry price.
func (p *Position) CostBasis() float64 { return p.Quantity * p.EntryPrice }

// UnrealizedPnL is the mark-to-market profit or loss.
func (p *Position) UnrealizedPnL() float64 { return p.MarketValue() - p.CostBasis() }

// UnrealizedPnLPct is the unrealized P&L as a fraction of cost basis.
func (p *Position) UnrealizedPnLPct() float64 {
	cb := p.CostBasis()
	if cb == 0 {
		return 0
	}
	return p.UnrealizedPnL() / cb
}

// Mark returns the last price the position was valued at.
func (p *Position) Mark() float64 { return p.mark }

// Trade status values.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Trade tracks one position lifecycle. A trade is created open when a
// position is entered; a partial close emits a separate closed Trade for the
// sold quantity, and a full close finalizes the open trade in place. Closed
// trades are never mutated again.
type Trade struct {
	Symbol     string    `json:"symbol"`
	EntryTime  time.Time `json:"entry_date"`
	ExitTime   time.Time `json:"exit_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	Side       Side      `json:"side"`
	PnL        float64   `json:"pnl"`
	PnLPct     float64   `json:"pnl_pct"` // percent of cost basis
	Status     string    `json:"status"`
}

// EquitySnapshot records portfolio value at one timestamp.
// Invariant: Equity == Cash + PositionsValue.
type EquitySnapshot struct {
	Time           time.Time `json:"timestamp"`
	Equity         float64   `json:"equity"`
	Cash           float64   `json:"cash"`
	PositionsValue float64   `json:"positions_value"`
}
