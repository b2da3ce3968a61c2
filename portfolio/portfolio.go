package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/quantlab/backsim/market"
)

// Rejection reasons surfaced by Apply. They never abort a run; the caller
// records them and continues.
var (
	ErrInsufficientCash = errors.New("insufficient cash")
	ErrNoPosition       = errors.New("no open position")
	ErrExcessQuantity   = errors.New("sell quantity exceeds position")
	ErrBadIntent        = errors.New("invalid order intent")
)

// Portfolio is a single-run aggregate: cash, open positions indexed by
// symbol, the append-only trade history, and the equity curve. It is owned by
// exactly one Runner and is not safe for concurrent use.
type Portfolio struct {
	initialCapital float64
	cash           float64
	positions      map[string]*Position
	trades         []*Trade
	openTrades     map[string]*Trade // open lifecycle trade per symbol
	equity         []EquitySnapshot
}

func New(initialCapital float64) *Portfolio {
	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]*Position),
		openTrades:     make(map[string]*Trade),
	}
}

func (p *Portfolio) InitialCapital() float64 { return p.initialCapital }
func (p *Portfolio) Cash() float64           { return p.cash }

// PositionsValue is the mark-to-market value of all open positions.
func (p *Portfolio) PositionsValue() float64 {
	var total float64
	for _, pos := range p.positions {
		total += pos.MarketValue()
	}
	return total
}

// Equity is cash plus positions value.
func (p *Portfolio) Equity() float64 {
	return p.cash + p.PositionsValue()
}

// Position returns the open position for symbol, if any.
func (p *Portfolio) Position(symbol string) (*Position, bool) {
	pos, ok := p.positions[symbol]
	return pos, ok
}

// Symbols returns the sorted symbols with open positions.
func (p *Portfolio) Symbols() []string {
	out := make([]string, 0, len(p.positions))
	for s := range p.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Apply fills an order intent at its reference price. The fill is atomic:
// either cash and the position update together, or nothing changes and a
// rejection reason is returned. No slippage or commission is modeled; changing
// that means changing fillPrice only.
func (p *Portfolio) Apply(intent OrderIntent, at time.Time) error {
	if intent.Quantity <= 0 || intent.Price <= 0 {
		return fmt.Errorf("%w: quantity=%v price=%v", ErrBadIntent, intent.Quantity, intent.Price)
	}

	switch intent.Side {
	case Buy:
		return p.applyBuy(intent, at)
	case Sell:
		return p.applySell(intent, at)
	default:
		return fmt.Errorf("%w: side %q", ErrBadIntent, intent.Side)
	}
}

// fillPrice is the zero-cost fill model: orders fill at the intent's
// reference price. Slippage/commission would hook in here.
func fillPrice(intent OrderIntent) float64 {
	return intent.Price
}

func (p *Portfolio) applyBuy(intent OrderIntent, at time.Time) error {
	price := fillPrice(intent)
	cost := intent.Quantity * price

	if cost > p.cash {
		return fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientCash, cost, p.cash)
	}

	p.cash -= cost

	if pos, ok := p.positions[intent.Symbol]; ok {
		// Scale in: average the entry price.
		totalQty := pos.Quantity + intent.Quantity
		pos.EntryPrice = (pos.CostBasis() + cost) / totalQty
		pos.Quantity = totalQty
		pos.mark = price

		if tr := p.openTrades[intent.Symbol]; tr != nil {
			tr.Quantity = totalQty
			tr.EntryPrice = pos.EntryPrice
		}
		return nil
	}

	p.positions[intent.Symbol] = &Position{
		Symbol:     intent.Symbol,
		Quantity:   intent.Quantity,
		EntryPrice: price,
		EntryTime:  at,
		mark:       price,
	}

	tr := &Trade{
		Symbol:     intent.Symbol,
		EntryTime:  at,
		EntryPrice: price,
		Quantity:   intent.Quantity,
		Side:       Buy,
		Status:     StatusOpen,
	}
	p.trades = append(p.trades, tr)
	p.openTrades[intent.Symbol] = tr
	return nil
}

func (p *Portfolio) applySell(intent OrderIntent, at time.Time) error {
	pos, ok := p.positions[intent.Symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPosition, intent.Symbol)
	}
	if intent.Quantity > pos.Quantity {
		return fmt.Errorf("%w: selling %v of %v %s", ErrExcessQuantity,
			intent.Quantity, pos.Quantity, intent.Symbol)
	}

	price := fillPrice(intent)
	proceeds := intent.Quantity * price
	costBasis := intent.Quantity * pos.EntryPrice
	pnl := proceeds - costBasis
	// Trades report percent; the Position accessor stays fractional.
	pnlPct := 0.0
	if costBasis > 0 {
		pnlPct = pnl / costBasis * 100
	}

	p.cash += proceeds

	if intent.Quantity == pos.Quantity {
		// Full close: finalize the lifecycle trade.
		tr := p.openTrades[intent.Symbol]
		tr.ExitTime = at
		tr.ExitPrice = price
		tr.PnL = pnl
		tr.PnLPct = pnlPct
		tr.Status = StatusClosed
		delete(p.openTrades, intent.Symbol)
		delete(p.positions, intent.Symbol)
		return nil
	}

	// Partial close: emit a closed trade for the sold quantity and shrink
	// the open lifecycle trade.
	pos.Quantity -= intent.Quantity
	pos.mark = price

	closed := &Trade{
		Symbol:     intent.Symbol,
		EntryTime:  pos.EntryTime,
		ExitTime:   at,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		Quantity:   intent.Quantity,
		Side:       Buy,
		PnL:        pnl,
		PnLPct:     pnlPct,
		Status:     StatusClosed,
	}
	p.trades = append(p.trades, closed)

	if tr := p.openTrades[intent.Symbol]; tr != nil {
		tr.Quantity = pos.Quantity
	}
	return nil
}

// MarkToMarket revalues the position on bar's symbol at bar.Close. It never
// realizes P&L. Symbols without a bar at the current timestamp retain their
// last mark.
func (p *Portfolio) MarkToMarket(bar market.Bar) {
	if pos, ok := p.positions[bar.Symbol]; ok {
		pos.mark = bar.Close
	}
}

// Snapshot appends one equity-curve point. Call it exactly once per processed
// timestamp, after fills and marks.
func (p *Portfolio) Snapshot(at time.Time) {
	p.equity = append(p.equity, EquitySnapshot{
		Time:           at,
		Equity:         p.Equity(),
		Cash:           p.cash,
		PositionsValue: p.PositionsValue(),
	})
}

// CloseAll liquidates every open position at the given per-symbol prices.
// Symbols without a price stay open. Iteration is in sorted symbol order so
// runs are deterministic.
func (p *Portfolio) CloseAll(prices map[string]float64, at time.Time) {
	for _, symbol := range p.Symbols() {
		price, ok := prices[symbol]
		if !ok {
			continue
		}
		pos := p.positions[symbol]
		// Selling the full position at a known price cannot be rejected.
		_ = p.applySell(OrderIntent{
			Symbol:   symbol,
			Side:     Sell,
			Quantity: pos.Quantity,
			Price:    price,
		}, at)
	}
}

// Trades returns the trade history in creation order.
func (p *Portfolio) Trades() []Trade {
	out := make([]Trade, len(p.trades))
	for i, t := range p.trades {
		out[i] = *t
	}
	return out
}

// ClosedTrades returns only finalized trades, in creation order.
func (p *Portfolio) ClosedTrades() []Trade {
	var out []Trade
	for _, t := range p.trades {
		if t.Status == StatusClosed {
			out = append(out, *t)
		}
	}
	return out
}

// EquityCurve returns the recorded snapshots in timestamp order.
func (p *Portfolio) EquityCurve() []EquitySnapshot {
	out := make([]EquitySnapshot, len(p.equity))
	copy(out, p.equity)
	return out
}

// TotalReturn is the percentage return over initial capital.
func (p *Portfolio) TotalReturn() float64 {
	if p.initialCapital == 0 {
		return 0
	}
	return (p.Equity() - p.initialCapital) / p.initialCapital * 100
}
