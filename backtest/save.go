package backtest

import (
	"fmt"
	"time"

	"github.com/quantlab/backsim/journal"
	"github.com/quantlab/backsim/pkg/id"
)

// SaveResult persists a run summary, its trades, and its equity curve.
// Trade IDs are assigned here; the in-memory result stays ID-free so that
// identical runs remain byte-identical.
func SaveResult(j journal.Journal, r *Result) error {
	rec := journal.RunRecord{
		RunID:          r.RunID,
		Created:        time.Now().UTC(),
		Strategy:       r.Strategy,
		RiskConfig:     r.RiskConfig,
		Start:          r.Start,
		End:            r.End,
		InitialCapital: r.InitialCapital,
		FinalEquity:    r.Metrics.FinalEquity,
		TotalReturn:    r.Metrics.TotalReturn,
		MaxDrawdown:    r.Metrics.MaxDrawdown,
		SharpeRatio:    r.Metrics.SharpeRatio,
		WinRate:        r.Metrics.WinRate,
		ProfitFactor:   r.Metrics.ProfitFactor,
		NumTrades:      r.Metrics.NumTrades,
	}
	if err := j.RecordRun(rec); err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}

	for _, t := range r.Trades {
		tr := journal.TradeRecord{
			TradeID:    id.New(),
			RunID:      r.RunID,
			Symbol:     t.Symbol,
			Side:       string(t.Side),
			Quantity:   t.Quantity,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			EntryTime:  t.EntryTime,
			ExitTime:   t.ExitTime,
			PnL:        t.PnL,
			PnLPct:     t.PnLPct,
			Status:     t.Status,
		}
		if err := j.RecordTrade(tr); err != nil {
			return fmt.Errorf("record trade %s %s: %w", tr.Symbol, tr.TradeID, err)
		}
	}

	for _, e := range r.Equity {
		er := journal.EquityRecord{
			RunID:          r.RunID,
			Time:           e.Time,
			Equity:         e.Equity,
			Cash:           e.Cash,
			PositionsValue: e.PositionsValue,
		}
		if err := j.RecordEquity(er); err != nil {
			return fmt.Errorf("record equity %s: %w", er.Time.Format(time.RFC3339), err)
		}
	}

	return nil
}
