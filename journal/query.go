package journal

import (
	"database/sql"
	"fmt"
)

const runColumns = `run_id, created, strategy, risk_config, start_time, end_time,
	initial_capital, final_equity, total_return, max_drawdown,
	sharpe_ratio, win_rate, profit_factor, num_trades`

func scanRun(row interface{ Scan(...any) error }) (RunRecord, error) {
	var rec RunRecord
	err := row.Scan(
		&rec.RunID,
		&rec.Created,
		&rec.Strategy,
		&rec.RiskConfig,
		&rec.Start,
		&rec.End,
		&rec.InitialCapital,
		&rec.FinalEquity,
		&rec.TotalReturn,
		&rec.MaxDrawdown,
		&rec.SharpeRatio,
		&rec.WinRate,
		&rec.ProfitFactor,
		&rec.NumTrades,
	)
	return rec, err
}

// GetRun returns a single run summary by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)

	rec, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, fmt.Errorf("run %q not found", runID)
		}
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRuns returns all recorded runs, newest first.
func (j *SQLite) ListRuns() ([]RunRecord, error) {
	rows, err := j.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTrades returns the trades of one run ordered by exit time.
func (j *SQLite) ListTrades(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, run_id, symbol, side, quantity, entry_price, exit_price,
		       entry_time, exit_time, pnl, pnl_pct, status
		FROM trades
		WHERE run_id = ?
		ORDER BY exit_time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID,
			&rec.RunID,
			&rec.Symbol,
			&rec.Side,
			&rec.Quantity,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.EntryTime,
			&rec.ExitTime,
			&rec.PnL,
			&rec.PnLPct,
			&rec.Status,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquity returns the equity curve of one run in time order.
func (j *SQLite) ListEquity(runID string) ([]EquityRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, equity, cash, positions_value
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityRecord
	for rows.Next() {
		var rec EquityRecord
		if err := rows.Scan(
			&rec.RunID,
			&rec.Time,
			&rec.Equity,
			&rec.Cash,
			&rec.PositionsValue,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
