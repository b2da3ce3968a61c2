package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	assert.NoError(t, err)
	return rows
}

func TestCSVJournalCreatesHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir)
	assert.NoError(t, err)
	assert.NoError(t, j.Close())

	runs := readCSV(t, filepath.Join(dir, "runs.csv"))
	assert.Len(t, runs, 1)
	assert.Equal(t, "run_id", runs[0][0])

	trades := readCSV(t, filepath.Join(dir, "trades.csv"))
	assert.Len(t, trades, 1)
	assert.Equal(t, "trade_id", trades[0][0])

	equity := readCSV(t, filepath.Join(dir, "equity.csv"))
	assert.Len(t, equity, 1)
	assert.Equal(t, "run_id", equity[0][0])
}

func TestCSVJournalRecords(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir)
	assert.NoError(t, err)

	assert.NoError(t, j.RecordRun(testRun("R1")))
	assert.NoError(t, j.RecordTrade(TradeRecord{
		TradeID:    "T1",
		RunID:      "R1",
		Symbol:     "AAPL",
		Side:       "buy",
		Quantity:   100,
		EntryPrice: 150,
		ExitPrice:  160,
		EntryTime:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		ExitTime:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		PnL:        1000,
		Status:     "closed",
	}))
	assert.NoError(t, j.RecordEquity(EquityRecord{
		RunID:  "R1",
		Time:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Equity: 100000,
		Cash:   85000, PositionsValue: 15000,
	}))
	assert.NoError(t, j.Close())

	runs := readCSV(t, filepath.Join(dir, "runs.csv"))
	assert.Len(t, runs, 2)
	assert.Equal(t, "R1", runs[1][0])
	assert.Equal(t, "ma-cross(20,50)", runs[1][2])

	trades := readCSV(t, filepath.Join(dir, "trades.csv"))
	assert.Len(t, trades, 2)
	assert.Equal(t, "T1", trades[1][0])
	assert.Equal(t, "R1", trades[1][1])
	assert.Equal(t, "1000.000000", trades[1][9])

	equity := readCSV(t, filepath.Join(dir, "equity.csv"))
	assert.Len(t, equity, 2)
	assert.Equal(t, "2024-01-02T00:00:00Z", equity[1][1])
	assert.Equal(t, "100000.000000", equity[1][2])
}

func TestCSVJournalCreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "out")
	j, err := NewCSV(dir)
	assert.NoError(t, err)
	assert.NoError(t, j.Close())

	_, err = os.Stat(filepath.Join(dir, "runs.csv"))
	assert.NoError(t, err)
}
