package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// csvHeader is the canonical bar CSV column order.
var csvHeader = []string{"timestamp", "symbol", "open", "high", "low", "close", "volume"}

// CSVFeed reads canonical bar CSV rows:
//
//	timestamp,symbol,open,high,low,close,volume
//
// where timestamp is RFC3339 or a plain date (2006-01-02).
//
// It optionally filters rows to [From, To] and to a symbol set.
// A header row ("timestamp,...") is allowed. Rows must already be sorted by
// (timestamp, symbol); use LoadCSV + NewSliceFeed for unsorted files.
type CSVFeed struct {
	f       *os.File
	r       *csv.Reader
	from    time.Time
	to      time.Time
	symbols map[string]struct{}
}

// NewCSVFeed opens path for streaming. Zero from/to disable date filtering;
// nil or empty symbols admits every symbol.
func NewCSVFeed(path string, symbols []string, from, to time.Time) (*CSVFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var set map[string]struct{}
	if len(symbols) > 0 {
		set = make(map[string]struct{}, len(symbols))
		for _, s := range symbols {
			set[s] = struct{}{}
		}
	}

	return &CSVFeed{f: f, r: r, from: from, to: to, symbols: set}, nil
}

func (f *CSVFeed) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

func (f *CSVFeed) Next() (Bar, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return Bar{}, false, nil
		}
		if err != nil {
			return Bar{}, false, err
		}
		if len(row) == 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(row[0]), "timestamp") {
			continue
		}

		b, err := parseBarRow(row)
		if err != nil {
			return Bar{}, false, err
		}

		if f.symbols != nil {
			if _, ok := f.symbols[b.Symbol]; !ok {
				continue
			}
		}
		if !f.from.IsZero() && b.Time.Before(f.from) {
			continue
		}
		if !f.to.IsZero() && b.Time.After(f.to) {
			continue
		}
		return b, true, nil
	}
}

func parseBarRow(row []string) (Bar, error) {
	if len(row) < 7 {
		return Bar{}, fmt.Errorf("bad row (need 7 cols timestamp,symbol,open,high,low,close,volume): %v", row)
	}

	ts := strings.TrimSpace(row[0])
	t, err := ParseTime(ts)
	if err != nil {
		return Bar{}, fmt.Errorf("bad timestamp %q: %w", row[0], err)
	}

	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+2]), 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad %s %q: %w", csvHeader[i+2], row[i+2], err)
		}
		vals[i] = v
	}

	return Bar{
		Symbol: strings.TrimSpace(row[1]),
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

// ParseTime accepts RFC3339, RFC3339Nano, or a bare date.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// LoadCSV reads the whole file into memory, applies the same filters as
// CSVFeed, and returns bars sorted by (Time, Symbol).
func LoadCSV(path string, symbols []string, from, to time.Time) ([]Bar, error) {
	feed, err := NewCSVFeed(path, symbols, from, to)
	if err != nil {
		return nil, err
	}
	defer feed.Close()

	var bars []Bar
	for {
		b, ok, err := feed.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		bars = append(bars, b)
	}
	SortBars(bars)
	return bars, nil
}

// WriteCSV writes bars in the canonical column order with a header row.
func WriteCSV(path string, bars []Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{
			b.Time.UTC().Format(time.RFC3339),
			b.Symbol,
			ff(b.Open),
			ff(b.High),
			ff(b.Low),
			ff(b.Close),
			ff(b.Volume),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func ff(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
