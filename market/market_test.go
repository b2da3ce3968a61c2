package market

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testBars() []Bar {
	d := func(day int) time.Time {
		return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
	}
	return []Bar{
		{Symbol: "AAPL", Time: d(2), Open: 100, High: 105, Low: 99, Close: 104, Volume: 1000},
		{Symbol: "MSFT", Time: d(2), Open: 200, High: 210, Low: 198, Close: 205, Volume: 2000},
		{Symbol: "AAPL", Time: d(3), Open: 104, High: 108, Low: 103, Close: 107, Volume: 1500},
		{Symbol: "MSFT", Time: d(3), Open: 205, High: 208, Low: 201, Close: 202, Volume: 2500},
	}
}

func TestSliceFeedSortsAndDrains(t *testing.T) {
	t.Parallel()

	// Deliberately out of order.
	bars := testBars()
	bars[0], bars[3] = bars[3], bars[0]

	feed := NewSliceFeed(bars)
	defer feed.Close()

	var got []Bar
	for {
		b, ok, err := feed.Next()
		assert.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, b)
	}

	assert.Len(t, got, 4)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, "MSFT", got[1].Symbol)
	assert.True(t, got[1].Time.Equal(got[0].Time))
	assert.True(t, got[2].Time.After(got[1].Time))
}

func TestSymbols(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"AAPL", "MSFT"}, Symbols(testBars()))
	assert.Empty(t, Symbols(nil))
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2024-01-02T15:04:05Z", time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		assert.NoError(t, err)
		assert.True(t, got.Equal(tt.want), "parse %q", tt.in)
	}

	_, err := ParseTime("01/02/2024")
	assert.Error(t, err)
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.csv")
	want := testBars()
	assert.NoError(t, WriteCSV(path, want))

	got, err := LoadCSV(path, nil, time.Time{}, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCSVFeedFilters(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.csv")
	assert.NoError(t, WriteCSV(path, testBars()))

	// Symbol filter.
	got, err := LoadCSV(path, []string{"AAPL"}, time.Time{}, time.Time{})
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	for _, b := range got {
		assert.Equal(t, "AAPL", b.Symbol)
	}

	// Date filter: only Jan 3.
	from := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	got, err = LoadCSV(path, nil, from, time.Time{})
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	for _, b := range got {
		assert.True(t, b.Time.Equal(from))
	}
}

func TestCSVFeedBadRow(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.csv")
	assert.NoError(t, os.WriteFile(path, []byte("timestamp,symbol,open,high,low,close,volume\n2024-01-02,AAPL,oops,105,99,104,1000\n"), 0o644))

	feed, err := NewCSVFeed(path, nil, time.Time{}, time.Time{})
	assert.NoError(t, err)
	defer feed.Close()

	_, _, err = feed.Next()
	assert.Error(t, err)
}

func TestGenerateSampleDeterministic(t *testing.T) {
	t.Parallel()

	opts := GenerateOptions{
		Symbols: []string{"AAPL", "MSFT"},
		Start:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC),
		Regime:  RegimeBullish,
	}

	a, err := GenerateSample(opts)
	assert.NoError(t, err)
	b, err := GenerateSample(opts)
	assert.NoError(t, err)
	assert.Equal(t, a, b)

	// A different seed yields a different path.
	opts.Seed = 7
	c, err := GenerateSample(opts)
	assert.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestGenerateSampleShape(t *testing.T) {
	t.Parallel()

	bars, err := GenerateSample(GenerateOptions{
		Symbols: []string{"AAPL"},
		Start:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), // Monday
		End:     time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)
	// Two full weeks, weekends skipped.
	assert.Len(t, bars, 10)

	for _, b := range bars {
		assert.Equal(t, "AAPL", b.Symbol)
		assert.LessOrEqual(t, b.Low, b.Open)
		assert.LessOrEqual(t, b.Low, b.Close)
		assert.GreaterOrEqual(t, b.High, b.Open)
		assert.GreaterOrEqual(t, b.High, b.Close)
		assert.Greater(t, b.Volume, 0.0)
		wd := b.Time.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
	}
}

func TestGenerateSampleValidation(t *testing.T) {
	t.Parallel()

	_, err := GenerateSample(GenerateOptions{})
	assert.Error(t, err)

	_, err = GenerateSample(GenerateOptions{
		Symbols: []string{"A"},
		Start:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)

	_, err = GenerateSample(GenerateOptions{
		Symbols: []string{"A"},
		Start:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Regime:  "sidewinder",
	})
	assert.Error(t, err)
}
