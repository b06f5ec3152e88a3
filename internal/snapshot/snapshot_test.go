package snapshot

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeChart/internal/model"
	"TradeChart/internal/normalizer"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	loc, err := normalizer.LoadLocation("")
	require.NoError(t, err)
	start := time.Date(2025, 1, 21, 9, 30, 0, 0, loc)
	series := &model.Series{Ticker: "AAPL"}
	for i := 0; i < 5; i++ {
		p := 230.1 + float64(i)*0.37
		series.Bars = append(series.Bars, model.Bar{
			Time:   start.Add(time.Duration(i) * 5 * time.Minute),
			Open:   p,
			High:   p + 0.123456789,
			Low:    p - 0.1,
			Close:  p + 0.05,
			Volume: int64(10000 + i),
		})
	}

	path := filepath.Join(t.TempDir(), "data", "stock_data.csv")
	require.NoError(t, WriteFile(path, series))

	got, err := ReadFile(path, loc)
	require.NoError(t, err)
	require.Len(t, got.Bars, len(series.Bars))
	for i, want := range series.Bars {
		b := got.Bars[i]
		assert.True(t, want.Time.Equal(b.Time), "row %d time", i)
		assert.InDelta(t, want.Open, b.Open, 1e-9)
		assert.InDelta(t, want.High, b.High, 1e-9)
		assert.InDelta(t, want.Low, b.Low, 1e-9)
		assert.InDelta(t, want.Close, b.Close, 1e-9)
		assert.Equal(t, want.Volume, b.Volume)
		if i > 0 {
			assert.True(t, b.Time.After(got.Bars[i-1].Time))
		}
	}
}

func TestRead_RejectsBadHeader(t *testing.T) {
	t.Parallel()

	_, err := Read(strings.NewReader("time,o,h,l,c,v\n"), time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot column 0")
}

func TestRead_BadValue(t *testing.T) {
	t.Parallel()

	in := "datetime,Open,High,Low,Close,Volume\n2025-01-21T09:30:00-05:00,1,2,x,1.5,10\n"
	_, err := Read(strings.NewReader(in), time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
