package overlay

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"TradeChart/internal/model"
	"TradeChart/internal/normalizer"
)

func nyc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := normalizer.LoadLocation("")
	require.NoError(t, err)
	return loc
}

func threeBars(loc *time.Location) *model.Series {
	t0 := time.Date(2025, 1, 21, 9, 30, 0, 0, loc)
	s := &model.Series{Ticker: "AAPL"}
	for i := 0; i < 3; i++ {
		p := 100 + float64(i)
		s.Bars = append(s.Bars, model.Bar{Time: t0.Add(time.Duration(i) * 5 * time.Minute), Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 1000})
	}
	return s
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileIsNoOverlay(t *testing.T) {
	t.Parallel()

	events, err := Load(filepath.Join(t.TempDir(), "unusual_trades.csv"), time.UTC)
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestLoad_CSV(t *testing.T) {
	t.Parallel()
	loc := nyc(t)

	path := writeFile(t, "unusual_trades.csv", "Time,Price,Premium,Size\n"+
		"2025-01-21 09:35,101.2,\"$1,250,000\",300\n"+
		"2025-01-21 09:40,102.0,,\n"+
		"not a time,99,5,1\n"+
		"2025-01-21 09:45,,5,1\n"+
		"2025-01-21T14:50:00Z,103.1,1.5M,20\n")

	events, err := Load(path, loc)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, 101.2, events[0].Price)
	assert.Equal(t, null.FloatFrom(1250000), events[0].Premium)
	assert.Equal(t, null.FloatFrom(300), events[0].Size)
	assert.False(t, events[1].Premium.Valid)
	assert.False(t, events[1].Size.Valid)
	assert.Equal(t, 9, events[2].Time.Hour())
	assert.Equal(t, 50, events[2].Time.Minute())
	assert.InDelta(t, 1_500_000, events[2].Premium.Float64, 1e-6)
}

func TestLoad_XLSX(t *testing.T) {
	t.Parallel()
	loc := nyc(t)

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Sheet1"
	f.SetCellValue(sheet, "A1", "Time")
	f.SetCellValue(sheet, "B1", "Price")
	f.SetCellValue(sheet, "C1", "Premium")
	f.SetCellValue(sheet, "A2", "2025-01-21 09:35:00")
	f.SetCellValue(sheet, "B2", "101.5")
	f.SetCellValue(sheet, "C2", "250K")

	path := filepath.Join(t.TempDir(), "trades.xlsx")
	require.NoError(t, f.SaveAs(path))

	events, err := Load(path, loc)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 101.5, events[0].Price)
	assert.InDelta(t, 250_000, events[0].Premium.Float64, 1e-6)
}

func TestLoad_Degenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"no price column", "Time,Premium\n2025-01-21 09:35,10\n"},
		{"header only", "Time,Price,Premium\n"},
		{"empty file", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "o.csv", tt.body)
			_, err := Load(path, time.UTC)
			require.ErrorIs(t, err, ErrDegenerate)
		})
	}
}

func TestScaleWeights(t *testing.T) {
	t.Parallel()

	events := []model.OverlayEvent{
		{Premium: null.FloatFrom(100)},
		{Premium: null.FloatFrom(200)},
		{},
	}
	ScaleWeights(events, 30, 500)
	assert.InDelta(t, 265, events[0].Weight, 1e-9)
	assert.InDelta(t, 500, events[1].Weight, 1e-9)
	assert.InDelta(t, 30, events[2].Weight, 1e-9, "missing premium counts as zero")
}

func TestScaleWeights_AllEqual(t *testing.T) {
	t.Parallel()

	for _, p := range []float64{0, 42, 1e9} {
		events := []model.OverlayEvent{{Premium: null.FloatFrom(p)}, {Premium: null.FloatFrom(p)}, {Premium: null.FloatFrom(p)}}
		ScaleWeights(events, 30, 500)
		for _, e := range events {
			assert.Equal(t, 30.0, e.Weight)
		}
	}
}

func TestAlign_ExactMiddleBar(t *testing.T) {
	t.Parallel()
	loc := nyc(t)
	series := threeBars(loc)

	events := []model.OverlayEvent{{Time: series.Bars[1].Time, Price: 101.3, Premium: null.FloatFrom(5), Size: null.FloatFrom(10)}}
	ScaleWeights(events, DefaultMinWeight, DefaultMaxWeight)

	aligned := Aligner{Policy: Exact}.Align(series, events)
	require.Len(t, aligned.Points, 3)
	assert.Equal(t, 1, aligned.Drawable())
	assert.False(t, aligned.Points[0].Price.Valid)
	assert.True(t, aligned.Points[1].Price.Valid)
	assert.Equal(t, 101.3, aligned.Points[1].Price.Float64)
	assert.Equal(t, DefaultMinWeight, aligned.Points[1].Weight)
	assert.False(t, aligned.Points[2].Price.Valid)
	assert.True(t, aligned.HasSize())
}

func TestAlign_NoIntersection(t *testing.T) {
	t.Parallel()
	loc := nyc(t)
	series := threeBars(loc)

	events := []model.OverlayEvent{
		{Time: series.Bars[0].Time.Add(2 * time.Minute), Price: 100},
		{Time: series.Bars[2].Time.Add(24 * time.Hour), Price: 100},
	}
	exact := Aligner{Policy: Exact}.Align(series, events)
	assert.Equal(t, 0, exact.Drawable())

	near := Aligner{Policy: Nearest, Tolerance: time.Minute}.Align(series, events)
	assert.Equal(t, 0, near.Drawable())
}

func TestAlign_NearestCollapsesOntoOneBar(t *testing.T) {
	t.Parallel()
	loc := nyc(t)
	series := threeBars(loc)

	events := []model.OverlayEvent{
		{Time: series.Bars[1].Time.Add(-time.Minute), Price: 100.5, Weight: 50, Size: null.FloatFrom(2)},
		{Time: series.Bars[1].Time.Add(time.Minute), Price: 101.5, Weight: 400, Size: null.FloatFrom(3)},
	}
	aligned := Aligner{Policy: Nearest}.Align(series, events)
	assert.Equal(t, 1, aligned.Drawable())
	assert.Equal(t, 101.5, aligned.Points[1].Price.Float64)
	assert.Equal(t, 400.0, aligned.Points[1].Weight)
	assert.Equal(t, 5.0, aligned.Points[1].Size.Float64)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Exact, p)
	p, err = ParsePolicy("nearest")
	require.NoError(t, err)
	assert.Equal(t, Nearest, p)
	_, err = ParsePolicy("linear")
	require.Error(t, err)
}

func TestParseTable_TimeColumnBeatsDate(t *testing.T) {
	t.Parallel()
	loc := nyc(t)

	for _, header := range [][]string{{"Date", "Time", "Price", "Premium"}, {"Time", "Date", "Price", "Premium"}} {
		row := make([]string, 4)
		for i, h := range header {
			switch h {
			case "Date":
				row[i] = "2025-01-21"
			case "Time":
				row[i] = "2025-01-21 09:35"
			case "Price":
				row[i] = "150.4"
			case "Premium":
				row[i] = "$2.5M"
			}
		}
		events, err := ParseTable([][]string{header, row}, loc)
		require.NoError(t, err, header)
		require.Len(t, events, 1)
		assert.True(t, events[0].Time.Equal(time.Date(2025, 1, 21, 9, 35, 0, 0, loc)))
		assert.Equal(t, 2_500_000.0, events[0].Premium.Float64)
	}

	// date alone still serves as the time column
	events, err := ParseTable([][]string{{"Date", "Price"}, {"2025-01-21 09:35", "150"}}, loc)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestParseTable_UnpaddedUSDates(t *testing.T) {
	t.Parallel()
	loc := nyc(t)

	events, err := ParseTable([][]string{{"Time", "Price"}, {"1/21/2025 9:35", "101"}}, loc)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 9, events[0].Time.Hour())
}

func TestLoad_NilLocationIsUTC(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "unusual_trades.csv", "Time,Price\n2025-01-21 14:35,101\n")
	events, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, time.UTC, events[0].Time.Location())
}

func TestAlign_NearestSingleBarUsesInterval(t *testing.T) {
	t.Parallel()
	loc := nyc(t)
	series := threeBars(loc)
	series.Bars = series.Bars[:1]

	events := []model.OverlayEvent{{Time: series.Bars[0].Time.Add(2 * time.Minute), Price: 100, Weight: 30}}

	// no spacing to measure and no interval: exact only
	assert.Equal(t, 0, Aligner{Policy: Nearest}.Align(series, events).Drawable())

	aligned := Aligner{Policy: Nearest, Interval: 5 * time.Minute}.Align(series, events)
	assert.Equal(t, 1, aligned.Drawable())
	assert.Equal(t, 100.0, aligned.Points[0].Price.Float64)
}
