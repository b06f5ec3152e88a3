package normalizer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := LoadLocation("")
	require.NoError(t, err)
	return loc
}

func TestNormalize_SortsAndConvertsZone(t *testing.T) {
	t.Parallel()
	loc := newYork(t)

	// 2025-01-21 14:30:00Z == 09:30 ET
	base := int64(1737469800000)
	raw := []RawBar{
		{"t": float64(base + 600000), "o": 3.0, "h": 3.5, "l": 2.5, "c": 3.2, "v": 300.0, "vw": 3.1, "n": 7.0},
		{"t": float64(base), "o": 1.0, "h": 1.5, "l": 0.5, "c": 1.2, "v": 100.0},
		{"t": float64(base + 300000), "o": 2.0, "h": 2.5, "l": 1.5, "c": 2.2, "v": 200.4},
	}

	bars, err := Normalize(raw, PolygonFields, loc)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Time.After(bars[i-1].Time), "bar %d not strictly after %d", i, i-1)
	}
	assert.Equal(t, 9, bars[0].Time.Hour())
	assert.Equal(t, 30, bars[0].Time.Minute())
	assert.Equal(t, ExchangeZone, bars[0].Time.Location().String())
	assert.Equal(t, 1.0, bars[0].Open)
	assert.Equal(t, int64(200), bars[1].Volume)
	assert.Equal(t, 3.2, bars[2].Close)
}

func TestNormalize_DuplicateTimestampKeepsFirst(t *testing.T) {
	t.Parallel()

	raw := []RawBar{
		{"t": 2000.0, "o": 1.0, "h": 1.0, "l": 1.0, "c": 1.0, "v": 1.0},
		{"t": 1000.0, "o": 9.0, "h": 9.0, "l": 9.0, "c": 9.0, "v": 9.0},
		{"t": 1000.0, "o": 5.0, "h": 5.0, "l": 5.0, "c": 5.0, "v": 5.0},
	}
	bars, err := Normalize(raw, PolygonFields, time.UTC)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 9.0, bars[0].Open, "stable order must keep the first provider record")
	assert.Equal(t, 1.0, bars[1].Open)
}

func TestNormalize_JSONNumbers(t *testing.T) {
	t.Parallel()

	dec := json.NewDecoder(strings.NewReader(`[{"t":1737469800000,"o":"x"}]`))
	dec.UseNumber()
	var raw []RawBar
	require.NoError(t, dec.Decode(&raw))

	_, err := Normalize(raw, PolygonFields, time.UTC)
	require.ErrorIs(t, err, ErrSchema)

	raw = []RawBar{{
		"t": json.Number("1737469800000"), "o": json.Number("1.25"), "h": json.Number("2"),
		"l": json.Number("1"), "c": json.Number("1.5"), "v": json.Number("1200"),
	}}
	bars, err := Normalize(raw, PolygonFields, time.UTC)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.25, bars[0].Open)
	assert.Equal(t, int64(1200), bars[0].Volume)
	assert.Equal(t, int64(1737469800000), bars[0].Time.UnixMilli())
}

func TestNormalize_MissingField(t *testing.T) {
	t.Parallel()

	raw := []RawBar{{"t": 1.0, "o": 1.0, "h": 1.0, "l": 1.0, "c": 1.0}}
	_, err := Normalize(raw, PolygonFields, time.UTC)
	require.ErrorIs(t, err, ErrSchema)
	assert.Contains(t, err.Error(), `"v"`)
}

func TestFieldMap_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, PolygonFields.Validate())
	require.NoError(t, YahooFields.Validate())

	tests := []struct {
		name string
		m    FieldMap
		want string
	}{
		{"missing volume", FieldMap{"t": FieldTime, "o": FieldOpen, "h": FieldHigh, "l": FieldLow, "c": FieldClose}, "no provider key for Volume"},
		{"duplicate close", FieldMap{"t": FieldTime, "o": FieldOpen, "h": FieldHigh, "l": FieldLow, "c": FieldClose, "x": FieldClose, "v": FieldVolume}, "Close mapped by both"},
		{"unknown field", FieldMap{"z": Field(42)}, "unknown field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLocal(t *testing.T) {
	t.Parallel()
	loc := newYork(t)

	naive, err := ParseLocal("2025-01-21 09:35", loc)
	require.NoError(t, err)
	assert.Equal(t, 9, naive.Hour())
	assert.Equal(t, loc, naive.Location())

	zoned, err := ParseLocal("2025-01-21T14:35:00Z", loc)
	require.NoError(t, err)
	assert.True(t, zoned.Equal(naive))

	_, err = ParseLocal("yesterday", loc)
	require.Error(t, err)
}

func TestParseLocal_UnpaddedAndNilZone(t *testing.T) {
	t.Parallel()
	loc := newYork(t)

	for _, s := range []string{"1/21/2025 9:35", "01/21/2025 09:35", "1/21/2025 9:35:00"} {
		got, err := ParseLocal(s, loc)
		require.NoError(t, err, s)
		assert.True(t, got.Equal(time.Date(2025, 1, 21, 9, 35, 0, 0, loc)), s)
	}

	utc, err := ParseLocal("2025-01-21 09:35", nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, utc.Location())
	assert.Equal(t, time.UTC, FromEpochMillis(0, nil).Location())
}
