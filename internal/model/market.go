package model

import "time"

// Bar represents a single OHLCV candlestick bar.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Up reports whether the bar closed at or above its open.
func (b Bar) Up() bool { return b.Close >= b.Open }

// Series is the canonical, ascending, duplicate-free bar sequence for one ticker.
type Series struct {
	Ticker    string
	Bars      []Bar
	FetchedAt time.Time
}

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// FetchRequest selects a ticker and an inclusive calendar date range.
type FetchRequest struct {
	Ticker string
	From   time.Time
	To     time.Time
}

// DateLayout is the calendar date format used by providers and the CLI.
const DateLayout = "2006-01-02"
