package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"TradeChart/internal/model"
	"TradeChart/internal/normalizer"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Raw   []normalizer.RawBar
	Err   error
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fields() normalizer.FieldMap { return normalizer.PolygonFields }

func (m *MockFetcher) FetchBars(_ context.Context, _ model.FetchRequest) ([]normalizer.RawBar, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Raw) == 0 {
		return nil, fmt.Errorf("%w: mock has no bars", ErrEmptyResult)
	}
	return m.Raw, nil
}

// GenerateMockBars builds count Polygon-shaped records spaced step apart from start.
func GenerateMockBars(start time.Time, step time.Duration, basePrice float64, count int) []normalizer.RawBar {
	bars := make([]normalizer.RawBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		open := p * 0.999
		if i%2 == 1 {
			open = p * 1.001
		}
		bars[i] = normalizer.RawBar{
			"t": start.Add(time.Duration(i) * step).UnixMilli(),
			"o": open,
			"h": p * 1.005,
			"l": p * 0.995,
			"c": p,
			"v": float64(1000 * (i + 1)),
		}
	}
	return bars
}

// Collector pairs a Fetcher with the normalizer.
type Collector struct {
	Fetcher  Fetcher
	Location *time.Location
}

// NewCollector creates a new Collector. Bars are converted to loc.
func NewCollector(fetcher Fetcher, loc *time.Location) *Collector {
	return &Collector{Fetcher: fetcher, Location: loc}
}

// Collect fetches and normalizes one request. A nil error always comes with a
// non-empty series; any failure wraps ErrNetworkFailure, ErrProviderError or ErrEmptyResult.
func (c *Collector) Collect(ctx context.Context, req model.FetchRequest) (*model.Series, error) {
	raw, err := c.Fetcher.FetchBars(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("fetch bars: %w", ErrEmptyResult)
	}

	bars, err := normalizer.Normalize(raw, c.Fetcher.Fields(), c.Location)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w: %w", ErrProviderError, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("normalize: %w", ErrEmptyResult)
	}

	log.Printf("[INFO] %s: %d bars for %s (%s .. %s)", c.Fetcher.Name(), len(bars), req.Ticker,
		bars[0].Time.Format("2006-01-02 15:04"), bars[len(bars)-1].Time.Format("2006-01-02 15:04"))
	return &model.Series{
		Ticker:    req.Ticker,
		Bars:      bars,
		FetchedAt: time.Now(),
	}, nil
}
