package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"TradeChart/internal/model"
	"TradeChart/internal/normalizer"
)

// DefaultYahooURL is the public chart API host.
const DefaultYahooURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance public chart API.
type YahooFetcher struct {
	BaseURL   string
	Interval  string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher. No credential is needed.
func NewYahooFetcher(opts Options) *YahooFetcher {
	f := &YahooFetcher{
		BaseURL:  strings.TrimRight(opts.BaseURL, "/"),
		Interval: yahooInterval(opts.Multiplier, opts.Timespan),
		Client:   newHTTPClient(opts.Proxy, opts.Timeout),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
	if f.BaseURL == "" {
		f.BaseURL = DefaultYahooURL
	}
	return f
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) Fields() normalizer.FieldMap { return normalizer.YahooFields }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

func yahooInterval(multiplier int, timespan string) string {
	if multiplier <= 0 {
		multiplier = 5
	}
	unit := "m"
	switch timespan {
	case "hour":
		unit = "h"
	case "day":
		unit = "d"
	case "week":
		unit = "wk"
	}
	return strconv.Itoa(multiplier) + unit
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vals []*float64, i int) (float64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	return *vals[i], true
}

func (f *YahooFetcher) FetchBars(ctx context.Context, req model.FetchRequest) ([]normalizer.RawBar, error) {
	q := url.Values{}
	q.Set("interval", f.Interval)
	q.Set("period1", strconv.FormatInt(req.From.Unix(), 10))
	q.Set("period2", strconv.FormatInt(req.To.AddDate(0, 0, 1).Unix(), 10))
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(req.Ticker)), q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProviderError, err)
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo fetch: %v", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo read body: %v", ErrNetworkFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo status %d, body: %s", ErrProviderError, resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: yahoo decode: %v", ErrProviderError, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo api error: %s", ErrProviderError, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no bars for %s", ErrEmptyResult, req.Ticker)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	raw := make([]normalizer.RawBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, ok1 := at(quote.Open, i)
		h, ok2 := at(quote.High, i)
		l, ok3 := at(quote.Low, i)
		c, ok4 := at(quote.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue // null rows (halts, pre-market gaps)
		}
		v, _ := at(quote.Volume, i)
		raw = append(raw, normalizer.RawBar{
			"timestamp": ts * 1000,
			"open":      o,
			"high":      h,
			"low":       l,
			"close":     c,
			"volume":    v,
		})
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned only empty rows for %s", ErrEmptyResult, req.Ticker)
	}
	return raw, nil
}
