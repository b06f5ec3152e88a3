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

// DefaultPolygonURL is the production aggregates host.
const DefaultPolygonURL = "https://api.polygon.io"

// PolygonFetcher implements Fetcher against the Polygon v2 aggregates REST endpoint.
type PolygonFetcher struct {
	BaseURL    string
	APIKey     string
	Multiplier int
	Timespan   string
	Adjusted   bool
	Client     *http.Client
}

// NewPolygonFetcher creates a new fetcher with optional proxy support.
func NewPolygonFetcher(opts Options) *PolygonFetcher {
	f := &PolygonFetcher{
		BaseURL:    strings.TrimRight(opts.BaseURL, "/"),
		APIKey:     opts.APIKey,
		Multiplier: opts.Multiplier,
		Timespan:   opts.Timespan,
		Adjusted:   opts.Adjusted,
		Client:     newHTTPClient(opts.Proxy, opts.Timeout),
	}
	if f.BaseURL == "" {
		f.BaseURL = DefaultPolygonURL
	}
	if f.Multiplier <= 0 {
		f.Multiplier = 5
	}
	if f.Timespan == "" {
		f.Timespan = "minute"
	}
	return f
}

func (f *PolygonFetcher) Name() string { return "polygon" }

func (f *PolygonFetcher) Fields() normalizer.FieldMap { return normalizer.PolygonFields }

// polygonEnvelope is the aggregates response wrapper; results stay raw for the normalizer.
type polygonEnvelope struct {
	Ticker       string              `json:"ticker"`
	Status       string              `json:"status"`
	ResultsCount int                 `json:"resultsCount"`
	Error        string              `json:"error"`
	Message      string              `json:"message"`
	Results      []normalizer.RawBar `json:"results"`
}

func (f *PolygonFetcher) endpoint(req model.FetchRequest) string {
	q := url.Values{}
	q.Set("adjusted", strconv.FormatBool(f.Adjusted))
	q.Set("sort", "asc")
	q.Set("limit", "50000")
	q.Set("apiKey", f.APIKey)
	return fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/%s/%s/%s?%s",
		f.BaseURL, url.PathEscape(req.Ticker), f.Multiplier, f.Timespan,
		req.From.Format(model.DateLayout), req.To.Format(model.DateLayout), q.Encode())
}

func (f *PolygonFetcher) FetchBars(ctx context.Context, req model.FetchRequest) ([]normalizer.RawBar, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint(req), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProviderError, err)
	}
	resp, err := f.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch bars: %v", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrProviderError, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var env polygonEnvelope
	if err := dec.Decode(&env); err != nil {
		if isTransport(err) {
			return nil, fmt.Errorf("%w: read bars: %v", ErrNetworkFailure, err)
		}
		return nil, fmt.Errorf("%w: decode bars: %v", ErrProviderError, err)
	}
	switch strings.ToUpper(env.Status) {
	case "ERROR", "NOT_AUTHORIZED", "NOT_FOUND":
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return nil, fmt.Errorf("%w: status %s: %s", ErrProviderError, env.Status, msg)
	}
	if len(env.Results) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s %s..%s", ErrEmptyResult,
			req.Ticker, req.From.Format(model.DateLayout), req.To.Format(model.DateLayout))
	}
	return env.Results, nil
}
