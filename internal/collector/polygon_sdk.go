package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	polygonrest "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/iter"
	rmodels "github.com/polygon-io/client-go/rest/models"

	"TradeChart/internal/model"
	"TradeChart/internal/normalizer"
)

// PolygonSDKFetcher implements Fetcher with the official Polygon client. It
// re-emits each aggregate as a Polygon-keyed record so the same normalizer runs.
type PolygonSDKFetcher struct {
	Client     *polygonrest.Client
	Multiplier int
	Timespan   string
	Adjusted   bool
}

// NewPolygonSDKFetcher creates a fetcher backed by polygon-io/client-go.
func NewPolygonSDKFetcher(opts Options) *PolygonSDKFetcher {
	f := &PolygonSDKFetcher{
		Client:     newSDKClient(opts.APIKey, newHTTPClient(opts.Proxy, opts.Timeout), opts.Timeout),
		Multiplier: opts.Multiplier,
		Timespan:   opts.Timespan,
		Adjusted:   opts.Adjusted,
	}
	if f.Multiplier <= 0 {
		f.Multiplier = 5
	}
	if f.Timespan == "" {
		f.Timespan = "minute"
	}
	return f
}

// newSDKClient wraps hc in the Polygon client. The client's own retries are
// switched off and its fixed 10s timeout replaced by ours.
func newSDKClient(apiKey string, hc *http.Client, timeout time.Duration) *polygonrest.Client {
	c := polygonrest.NewWithClient(apiKey, hc)
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.HTTP.SetRetryCount(0)
	c.HTTP.SetTimeout(timeout)
	return c
}

func (f *PolygonSDKFetcher) Name() string { return "polygon_sdk" }

func (f *PolygonSDKFetcher) Fields() normalizer.FieldMap { return normalizer.PolygonFields }

func (f *PolygonSDKFetcher) FetchBars(ctx context.Context, req model.FetchRequest) ([]normalizer.RawBar, error) {
	params := &rmodels.ListAggsParams{
		Ticker:     req.Ticker,
		Multiplier: f.Multiplier,
		Timespan:   rmodels.Timespan(f.Timespan),
		From:       rmodels.Millis(req.From),
		// Whole end date is included.
		To: rmodels.Millis(req.To.AddDate(0, 0, 1).Add(-time.Millisecond)),
	}
	lim := 50000
	asc := rmodels.Asc
	adj := f.Adjusted
	params.Limit = &lim
	params.Order = &asc
	params.Adjusted = &adj

	// Same paging as Client.ListAggs, but each page's envelope status is checked
	// since Polygon can answer 200 with status ERROR.
	it := iter.NewIter(ctx, polygonrest.ListAggsPath, params, func(uri string) (iter.ListResponse, []rmodels.Agg, error) {
		res := &rmodels.ListAggsResponse{}
		if err := f.Client.CallURL(ctx, http.MethodGet, uri, res); err != nil {
			return res, nil, err
		}
		switch strings.ToUpper(res.Status) {
		case "ERROR", "NOT_AUTHORIZED", "NOT_FOUND":
			return res, nil, fmt.Errorf("status %s: %s", res.Status, res.ErrorMessage)
		}
		return res, res.Results, nil
	})

	var raw []normalizer.RawBar
	for it.Next() {
		a := it.Item()
		raw = append(raw, normalizer.RawBar{
			"t": time.Time(a.Timestamp).UnixMilli(),
			"o": a.Open,
			"h": a.High,
			"l": a.Low,
			"c": a.Close,
			"v": a.Volume,
		})
	}
	if err := it.Err(); err != nil {
		var apiErr *rmodels.ErrorResponse
		if !errors.As(err, &apiErr) && isTransport(err) {
			return nil, fmt.Errorf("%w: polygon sdk: %v", ErrNetworkFailure, err)
		}
		return nil, fmt.Errorf("%w: polygon sdk: %v", ErrProviderError, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s %s..%s", ErrEmptyResult,
			req.Ticker, req.From.Format(model.DateLayout), req.To.Format(model.DateLayout))
	}
	return raw, nil
}
