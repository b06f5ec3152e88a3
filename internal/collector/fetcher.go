package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"TradeChart/internal/model"
	"TradeChart/internal/normalizer"
)

// Fetcher defines the interface for fetching raw intraday bars.
type Fetcher interface {
	FetchBars(ctx context.Context, req model.FetchRequest) ([]normalizer.RawBar, error)
	// Fields is the provider schema used to normalize the records FetchBars returns.
	Fields() normalizer.FieldMap
	Name() string
}

// Options configures the HTTP-backed fetchers. It is passed at construction so
// credentials and endpoints can be swapped in tests.
type Options struct {
	BaseURL    string
	APIKey     string
	Proxy      string
	Multiplier int
	Timespan   string
	Adjusted   bool
	Timeout    time.Duration
}

const defaultTimeout = 10 * time.Second

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
