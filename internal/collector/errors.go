package collector

import (
	"context"
	"errors"
	"net"
)

// Fetch failures. Every error returned by a Fetcher or Collector wraps exactly one of these.
var (
	ErrNetworkFailure = errors.New("network failure")
	ErrProviderError  = errors.New("provider error")
	ErrEmptyResult    = errors.New("empty result")
)

// Kind names the failure class of err for logs and run records.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetworkFailure):
		return "NetworkFailure"
	case errors.Is(err, ErrProviderError):
		return "ProviderError"
	case errors.Is(err, ErrEmptyResult):
		return "EmptyResult"
	default:
		return "Unknown"
	}
}

// isTransport reports whether err came from the transport rather than the provider.
func isTransport(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
