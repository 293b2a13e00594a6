package http

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitedTransport is an http.RoundTripper that throttles outbound
// requests with a token bucket before delegating to the base transport.
// All requests through one transport share one bucket; the daemon talks
// to a single upstream on behalf of a single user, so per-domain buckets
// are not needed here.
type RateLimitedTransport struct {
	base      http.RoundTripper
	limiter   *rate.Limiter
	userAgent string
}

// NewRateLimitedTransport wraps base with a token-bucket limiter allowing
// rps requests per second with the given burst. A zero or negative rps
// disables throttling.
func NewRateLimitedTransport(base http.RoundTripper, rps float64, burst int, userAgent string) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	var limiter *rate.Limiter
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	return &RateLimitedTransport{
		base:      base,
		limiter:   limiter,
		userAgent: userAgent,
	}
}

// RoundTrip waits for the rate limiter, then performs the request.
// Waiting respects the request's context.
func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		// Clone before mutating; RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	return t.base.RoundTrip(req)
}
