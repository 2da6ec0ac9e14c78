package http

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/bft-labs/feedship/internal/ports"
)

// RateLimitedClient wraps an HTTPClient with a client-side request budget so
// the upload fan-out cannot burst past what the backend allows.
type RateLimitedClient struct {
	next    ports.HTTPClient
	limiter *rate.Limiter
}

// NewRateLimitedClient allows requestsPerSecond with the given burst.
// A non-positive rate returns next unchanged.
func NewRateLimitedClient(next ports.HTTPClient, requestsPerSecond float64, burst int) ports.HTTPClient {
	if requestsPerSecond <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Do waits for a token, honoring the request context, then sends req.
func (c *RateLimitedClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.next.Do(req)
}
