package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"

	"github.com/google/uuid"

	"github.com/bft-labs/feedship/internal/endpoint"
	"github.com/bft-labs/feedship/internal/ports"
)

// Header names shared by every request.
const (
	headerContentType = "Content-Type"
	headerAPIKey      = "x-api-key"
	headerRequestID   = "X-Request-Id"
	headerOSArch      = "X-Agent-OSArch"
	contentTypeJSON   = "application/json"

	maxErrorBody = 4 << 10
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: server returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request could succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode/100 == 5
}

// ClientConfig carries what every adapter needs to build requests.
type ClientConfig struct {
	HTTP     ports.HTTPClient
	Endpoint *endpoint.Holder

	// APIKey is sent as x-api-key when set.
	APIKey string

	// UserAgent is sent as User-Agent when set.
	UserAgent string
}

// client builds and executes backend requests against the shared endpoint.
type client struct {
	cfg ClientConfig
}

func newClient(cfg ClientConfig) *client {
	if cfg.HTTP == nil {
		cfg.HTTP = http.DefaultClient
	}
	return &client{cfg: cfg}
}

// do sends a request to the path built from segments and returns the body of
// a 2xx response. bearer is sent as the Authorization token when non-empty.
func (c *client) do(ctx context.Context, method, bearer string, body []byte, segments ...string) ([]byte, error) {
	url, err := c.cfg.Endpoint.Resolve(segments...)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(headerRequestID, uuid.NewString())
	req.Header.Set(headerOSArch, runtime.GOOS+"/"+runtime.GOARCH)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set(headerAPIKey, c.cfg.APIKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.cfg.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return respBody, nil
}
