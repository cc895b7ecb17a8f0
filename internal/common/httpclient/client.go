// internal/common/httpclient/client.go

// Package httpclient holds the shared outbound HTTP client. Every upstream
// call this service makes, analysis APIs and proxy downstreams alike, is a
// context-bound POST with an explicit content type.
package httpclient

import (
	"context"
	"io"
	"net/http"
	"time"
)

type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Post sends body to url and returns the raw response. The caller owns the
// response body.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.httpClient.Do(req)
}
