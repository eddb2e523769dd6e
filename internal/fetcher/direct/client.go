// Package direct downloads image bytes over plain HTTP with browser-like
// headers and the Cloudflare bypass transport.
package direct

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// Config controls the HTTP client.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBytes caps a response body; zero means unlimited.
	MaxBytes int64
}

// Client fetches raw bytes.
type Client struct {
	http *resty.Client
	cfg  Config
}

// New builds a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	if cfg.UserAgent != "" {
		client.SetHeader("user-agent", cfg.UserAgent)
	}
	client.SetTimeout(cfg.Timeout)
	return &Client{http: client, cfg: cfg}
}

// Get fetches url with headers and returns the body of a 2xx response.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if resp.IsError() || resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("get %s: HTTP %d", url, resp.StatusCode())
	}
	body := resp.Body()
	if c.cfg.MaxBytes > 0 && int64(len(body)) > c.cfg.MaxBytes {
		return nil, fmt.Errorf("get %s: body of %d bytes exceeds %d", url, len(body), c.cfg.MaxBytes)
	}
	return body, nil
}
