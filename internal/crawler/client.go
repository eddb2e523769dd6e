package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/metrics"
)

// Client is the rate-limited fetch client. It wraps a Session with
// navigation retries, per-operation timeouts, settle waits, and the spoofed
// headers the photo host expects on image requests.
type Client struct {
	session      Session
	cfg          Config
	retry        *FixedRetryPolicy
	pauser       Pauser
	logger       *zap.Logger
	imageHeaders http.Header
}

// NewClient builds a Client over session. A nil pauser waits on real timers.
func NewClient(session Session, cfg Config, pauser Pauser, logger *zap.Logger) (*Client, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pauser == nil {
		pauser = NewTimerPauser()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.clone()
	return &Client{
		session:      session,
		cfg:          cfg,
		retry:        NewFixedRetryPolicy(cfg.NavigationAttempts, cfg.NavigationRetryDelay),
		pauser:       pauser,
		logger:       logger,
		imageHeaders: ImageHeaders(cfg),
	}, nil
}

// ImageHeaders returns the request headers sent with image downloads.
func ImageHeaders(cfg Config) http.Header {
	h := http.Header{}
	h.Set("User-Agent", cfg.UserAgent)
	h.Set("Referer", cfg.ImageReferer())
	h.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")
	h.Set("Accept-Language", cfg.AcceptLanguage)
	h.Set("Cache-Control", "no-cache")
	h.Set("Sec-Fetch-Dest", "image")
	h.Set("Sec-Fetch-Mode", "no-cors")
	h.Set("Sec-Fetch-Site", "cross-site")
	return h
}

// Config returns the client's configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Navigate loads url, retrying with a fixed delay. An attempt fails when the
// session errors, times out, or lands on an error page. After success it
// waits the settle delay so late content can populate.
func (c *Client) Navigate(ctx context.Context, url string) error {
	var lastErr error
	attempt := 1
	for ; ; attempt++ {
		title, err := c.navigateOnce(ctx, url)
		if err == nil {
			metrics.ObserveNavigation("success")
			c.logger.Debug("Navigated",
				zap.String("url", url),
				zap.String("title", title),
				zap.Int("attempt", attempt))
			c.pauser.Pause(ctx, c.cfg.SettleDelay)
			return ctx.Err()
		}
		metrics.ObserveNavigation("error")
		lastErr = err
		c.logger.Warn("Navigation attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.retry.MaxAttempts()),
			zap.Error(err))
		if ctx.Err() != nil || !c.retry.ShouldRetry(err, attempt) {
			break
		}
		c.pauser.Pause(ctx, c.retry.Backoff(attempt))
	}
	return fmt.Errorf("%w: %s after %d attempts: %w", ErrNavigation, url, attempt, lastErr)
}

func (c *Client) navigateOnce(ctx context.Context, url string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.NavigationTimeout)
	defer cancel()

	title, err := c.session.Navigate(attemptCtx, url)
	if err != nil {
		return "", fmt.Errorf("load page: %w", err)
	}
	if IsErrorTitle(title) {
		return "", fmt.Errorf("error page %q", title)
	}
	return title, nil
}

// IsErrorTitle reports whether a page title indicates a failed load.
func IsErrorTitle(title string) bool {
	title = strings.TrimSpace(title)
	return title == "" || title == "Error" || strings.Contains(title, "404")
}

// Content returns the HTML of the current page.
func (c *Client) Content(ctx context.Context) (string, error) {
	html, err := c.session.Content(ctx)
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return html, nil
}

// Document parses the current page with goquery.
func (c *Client) Document(ctx context.Context) (*goquery.Document, error) {
	html, err := c.Content(ctx)
	if err != nil {
		return nil, err
	}
	return parseDocument(html)
}

// FetchBytes downloads url through the session with image headers.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return c.imageOp(ctx, url, c.session.FetchBytes)
}

// Capture renders url in a dedicated page and returns its bitmap.
func (c *Client) Capture(ctx context.Context, url string) ([]byte, error) {
	return c.imageOp(ctx, url, c.session.Capture)
}

// CanCapture reports whether the session can render bitmaps. Sessions that do
// not implement CaptureReporter are assumed to.
func (c *Client) CanCapture() bool {
	if r, ok := c.session.(CaptureReporter); ok {
		return r.CanCapture()
	}
	return true
}

func (c *Client) imageOp(
	ctx context.Context,
	url string,
	op func(context.Context, string, http.Header) ([]byte, error),
) ([]byte, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.NavigationTimeout)
	defer cancel()
	data, err := op(opCtx, url, c.imageHeaders.Clone())
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return data, nil
}

// Pause waits d, returning early when ctx is done.
func (c *Client) Pause(ctx context.Context, d time.Duration) {
	c.pauser.Pause(ctx, d)
}

// Close releases the underlying session.
func (c *Client) Close(ctx context.Context) error {
	if err := c.session.Close(ctx); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
