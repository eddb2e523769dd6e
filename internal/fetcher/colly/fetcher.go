// Package collyfetcher implements a static crawler.Session using gocolly.
// Pages are fetched without executing JavaScript, and image bytes come from
// a direct HTTP client.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/soccer-vault/internal/crawler"
)

// Config controls collector behavior.
type Config struct {
	UserAgent      string
	AcceptLanguage string
	RespectRobots  bool
	Timeout        time.Duration
}

// ByteFetcher downloads raw bytes.
type ByteFetcher interface {
	Get(ctx context.Context, url string, headers http.Header) ([]byte, error)
}

// Session implements crawler.Session using the Colly collector.
type Session struct {
	cfg           Config
	baseCollector *colly.Collector
	bytes         ByteFetcher

	mu      sync.Mutex
	current page
}

type page struct {
	url        string
	statusCode int
	body       []byte
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Session. bytes serves FetchBytes.
func New(cfg Config, bytes ByteFetcher) *Session {
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c.SetRequestTimeout(cfg.Timeout)

	return &Session{
		cfg:           cfg,
		baseCollector: c,
		bytes:         bytes,
	}
}

// Navigate fetches url and makes it the current page.
func (s *Session) Navigate(ctx context.Context, url string) (string, error) {
	var (
		result   page
		fetchErr error
	)
	collector := s.baseCollector.Clone()
	s.configureCollectorHooks(collector, &result, &fetchErr)

	if err := s.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(result.body)))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	s.mu.Lock()
	s.current = result
	s.mu.Unlock()
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func (s *Session) configureCollectorHooks(hooks collectorHooks, result *page, fetchErr *error) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		if s.cfg.AcceptLanguage != "" {
			r.Headers.Set("Accept-Language", s.cfg.AcceptLanguage)
		}
		r.Headers.Set("Cache-Control", "no-cache")
		r.Headers.Set("Pragma", "no-cache")
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = page{
			url:        r.Request.URL.String(),
			statusCode: r.StatusCode,
			body:       append([]byte(nil), r.Body...),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (s *Session) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("colly fetch canceled: %w", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

// Content returns the HTML of the current page.
func (s *Session) Content(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.url == "" {
		return "", fmt.Errorf("no page loaded")
	}
	return string(s.current.body), nil
}

// FetchBytes downloads url with the direct client.
func (s *Session) FetchBytes(ctx context.Context, url string, headers http.Header) ([]byte, error) {
	if s.bytes == nil {
		return nil, fmt.Errorf("no byte fetcher configured")
	}
	data, err := s.bytes.Get(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch bytes: %w", err)
	}
	return data, nil
}

// Capture is not available without a browser.
func (s *Session) Capture(context.Context, string, http.Header) ([]byte, error) {
	return nil, crawler.ErrCaptureUnsupported
}

// CanCapture reports false; the downloader stops after the direct fetch.
func (s *Session) CanCapture() bool {
	return false
}

// Close is a no-op; the collector holds no browser.
func (s *Session) Close(context.Context) error {
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
