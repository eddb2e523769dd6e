// Package headless implements crawler.Session on top of a Chrome browser
// driven through chromedp.
package headless

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned by operations issued after Close.
var ErrSessionClosed = errors.New("browser session closed")

// Config controls the behavior of the browser session.
type Config struct {
	UserAgent      string
	AcceptLanguage string
	Headless       bool
	// NoSandbox disables the Chrome sandbox, which containers running as
	// root require.
	NoSandbox      bool
	WindowWidth    int
	WindowHeight   int
	CaptureWidth   float64
	CaptureHeight  float64
	ElementTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1920
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 1080
	}
	if c.CaptureWidth <= 0 {
		c.CaptureWidth = 800
	}
	if c.CaptureHeight <= 0 {
		c.CaptureHeight = 600
	}
	if c.ElementTimeout <= 0 {
		c.ElementTimeout = 10 * time.Second
	}
	return c
}

// Session drives a single browser tab. The browser is started on first use.
type Session struct {
	cfg    Config
	logger *zap.Logger

	mu            sync.Mutex
	closed        bool
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// NewChromedp creates a browser session. No process is launched until the
// first navigation.
func NewChromedp(cfg Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{cfg: cfg.withDefaults(), logger: logger}
}

func (s *Session) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(s.cfg.WindowWidth, s.cfg.WindowHeight),
	)
	if s.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox, chromedp.Flag("disable-dev-shm-usage", true))
	}
	if s.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.cfg.UserAgent))
	}
	return opts
}

func (s *Session) browser() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.browserCtx != nil {
		return s.browserCtx, nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), s.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	s.logger.Info("Browser started", zap.Bool("headless", s.cfg.Headless))
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.allocCancel = allocCancel
	return browserCtx, nil
}

// run executes actions against target while honoring ctx's deadline and
// cancellation. Canceling the derived context aborts the actions without
// closing the tab.
func run(ctx, target context.Context, actions ...chromedp.Action) error {
	var (
		taskCtx context.Context
		cancel  context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		taskCtx, cancel = context.WithDeadline(target, deadline)
	} else {
		taskCtx, cancel = context.WithCancel(target)
	}
	defer cancel()

	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	err := chromedp.Run(taskCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

// Navigate loads url in the main tab and returns the document title.
func (s *Session) Navigate(ctx context.Context, url string) (string, error) {
	tab, err := s.browser()
	if err != nil {
		return "", err
	}
	var title string
	err = run(ctx, tab,
		s.networkSetupAction(s.pageHeaders()),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&title),
	)
	if err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	return title, nil
}

// Content returns the serialized DOM of the current page.
func (s *Session) Content(ctx context.Context) (string, error) {
	tab, err := s.browser()
	if err != nil {
		return "", err
	}
	var html string
	if err := run(ctx, tab, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return html, nil
}

// FetchBytes downloads url with fetch() from inside the current page so
// the request carries the page's cookies and origin.
func (s *Session) FetchBytes(ctx context.Context, url string, headers http.Header) ([]byte, error) {
	tab, err := s.browser()
	if err != nil {
		return nil, err
	}
	script, err := fetchScript(url, headers)
	if err != nil {
		return nil, err
	}
	var encoded string
	err = run(ctx, tab, chromedp.Evaluate(script, &encoded, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return nil, fmt.Errorf("in-page fetch %s: %w", url, err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode fetched bytes: %w", err)
	}
	return data, nil
}

// Capture opens url in a fresh tab and screenshots the rendered image. When
// no visible <img> appears in time, the top-left viewport region is captured
// instead.
func (s *Session) Capture(ctx context.Context, url string, headers http.Header) ([]byte, error) {
	browserCtx, err := s.browser()
	if err != nil {
		return nil, err
	}
	tabCtx, closeTab, err := openTab(ctx, browserCtx)
	if err != nil {
		return nil, err
	}
	defer closeTab()

	if err := run(ctx, tabCtx,
		s.networkSetupAction(headers),
		chromedp.Navigate(url),
	); err != nil {
		return nil, fmt.Errorf("open image %s: %w", url, err)
	}

	var shot []byte
	elementCtx, cancel := context.WithTimeout(ctx, s.cfg.ElementTimeout)
	err = run(elementCtx, tabCtx, chromedp.Screenshot("img", &shot, chromedp.NodeVisible, chromedp.ByQuery))
	cancel()
	if err == nil && len(shot) > 0 {
		return shot, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("capture canceled: %w", ctx.Err())
	}
	s.logger.Debug("element screenshot failed, capturing viewport", zap.String("url", url), zap.Error(err))

	err = run(ctx, tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var captureErr error
		shot, captureErr = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(s.captureClip()).
			Do(ctx)
		return captureErr
	}))
	if err != nil {
		return nil, fmt.Errorf("capture viewport %s: %w", url, err)
	}
	return shot, nil
}

// openTab creates a new target under browserCtx. The tab's event loop lives
// as long as the first Run context, so that Run gets tabCtx itself and never
// a per-call deadline; ctx cancellation is forwarded by closing the tab.
func openTab(ctx, browserCtx context.Context) (context.Context, context.CancelFunc, error) {
	tabCtx, closeTab := chromedp.NewContext(browserCtx)
	stopForward := forwardCancel(ctx, closeTab)
	err := chromedp.Run(tabCtx)
	stopForward()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		closeTab()
		return nil, nil, fmt.Errorf("open tab: %w", err)
	}
	return tabCtx, closeTab, nil
}

// Close shuts down the browser. It is safe to call more than once.
func (s *Session) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.browserCtx != nil {
		if err := chromedp.Cancel(s.browserCtx); err != nil {
			s.logger.Warn("browser shutdown failed", zap.Error(err))
		}
		s.browserCancel()
		s.allocCancel()
		s.browserCtx = nil
	}
	return nil
}

func (s *Session) captureClip() *page.Viewport {
	return &page.Viewport{X: 0, Y: 0, Width: s.cfg.CaptureWidth, Height: s.cfg.CaptureHeight, Scale: 1}
}

func (s *Session) pageHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	if s.cfg.AcceptLanguage != "" {
		h.Set("Accept-Language", s.cfg.AcceptLanguage)
	}
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	return h
}

func (s *Session) networkSetupAction(headers http.Header) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			override := emulation.SetUserAgentOverride(s.cfg.UserAgent)
			if s.cfg.AcceptLanguage != "" {
				override = override.WithAcceptLanguage(s.cfg.AcceptLanguage)
			}
			if err := override.Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(headers) > 0 {
			if err := network.SetExtraHTTPHeaders(toNetworkHeaders(headers)).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

// Browsers refuse to let scripts set these.
var forbiddenFetchHeaders = map[string]bool{
	"Referer":        true,
	"User-Agent":     true,
	"Sec-Fetch-Dest": true,
	"Sec-Fetch-Mode": true,
	"Sec-Fetch-Site": true,
}

const fetchTemplate = `(async () => {
  const res = await fetch(%s, {headers: %s, referrer: %s, credentials: "include", cache: "no-store"});
  if (!res.ok) { throw new Error("HTTP " + res.status); }
  const buf = new Uint8Array(await res.arrayBuffer());
  let bin = "";
  for (let i = 0; i < buf.length; i += 0x8000) {
    bin += String.fromCharCode.apply(null, buf.subarray(i, i + 0x8000));
  }
  return btoa(bin);
})()`

func fetchScript(url string, headers http.Header) (string, error) {
	allowed := map[string]string{}
	for key, values := range headers {
		canonical := http.CanonicalHeaderKey(key)
		if forbiddenFetchHeaders[canonical] || len(values) == 0 {
			continue
		}
		allowed[canonical] = strings.Join(values, ", ")
	}
	urlJSON, err := json.Marshal(url)
	if err != nil {
		return "", fmt.Errorf("encode url: %w", err)
	}
	headersJSON, err := json.Marshal(allowed)
	if err != nil {
		return "", fmt.Errorf("encode headers: %w", err)
	}
	referrerJSON, err := json.Marshal(headers.Get("Referer"))
	if err != nil {
		return "", fmt.Errorf("encode referrer: %w", err)
	}
	return fmt.Sprintf(fetchTemplate, urlJSON, headersJSON, referrerJSON), nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func toNetworkHeaders(h http.Header) network.Headers {
	headers := network.Headers{}
	for key, values := range h {
		if len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			headers[key] = values[0]
		} else {
			headers[key] = strings.Join(values, ", ")
		}
	}
	return headers
}
