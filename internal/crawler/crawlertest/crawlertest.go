// Package crawlertest provides scripted crawler collaborators for tests.
package crawlertest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Page is a scripted navigation target.
type Page struct {
	Title string
	HTML  string
	// Failures is the number of navigations that fail before the page loads.
	Failures int
	// Hang makes every navigation block until its context is done.
	Hang bool
}

// Image scripts the responses for one image URL, one entry per call.
// A call past the end of a script repeats the last entry.
type Image struct {
	Fetch   []Result
	Capture []Result
}

// Result is one scripted byte response.
type Result struct {
	Data []byte
	Err  error
}

// OK returns a successful Result.
func OK(data string) Result { return Result{Data: []byte(data)} }

// Fail returns a failing Result.
func Fail(err error) Result { return Result{Err: err} }

// Session is an in-memory crawler.Session.
type Session struct {
	mu       sync.Mutex
	pages    map[string]*Page
	images   map[string]*Image
	current  string
	navCalls map[string]int
	fetches  map[string]int
	captures map[string]int
	headers  []http.Header
	closed   bool
}

// NewSession returns an empty Session.
func NewSession() *Session {
	return &Session{
		pages:    make(map[string]*Page),
		images:   make(map[string]*Image),
		navCalls: make(map[string]int),
		fetches:  make(map[string]int),
		captures: make(map[string]int),
	}
}

// AddPage registers a page.
func (s *Session) AddPage(url string, page Page) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := page
	s.pages[url] = &p
	return s
}

// AddImage registers an image script.
func (s *Session) AddImage(url string, img Image) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := img
	s.images[url] = &i
	return s
}

// Navigate implements crawler.Session.
func (s *Session) Navigate(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	s.navCalls[url]++
	calls := s.navCalls[url]
	page, ok := s.pages[url]
	s.mu.Unlock()

	if !ok {
		return "404 Not Found", nil
	}
	if page.Hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if calls <= page.Failures {
		return "", fmt.Errorf("net::ERR_CONNECTION_RESET at %s", url)
	}
	s.mu.Lock()
	s.current = url
	s.mu.Unlock()
	return page.Title, nil
}

// Content implements crawler.Session.
func (s *Session) Content(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[s.current]
	if !ok {
		return "", fmt.Errorf("no page loaded")
	}
	return page.HTML, nil
}

// FetchBytes implements crawler.Session.
func (s *Session) FetchBytes(_ context.Context, url string, headers http.Header) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers = append(s.headers, headers)
	s.fetches[url]++
	img, ok := s.images[url]
	if !ok {
		return nil, fmt.Errorf("HTTP 404")
	}
	return pick(img.Fetch, s.fetches[url])
}

// Capture implements crawler.Session.
func (s *Session) Capture(_ context.Context, url string, headers http.Header) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers = append(s.headers, headers)
	s.captures[url]++
	img, ok := s.images[url]
	if !ok {
		return nil, fmt.Errorf("HTTP 404")
	}
	return pick(img.Capture, s.captures[url])
}

// Close implements crawler.Session.
func (s *Session) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Navigations returns how often url was navigated to.
func (s *Session) Navigations(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navCalls[url]
}

// Fetches returns how often url was fetched directly.
func (s *Session) Fetches(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[url]
}

// Captures returns how often url was captured.
func (s *Session) Captures(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures[url]
}

// Headers returns the headers of every byte request in order.
func (s *Session) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]http.Header(nil), s.headers...)
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func pick(script []Result, call int) ([]byte, error) {
	if len(script) == 0 {
		return nil, fmt.Errorf("no scripted response")
	}
	r := script[min(call, len(script))-1]
	if r.Err != nil {
		return nil, r.Err
	}
	return append([]byte(nil), r.Data...), nil
}

// Pauser records requested delays without sleeping.
type Pauser struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Pause implements crawler.Pauser.
func (p *Pauser) Pause(_ context.Context, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delays = append(p.delays, d)
}

// Delays returns the recorded delays in order.
func (p *Pauser) Delays() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.delays...)
}
