package crawler

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Session is a single browsing tab. Only one operation uses it at a time.
type Session interface {
	// Navigate loads url in the tab and returns the page title.
	Navigate(ctx context.Context, url string) (string, error)
	// Content returns the HTML of the page last navigated to.
	Content(ctx context.Context) (string, error)
	// FetchBytes downloads url from within the current page context.
	FetchBytes(ctx context.Context, url string, headers http.Header) ([]byte, error)
	// Capture opens url in a dedicated page and returns a rendered bitmap of it.
	Capture(ctx context.Context, url string, headers http.Header) ([]byte, error)
	Close(ctx context.Context) error
}

// CaptureReporter is implemented by sessions that know up front whether
// Capture can work.
type CaptureReporter interface {
	CanCapture() bool
}

// ObjectStore persists downloaded image bytes.
type ObjectStore interface {
	PutObject(ctx context.Context, path string, contentType string, body io.Reader) (string, error)
}

// Pauser blocks for a delay or until ctx is done.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// Queue provides enqueue/dequeue semantics for album jobs.
type Queue interface {
	Enqueue(ctx context.Context, job AlbumJob) error
	Dequeue(ctx context.Context) (AlbumJob, error)
}
