package crawler

import "errors"

var (
	// ErrNavigation marks a navigation that failed after every attempt.
	ErrNavigation = errors.New("navigation failed")
	// ErrEmptyImage marks a download attempt that produced no bytes.
	ErrEmptyImage = errors.New("empty image")
	// ErrCaptureUnsupported is returned by sessions that cannot render a bitmap.
	ErrCaptureUnsupported = errors.New("rendered capture unsupported")
	// ErrDownloadFailed marks an image that exhausted every download attempt.
	ErrDownloadFailed = errors.New("download failed")
	// ErrQueueClosed is returned by Dequeue once a closed queue is drained.
	ErrQueueClosed = errors.New("queue closed")
)

// AlbumLink is an album discovered on a listing page.
type AlbumLink struct {
	Href  string
	Title string
}

// ImageCandidate is a product image found on an album page.
type ImageCandidate struct {
	Src    string
	Alt    string
	Width  int
	Height int
}

// DownloadMethod names the strategy used for a download attempt.
type DownloadMethod string

// Download strategies, cheapest first.
const (
	MethodFetch   DownloadMethod = "fetch"
	MethodCapture DownloadMethod = "capture"
)

// DownloadResult describes a saved image.
type DownloadResult struct {
	// Ref is the reference recorded in the raw capture.
	Ref string
	// Path is where the bytes were written.
	Path     string
	Filename string
	Bytes    int64
	Attempts int
	Method   DownloadMethod
}

// AlbumJob is a unit of crawl work.
type AlbumJob struct {
	Index int
	Link  AlbumLink
}
