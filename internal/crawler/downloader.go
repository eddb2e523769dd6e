package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/capture"
	"github.com/JakeFAU/soccer-vault/internal/metrics"
	"github.com/JakeFAU/soccer-vault/internal/storage/local"
)

// ErrStore marks a failure to persist image bytes. It is not retried.
var ErrStore = errors.New("image store failed")

// Downloader saves one image with bounded retries. Attempt 1 fetches the
// bytes directly; later attempts escalate to a rendered capture. Attempts are
// separated by a fixed backoff. Sessions that cannot capture get only the
// direct fetch.
type Downloader struct {
	client *Client
	store  ObjectStore
	retry  *FixedRetryPolicy
	logger *zap.Logger
}

// NewDownloader builds a Downloader writing through store.
func NewDownloader(client *Client, store ObjectStore, logger *zap.Logger) (*Downloader, error) {
	if client == nil || store == nil {
		return nil, fmt.Errorf("client and store are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := client.Config()
	return &Downloader{
		client: client,
		store:  store,
		retry:  NewFixedRetryPolicy(cfg.DownloadAttempts, cfg.DownloadBackoff),
		logger: logger,
	}, nil
}

// Filename returns the positional file name of the image at index.
func Filename(index int, ext string) string {
	return fmt.Sprintf("image%d%s", index+1, ext)
}

// Download saves candidate as <slug>/image<index+1><ext>. A zero-byte result
// counts as a failed attempt. After the last attempt it returns an error
// wrapping ErrDownloadFailed; store failures wrap ErrStore and end the loop.
func (d *Downloader) Download(ctx context.Context, candidate ImageCandidate, slug string, index int) (DownloadResult, error) {
	cfg := d.client.Config()
	filename := Filename(index, cfg.ImageExtension)
	objectPath := path.Join(slug, filename)
	logger := d.logger.With(zap.String("url", candidate.Src), zap.String("file", objectPath))

	var lastErr error
	canCapture := d.client.CanCapture()
	attempt := 1
	for ; ; attempt++ {
		method := MethodFetch
		if attempt > 1 {
			method = MethodCapture
		}
		metrics.ObserveDownloadAttempt(string(method))

		written, size, err := d.attempt(ctx, method, candidate.Src, objectPath)
		if err == nil {
			metrics.ObserveImage(candidate.Src, "saved", size)
			logger.Debug("Saved image", zap.Int("attempt", attempt), zap.String("method", string(method)))
			return DownloadResult{
				Ref:      capture.ImageRef(cfg.ImageRefPrefix, slug, filename),
				Path:     written,
				Filename: filename,
				Bytes:    size,
				Attempts: attempt,
				Method:   method,
			}, nil
		}
		if errors.Is(err, ErrStore) {
			metrics.ObserveImage(candidate.Src, "error", 0)
			return DownloadResult{Attempts: attempt}, err
		}

		// An unsupported capture keeps the fetch error as the cause.
		if errors.Is(err, ErrCaptureUnsupported) {
			canCapture = false
		} else {
			lastErr = err
		}
		logger.Warn("Image download attempt failed",
			zap.Int("attempt", attempt),
			zap.String("method", string(method)),
			zap.Error(err))
		if ctx.Err() != nil || !canCapture || !d.retry.ShouldRetry(err, attempt) {
			break
		}
		d.client.Pause(ctx, d.retry.Backoff(attempt))
	}

	metrics.ObserveImage(candidate.Src, "failed", 0)
	return DownloadResult{Attempts: attempt},
		fmt.Errorf("%w: %s after %d attempts: %w", ErrDownloadFailed, candidate.Src, attempt, lastErr)
}

func (d *Downloader) attempt(ctx context.Context, method DownloadMethod, src, objectPath string) (string, int64, error) {
	var (
		data []byte
		err  error
	)
	switch method {
	case MethodFetch:
		data, err = d.client.FetchBytes(ctx, src)
	default:
		data, err = d.client.Capture(ctx, src)
	}
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", method, err)
	}
	if len(data) == 0 {
		return "", 0, ErrEmptyImage
	}

	written, err := d.store.PutObject(ctx, objectPath, http.DetectContentType(data), bytes.NewReader(data))
	switch {
	case errors.Is(err, local.ErrEmptyObject):
		return "", 0, ErrEmptyImage
	case err != nil:
		return "", 0, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return written, int64(len(data)), nil
}
