// Package worker implements the crawl loop: discover albums, extract their
// images, download them, and assemble the raw capture.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/capture"
	"github.com/JakeFAU/soccer-vault/internal/crawler"
	"github.com/JakeFAU/soccer-vault/internal/metrics"
)

// AlbumDiscoverer lists album links on a listing page.
type AlbumDiscoverer interface {
	DiscoverAlbums(ctx context.Context, listingURL string) ([]crawler.AlbumLink, error)
}

// ImageFinder lists product images on an album page.
type ImageFinder interface {
	ExtractImages(ctx context.Context, albumURL string) ([]crawler.ImageCandidate, error)
}

// ImageDownloader saves one image.
type ImageDownloader interface {
	Download(ctx context.Context, candidate crawler.ImageCandidate, slug string, index int) (crawler.DownloadResult, error)
}

// Clock stamps the capture.
type Clock interface {
	Now() time.Time
}

// Config controls caps and pacing.
type Config struct {
	MaxAlbums         int
	MaxImagesPerAlbum int
	AlbumDelay        time.Duration
	ImageDelay        time.Duration
}

// ConfigFrom copies the worker settings out of a crawler config.
func ConfigFrom(cfg crawler.Config) Config {
	return Config{
		MaxAlbums:         cfg.MaxAlbums,
		MaxImagesPerAlbum: cfg.MaxImagesPerAlbum,
		AlbumDelay:        cfg.AlbumDelay,
		ImageDelay:        cfg.ImageDelay,
	}
}

// Summary counts what a crawl did.
type Summary struct {
	Discovered    int
	Processed     int
	Recorded      int
	EmptyAlbums   int
	FailedAlbums  int
	ImagesSaved   int
	ImagesFailed  int
	ImageAttempts int
	Duration      time.Duration
}

// Worker runs one album at a time and one image at a time.
type Worker struct {
	albums     AlbumDiscoverer
	images     ImageFinder
	downloader ImageDownloader
	pauser     crawler.Pauser
	queue      crawler.Queue
	clock      Clock
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker. queue must be able to hold every capped album.
func New(
	albums AlbumDiscoverer,
	images ImageFinder,
	downloader ImageDownloader,
	pauser crawler.Pauser,
	queue crawler.Queue,
	clock Clock,
	cfg Config,
	logger *zap.Logger,
) (*Worker, error) {
	if albums == nil || images == nil || downloader == nil || queue == nil || clock == nil {
		return nil, fmt.Errorf("albums, images, downloader, queue, and clock are required")
	}
	if cfg.MaxAlbums <= 0 || cfg.MaxImagesPerAlbum <= 0 {
		return nil, fmt.Errorf("album and image caps must be > 0")
	}
	if pauser == nil {
		pauser = crawler.NewTimerPauser()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		albums:     albums,
		images:     images,
		downloader: downloader,
		pauser:     pauser,
		queue:      queue,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Run crawls listingURL and returns the capture of every album that yielded
// at least one image. Image and album failures are logged and absorbed. A
// listing that cannot be opened, a store failure, or cancellation ends the run.
func (w *Worker) Run(ctx context.Context, listingURL string) (raw capture.RawCapture, summary Summary, err error) {
	start := w.clock.Now()
	defer func() {
		summary.Duration = w.clock.Now().Sub(start)
		metrics.ObserveStage("crawl", summary.Duration)
	}()

	links, err := w.albums.DiscoverAlbums(ctx, listingURL)
	if err != nil {
		return capture.RawCapture{}, summary, fmt.Errorf("discover albums: %w", err)
	}
	summary.Discovered = len(links)
	if len(links) > w.cfg.MaxAlbums {
		links = links[:w.cfg.MaxAlbums]
	}
	if len(links) == 0 {
		w.logger.Warn("no albums found", zap.String("url", listingURL))
	}
	if err = w.enqueue(ctx, links); err != nil {
		return capture.RawCapture{}, summary, err
	}

	albums := make([]capture.RawAlbum, 0, len(links))
	for {
		job, dqErr := w.queue.Dequeue(ctx)
		if errors.Is(dqErr, crawler.ErrQueueClosed) {
			break
		}
		if dqErr != nil {
			return capture.RawCapture{}, summary, fmt.Errorf("next album: %w", dqErr)
		}
		if job.Index > 0 {
			w.pauser.Pause(ctx, w.cfg.AlbumDelay)
		}

		album, albumErr := w.processAlbum(ctx, job, &summary)
		summary.Processed++
		switch {
		case errors.Is(albumErr, crawler.ErrStore):
			metrics.ObserveAlbum("error")
			return capture.RawCapture{}, summary, fmt.Errorf("album %q: %w", job.Link.Title, albumErr)
		case ctx.Err() != nil:
			return capture.RawCapture{}, summary, fmt.Errorf("crawl canceled: %w", ctx.Err())
		case albumErr != nil:
			summary.FailedAlbums++
			metrics.ObserveAlbum("failed")
			w.logger.Error("album failed",
				zap.Int("index", job.Index),
				zap.String("album", job.Link.Title),
				zap.String("url", job.Link.Href),
				zap.Error(albumErr))
		case len(album.ImageFiles) == 0:
			// Also covers albums whose every download failed; a later crawl retries them.
			summary.EmptyAlbums++
			metrics.ObserveAlbum("empty")
			w.logger.Warn("album has no images, skipping",
				zap.Int("index", job.Index),
				zap.String("album", job.Link.Title))
		default:
			summary.Recorded++
			metrics.ObserveAlbum("recorded")
			albums = append(albums, album)
			w.logger.Info("album captured",
				zap.Int("index", job.Index),
				zap.Int("total", len(links)),
				zap.String("album", job.Link.Title),
				zap.Int("images", len(album.ImageFiles)))
		}
	}

	return capture.New(w.clock.Now(), albums), summary, nil
}

func (w *Worker) enqueue(ctx context.Context, links []crawler.AlbumLink) error {
	if closer, ok := w.queue.(interface{ Close() }); ok {
		defer closer.Close()
	}
	for i, link := range links {
		if err := w.queue.Enqueue(ctx, crawler.AlbumJob{Index: i, Link: link}); err != nil {
			return fmt.Errorf("queue album: %w", err)
		}
	}
	return nil
}

func (w *Worker) processAlbum(ctx context.Context, job crawler.AlbumJob, summary *Summary) (capture.RawAlbum, error) {
	candidates, err := w.images.ExtractImages(ctx, job.Link.Href)
	if err != nil {
		return capture.RawAlbum{}, err
	}
	if len(candidates) > w.cfg.MaxImagesPerAlbum {
		candidates = candidates[:w.cfg.MaxImagesPerAlbum]
	}

	slug := capture.AlbumSlug(job.Link.Title, job.Link.Href)
	album := capture.RawAlbum{
		AlbumURL:   job.Link.Href,
		AlbumTitle: job.Link.Title,
		ImageFiles: make([]string, 0, len(candidates)),
	}
	for i, candidate := range candidates {
		if i > 0 {
			w.pauser.Pause(ctx, w.cfg.ImageDelay)
		}
		if err := ctx.Err(); err != nil {
			return album, err
		}
		res, err := w.downloader.Download(ctx, candidate, slug, i)
		summary.ImageAttempts += res.Attempts
		if errors.Is(err, crawler.ErrStore) {
			return album, err
		}
		if err != nil {
			summary.ImagesFailed++
			w.logger.Warn("image skipped",
				zap.String("album", job.Link.Title),
				zap.Int("image", i+1),
				zap.String("url", candidate.Src),
				zap.Error(err))
			continue
		}
		summary.ImagesSaved++
		album.ImageFiles = append(album.ImageFiles, res.Ref)
	}
	return album, nil
}
