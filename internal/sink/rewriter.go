package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/capture"
	"github.com/JakeFAU/soccer-vault/internal/crawler"
	"github.com/JakeFAU/soccer-vault/internal/metrics"
	"github.com/JakeFAU/soccer-vault/internal/policy/ratelimit"
)

// Clock supplies the timestamp stamped on a rewritten capture.
type Clock interface {
	Now() time.Time
}

// Config controls upload retries and throttling.
type Config struct {
	ImagesDir        string
	Provider         string
	Attempts         int
	Backoff          time.Duration
	UploadsPerSecond float64
}

// Summary counts what happened to every image reference.
type Summary struct {
	Albums   int
	Uploaded int
	Remote   int
	Missing  int
	Failed   int
	Duration time.Duration
}

// Rewriter replaces local image references with hosted URLs.
type Rewriter struct {
	sink    ImageSink
	cfg     Config
	limiter *ratelimit.Limiter
	pauser  crawler.Pauser
	clock   Clock
	logger  *zap.Logger
}

// NewRewriter builds a Rewriter. Attempts defaults to 3 and Backoff to 1s.
func NewRewriter(sink ImageSink, cfg Config, pauser crawler.Pauser, clock Clock, logger *zap.Logger) (*Rewriter, error) {
	if sink == nil {
		return nil, fmt.Errorf("image sink is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.ImagesDir == "" {
		return nil, fmt.Errorf("images directory is required")
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff < 0 {
		return nil, fmt.Errorf("backoff must be >= 0")
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = time.Second
	}
	if cfg.Provider == "" {
		cfg.Provider = "sink"
	}
	if pauser == nil {
		pauser = crawler.NewTimerPauser()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rewriter{
		sink:    sink,
		cfg:     cfg,
		limiter: ratelimit.New(ratelimit.Config{DefaultRPS: cfg.UploadsPerSecond, DefaultBurst: 1}),
		pauser:  pauser,
		clock:   clock,
		logger:  logger,
	}, nil
}

// Rewrite uploads every local image in c and replaces its reference in place.
// Hosted URLs pass through, and references that cannot be uploaded are kept
// unchanged at the same position. The capture is restamped when done.
func (r *Rewriter) Rewrite(ctx context.Context, c *capture.RawCapture) (summary Summary, err error) {
	if c == nil {
		return Summary{}, fmt.Errorf("raw capture is required")
	}
	start := time.Now()
	defer func() {
		summary.Duration = time.Since(start)
		metrics.ObserveStage("upload", summary.Duration)
	}()

	for a := range c.Albums {
		album := &c.Albums[a]
		summary.Albums++
		slug := album.Slug()
		logger := r.logger.With(zap.String("album", album.AlbumTitle), zap.String("slug", slug))

		for i, ref := range album.ImageFiles {
			if capture.IsRemote(ref) {
				summary.Remote++
				metrics.ObserveUpload("remote")
				continue
			}
			localPath := capture.LocalPath(r.cfg.ImagesDir, slug, ref)
			if _, statErr := os.Stat(localPath); statErr != nil {
				summary.Missing++
				metrics.ObserveUpload("missing")
				logger.Warn("Local image missing, keeping reference", zap.String("path", localPath), zap.Int("index", i))
				continue
			}

			url, uploadErr := r.upload(ctx, localPath, slug, i, logger)
			switch {
			case uploadErr == nil:
				album.ImageFiles[i] = url
				summary.Uploaded++
				metrics.ObserveUpload("uploaded")
				logger.Info("Uploaded image", zap.Int("index", i), zap.String("url", url))
			case errors.Is(uploadErr, ErrNotConfigured):
				return summary, uploadErr
			case ctx.Err() != nil:
				return summary, fmt.Errorf("upload canceled: %w", ctx.Err())
			default:
				summary.Failed++
				metrics.ObserveUpload("failed")
				logger.Warn("Upload failed, keeping local reference", zap.Int("index", i), zap.Error(uploadErr))
			}
		}
	}

	c.ScrapedAt = r.clock.Now().UTC()
	c.TotalAlbums = len(c.Albums)
	return summary, nil
}

// upload retries with a linear backoff of Backoff*attempt between tries.
func (r *Rewriter) upload(ctx context.Context, localPath, slug string, index int, logger *zap.Logger) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		if err := r.limiter.Wait(ctx, r.cfg.Provider); err != nil {
			return "", err
		}
		url, err := r.sink.Upload(ctx, localPath, slug, index)
		if err == nil && url == "" {
			err = fmt.Errorf("sink returned no url")
		}
		if err == nil {
			return url, nil
		}
		if errors.Is(err, ErrNotConfigured) {
			return "", err
		}
		lastErr = err
		logger.Debug("upload attempt failed", zap.Int("index", index), zap.Int("attempt", attempt), zap.Error(err))
		if attempt == r.cfg.Attempts || ctx.Err() != nil {
			break
		}
		r.pauser.Pause(ctx, r.cfg.Backoff*time.Duration(attempt))
	}
	return "", fmt.Errorf("upload %s after %d attempts: %w", localPath, r.cfg.Attempts, lastErr)
}
