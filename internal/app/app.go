// Package app holds the long-lived services of a CLI invocation and builds
// the per-stage components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/catalog"
	"github.com/JakeFAU/soccer-vault/internal/classify"
	"github.com/JakeFAU/soccer-vault/internal/clock/system"
	"github.com/JakeFAU/soccer-vault/internal/config"
	"github.com/JakeFAU/soccer-vault/internal/crawler"
	"github.com/JakeFAU/soccer-vault/internal/enrich"
	collyfetcher "github.com/JakeFAU/soccer-vault/internal/fetcher/colly"
	"github.com/JakeFAU/soccer-vault/internal/fetcher/direct"
	"github.com/JakeFAU/soccer-vault/internal/fetcher/headless"
	"github.com/JakeFAU/soccer-vault/internal/hash/sha256"
	"github.com/JakeFAU/soccer-vault/internal/id/uuid"
	"github.com/JakeFAU/soccer-vault/internal/logging"
	"github.com/JakeFAU/soccer-vault/internal/metrics"
	"github.com/JakeFAU/soccer-vault/internal/queue/memory"
	"github.com/JakeFAU/soccer-vault/internal/sink"
	"github.com/JakeFAU/soccer-vault/internal/sink/cloudinary"
	"github.com/JakeFAU/soccer-vault/internal/sink/gcs"
	"github.com/JakeFAU/soccer-vault/internal/sink/supabase"
	"github.com/JakeFAU/soccer-vault/internal/storage/local"
	"github.com/JakeFAU/soccer-vault/internal/worker"
)

// Publisher writes a finished catalog somewhere.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, c catalog.Catalog) error
}

// App is the dependency container shared by every subcommand.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	clock   *system.Clock
	hasher  *sha256.Hasher
	ids     *uuid.Generator
	metrics *http.Server

	mu      sync.Mutex
	closers []func() error
}

// New initializes the container. A nil logger is built from cfg.Logging.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging.Development)
		if err != nil {
			return nil, err
		}
	}
	metrics.Init()
	a := &App{
		cfg:    cfg,
		logger: logger,
		clock:  system.New(),
		hasher: sha256.New(),
		ids:    uuid.New(),
	}
	if cfg.Metrics.ListenAddr != "" {
		a.startMetricsServer(cfg.Metrics.ListenAddr)
	}
	return a, nil
}

// GetLogger returns the root logger.
func (a *App) GetLogger() *zap.Logger { return a.logger }

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config { return a.cfg }

// Clock returns the wall clock used for timestamps.
func (a *App) Clock() *system.Clock { return a.clock }

// StageLogger returns a logger tagged with stage and a fresh run id.
func (a *App) StageLogger(stage string) *zap.Logger {
	runID, err := a.ids.NewID()
	if err != nil {
		runID = strconv.FormatInt(a.clock.Now().UnixNano(), 36)
	}
	return logging.ForStage(a.logger, stage, runID)
}

func (a *App) startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.metrics = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func(srv *http.Server) {
		a.logger.Info("Starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", zap.Error(err))
		}
	}(a.metrics)
}

func (a *App) onClose(fn func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// NewSession opens the page session selected by scraper.browser.
func (a *App) NewSession(logger *zap.Logger) crawler.Session {
	sc := a.cfg.Scraper
	if sc.Browser {
		return headless.NewChromedp(headless.Config{
			UserAgent:      sc.UserAgent,
			AcceptLanguage: sc.AcceptLanguage,
			Headless:       sc.Headless,
			NoSandbox:      sc.NoSandbox,
			CaptureWidth:   a.cfg.Download.CaptureWidth,
			CaptureHeight:  a.cfg.Download.CaptureHeight,
		}, logger.Named("browser"))
	}
	bytes := direct.New(direct.Config{
		UserAgent: sc.UserAgent,
		Timeout:   a.cfg.Download.Timeout,
		MaxBytes:  a.cfg.Download.MaxBytes,
	})
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:      sc.UserAgent,
		AcceptLanguage: sc.AcceptLanguage,
		Timeout:        sc.NavigationTimeout,
	}, bytes)
}

// NewWorker assembles the crawl loop on top of session.
func (a *App) NewWorker(session crawler.Session, logger *zap.Logger) (*worker.Worker, error) {
	crawlerCfg := a.cfg.CrawlerConfig()
	pauser := crawler.NewTimerPauser()
	client, err := crawler.NewClient(session, crawlerCfg, pauser, logger)
	if err != nil {
		return nil, fmt.Errorf("build fetch client: %w", err)
	}
	store, err := local.New(local.Config{BaseDir: a.cfg.Output.ImagesDir})
	if err != nil {
		return nil, fmt.Errorf("open images dir: %w", err)
	}
	downloader, err := crawler.NewDownloader(client, store, logger)
	if err != nil {
		return nil, fmt.Errorf("build downloader: %w", err)
	}
	return worker.New(
		crawler.NewAlbumCrawler(client, logger),
		crawler.NewImageExtractor(client, logger),
		downloader,
		pauser,
		memory.NewQueue(crawlerCfg.MaxAlbums),
		a.clock,
		worker.ConfigFrom(crawlerCfg),
		logger,
	)
}

// NewImageSink builds the configured sink. The noop sink is returned when no
// provider is configured.
func (a *App) NewImageSink(ctx context.Context) (sink.ImageSink, error) {
	sc := a.cfg.Sink
	switch provider := a.cfg.SinkProvider(); provider {
	case config.SinkNoop:
		return sink.Noop{}, nil
	case config.SinkGCS:
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.onClose(client.Close)
		s, err := gcs.New(client, gcs.Config{
			Bucket:        sc.GCS.Bucket,
			Folder:        sc.Folder,
			PublicBaseURL: sc.GCS.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SinkSupabase:
		s, err := supabase.New(supabase.Config{
			URL:    sc.Supabase.URL,
			Key:    sc.Supabase.Key,
			Bucket: sc.Supabase.Bucket,
			Folder: sc.Folder,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SinkCloudinary:
		s, err := cloudinary.New(cloudinary.Config{
			URL:       sc.Cloudinary.URL,
			CloudName: sc.Cloudinary.CloudName,
			APIKey:    sc.Cloudinary.APIKey,
			APISecret: sc.Cloudinary.APISecret,
			Folder:    sc.Folder,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown sink provider %q", provider)
	}
}

// NewRewriter wraps s with the configured retry and throttle policy.
func (a *App) NewRewriter(s sink.ImageSink, logger *zap.Logger) (*sink.Rewriter, error) {
	return sink.NewRewriter(s, sink.Config{
		ImagesDir:        a.cfg.Output.ImagesDir,
		Provider:         a.cfg.SinkProvider(),
		Attempts:         a.cfg.Sink.Attempts,
		Backoff:          a.cfg.Sink.Backoff,
		UploadsPerSecond: a.cfg.Sink.UploadsPerSecond,
	}, crawler.NewTimerPauser(), a.clock, logger)
}

// NewPipeline builds the enrichment pipeline with the default tables.
func (a *App) NewPipeline(logger *zap.Logger) (*enrich.Pipeline, error) {
	var clock enrich.Clock = a.clock
	if ref := a.cfg.Enrich.ReferenceTime; ref != "" {
		at, err := system.ParseReference(ref)
		if err != nil {
			return nil, fmt.Errorf("enrich.reference_time: %w", err)
		}
		clock = system.NewFrozen(at)
	}
	engine, err := classify.NewEngine(classify.DefaultTables(), clock)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	return enrich.New(a.cfg.EnrichConfig(), engine, a.hasher, clock, logger)
}

// Publishers returns the catalog file writer and, when configured, the
// Postgres mirror.
func (a *App) Publishers(ctx context.Context) ([]Publisher, error) {
	file, err := catalog.NewFilePublisher(a.cfg.Output.CatalogPath, catalog.Format(a.cfg.Output.CatalogFormat))
	if err != nil {
		return nil, err
	}
	publishers := []Publisher{file}
	if a.cfg.Catalog.PostgresDSN != "" {
		pg, err := catalog.NewPostgresPublisher(ctx, catalog.PostgresConfig{
			DSN:   a.cfg.Catalog.PostgresDSN,
			Table: a.cfg.Catalog.PostgresTable,
		})
		if err != nil {
			return nil, err
		}
		a.onClose(func() error {
			pg.Close()
			return nil
		})
		publishers = append(publishers, pg)
	}
	return publishers, nil
}

// Close releases every client opened through the container.
func (a *App) Close() {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			a.logger.Warn("Error closing client", zap.Error(err))
		}
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn("Error stopping metrics server", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
