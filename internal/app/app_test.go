// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/soccer-vault/internal/app"
	"github.com/JakeFAU/soccer-vault/internal/capture"
	"github.com/JakeFAU/soccer-vault/internal/config"
	collyfetcher "github.com/JakeFAU/soccer-vault/internal/fetcher/colly"
	"github.com/JakeFAU/soccer-vault/internal/fetcher/headless"
	"github.com/JakeFAU/soccer-vault/internal/sink"
	"github.com/JakeFAU/soccer-vault/internal/sink/cloudinary"
	"github.com/JakeFAU/soccer-vault/internal/sink/supabase"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Sink.Provider = config.SinkNoop
	cfg.Output.ImagesDir = filepath.Join(dir, "images")
	cfg.Output.RawCapturePath = filepath.Join(dir, "raw.json")
	cfg.Output.CatalogPath = filepath.Join(dir, "products.ts")
	return cfg
}

func newApp(t *testing.T, cfg config.Config) *app.App {
	t.Helper()
	a, err := app.New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Scraper.MaxAlbums = 0
	_, err := app.New(cfg, zap.NewNop())
	require.ErrorContains(t, err, "scraper.max_albums")
}

func TestNewSessionSelection(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Scraper.Browser = false
	a := newApp(t, cfg)
	assert.IsType(t, &collyfetcher.Session{}, a.NewSession(zap.NewNop()))

	cfg.Scraper.Browser = true
	b := newApp(t, cfg)
	browser := b.NewSession(zap.NewNop())
	assert.IsType(t, &headless.Session{}, browser)
	require.NoError(t, browser.Close(context.Background()))
}

func TestNewWorker(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Scraper.Browser = false
	a := newApp(t, cfg)
	w, err := a.NewWorker(a.NewSession(zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, w)
	assert.DirExists(t, cfg.Output.ImagesDir)
}

func TestNewImageSink(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	s, err := newApp(t, cfg).NewImageSink(context.Background())
	require.NoError(t, err)
	assert.IsType(t, sink.Noop{}, s)

	cfg.Sink.Provider = config.SinkSupabase
	cfg.Sink.Supabase = config.SupabaseConfig{URL: "https://proj.supabase.co", Key: "key", Bucket: "jerseys"}
	s, err = newApp(t, cfg).NewImageSink(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &supabase.Sink{}, s)

	cfg.Sink.Provider = config.SinkCloudinary
	cfg.Sink.Cloudinary = config.CloudinaryConfig{CloudName: "demo", APIKey: "key", APISecret: "secret"}
	s, err = newApp(t, cfg).NewImageSink(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &cloudinary.Sink{}, s)

	r, err := newApp(t, cfg).NewRewriter(s, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestPipelineAndPublishers(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	a := newApp(t, cfg)

	pipeline, err := a.NewPipeline(zap.NewNop())
	require.NoError(t, err)
	raw := capture.New(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), []capture.RawAlbum{{
		AlbumURL:   "https://example.x.yupoo.com/albums/1",
		AlbumTitle: "Arsenal Home Jersey 2024/25",
		ImageFiles: []string{"https://cdn.example.com/a.png"},
	}})
	cat, report := pipeline.Enrich(raw)
	require.Len(t, cat.Products, 1)
	assert.Equal(t, 1, report.Enriched)

	publishers, err := a.Publishers(context.Background())
	require.NoError(t, err)
	require.Len(t, publishers, 1)
	require.NoError(t, publishers[0].Publish(context.Background(), cat))
	assert.FileExists(t, cfg.Output.CatalogPath)
}

func TestPipelineReferenceTime(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Enrich.ReferenceTime = "2024-09-01"
	pipeline, err := newApp(t, cfg).NewPipeline(zap.NewNop())
	require.NoError(t, err)

	cat, _ := pipeline.Enrich(capture.New(time.Now(), nil))
	assert.Equal(t, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), cat.GeneratedAt)
}

func TestMetricsServerLifecycle(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Metrics.ListenAddr = "127.0.0.1:0"
	a, err := app.New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotPanics(t, a.Close)
}

func TestStageLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	a, err := app.New(testConfig(t), zap.New(core))
	require.NoError(t, err)
	defer a.Close()

	a.StageLogger("crawl").Info("hello")
	a.StageLogger("crawl").Info("again")

	entries := logs.All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()["run_id"]
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, entries[1].ContextMap()["run_id"])
}
