package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/app"
	"github.com/JakeFAU/soccer-vault/internal/capture"
	"github.com/JakeFAU/soccer-vault/internal/config"
	"github.com/JakeFAU/soccer-vault/internal/crawler"
	"github.com/JakeFAU/soccer-vault/internal/crawler/crawlertest"
)

type workspace struct {
	dir        string
	configPath string
	rawPath    string
	imagesDir  string
	catalog    string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:        dir,
		configPath: filepath.Join(dir, "soccervault.yaml"),
		rawPath:    filepath.Join(dir, "data", "raw.json"),
		imagesDir:  filepath.Join(dir, "images"),
		catalog:    filepath.Join(dir, "products.json"),
	}
	configYAML := fmt.Sprintf(`
output:
  images_dir: %q
  raw_capture_path: %q
  catalog_path: %q
  catalog_format: json
sink:
  provider: noop
logging:
  development: false
`, ws.imagesDir, ws.rawPath, ws.catalog)
	require.NoError(t, os.WriteFile(ws.configPath, []byte(configYAML), 0o600))
	return ws
}

func (ws workspace) writeCapture(t *testing.T, albums ...capture.RawAlbum) {
	t.Helper()
	raw := capture.New(time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC), albums)
	require.NoError(t, capture.Save(ws.rawPath, raw))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "soccervault dev\n", out)
}

func TestEnrichCommandWritesCatalog(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	ws.writeCapture(t,
		capture.RawAlbum{
			AlbumURL:   "https://example.x.yupoo.com/albums/1",
			AlbumTitle: "Arsenal Home Jersey 2024/25",
			ImageFiles: []string{"/collections/4842543/images/arsenal-home-jersey-202425/image1.png"},
		},
		capture.RawAlbum{
			AlbumURL:   "https://example.x.yupoo.com/albums/2",
			AlbumTitle: "正品球衣",
			ImageFiles: []string{"/collections/4842543/images/album-x/image1.png"},
		},
	)

	out, err := execute(t, "enrich", "--config", ws.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Enrich")

	data, err := os.ReadFile(ws.catalog)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"arsenal-home-jersey-202425"`)
	assert.Contains(t, string(data), `"Premier League"`)
}

func TestEnrichWithoutCaptureFails(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	_, err := execute(t, "enrich", "--config", ws.configPath)
	require.ErrorIs(t, err, capture.ErrMissing)
	assert.Contains(t, err.Error(), "soccervault crawl")
}

func TestUploadWithoutSinkKeepsReferences(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	ref := "/collections/4842543/images/arsenal-home/image1.png"
	ws.writeCapture(t, capture.RawAlbum{AlbumTitle: "Arsenal Home", ImageFiles: []string{ref}})

	_, err := execute(t, "upload", "--config", ws.configPath)
	require.NoError(t, err)

	raw, err := capture.Load(ws.rawPath)
	require.NoError(t, err)
	assert.Equal(t, []string{ref}, raw.Albums[0].ImageFiles)
}

func TestVerifyCommand(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	present := filepath.Join(ws.imagesDir, "arsenal-home", "image1.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(present), 0o755))
	require.NoError(t, os.WriteFile(present, []byte("png"), 0o600))
	ws.writeCapture(t, capture.RawAlbum{
		AlbumTitle: "Arsenal Home",
		ImageFiles: []string{
			"/collections/4842543/images/arsenal-home/image1.png",
			"/collections/4842543/images/arsenal-home/image2.png",
			"https://cdn.example.com/arsenal-home/image3.png",
		},
	})

	out, err := execute(t, "verify", "--config", ws.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Local missing")
	assert.Contains(t, out, "missing, run `soccervault enrich`")

	a, err := newApp(context.Background(), ws.configPath)
	require.NoError(t, err)
	defer a.Close()
	result, err := runVerify(a, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Audit.Images)
	assert.Equal(t, 1, result.Audit.RemoteRefs)
	assert.Equal(t, 2, result.Audit.LocalRefs)
	assert.Equal(t, []string{"/collections/4842543/images/arsenal-home/image2.png"}, result.Audit.Missing)
	assert.Zero(t, result.CatalogBytes)
}

func TestVerifyMalformedCapture(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(ws.rawPath), 0o755))
	require.NoError(t, os.WriteFile(ws.rawPath, []byte("{not json"), 0o600))

	_, err := execute(t, "verify", "--config", ws.configPath)
	require.ErrorIs(t, err, capture.ErrMalformed)
}

func TestBadConfigFails(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "verify", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to initialize application services")
}

// scriptedApp runs the real container against an in-memory site.
type scriptedApp struct {
	*app.App
	session *crawlertest.Session
}

func (s scriptedApp) NewSession(*zap.Logger) crawler.Session { return s.session }

func TestCrawlUploadEnrichAgainstScriptedSite(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	cfg, err := config.Load(ws.configPath)
	require.NoError(t, err)
	cfg.Scraper.NavigationRetryDelay = 0
	cfg.Scraper.SettleDelay = 0
	cfg.Scraper.AlbumSettleDelay = 0
	cfg.Scraper.AlbumDelay = 0
	cfg.Scraper.ImageDelay = 0
	cfg.Scraper.Browser = false
	cfg.Download.Backoff = 0
	cfg.Enrich.ReferenceTime = "2025-06-01"
	base, err := app.New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(base.Close)

	album := "https://jersey-factory.x.yupoo.com/albums/101"
	img := "https://photo.yupoo.com/jersey-factory/abc/big.jpg"
	session := crawlertest.NewSession().
		AddPage(cfg.Scraper.ListingURL, crawlertest.Page{
			Title: "Jersey Factory",
			HTML:  `<a href="/albums/101" title="Arsenal Home Jersey 2024/25">x</a>`,
		}).
		AddPage(album, crawlertest.Page{
			Title: "Arsenal Home Jersey 2024/25",
			HTML:  `<img src="https://photo.yupoo.com/jersey-factory/abc/big_thumb.jpg">`,
		}).
		AddImage(img, crawlertest.Image{Fetch: []crawlertest.Result{crawlertest.OK("png-bytes")}})
	a := scriptedApp{App: base, session: session}

	var out bytes.Buffer
	summary, err := runCrawl(context.Background(), a, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Recorded)
	assert.Equal(t, 1, summary.ImagesSaved)
	assert.True(t, session.Closed())

	data, err := os.ReadFile(filepath.Join(ws.imagesDir, "arsenal-home-jersey-202425", "image1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, uploaded, err := runUpload(context.Background(), a, &out)
	require.NoError(t, err)
	assert.False(t, uploaded)

	report, err := runEnrich(context.Background(), a, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Enriched)

	catalogJSON, err := os.ReadFile(ws.catalog)
	require.NoError(t, err)
	assert.Contains(t, string(catalogJSON), `"generatedAt": "2025-06-01T00:00:00Z"`)
	assert.Contains(t, out.String(), "Crawl")
}
