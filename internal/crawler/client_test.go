package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/soccer-vault/internal/crawler/crawlertest"
)

const listingURL = "https://jersey-factory.x.yupoo.com/collections/4842543"

func newTestClient(t *testing.T, session Session, mutate ...func(*Config)) (*Client, *crawlertest.Pauser) {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	pauser := &crawlertest.Pauser{}
	client, err := NewClient(session, cfg, pauser, nil)
	require.NoError(t, err)
	return client, pauser
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(nil, DefaultConfig(), nil, nil)
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.ListingURL = "/relative"
	_, err = NewClient(crawlertest.NewSession(), cfg, nil, nil)
	require.ErrorContains(t, err, "scraper.listing_url")
}

func TestNavigateWaitsForSettle(t *testing.T) {
	t.Parallel()

	session := crawlertest.NewSession().AddPage(listingURL, crawlertest.Page{Title: "Jersey Factory"})
	client, pauser := newTestClient(t, session)

	require.NoError(t, client.Navigate(context.Background(), listingURL))
	assert.Equal(t, 1, session.Navigations(listingURL))
	assert.Equal(t, []time.Duration{3 * time.Second}, pauser.Delays())
}

func TestNavigateRetriesWithFixedDelay(t *testing.T) {
	t.Parallel()

	session := crawlertest.NewSession().AddPage(listingURL, crawlertest.Page{Title: "Jersey Factory", Failures: 2})
	client, pauser := newTestClient(t, session)

	require.NoError(t, client.Navigate(context.Background(), listingURL))
	assert.Equal(t, 3, session.Navigations(listingURL))
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 3 * time.Second}, pauser.Delays())
}

func TestNavigateTreatsErrorTitlesAsFailures(t *testing.T) {
	t.Parallel()

	missing := listingURL + "/missing"
	session := crawlertest.NewSession()
	client, pauser := newTestClient(t, session)

	err := client.Navigate(context.Background(), missing)
	require.ErrorIs(t, err, ErrNavigation)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, session.Navigations(missing))
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, pauser.Delays())
}

func TestNavigateAppliesPerAttemptTimeout(t *testing.T) {
	t.Parallel()

	session := crawlertest.NewSession().AddPage(listingURL, crawlertest.Page{Hang: true})
	client, _ := newTestClient(t, session, func(c *Config) {
		c.NavigationTimeout = 10 * time.Millisecond
		c.NavigationAttempts = 2
	})

	err := client.Navigate(context.Background(), listingURL)
	require.ErrorIs(t, err, ErrNavigation)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, session.Navigations(listingURL))
}

func TestNavigateStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session := crawlertest.NewSession().AddPage(listingURL, crawlertest.Page{Hang: true})
	client, _ := newTestClient(t, session)

	err := client.Navigate(ctx, listingURL)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, session.Navigations(listingURL))
}

func TestIsErrorTitle(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"":                  true,
		"  ":                true,
		"Error":             true,
		"404 Not Found":     true,
		"Page 404":          true,
		"Jersey Factory":    false,
		"Error Handling FC": false,
	}
	for title, want := range tests {
		assert.Equal(t, want, IsErrorTitle(title), title)
	}
}

func TestImageHeaders(t *testing.T) {
	t.Parallel()

	h := ImageHeaders(DefaultConfig())
	assert.Equal(t, listingURL, h.Get("Referer"))
	assert.Equal(t, "image/webp,image/apng,image/*,*/*;q=0.8", h.Get("Accept"))
	assert.Equal(t, "en-US,en;q=0.9", h.Get("Accept-Language"))
	assert.Equal(t, "image", h.Get("Sec-Fetch-Dest"))
	assert.Equal(t, "no-cors", h.Get("Sec-Fetch-Mode"))
	assert.Equal(t, "cross-site", h.Get("Sec-Fetch-Site"))
	assert.Equal(t, DefaultUserAgent, h.Get("User-Agent"))

	cfg := DefaultConfig()
	cfg.Referer = "https://x.yupoo.com/"
	assert.Equal(t, "https://x.yupoo.com/", ImageHeaders(cfg).Get("Referer"))
}

func TestFetchBytesSendsImageHeaders(t *testing.T) {
	t.Parallel()

	src := "https://photo.yupoo.com/jersey-factory/a/big.jpg"
	session := crawlertest.NewSession().AddImage(src, crawlertest.Image{
		Fetch: []crawlertest.Result{crawlertest.OK("png-bytes"), crawlertest.OK("")},
	})
	client, _ := newTestClient(t, session)

	data, err := client.FetchBytes(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	require.Len(t, session.Headers(), 1)
	assert.Equal(t, listingURL, session.Headers()[0].Get("Referer"))

	_, err = client.FetchBytes(context.Background(), src)
	require.ErrorIs(t, err, ErrEmptyImage)
}

func TestClientClose(t *testing.T) {
	t.Parallel()

	session := crawlertest.NewSession()
	client, _ := newTestClient(t, session)
	require.NoError(t, client.Close(context.Background()))
	assert.True(t, session.Closed())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"bad listing", func(c *Config) { c.ListingURL = "ftp://x" }, "scraper.listing_url"},
		{"no album selectors", func(c *Config) { c.AlbumSelectors = nil }, "scraper.album_selectors"},
		{"zero albums", func(c *Config) { c.MaxAlbums = 0 }, "scraper.max_albums"},
		{"zero images", func(c *Config) { c.MaxImagesPerAlbum = 0 }, "scraper.max_images_per_album"},
		{"zero attempts", func(c *Config) { c.DownloadAttempts = 0 }, "download.attempts"},
		{"negative delay", func(c *Config) { c.ImageDelay = -time.Second }, "scraper.image_delay"},
		{"extension", func(c *Config) { c.ImageExtension = "png" }, "output.image_extension"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

type noCaptureSession struct{ *crawlertest.Session }

func (noCaptureSession) CanCapture() bool { return false }

func TestClientCanCapture(t *testing.T) {
	t.Parallel()

	browser, _ := newTestClient(t, crawlertest.NewSession())
	assert.True(t, browser.CanCapture())

	static, _ := newTestClient(t, noCaptureSession{crawlertest.NewSession()})
	assert.False(t, static.CanCapture())
}
