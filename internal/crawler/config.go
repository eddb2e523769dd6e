package crawler

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// DefaultUserAgent is a desktop Chrome user agent accepted by the photo host.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config captures every knob that influences a crawl run.
type Config struct {
	ListingURL string
	// AlbumPathMarker must appear in the href of an album link.
	AlbumPathMarker string
	AlbumSelectors  []string
	ImageSelectors  []string
	// ImageHosts lists CDN hosts; an image URL must contain at least one.
	ImageHosts []string
	// ImagePathFragment must also appear in an image URL.
	ImagePathFragment string
	ImageBlocklist    []string
	ThumbnailMarkers  []string

	MaxAlbums         int
	MaxImagesPerAlbum int

	UserAgent      string
	AcceptLanguage string
	// Referer sent with image downloads; empty means the listing URL.
	Referer string

	NavigationTimeout    time.Duration
	NavigationAttempts   int
	NavigationRetryDelay time.Duration
	SettleDelay          time.Duration
	// AlbumSettleDelay is waited on album pages in addition to SettleDelay.
	AlbumSettleDelay time.Duration
	AlbumDelay       time.Duration
	ImageDelay       time.Duration

	DownloadAttempts int
	DownloadBackoff  time.Duration

	// ImageExtension is appended to positional file names.
	ImageExtension string
	// ImageRefPrefix is the path prefix of references recorded in the raw capture.
	ImageRefPrefix string
}

// DefaultConfig returns settings tuned for the jersey-factory Yupoo store.
func DefaultConfig() Config {
	return Config{
		ListingURL:      "https://jersey-factory.x.yupoo.com/collections/4842543",
		AlbumPathMarker: "/albums/",
		AlbumSelectors: []string{
			`a[href*="/albums/"]`,
			`.album-item a`,
			`.photo-item a`,
			`.album a`,
			`a[href*="yupoo.com/albums"]`,
			`.item a`,
			`a[title]`,
		},
		ImageSelectors: []string{
			`img[src*="photo.yupoo.com"]`,
			`img[data-src*="photo.yupoo.com"]`,
			`img[src*="jersey-factory"]`,
			`img[data-src*="jersey-factory"]`,
			`img[src*="yupooimg.com"]`,
			`img[data-src*="yupooimg.com"]`,
		},
		ImageHosts:           []string{"photo.yupoo.com", "yupooimg.com"},
		ImagePathFragment:    "jersey-factory",
		ImageBlocklist:       []string{"logo", "icon", "website"},
		ThumbnailMarkers:     []string{"_thumb", "_small"},
		MaxAlbums:            120,
		MaxImagesPerAlbum:    5,
		UserAgent:            DefaultUserAgent,
		AcceptLanguage:       "en-US,en;q=0.9",
		NavigationTimeout:    30 * time.Second,
		NavigationAttempts:   3,
		NavigationRetryDelay: 5 * time.Second,
		SettleDelay:          3 * time.Second,
		AlbumSettleDelay:     2 * time.Second,
		AlbumDelay:           2 * time.Second,
		ImageDelay:           time.Second,
		DownloadAttempts:     3,
		DownloadBackoff:      2 * time.Second,
		ImageExtension:       ".png",
		ImageRefPrefix:       "/collections/4842543/images",
	}
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	u, err := url.Parse(c.ListingURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("scraper.listing_url must be an absolute http(s) URL")
	}
	if c.AlbumPathMarker == "" {
		return fmt.Errorf("scraper.album_path_marker must be set")
	}
	if len(c.AlbumSelectors) == 0 {
		return fmt.Errorf("scraper.album_selectors must include at least one selector")
	}
	if len(c.ImageSelectors) == 0 {
		return fmt.Errorf("scraper.image_selectors must include at least one selector")
	}
	if len(c.ImageHosts) == 0 {
		return fmt.Errorf("scraper.image_hosts must include at least one host")
	}
	if c.MaxAlbums <= 0 {
		return fmt.Errorf("scraper.max_albums must be > 0")
	}
	if c.MaxImagesPerAlbum <= 0 {
		return fmt.Errorf("scraper.max_images_per_album must be > 0")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("scraper.user_agent must be set")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("scraper.navigation_timeout must be > 0")
	}
	if c.NavigationAttempts <= 0 {
		return fmt.Errorf("scraper.navigation_attempts must be > 0")
	}
	if c.NavigationRetryDelay < 0 || c.SettleDelay < 0 || c.AlbumSettleDelay < 0 {
		return fmt.Errorf("scraper navigation delays must be >= 0")
	}
	if c.AlbumDelay < 0 || c.ImageDelay < 0 {
		return fmt.Errorf("scraper.album_delay and scraper.image_delay must be >= 0")
	}
	if c.DownloadAttempts <= 0 {
		return fmt.Errorf("download.attempts must be > 0")
	}
	if c.DownloadBackoff < 0 {
		return fmt.Errorf("download.backoff must be >= 0")
	}
	if !strings.HasPrefix(c.ImageExtension, ".") {
		return fmt.Errorf("output.image_extension must start with a dot")
	}
	return nil
}

// ImageReferer returns the Referer header sent with image downloads.
func (c Config) ImageReferer() string {
	if c.Referer != "" {
		return c.Referer
	}
	return c.ListingURL
}

func (c Config) clone() Config {
	out := c
	out.AlbumSelectors = slices.Clone(c.AlbumSelectors)
	out.ImageSelectors = slices.Clone(c.ImageSelectors)
	out.ImageHosts = slices.Clone(c.ImageHosts)
	out.ImageBlocklist = normalizeKeywords(c.ImageBlocklist)
	out.ThumbnailMarkers = slices.Clone(c.ThumbnailMarkers)
	return out
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{})
	for _, kw := range in {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
