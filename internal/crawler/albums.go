package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/metrics"
)

// AlbumCrawler discovers album links on a listing page.
type AlbumCrawler struct {
	client *Client
	logger *zap.Logger
}

// NewAlbumCrawler builds an AlbumCrawler.
func NewAlbumCrawler(client *Client, logger *zap.Logger) *AlbumCrawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlbumCrawler{client: client, logger: logger}
}

// DiscoverAlbums opens listingURL and returns its album links in discovery
// order. A page where no selector matches yields an empty slice, not an error.
// The caller applies the album cap.
func (a *AlbumCrawler) DiscoverAlbums(ctx context.Context, listingURL string) ([]AlbumLink, error) {
	if err := a.client.Navigate(ctx, listingURL); err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}
	html, err := a.client.Content(ctx)
	if err != nil {
		return nil, err
	}
	cfg := a.client.Config()
	links, err := ParseAlbums(html, listingURL, cfg.AlbumSelectors, cfg.AlbumPathMarker)
	if err != nil {
		return nil, err
	}
	metrics.ObserveAlbumsDiscovered(len(links))
	a.logger.Info("Discovered albums", zap.String("url", listingURL), zap.Int("albums", len(links)))
	return links, nil
}

// ParseAlbums applies selectors in order to html and unions the matches.
// A link is kept when its href contains pathMarker and it carries a title
// (the title attribute, else its text). Relative hrefs resolve against the
// origin of pageURL; duplicates are dropped by normalized URL, first wins.
func ParseAlbums(html, pageURL string, selectors []string, pathMarker string) ([]AlbumLink, error) {
	origin, err := Origin(pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	tracker := newConcurrentVisitTracker()
	links := make([]AlbumLink, 0)
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			href := strings.TrimSpace(s.AttrOr("href", ""))
			if href == "" || !strings.Contains(href, pathMarker) {
				return
			}
			title := collapseSpace(s.AttrOr("title", ""))
			if title == "" {
				title = collapseSpace(s.Text())
			}
			if title == "" {
				return
			}
			abs, err := ResolveReference(origin, href)
			if err != nil {
				return
			}
			normalized, err := NormalizeURL(abs)
			if err != nil || !tracker.MarkIfNew(normalized) {
				return
			}
			links = append(links, AlbumLink{Href: normalized, Title: title})
		})
	}
	return links, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
