package crawler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ImageRules decide which <img> elements are product photos.
type ImageRules struct {
	Selectors []string
	// Hosts lists CDN hosts; a URL must contain one of them.
	Hosts []string
	// PathFragment must also be present, when set.
	PathFragment string
	Blocklist    []string
	// ThumbnailMarkers are removed to turn a thumbnail URL into the full image.
	ThumbnailMarkers []string
}

// Rules extracts the image rules from cfg.
func (c Config) Rules() ImageRules {
	return ImageRules{
		Selectors:        c.ImageSelectors,
		Hosts:            c.ImageHosts,
		PathFragment:     c.ImagePathFragment,
		Blocklist:        c.ImageBlocklist,
		ThumbnailMarkers: c.ThumbnailMarkers,
	}
}

// ImageExtractor finds product images on album pages.
type ImageExtractor struct {
	client *Client
	logger *zap.Logger
}

// NewImageExtractor builds an ImageExtractor.
func NewImageExtractor(client *Client, logger *zap.Logger) *ImageExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageExtractor{client: client, logger: logger}
}

// ExtractImages opens albumURL and returns its product images in selector
// order, first-seen wins for duplicates. The caller applies the image cap.
func (e *ImageExtractor) ExtractImages(ctx context.Context, albumURL string) ([]ImageCandidate, error) {
	if err := e.client.Navigate(ctx, albumURL); err != nil {
		return nil, fmt.Errorf("open album: %w", err)
	}
	cfg := e.client.Config()
	e.client.Pause(ctx, cfg.AlbumSettleDelay)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	html, err := e.client.Content(ctx)
	if err != nil {
		return nil, err
	}
	images, err := ParseImages(html, albumURL, cfg.Rules())
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Extracted images", zap.String("url", albumURL), zap.Int("images", len(images)))
	return images, nil
}

// ParseImages applies rules to html. For each matched element the src
// attribute is tried before data-src and the first acceptable URL is used.
// Accepted URLs have thumbnail markers removed, protocol-relative URLs get
// https, and relative URLs resolve against pageURL.
func ParseImages(html, pageURL string, rules ImageRules) ([]ImageCandidate, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}
	blocklist := newSubstringBlocklist(rules.Blocklist)
	tracker := newConcurrentVisitTracker()

	images := make([]ImageCandidate, 0)
	for _, selector := range rules.Selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			raw := ""
			for _, attr := range []string{"src", "data-src"} {
				v := strings.TrimSpace(s.AttrOr(attr, ""))
				if v != "" && rules.accepts(v, blocklist) {
					raw = v
					break
				}
			}
			if raw == "" {
				return
			}
			src, err := ResolveReference(pageURL, rules.fullSize(raw))
			if err != nil || !tracker.MarkIfNew(src) {
				return
			}
			images = append(images, ImageCandidate{
				Src:    src,
				Alt:    strings.TrimSpace(s.AttrOr("alt", "")),
				Width:  intAttr(s, "width"),
				Height: intAttr(s, "height"),
			})
		})
	}
	return images, nil
}

func (r ImageRules) accepts(src string, blocklist *substringBlocklist) bool {
	hosted := false
	for _, host := range r.Hosts {
		if strings.Contains(src, host) {
			hosted = true
			break
		}
	}
	if !hosted {
		return false
	}
	if r.PathFragment != "" && !strings.Contains(src, r.PathFragment) {
		return false
	}
	return !blocklist.IsBlocked(src)
}

func (r ImageRules) fullSize(src string) string {
	for _, marker := range r.ThumbnailMarkers {
		if marker != "" {
			src = strings.ReplaceAll(src, marker, "")
		}
	}
	return src
}

func intAttr(s *goquery.Selection, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s.AttrOr(name, "")))
	if err != nil {
		return 0
	}
	return n
}
