// Package capture persists the raw crawl snapshot that feeds enrichment.
//
// The file is always written whole: every stage that changes it replaces the
// previous contents atomically, and nothing merges into an existing file.
package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/JakeFAU/soccer-vault/internal/storage/local"
)

var (
	// ErrMissing reports that no raw capture exists at the given path.
	ErrMissing = errors.New("raw capture not found")
	// ErrMalformed reports that the raw capture could not be parsed.
	ErrMalformed = errors.New("raw capture is malformed")
)

// RawAlbum is one crawled album. Each ImageFiles entry is independently a
// local reference or a hosted URL; positions never change after a crawl.
type RawAlbum struct {
	AlbumURL   string   `json:"albumUrl"`
	AlbumTitle string   `json:"albumTitle"`
	ImageFiles []string `json:"imageFiles"`
}

// RawCapture is the persisted snapshot of a crawl.
type RawCapture struct {
	ScrapedAt   time.Time  `json:"scrapedAt"`
	TotalAlbums int        `json:"totalAlbums"`
	Albums      []RawAlbum `json:"albums"`
}

// New builds a capture stamped at scrapedAt with TotalAlbums kept in sync.
func New(scrapedAt time.Time, albums []RawAlbum) RawCapture {
	if albums == nil {
		albums = []RawAlbum{}
	}
	return RawCapture{
		ScrapedAt:   scrapedAt.UTC(),
		TotalAlbums: len(albums),
		Albums:      albums,
	}
}

var remoteRef = regexp.MustCompile(`(?i)^https?://`)

// IsRemote reports whether ref is already a hosted http(s) URL.
func IsRemote(ref string) bool {
	return remoteRef.MatchString(ref)
}

// Load reads and decodes the capture at path.
func Load(path string) (RawCapture, error) {
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawCapture{}, fmt.Errorf("%w at %s: run `soccervault crawl` first", ErrMissing, path)
		}
		return RawCapture{}, fmt.Errorf("read raw capture: %w", err)
	}
	var c RawCapture
	if err := json.Unmarshal(data, &c); err != nil {
		return RawCapture{}, fmt.Errorf("%w (%s): %v; run `soccervault crawl` to regenerate it", ErrMalformed, path, err)
	}
	if c.Albums == nil {
		c.Albums = []RawAlbum{}
	}
	return c, nil
}

// Save replaces the capture at path with c.
func Save(path string, c RawCapture) error {
	c.TotalAlbums = len(c.Albums)
	if c.Albums == nil {
		c.Albums = []RawAlbum{}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal raw capture: %w", err)
	}
	return local.WriteFileAtomic(path, data)
}
