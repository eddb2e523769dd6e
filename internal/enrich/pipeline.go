// Package enrich turns a raw capture into the canonical product catalog.
package enrich

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/soccer-vault/internal/capture"
	"github.com/JakeFAU/soccer-vault/internal/catalog"
	"github.com/JakeFAU/soccer-vault/internal/classify"
)

// Classifier resolves the taxonomy fields of a title.
type Classifier interface {
	Classify(title string) classify.Classification
}

// Seeder derives a deterministic PCG seed from text parts.
type Seeder interface {
	Seed(parts ...string) (uint64, uint64)
}

// Clock stamps the generated catalog.
type Clock interface {
	Now() time.Time
}

// Config holds the fixed product attributes and the randomness namespace.
type Config struct {
	// Seed namespaces every per-product generator; change it to reshuffle prices and flags.
	Seed         string
	Sizes        []string
	Material     string
	DefaultBrand string
	// Source is recorded in the catalog header.
	Source string
}

// DefaultConfig mirrors the storefront's listing defaults.
func DefaultConfig() Config {
	return Config{
		Seed:         "soccer-vault",
		Sizes:        slices.Clone(catalog.DefaultSizes),
		Material:     "100% Recycled Polyester",
		DefaultBrand: "Adidas",
		Source:       "raw capture",
	}
}

// Skip records an album that did not become a product.
type Skip struct {
	Index  int
	Title  string
	Reason string
}

// Report summarizes an enrichment run.
type Report struct {
	Input      int
	Enriched   int
	Skipped    []Skip
	Clubs      []string
	Leagues    []string
	Categories []string
}

// Pipeline classifies albums and synthesizes products.
type Pipeline struct {
	cfg        Config
	classifier Classifier
	seeder     Seeder
	clock      Clock
	logger     *zap.Logger
}

// New builds a Pipeline.
func New(cfg Config, classifier Classifier, seeder Seeder, clock Clock, logger *zap.Logger) (*Pipeline, error) {
	if classifier == nil || seeder == nil || clock == nil {
		return nil, fmt.Errorf("classifier, seeder, and clock are required")
	}
	if len(cfg.Sizes) == 0 {
		cfg.Sizes = slices.Clone(catalog.DefaultSizes)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:        cfg,
		classifier: classifier,
		seeder:     seeder,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Enrich converts every album with a resolvable club into a product. The
// input is not modified, and the returned catalog replaces any prior one.
func (p *Pipeline) Enrich(raw capture.RawCapture) (catalog.Catalog, Report) {
	report := Report{Input: len(raw.Albums)}
	products := make([]catalog.Product, 0, len(raw.Albums))
	used := make(map[string]struct{}, len(raw.Albums))

	for i, album := range raw.Albums {
		cls := p.classifier.Classify(album.AlbumTitle)
		if !cls.HasClub() {
			report.Skipped = append(report.Skipped, Skip{Index: i, Title: album.AlbumTitle, Reason: "no club"})
			p.logger.Warn("Skipped album without club",
				zap.Int("index", i),
				zap.String("album", album.AlbumTitle),
				zap.String("url", album.AlbumURL))
			continue
		}

		product := p.product(i, album, cls)
		product.ID = uniqueID(product.ID, i, used)
		product.DisplayPrice = DisplayPrice(product)
		products = append(products, product)

		report.Enriched++
		report.Clubs = appendDistinct(report.Clubs, product.Club)
		report.Leagues = appendDistinct(report.Leagues, product.League)
		report.Categories = appendDistinct(report.Categories, string(product.Category))
		p.logger.Debug("Enriched album",
			zap.Int("index", i),
			zap.String("id", product.ID),
			zap.String("club", product.Club))
	}

	return catalog.New(p.clock.Now(), p.cfg.Source, products), report
}

func (p *Pipeline) product(i int, album capture.RawAlbum, cls classify.Classification) catalog.Product {
	title := classify.CleanTitle(album.AlbumTitle)
	id := capture.Slugify(title)
	if id == "" {
		id = fmt.Sprintf("product-%d", i+1)
	}
	category := catalog.Category(cls.Category)
	rng := rand.New(rand.NewPCG(p.seeder.Seed(p.cfg.Seed, album.AlbumURL, album.AlbumTitle)))

	price := BasePrice(cls.Club, category, rng)
	description := Description(cls.Club, cls.Category, cls.Season, rng)
	tags := Tags(cls.Club, cls.League, cls.Category, cls.Season)
	images := slices.Clone(album.ImageFiles)
	if images == nil {
		images = []string{}
	}

	return catalog.Product{
		ID:          id,
		Title:       title,
		Club:        cls.Club,
		League:      cls.League,
		Category:    category,
		Season:      cls.Season,
		Price:       price,
		Sizes:       slices.Clone(p.cfg.Sizes),
		Images:      images,
		Description: description,
		Tags:        tags,
		IsNew:       rng.Float64() > 0.7,
		IsOnSale:    rng.Float64() > 0.6,
		InStock:     true,
		Brand:       BrandFromTags(tags, p.cfg.DefaultBrand),
		Material:    p.cfg.Material,
	}
}

// uniqueID suffixes a taken id with the 1-based source index, adding a
// counter in the rare case that suffix is itself taken.
func uniqueID(id string, i int, used map[string]struct{}) string {
	candidate := id
	if _, taken := used[candidate]; taken {
		candidate = fmt.Sprintf("%s-%d", id, i+1)
		for n := 2; ; n++ {
			if _, taken := used[candidate]; !taken {
				break
			}
			candidate = fmt.Sprintf("%s-%d-%d", id, i+1, n)
		}
	}
	used[candidate] = struct{}{}
	return candidate
}

func appendDistinct(list []string, v string) []string {
	if v == "" || slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
