// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/soccer-vault/internal/catalog"
	"github.com/JakeFAU/soccer-vault/internal/clock/system"
	"github.com/JakeFAU/soccer-vault/internal/crawler"
	"github.com/JakeFAU/soccer-vault/internal/enrich"
)

// Sink providers.
const (
	SinkNoop       = "noop"
	SinkGCS        = "gcs"
	SinkSupabase   = "supabase"
	SinkCloudinary = "cloudinary"
)

// Config captures every pipeline knob loaded via Viper.
type Config struct {
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Download DownloadConfig `mapstructure:"download"`
	Output   OutputConfig   `mapstructure:"output"`
	Sink     SinkConfig     `mapstructure:"sink"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ScraperConfig governs listing and album navigation.
type ScraperConfig struct {
	ListingURL           string        `mapstructure:"listing_url"`
	AlbumPathMarker      string        `mapstructure:"album_path_marker"`
	AlbumSelectors       []string      `mapstructure:"album_selectors"`
	ImageSelectors       []string      `mapstructure:"image_selectors"`
	ImageHosts           []string      `mapstructure:"image_hosts"`
	ImagePathFragment    string        `mapstructure:"image_path_fragment"`
	ImageBlocklist       []string      `mapstructure:"image_blocklist"`
	ThumbnailMarkers     []string      `mapstructure:"thumbnail_markers"`
	MaxAlbums            int           `mapstructure:"max_albums"`
	MaxImagesPerAlbum    int           `mapstructure:"max_images_per_album"`
	UserAgent            string        `mapstructure:"user_agent"`
	AcceptLanguage       string        `mapstructure:"accept_language"`
	Referer              string        `mapstructure:"referer"`
	Headless             bool          `mapstructure:"headless"`
	NoSandbox            bool          `mapstructure:"no_sandbox"`
	Browser              bool          `mapstructure:"browser"`
	NavigationTimeout    time.Duration `mapstructure:"navigation_timeout"`
	NavigationAttempts   int           `mapstructure:"navigation_attempts"`
	NavigationRetryDelay time.Duration `mapstructure:"navigation_retry_delay"`
	SettleDelay          time.Duration `mapstructure:"settle_delay"`
	AlbumSettleDelay     time.Duration `mapstructure:"album_settle_delay"`
	AlbumDelay           time.Duration `mapstructure:"album_delay"`
	ImageDelay           time.Duration `mapstructure:"image_delay"`
}

// DownloadConfig controls the per-image retry loop.
type DownloadConfig struct {
	Attempts      int           `mapstructure:"attempts"`
	Backoff       time.Duration `mapstructure:"backoff"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxBytes      int64         `mapstructure:"max_bytes"`
	CaptureWidth  float64       `mapstructure:"capture_width"`
	CaptureHeight float64       `mapstructure:"capture_height"`
}

// OutputConfig sets where artifacts are written.
type OutputConfig struct {
	ImagesDir      string `mapstructure:"images_dir"`
	ImageRefPrefix string `mapstructure:"image_ref_prefix"`
	ImageExtension string `mapstructure:"image_extension"`
	RawCapturePath string `mapstructure:"raw_capture_path"`
	CatalogPath    string `mapstructure:"catalog_path"`
	CatalogFormat  string `mapstructure:"catalog_format"`
}

// SinkConfig selects and configures the remote image store.
type SinkConfig struct {
	Provider         string           `mapstructure:"provider"`
	Attempts         int              `mapstructure:"attempts"`
	Backoff          time.Duration    `mapstructure:"backoff"`
	Folder           string           `mapstructure:"folder"`
	UploadsPerSecond float64          `mapstructure:"uploads_per_second"`
	GCS              GCSConfig        `mapstructure:"gcs"`
	Supabase         SupabaseConfig   `mapstructure:"supabase"`
	Cloudinary       CloudinaryConfig `mapstructure:"cloudinary"`
}

// GCSConfig names the bucket for the gcs sink.
type GCSConfig struct {
	Bucket        string `mapstructure:"bucket"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// SupabaseConfig holds Supabase Storage credentials.
type SupabaseConfig struct {
	URL    string `mapstructure:"url"`
	Key    string `mapstructure:"key"`
	Bucket string `mapstructure:"bucket"`
}

// CloudinaryConfig holds Cloudinary credentials.
type CloudinaryConfig struct {
	URL       string `mapstructure:"url"`
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// Configured reports whether a Cloudinary account is usable.
func (c CloudinaryConfig) Configured() bool {
	return c.URL != "" || (c.CloudName != "" && c.APIKey != "" && c.APISecret != "")
}

// EnrichConfig tunes product generation.
type EnrichConfig struct {
	Seed         string   `mapstructure:"seed"`
	Sizes        []string `mapstructure:"sizes"`
	Material     string   `mapstructure:"material"`
	DefaultBrand string   `mapstructure:"default_brand"`
	// ReferenceTime pins the clock used for season defaults and the catalog
	// timestamp. Empty means wall clock.
	ReferenceTime string `mapstructure:"reference_time"`
}

// CatalogConfig configures optional catalog mirrors.
type CatalogConfig struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	PostgresTable string `mapstructure:"postgres_table"`
}

// MetricsConfig exposes Prometheus metrics over HTTP when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from defaults, an optional file, and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SOCCERVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	sc := crawler.DefaultConfig()
	v.SetDefault("scraper.listing_url", sc.ListingURL)
	v.SetDefault("scraper.album_path_marker", sc.AlbumPathMarker)
	v.SetDefault("scraper.album_selectors", sc.AlbumSelectors)
	v.SetDefault("scraper.image_selectors", sc.ImageSelectors)
	v.SetDefault("scraper.image_hosts", sc.ImageHosts)
	v.SetDefault("scraper.image_path_fragment", sc.ImagePathFragment)
	v.SetDefault("scraper.image_blocklist", sc.ImageBlocklist)
	v.SetDefault("scraper.thumbnail_markers", sc.ThumbnailMarkers)
	v.SetDefault("scraper.max_albums", sc.MaxAlbums)
	v.SetDefault("scraper.max_images_per_album", sc.MaxImagesPerAlbum)
	v.SetDefault("scraper.user_agent", sc.UserAgent)
	v.SetDefault("scraper.accept_language", sc.AcceptLanguage)
	v.SetDefault("scraper.referer", sc.Referer)
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.no_sandbox", false)
	v.SetDefault("scraper.browser", true)
	v.SetDefault("scraper.navigation_timeout", sc.NavigationTimeout)
	v.SetDefault("scraper.navigation_attempts", sc.NavigationAttempts)
	v.SetDefault("scraper.navigation_retry_delay", sc.NavigationRetryDelay)
	v.SetDefault("scraper.settle_delay", sc.SettleDelay)
	v.SetDefault("scraper.album_settle_delay", sc.AlbumSettleDelay)
	v.SetDefault("scraper.album_delay", sc.AlbumDelay)
	v.SetDefault("scraper.image_delay", sc.ImageDelay)
	v.SetDefault("download.attempts", sc.DownloadAttempts)
	v.SetDefault("download.backoff", sc.DownloadBackoff)
	v.SetDefault("download.timeout", 30*time.Second)
	v.SetDefault("download.max_bytes", 20<<20)
	v.SetDefault("download.capture_width", 800)
	v.SetDefault("download.capture_height", 600)
	v.SetDefault("output.images_dir", "public/images")
	v.SetDefault("output.image_ref_prefix", sc.ImageRefPrefix)
	v.SetDefault("output.image_extension", sc.ImageExtension)
	v.SetDefault("output.raw_capture_path", "data/raw.json")
	v.SetDefault("output.catalog_path", "src/data/products.ts")
	v.SetDefault("output.catalog_format", string(catalog.FormatTypeScript))
	v.SetDefault("sink.provider", "")
	v.SetDefault("sink.attempts", 3)
	v.SetDefault("sink.backoff", time.Second)
	v.SetDefault("sink.folder", "soccer-jerseys")
	v.SetDefault("sink.uploads_per_second", 2)
	v.SetDefault("sink.gcs.bucket", "")
	v.SetDefault("sink.gcs.public_base_url", "")
	v.SetDefault("sink.supabase.url", "")
	v.SetDefault("sink.supabase.key", "")
	v.SetDefault("sink.supabase.bucket", "")
	ec := enrich.DefaultConfig()
	v.SetDefault("enrich.seed", ec.Seed)
	v.SetDefault("enrich.sizes", ec.Sizes)
	v.SetDefault("enrich.material", ec.Material)
	v.SetDefault("enrich.default_brand", ec.DefaultBrand)
	v.SetDefault("enrich.reference_time", "")
	v.SetDefault("catalog.postgres_dsn", "")
	v.SetDefault("catalog.postgres_table", "products")
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("logging.development", true)
}

// bindLegacyEnv accepts the unprefixed Cloudinary variables the storefront
// deployment already exports.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"sink.cloudinary.url":        "CLOUDINARY_URL",
		"sink.cloudinary.cloud_name": "CLOUDINARY_CLOUD_NAME",
		"sink.cloudinary.api_key":    "CLOUDINARY_API_KEY",
		"sink.cloudinary.api_secret": "CLOUDINARY_API_SECRET",
	}
	for key, legacy := range bindings {
		prefixed := "SOCCERVAULT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// SinkProvider resolves the effective provider. An empty provider selects
// Cloudinary when its credentials are present and noop otherwise.
func (c Config) SinkProvider() string {
	p := strings.ToLower(strings.TrimSpace(c.Sink.Provider))
	if p != "" {
		return p
	}
	if c.Sink.Cloudinary.Configured() {
		return SinkCloudinary
	}
	return SinkNoop
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := c.CrawlerConfig().Validate(); err != nil {
		return err
	}
	if c.Download.Timeout <= 0 {
		return fmt.Errorf("download.timeout must be > 0")
	}
	if c.Download.CaptureWidth <= 0 || c.Download.CaptureHeight <= 0 {
		return fmt.Errorf("download.capture_width and download.capture_height must be > 0")
	}
	if strings.TrimSpace(c.Output.ImagesDir) == "" {
		return fmt.Errorf("output.images_dir is required")
	}
	if strings.TrimSpace(c.Output.RawCapturePath) == "" {
		return fmt.Errorf("output.raw_capture_path is required")
	}
	if strings.TrimSpace(c.Output.CatalogPath) == "" {
		return fmt.Errorf("output.catalog_path is required")
	}
	if _, err := catalog.ParseFormat(c.Output.CatalogFormat); err != nil {
		return fmt.Errorf("output.catalog_format: %w", err)
	}
	if err := c.validateSink(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Enrich.Seed) == "" {
		return fmt.Errorf("enrich.seed is required")
	}
	if len(c.Enrich.Sizes) == 0 {
		return fmt.Errorf("enrich.sizes must list at least one size")
	}
	if c.Enrich.ReferenceTime != "" {
		if _, err := system.ParseReference(c.Enrich.ReferenceTime); err != nil {
			return fmt.Errorf("enrich.reference_time: %w", err)
		}
	}
	if c.Catalog.PostgresDSN != "" && strings.TrimSpace(c.Catalog.PostgresTable) == "" {
		return fmt.Errorf("catalog.postgres_table must be set when catalog.postgres_dsn is set")
	}
	return nil
}

func (c Config) validateSink() error {
	if c.Sink.Attempts <= 0 {
		return fmt.Errorf("sink.attempts must be > 0")
	}
	if c.Sink.Backoff < 0 {
		return fmt.Errorf("sink.backoff must be >= 0")
	}
	if c.Sink.UploadsPerSecond < 0 {
		return fmt.Errorf("sink.uploads_per_second must be >= 0")
	}
	switch c.SinkProvider() {
	case SinkNoop:
	case SinkGCS:
		if c.Sink.GCS.Bucket == "" {
			return fmt.Errorf("sink.gcs.bucket is required for the gcs sink")
		}
	case SinkSupabase:
		s := c.Sink.Supabase
		if s.URL == "" || s.Key == "" || s.Bucket == "" {
			return fmt.Errorf("sink.supabase.url, sink.supabase.key and sink.supabase.bucket are required for the supabase sink")
		}
	case SinkCloudinary:
		if !c.Sink.Cloudinary.Configured() {
			return fmt.Errorf("sink.cloudinary.url or cloud_name/api_key/api_secret are required for the cloudinary sink")
		}
	default:
		return fmt.Errorf("sink.provider %q is not one of noop, gcs, supabase, cloudinary", c.Sink.Provider)
	}
	return nil
}

// CrawlerConfig projects the scraper and download sections onto the crawler.
func (c Config) CrawlerConfig() crawler.Config {
	s := c.Scraper
	return crawler.Config{
		ListingURL:           s.ListingURL,
		AlbumPathMarker:      s.AlbumPathMarker,
		AlbumSelectors:       s.AlbumSelectors,
		ImageSelectors:       s.ImageSelectors,
		ImageHosts:           s.ImageHosts,
		ImagePathFragment:    s.ImagePathFragment,
		ImageBlocklist:       s.ImageBlocklist,
		ThumbnailMarkers:     s.ThumbnailMarkers,
		MaxAlbums:            s.MaxAlbums,
		MaxImagesPerAlbum:    s.MaxImagesPerAlbum,
		UserAgent:            s.UserAgent,
		AcceptLanguage:       s.AcceptLanguage,
		Referer:              s.Referer,
		NavigationTimeout:    s.NavigationTimeout,
		NavigationAttempts:   s.NavigationAttempts,
		NavigationRetryDelay: s.NavigationRetryDelay,
		SettleDelay:          s.SettleDelay,
		AlbumSettleDelay:     s.AlbumSettleDelay,
		AlbumDelay:           s.AlbumDelay,
		ImageDelay:           s.ImageDelay,
		DownloadAttempts:     c.Download.Attempts,
		DownloadBackoff:      c.Download.Backoff,
		ImageExtension:       c.Output.ImageExtension,
		ImageRefPrefix:       c.Output.ImageRefPrefix,
	}
}

// EnrichConfig projects the enrich section onto the pipeline config.
func (c Config) EnrichConfig() enrich.Config {
	ec := enrich.DefaultConfig()
	ec.Seed = c.Enrich.Seed
	if len(c.Enrich.Sizes) > 0 {
		ec.Sizes = c.Enrich.Sizes
	}
	if c.Enrich.Material != "" {
		ec.Material = c.Enrich.Material
	}
	if c.Enrich.DefaultBrand != "" {
		ec.DefaultBrand = c.Enrich.DefaultBrand
	}
	ec.Source = c.Output.RawCapturePath
	return ec
}
