// Package metrics exposes Prometheus collectors for every pipeline stage.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	albumsDiscoveredTotal   prometheus.Counter
	albumsProcessedTotal    *prometheus.CounterVec
	imagesTotal             *prometheus.CounterVec
	downloadAttemptsTotal   *prometheus.CounterVec
	navigationAttemptsTotal *prometheus.CounterVec
	uploadsTotal            *prometheus.CounterVec
	productsTotal           *prometheus.CounterVec
	stageDurationSeconds    *prometheus.HistogramVec
	rateLimitDelaysSeconds  *prometheus.HistogramVec
	downloadedBytesTotal    *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		albumsDiscoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "soccervault_albums_discovered_total",
				Help: "Total number of album links discovered on listing pages.",
			},
		)

		albumsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soccervault_albums_processed_total",
				Help: "Total number of albums processed, labeled by status.",
			},
			[]string{"status"},
		)

		imagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soccervault_images_total",
				Help: "Total number of images handled by the downloader, labeled by status.",
			},
			[]string{"status"},
		)

		downloadAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soccervault_download_attempts_total",
				Help: "Total number of image download attempts, labeled by method.",
			},
			[]string{"method"},
		)

		navigationAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soccervault_navigation_attempts_total",
				Help: "Total number of page navigations, labeled by status.",
			},
			[]string{"status"},
		)

		uploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soccervault_uploads_total",
				Help: "Total number of image sink uploads, labeled by status.",
			},
			[]string{"status"},
		)

		productsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soccervault_products_total",
				Help: "Total number of albums seen by enrichment, labeled by status.",
			},
			[]string{"status"},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "soccervault_stage_duration_seconds",
				Help:    "Histogram of pipeline stage durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800},
			},
			[]string{"stage"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "soccervault_rate_limit_delays_seconds",
				Help:    "Histogram of upload rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		downloadedBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soccervault_downloaded_bytes_total",
				Help: "Total number of image bytes written, labeled by site.",
			},
			[]string{"site"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAlbumsDiscovered adds n discovered album links.
func ObserveAlbumsDiscovered(n int) {
	Init()
	albumsDiscoveredTotal.Add(float64(n))
}

// ObserveAlbum increments the album counter for the given status.
func ObserveAlbum(status string) {
	Init()
	albumsProcessedTotal.WithLabelValues(status).Inc()
}

// ObserveImage increments the image counter and, for saved images, the byte counter.
func ObserveImage(site, status string, bytesWritten int64) {
	Init()
	imagesTotal.WithLabelValues(status).Inc()
	if bytesWritten > 0 {
		downloadedBytesTotal.WithLabelValues(SanitizeSite(site)).Add(float64(bytesWritten))
	}
}

// ObserveDownloadAttempt increments the attempt counter for a download method.
func ObserveDownloadAttempt(method string) {
	Init()
	downloadAttemptsTotal.WithLabelValues(method).Inc()
}

// ObserveNavigation increments the navigation counter.
func ObserveNavigation(status string) {
	Init()
	navigationAttemptsTotal.WithLabelValues(status).Inc()
}

// ObserveUpload increments the upload counter.
func ObserveUpload(status string) {
	Init()
	uploadsTotal.WithLabelValues(status).Inc()
}

// ObserveProduct increments the enrichment counter.
func ObserveProduct(status string, n int) {
	Init()
	productsTotal.WithLabelValues(status).Add(float64(n))
}

// ObserveStage records how long a pipeline stage ran.
func ObserveStage(stage string, duration time.Duration) {
	Init()
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}
