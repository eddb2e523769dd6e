package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Photo.Yupoo.com/path", "photo.yupoo.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, albumsProcessedTotal)
	require.NotNil(t, imagesTotal)
	require.NotNil(t, stageDurationSeconds)
}

func TestObservers(t *testing.T) {
	ObserveAlbum("test-status")
	ObserveAlbum("test-status")
	assert.InDelta(t, 2, testutil.ToFloat64(albumsProcessedTotal.WithLabelValues("test-status")), 0)

	ObserveImage("https://photo.yupoo.com/a.jpg", "test-saved", 128)
	assert.InDelta(t, 1, testutil.ToFloat64(imagesTotal.WithLabelValues("test-saved")), 0)
	assert.InDelta(t, 128, testutil.ToFloat64(downloadedBytesTotal.WithLabelValues("photo.yupoo.com")), 0)

	ObserveDownloadAttempt("test-method")
	assert.InDelta(t, 1, testutil.ToFloat64(downloadAttemptsTotal.WithLabelValues("test-method")), 0)

	ObserveProduct("test-skipped", 3)
	assert.InDelta(t, 3, testutil.ToFloat64(productsTotal.WithLabelValues("test-skipped")), 0)

	ObserveStage("test-stage", time.Second)
	assert.Equal(t, 1, testutil.CollectAndCount(stageDurationSeconds, "soccervault_stage_duration_seconds"))
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://photo.yupoo.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
