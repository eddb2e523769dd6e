package direct

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSendsHeaders(t *testing.T) {
	t.Parallel()

	seen := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Clone()
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG"))
	}))
	defer srv.Close()

	c := New(Config{UserAgent: "test-agent", Timeout: time.Second})
	body, err := c.Get(context.Background(), srv.URL+"/a.jpg", http.Header{
		"Referer":        {"https://jersey-factory.x.yupoo.com/collections/4842543"},
		"Sec-Fetch-Dest": {"image"},
	})
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(body))
	got := <-seen
	assert.Equal(t, "https://jersey-factory.x.yupoo.com/collections/4842543", got.Get("Referer"))
	assert.Equal(t, "image", got.Get("Sec-Fetch-Dest"))
}

func TestGetRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "hotlinking forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(Config{}).Get(context.Background(), srv.URL, nil)
	require.ErrorContains(t, err, "HTTP 403")
}

func TestGetEnforcesMaxBytes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	_, err := New(Config{MaxBytes: 4}).Get(context.Background(), srv.URL, nil)
	require.ErrorContains(t, err, "exceeds")
}

func TestGetHonorsContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := New(Config{}).Get(ctx, srv.URL, nil)
	require.Error(t, err)
}
