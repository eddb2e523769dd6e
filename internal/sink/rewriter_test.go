package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/soccer-vault/internal/capture"
	"github.com/JakeFAU/soccer-vault/internal/crawler/crawlertest"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Upload(ctx context.Context, localPath, slug string, index int) (string, error) {
	args := m.Called(ctx, localPath, slug, index)
	return args.String(0), args.Error(1)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var (
	crawledAt   = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	rewrittenAt = time.Date(2025, 5, 2, 9, 30, 0, 0, time.UTC)
)

const refPrefix = "/collections/4842543/images"

func writeImage(t *testing.T, dir, slug, name string) string {
	t.Helper()
	path := filepath.Join(dir, slug, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))
	return path
}

func newRewriter(t *testing.T, s ImageSink, dir string) (*Rewriter, *crawlertest.Pauser) {
	t.Helper()
	pauser := &crawlertest.Pauser{}
	r, err := NewRewriter(s, Config{ImagesDir: dir, Provider: "test"}, pauser, fixedClock{now: rewrittenAt}, nil)
	require.NoError(t, err)
	return r, pauser
}

func TestRewriteReplacesLocalReferences(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeImage(t, dir, "arsenal-home", "image1.png")

	raw := capture.New(crawledAt, []capture.RawAlbum{{
		AlbumURL:   "https://example.x.yupoo.com/albums/1",
		AlbumTitle: "Arsenal Home",
		ImageFiles: []string{
			capture.ImageRef(refPrefix, "arsenal-home", "image1.png"),
			"https://cdn.example.com/arsenal-home/image2.png",
			capture.ImageRef(refPrefix, "arsenal-home", "image3.png"),
		},
	}})

	s := &MockSink{}
	s.On("Upload", mock.Anything, first, "arsenal-home", 0).Return("https://cdn.example.com/arsenal-home/image1.png", nil).Once()

	r, pauser := newRewriter(t, s, dir)
	summary, err := r.Rewrite(context.Background(), &raw)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://cdn.example.com/arsenal-home/image1.png",
		"https://cdn.example.com/arsenal-home/image2.png",
		"/collections/4842543/images/arsenal-home/image3.png",
	}, raw.Albums[0].ImageFiles)
	assert.Equal(t, 1, summary.Albums)
	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 1, summary.Remote)
	assert.Equal(t, 1, summary.Missing)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, rewrittenAt, raw.ScrapedAt)
	assert.Equal(t, 1, raw.TotalAlbums)
	assert.Empty(t, pauser.Delays())
	s.AssertExpectations(t)
}

func TestRewriteRetriesWithLinearBackoff(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeImage(t, dir, "chelsea-away", "image1.png")
	raw := capture.New(crawledAt, []capture.RawAlbum{{
		AlbumTitle: "Chelsea Away",
		ImageFiles: []string{capture.ImageRef(refPrefix, "chelsea-away", "image1.png")},
	}})

	s := &MockSink{}
	s.On("Upload", mock.Anything, path, "chelsea-away", 0).Return("", errors.New("503")).Once()
	s.On("Upload", mock.Anything, path, "chelsea-away", 0).Return("", nil).Once()
	s.On("Upload", mock.Anything, path, "chelsea-away", 0).Return("https://cdn.example.com/c.png", nil).Once()

	r, pauser := newRewriter(t, s, dir)
	summary, err := r.Rewrite(context.Background(), &raw)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/c.png", raw.Albums[0].ImageFiles[0])
	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, pauser.Delays())
	s.AssertExpectations(t)
}

func TestRewriteKeepsReferenceAfterPermanentFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeImage(t, dir, "chelsea-away", "image1.png")
	ref := capture.ImageRef(refPrefix, "chelsea-away", "image1.png")
	raw := capture.New(crawledAt, []capture.RawAlbum{{AlbumTitle: "Chelsea Away", ImageFiles: []string{ref}}})

	s := &MockSink{}
	s.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Times(3)

	r, pauser := newRewriter(t, s, dir)
	summary, err := r.Rewrite(context.Background(), &raw)
	require.NoError(t, err)

	assert.Equal(t, ref, raw.Albums[0].ImageFiles[0])
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, pauser.Delays())
	s.AssertExpectations(t)
}

func TestRewriteIsIdempotentOnHostedCapture(t *testing.T) {
	t.Parallel()

	raw := capture.New(crawledAt, []capture.RawAlbum{{
		AlbumTitle: "Arsenal Home",
		ImageFiles: []string{"HTTPS://cdn.example.com/a.png", "http://cdn.example.com/b.png"},
	}})
	s := &MockSink{}
	r, _ := newRewriter(t, s, t.TempDir())

	summary, err := r.Rewrite(context.Background(), &raw)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Remote)
	s.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRewriteWithoutSink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeImage(t, dir, "arsenal-home", "image1.png")
	raw := capture.New(crawledAt, []capture.RawAlbum{{
		AlbumTitle: "Arsenal Home",
		ImageFiles: []string{capture.ImageRef(refPrefix, "arsenal-home", "image1.png")},
	}})

	r, pauser := newRewriter(t, Noop{}, dir)
	_, err := r.Rewrite(context.Background(), &raw)
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, pauser.Delays())
	assert.Equal(t, crawledAt, raw.ScrapedAt)
}

func TestRewriteCanceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeImage(t, dir, "arsenal-home", "image1.png")
	raw := capture.New(crawledAt, []capture.RawAlbum{{
		AlbumTitle: "Arsenal Home",
		ImageFiles: []string{capture.ImageRef(refPrefix, "arsenal-home", "image1.png")},
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ := newRewriter(t, &MockSink{}, dir)
	_, err := r.Rewrite(ctx, &raw)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewRewriterValidation(t *testing.T) {
	t.Parallel()

	clock := fixedClock{now: rewrittenAt}
	_, err := NewRewriter(nil, Config{ImagesDir: "x"}, nil, clock, nil)
	require.Error(t, err)
	_, err = NewRewriter(Noop{}, Config{ImagesDir: "x"}, nil, nil, nil)
	require.Error(t, err)
	_, err = NewRewriter(Noop{}, Config{}, nil, clock, nil)
	require.Error(t, err)
	_, err = NewRewriter(Noop{}, Config{ImagesDir: "x", Backoff: -time.Second}, nil, clock, nil)
	require.Error(t, err)

	r, err := NewRewriter(Noop{}, Config{ImagesDir: "x"}, nil, clock, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, r.cfg.Attempts)
	assert.Equal(t, time.Second, r.cfg.Backoff)
}

func TestNamingHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image1", ObjectName(0))
	assert.Equal(t, "image12", ObjectName(11))
	assert.Equal(t, "soccer-jerseys/arsenal-home", Folder("/soccer-jerseys/", "arsenal-home"))
	assert.Equal(t, "arsenal-home", Folder("", "arsenal-home"))
}
