// Package gcs provides an image sink backed by Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/soccer-vault/internal/sink"
)

// Config captures the parameters required to upload to GCS.
type Config struct {
	Bucket string
	Folder string
	// PublicBaseURL prefixes object names in returned URLs.
	PublicBaseURL string
}

// Sink uploads images to a configured GCS bucket.
type Sink struct {
	client *storage.Client
	cfg    Config
}

// New creates a GCS-backed sink.
func New(client *storage.Client, cfg Config) (*Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "https://storage.googleapis.com/" + cfg.Bucket
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Sink{client: client, cfg: cfg}, nil
}

// ObjectPath is the object name an image is stored under. Uploads to the
// same position overwrite the previous object.
func (s *Sink) ObjectPath(localPath, slug string, index int) string {
	return sink.Folder(s.cfg.Folder, slug) + "/" + sink.ObjectName(index) + filepath.Ext(localPath)
}

// Upload copies the file at localPath to the bucket and returns its public URL.
func (s *Sink) Upload(ctx context.Context, localPath, slug string, index int) (string, error) {
	// #nosec G304 -- localPath is resolved under the configured images directory.
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read image: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind image: %w", err)
	}

	object := s.ObjectPath(localPath, slug, index)
	writer := s.client.Bucket(s.cfg.Bucket).Object(object).NewWriter(ctx)
	writer.ContentType = http.DetectContentType(head[:n])
	if _, err := io.Copy(writer, f); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return s.cfg.PublicBaseURL + "/" + object, nil
}
