// Package supabase provides an image sink backed by Supabase Storage.
package supabase

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	storage_go "github.com/supabase-community/storage-go"

	"github.com/JakeFAU/soccer-vault/internal/sink"
)

// Config names the Supabase project and bucket.
type Config struct {
	URL    string
	Key    string
	Bucket string
	Folder string
}

type storageAPI interface {
	UploadFile(bucketID string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketID string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse
}

// Sink uploads images into a public Supabase bucket.
type Sink struct {
	client storageAPI
	cfg    Config
}

// New builds a Sink talking to the project's storage API.
func New(cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, fmt.Errorf("supabase key is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("supabase bucket is required")
	}
	endpoint := strings.TrimRight(cfg.URL, "/") + "/storage/v1"
	client := storage_go.NewClient(endpoint, cfg.Key, nil)
	return newWithClient(client, cfg), nil
}

func newWithClient(client storageAPI, cfg Config) *Sink {
	return &Sink{client: client, cfg: cfg}
}

// ObjectPath is the bucket path an image is stored under.
func (s *Sink) ObjectPath(localPath, slug string, index int) string {
	return sink.Folder(s.cfg.Folder, slug) + "/" + sink.ObjectName(index) + filepath.Ext(localPath)
}

// Upload stores the file at localPath, replacing any earlier upload at the
// same position, and returns its public URL.
func (s *Sink) Upload(ctx context.Context, localPath, slug string, index int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// #nosec G304 -- localPath is resolved under the configured images directory.
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	objectPath := s.ObjectPath(localPath, slug, index)
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "image/png"
	}
	upsert := true
	if _, err := s.client.UploadFile(s.cfg.Bucket, objectPath, f, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}
	public := s.client.GetPublicUrl(s.cfg.Bucket, objectPath)
	if public.SignedURL == "" {
		return "", fmt.Errorf("no public url for %s", objectPath)
	}
	return public.SignedURL, nil
}
