// Package cloudinary provides an image sink backed by Cloudinary.
package cloudinary

import (
	"context"
	"fmt"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/JakeFAU/soccer-vault/internal/sink"
)

// Config holds Cloudinary credentials. URL takes precedence over the
// individual fields.
type Config struct {
	URL       string
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Configured reports whether enough credentials are present to upload.
func (c Config) Configured() bool {
	return c.URL != "" || (c.CloudName != "" && c.APIKey != "" && c.APISecret != "")
}

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// Sink uploads images to Cloudinary.
type Sink struct {
	api    uploadAPI
	folder string
}

// New builds a Sink from cfg.
func New(cfg Config) (*Sink, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("cloudinary credentials: %w", sink.ErrNotConfigured)
	}
	var (
		client *cld.Cloudinary
		err    error
	)
	if cfg.URL != "" {
		client, err = cld.NewFromURL(cfg.URL)
	} else {
		client, err = cld.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	}
	if err != nil {
		return nil, fmt.Errorf("create cloudinary client: %w", err)
	}
	return &Sink{api: &client.Upload, folder: cfg.Folder}, nil
}

// Params returns the upload parameters for an image. Re-uploading the same
// position overwrites the earlier asset.
func (s *Sink) Params(slug string, index int) uploader.UploadParams {
	return uploader.UploadParams{
		PublicID:       sink.ObjectName(index),
		Folder:         sink.Folder(s.folder, slug),
		Overwrite:      api.Bool(true),
		UniqueFilename: api.Bool(false),
	}
}

// Upload sends the file at localPath and returns its secure URL.
func (s *Sink) Upload(ctx context.Context, localPath, slug string, index int) (string, error) {
	result, err := s.api.Upload(ctx, localPath, s.Params(slug, index))
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if result == nil {
		return "", fmt.Errorf("cloudinary upload: empty response")
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload: no secure url")
	}
	return result.SecureURL, nil
}
