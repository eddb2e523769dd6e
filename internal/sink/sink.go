// Package sink moves locally downloaded images to a remote asset store and
// rewrites the raw capture to point at the hosted copies.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned by a sink that has no remote store behind it.
var ErrNotConfigured = errors.New("image sink not configured")

// ImageSink uploads one image and returns its hosted URL.
type ImageSink interface {
	Upload(ctx context.Context, localPath, slug string, index int) (string, error)
}

// Noop keeps every image local.
type Noop struct{}

// Upload always reports ErrNotConfigured.
func (Noop) Upload(context.Context, string, string, int) (string, error) {
	return "", ErrNotConfigured
}

// ObjectName is the remote name of the image at index within an album.
func ObjectName(index int) string {
	return fmt.Sprintf("image%d", index+1)
}

// Folder joins the configured root folder and the album slug.
func Folder(root, slug string) string {
	root = strings.Trim(root, "/")
	if root == "" {
		return slug
	}
	return root + "/" + slug
}
