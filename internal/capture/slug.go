package capture

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/JakeFAU/soccer-vault/internal/hash/sha256"
)

var (
	slugInvalid    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces     = regexp.MustCompile(`\s+`)
	slugDashes     = regexp.MustCompile(`-+`)
	fallbackHasher = sha256.New()
)

// Slugify lower-cases text, drops everything but ASCII letters, digits,
// whitespace, and dashes, then joins words with single dashes.
// It returns "" when nothing survives.
func Slugify(text string) string {
	s := strings.ToLower(text)
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// AlbumSlug names the image directory of an album. Titles with no usable
// characters fall back to a name derived from the album URL, so reruns
// land in the same directory.
func AlbumSlug(title, albumURL string) string {
	if s := Slugify(title); s != "" {
		return s
	}
	return "album-" + fallbackHasher.Short(albumURL, 10)
}

// Slug returns the image directory name of the album.
func (a RawAlbum) Slug() string {
	return AlbumSlug(a.AlbumTitle, a.AlbumURL)
}

// ImageRef builds the recorded reference for an image file.
func ImageRef(prefix, slug, filename string) string {
	return path.Join("/", strings.Trim(prefix, "/"), slug, filename)
}

// LocalPath resolves a recorded reference to its file under imagesDir.
func LocalPath(imagesDir, slug, ref string) string {
	return filepath.Join(imagesDir, slug, path.Base(ref))
}
