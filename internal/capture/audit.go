package capture

import (
	"errors"
	"os"
)

// AuditReport summarizes how far a capture has progressed through upload.
type AuditReport struct {
	Albums     int
	Images     int
	LocalRefs  int
	RemoteRefs int
	// Missing lists local references whose file does not exist.
	Missing []string
}

// Audit inspects every image reference in c against imagesDir.
func Audit(c RawCapture, imagesDir string) AuditReport {
	report := AuditReport{Albums: len(c.Albums)}
	for _, album := range c.Albums {
		slug := album.Slug()
		for _, ref := range album.ImageFiles {
			report.Images++
			if IsRemote(ref) {
				report.RemoteRefs++
				continue
			}
			report.LocalRefs++
			if _, err := os.Stat(LocalPath(imagesDir, slug, ref)); errors.Is(err, os.ErrNotExist) {
				report.Missing = append(report.Missing, ref)
			}
		}
	}
	return report
}
