package transcoder

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// DefaultThumbnailQuality is the JPEG quality of normalized thumbnails.
const DefaultThumbnailQuality = 85

// NormalizeThumbnail rewrites the image at path as a JPEG no wider than
// maxWidth, keeping the aspect ratio. Narrower images are re-encoded as is.
func NormalizeThumbnail(path string, maxWidth int) error {
	img, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("open thumbnail: %w", err)
	}

	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	if err := imaging.Save(img, path, imaging.JPEGQuality(DefaultThumbnailQuality)); err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}
	return nil
}
