package report

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/DukeRupert/walkthrough/internal/domain"
)

// Photos are embedded as JPEG no larger than this in either dimension.
const (
	maxPhotoPixels   = 800
	photoJPEGQuality = 80
)

// preparePhoto decodes a photo data URL and re-encodes it as a downscaled
// JPEG suitable for embedding. It returns the JPEG bytes and the
// dimensions of the result.
func preparePhoto(p domain.Photo) ([]byte, int, int, error) {
	data, _, err := p.Decode()
	if err != nil {
		return nil, 0, 0, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	scaled := imaging.Fit(img, maxPhotoPixels, maxPhotoPixels, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, imaging.JPEG, imaging.JPEGQuality(photoJPEGQuality)); err != nil {
		return nil, 0, 0, fmt.Errorf("encode image: %w", err)
	}

	b := scaled.Bounds()
	return buf.Bytes(), b.Dx(), b.Dy(), nil
}
