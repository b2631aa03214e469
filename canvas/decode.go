// Package canvas wraps the raster primitives pixforge builds on: decoding,
// geometric fitting, photometric enhancement and immutable RGBA layers.
package canvas

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"pixforge/models"
)

// Open decodes the image at path, honouring EXIF orientation for JPEG input.
// Failures wrap models.ErrDecodeFailure.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrDecodeFailure, path, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s: empty image", models.ErrDecodeFailure, path)
	}
	return img, nil
}
