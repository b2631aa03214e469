package canvas

import (
	"image"

	"github.com/disintegration/imaging"
)

// Fit crops the longer dimension around the center and scales the result to
// exactly width x height without distortion.
func Fit(img image.Image, width, height int) *image.NRGBA {
	return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
}

// Stretch scales img to exactly width x height, ignoring the aspect ratio.
func Stretch(img image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// ScaleToWidth downscales img proportionally so its width is at most maxWidth.
// Images already narrow enough are returned unchanged; nothing is upscaled.
func ScaleToWidth(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	height := int(float64(b.Dy()) * float64(maxWidth) / float64(b.Dx()))
	if height < 1 {
		height = 1
	}
	return imaging.Resize(img, maxWidth, height, imaging.Lanczos)
}
