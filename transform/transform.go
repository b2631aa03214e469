// Package transform turns a decoded source image into a catalog asset, either
// through the standard enhancement chain or the avatar composite.
package transform

import (
	"image"

	"pixforge/canvas"
	"pixforge/catalog"
)

// Apply routes src through the transform selected by cfg.
func Apply(src image.Image, cfg catalog.AssetConfig) image.Image {
	if cfg.AvatarMode {
		return Avatar(src, cfg)
	}
	return Standard(src, cfg)
}

// Standard aspect-fills src to the configured size and applies brightness,
// contrast, saturation, sharpness and tint in that order. Unset parameters are
// skipped. The result is fully opaque.
func Standard(src image.Image, cfg catalog.AssetConfig) *image.NRGBA {
	img := canvas.Fit(src, cfg.Size.Width, cfg.Size.Height)

	e := cfg.Enhancement
	if e.Brightness != nil {
		img = canvas.Brightness(img, *e.Brightness)
	}
	if e.Contrast != nil {
		img = canvas.Contrast(img, *e.Contrast)
	}
	if e.Saturation != nil {
		img = canvas.Saturation(img, *e.Saturation)
	}
	if e.Sharpness != nil {
		img = canvas.Sharpness(img, *e.Sharpness)
	}
	if t := cfg.Tint; t != nil {
		img = canvas.Tint(img, t.R, t.G, t.B)
	}
	return canvas.Opaque(img)
}
