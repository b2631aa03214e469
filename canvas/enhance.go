package canvas

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// smoothKernel is the 3x3 smoothing filter whose output the sharpness
// operator extrapolates away from.
var smoothKernel = [9]float64{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}

// luma is the ITU-R 601-2 luminance of an RGB triple, rounded.
func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// mix moves px away from (factor > 1) or towards (factor < 1) the degenerate value.
func mix(degenerate, px uint8, factor float64) uint8 {
	d := float64(degenerate)
	return clamp8(d + factor*(float64(px)-d))
}

// Brightness scales every color channel by factor. 0 yields black.
func Brightness(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: mix(0, c.R, factor), G: mix(0, c.G, factor), B: mix(0, c.B, factor), A: c.A}
	})
}

// Contrast scales every channel's distance from the image's mean luminance.
func Contrast(img image.Image, factor float64) *image.NRGBA {
	mean := meanLuma(img)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: mix(mean, c.R, factor), G: mix(mean, c.G, factor), B: mix(mean, c.B, factor), A: c.A}
	})
}

// Saturation scales every pixel's distance from its own gray value. 0 yields grayscale.
func Saturation(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		l := luma(c.R, c.G, c.B)
		return color.NRGBA{R: mix(l, c.R, factor), G: mix(l, c.G, factor), B: mix(l, c.B, factor), A: c.A}
	})
}

// Sharpness extrapolates between a smoothed copy and the original. 1 is the
// identity, values above 1 sharpen, values below 1 soften.
func Sharpness(img image.Image, factor float64) *image.NRGBA {
	src := imaging.Clone(img)
	if factor == 1 {
		return src
	}
	smooth := imaging.Convolve3x3(src, smoothKernel, &imaging.ConvolveOptions{Normalize: true})

	out := image.NewNRGBA(src.Rect)
	for i := 0; i+3 < len(src.Pix); i += 4 {
		out.Pix[i+0] = mix(smooth.Pix[i+0], src.Pix[i+0], factor)
		out.Pix[i+1] = mix(smooth.Pix[i+1], src.Pix[i+1], factor)
		out.Pix[i+2] = mix(smooth.Pix[i+2], src.Pix[i+2], factor)
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out
}

// Tint multiplies R, G and B by independent factors, clamping to 0..255.
func Tint(img image.Image, r, g, b float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clamp8(float64(c.R) * r),
			G: clamp8(float64(c.G) * g),
			B: clamp8(float64(c.B) * b),
			A: c.A,
		}
	})
}

// Opaque drops the alpha channel by forcing every pixel fully opaque.
func Opaque(img image.Image) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.A = 0xff
		return c
	})
}

func meanLuma(img image.Image) uint8 {
	src := imaging.Clone(img)
	n := len(src.Pix) / 4
	if n == 0 {
		return 0
	}
	var sum uint64
	for i := 0; i+3 < len(src.Pix); i += 4 {
		sum += uint64(luma(src.Pix[i], src.Pix[i+1], src.Pix[i+2]))
	}
	return clamp8(float64(sum) / float64(n))
}

// ChannelMeans returns the average R, G and B values of img.
func ChannelMeans(img image.Image) (r, g, b float64) {
	src := imaging.Clone(img)
	n := float64(len(src.Pix) / 4)
	if n == 0 {
		return 0, 0, 0
	}
	for i := 0; i+3 < len(src.Pix); i += 4 {
		r += float64(src.Pix[i])
		g += float64(src.Pix[i+1])
		b += float64(src.Pix[i+2])
	}
	return r / n, g / n, b / n
}
