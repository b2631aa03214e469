package transform

import (
	"image"
	"image/color"
	"math"

	"pixforge/canvas"
	"pixforge/catalog"
)

// Reference measurements of the avatar look, taken at a 512 px canvas and
// scaled linearly for other sizes.
const (
	referenceSize   = 512.0
	circleRatio     = 0.9
	shadowOffsetRef = 8.0
	shadowBlurRef   = 12.0
	ringWidthRef    = 4.0
)

var (
	shadowColor = color.NRGBA{R: 0, G: 0, B: 0, A: 128}
	ringColor   = color.NRGBA{R: 0x00, G: 0xFF, B: 0x88, A: 0xFF}
)

// AvatarGeometry holds the pixel measurements of an avatar of a given size.
type AvatarGeometry struct {
	Width, Height int
	Circle        image.Rectangle // bounding box of the portrait circle
	ShadowOffset  int
	ShadowBlur    float64
	RingWidth     int
}

// NewAvatarGeometry scales the reference measurements to a w x h canvas.
func NewAvatarGeometry(w, h int) AvatarGeometry {
	side := w
	if h < side {
		side = h
	}
	d := int(math.Round(circleRatio * float64(side)))
	x0 := (w - d) / 2
	y0 := (h - d) / 2
	scale := float64(w) / referenceSize
	return AvatarGeometry{
		Width:        w,
		Height:       h,
		Circle:       image.Rect(x0, y0, x0+d, y0+d),
		ShadowOffset: atLeastOne(int(math.Round(shadowOffsetRef * scale))),
		ShadowBlur:   shadowBlurRef * scale,
		RingWidth:    atLeastOne(int(math.Round(ringWidthRef * scale))),
	}
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// Avatar renders src as a circular portrait with an accent ring over a soft
// drop shadow. The result keeps its alpha channel: everything outside the
// circle and its shadow is transparent.
func Avatar(src image.Image, cfg catalog.AssetConfig) *image.NRGBA {
	g := NewAvatarGeometry(cfg.Size.Width, cfg.Size.Height)

	img := canvas.Stretch(src, g.Width, g.Height)
	if s := cfg.Enhancement.Sharpness; s != nil {
		img = canvas.Sharpness(img, *s)
	}

	return canvas.Compose(ShadowLayer(g), SubjectLayer(img, g)).NRGBA()
}

// ShadowLayer draws the blurred circle that sits under the portrait.
func ShadowLayer(g AvatarGeometry) canvas.Layer {
	box := g.Circle.Add(image.Pt(0, g.ShadowOffset))
	return canvas.FilledEllipse(g.Width, g.Height, box, shadowColor).Blur(g.ShadowBlur)
}

// SubjectLayer masks the portrait to the circle and strokes the ring on top.
func SubjectLayer(img image.Image, g AvatarGeometry) canvas.Layer {
	mask := canvas.EllipseMask(g.Width, g.Height, g.Circle)
	return canvas.NewLayer(g.Width, g.Height).
		Paste(img, mask).
		StrokeEllipse(g.Circle, ringColor, float64(g.RingWidth))
}
