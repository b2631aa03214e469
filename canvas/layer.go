package canvas

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// Layer is an immutable premultiplied RGBA raster. Every operation returns a
// new Layer and leaves its receiver and arguments untouched.
type Layer struct {
	im *image.RGBA
}

// NewLayer returns a fully transparent w x h layer.
func NewLayer(w, h int) Layer {
	return Layer{im: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// LayerFrom copies img into a new layer anchored at the origin.
func LayerFrom(img image.Image) Layer {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return Layer{im: dst}
}

// Bounds returns the layer rectangle.
func (l Layer) Bounds() image.Rectangle {
	return l.im.Bounds()
}

// Image returns a copy of the layer pixels.
func (l Layer) Image() *image.RGBA {
	return l.clone()
}

// NRGBA returns the layer converted to non-premultiplied form.
func (l Layer) NRGBA() *image.NRGBA {
	return imaging.Clone(l.im)
}

func (l Layer) clone() *image.RGBA {
	out := image.NewRGBA(l.im.Rect)
	copy(out.Pix, l.im.Pix)
	return out
}

// Compose places top over bottom with source-over alpha blending. Both layers
// must share the same bounds; top is clipped to bottom otherwise.
func Compose(bottom, top Layer) Layer {
	return LayerFrom(imaging.Overlay(bottom.im, top.im, image.Pt(0, 0), 1.0))
}

// EllipseMask rasterizes an anti-aliased ellipse inscribed in box onto a
// w x h alpha mask.
func EllipseMask(w, h int, box image.Rectangle) *image.Alpha {
	dc := gg.NewContext(w, h)
	traceEllipse(dc, box, 0)
	dc.SetColor(color.White)
	dc.Fill()
	return dc.AsMask()
}

// FilledEllipse returns a w x h transparent layer holding an ellipse
// inscribed in box, filled with c.
func FilledEllipse(w, h int, box image.Rectangle, c color.Color) Layer {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	dc := gg.NewContextForRGBA(dst)
	traceEllipse(dc, box, 0)
	dc.SetColor(c)
	dc.Fill()
	return Layer{im: dst}
}

// StrokeEllipse draws an ellipse outline of the given width inside box. The
// stroke stays within box.
func (l Layer) StrokeEllipse(box image.Rectangle, c color.Color, width float64) Layer {
	dst := l.clone()
	dc := gg.NewContextForRGBA(dst)
	traceEllipse(dc, box, width/2)
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.Stroke()
	return Layer{im: dst}
}

func traceEllipse(dc *gg.Context, box image.Rectangle, inset float64) {
	rx := float64(box.Dx())/2 - inset
	ry := float64(box.Dy())/2 - inset
	cx := float64(box.Min.X) + float64(box.Dx())/2
	cy := float64(box.Min.Y) + float64(box.Dy())/2
	dc.DrawEllipse(cx, cy, rx, ry)
}

// Blur applies a gaussian blur with the given sigma.
func (l Layer) Blur(sigma float64) Layer {
	if sigma <= 0 {
		return Layer{im: l.clone()}
	}
	return LayerFrom(imaging.Blur(l.im, sigma))
}

// Paste draws src over the layer through mask. src and mask are anchored at
// the layer origin.
func (l Layer) Paste(src image.Image, mask image.Image) Layer {
	dst := l.clone()
	draw.DrawMask(dst, dst.Bounds(), src, src.Bounds().Min, mask, mask.Bounds().Min, draw.Over)
	return Layer{im: dst}
}

// AlphaAt returns the alpha value of the pixel at (x, y).
func (l Layer) AlphaAt(x, y int) uint8 {
	return l.im.RGBAAt(x, y).A
}
