package canvas

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixforge/models"
)

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	return imaging.New(w, h, c)
}

func TestBrightness(t *testing.T) {
	src := uniform(4, 4, color.NRGBA{100, 150, 200, 255})

	assert.Equal(t, src.Pix, Brightness(src, 1).Pix)
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, Brightness(src, 0).NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{200, 255, 255, 255}, Brightness(src, 2).NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{50, 75, 100, 255}, Brightness(src, 0.5).NRGBAAt(0, 0))
}

func TestContrastMovesAwayFromMean(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{100, 100, 100, 255})
	src.SetNRGBA(1, 0, color.NRGBA{140, 140, 140, 255})

	out := Contrast(src, 2)
	assert.Equal(t, color.NRGBA{80, 80, 80, 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{160, 160, 160, 255}, out.NRGBAAt(1, 0))

	flat := Contrast(src, 0)
	assert.Equal(t, flat.NRGBAAt(0, 0), flat.NRGBAAt(1, 0))
}

func TestSaturationZeroIsGray(t *testing.T) {
	src := uniform(3, 3, color.NRGBA{200, 40, 90, 255})
	out := Saturation(src, 0)
	c := out.NRGBAAt(1, 1)
	assert.Equal(t, c.R, c.G)
	assert.Equal(t, c.G, c.B)
	assert.Equal(t, src.Pix, Saturation(src, 1).Pix)
}

func TestSharpness(t *testing.T) {
	flat := uniform(5, 5, color.NRGBA{90, 120, 30, 255})
	assert.Equal(t, flat.Pix, Sharpness(flat, 2).Pix, "uniform image has nothing to sharpen")

	edge := image.NewNRGBA(image.Rect(0, 0, 6, 1))
	for x := 0; x < 6; x++ {
		v := uint8(50)
		if x >= 3 {
			v = 200
		}
		edge.SetNRGBA(x, 0, color.NRGBA{v, v, v, 255})
	}
	assert.Equal(t, edge.Pix, Sharpness(edge, 1).Pix)

	sharp := Sharpness(edge, 2)
	assert.Less(t, sharp.NRGBAAt(2, 0).R, uint8(50))
	assert.Greater(t, sharp.NRGBAAt(3, 0).R, uint8(200))
}

func TestTintClamps(t *testing.T) {
	src := uniform(2, 2, color.NRGBA{100, 100, 200, 128})
	out := Tint(src, 1, 0.5, 1.5)
	assert.Equal(t, color.NRGBA{100, 50, 255, 128}, out.NRGBAAt(0, 0))
	assert.Equal(t, src.Pix, Tint(src, 1, 1, 1).Pix)
}

func TestOpaque(t *testing.T) {
	src := uniform(2, 2, color.NRGBA{10, 20, 30, 0})
	assert.Equal(t, color.NRGBA{10, 20, 30, 255}, Opaque(src).NRGBAAt(1, 1))
}

func TestChannelMeans(t *testing.T) {
	r, g, b := ChannelMeans(uniform(3, 2, color.NRGBA{10, 20, 30, 255}))
	assert.InDelta(t, 10, r, 0.001)
	assert.InDelta(t, 20, g, 0.001)
	assert.InDelta(t, 30, b, 0.001)
}

func TestEllipseMask(t *testing.T) {
	box := image.Rect(10, 10, 90, 90)
	mask := EllipseMask(100, 100, box)

	assert.Equal(t, uint8(255), mask.AlphaAt(50, 50).A)
	assert.Equal(t, uint8(0), mask.AlphaAt(0, 0).A)
	assert.Equal(t, uint8(0), mask.AlphaAt(12, 12).A, "box corner lies outside the ellipse")
	assert.Equal(t, uint8(0), mask.AlphaAt(95, 50).A)
}

func TestComposeTransparentStaysTransparent(t *testing.T) {
	out := Compose(NewLayer(8, 8), NewLayer(8, 8))
	for _, v := range out.Image().Pix {
		require.Equal(t, uint8(0), v)
	}
}

func TestComposeIsPure(t *testing.T) {
	bottom := LayerFrom(uniform(4, 4, color.NRGBA{255, 0, 0, 255}))
	top := FilledEllipse(4, 4, image.Rect(0, 0, 4, 4), color.NRGBA{0, 0, 255, 255})

	before := bottom.Image()
	out := Compose(bottom, top)

	assert.Equal(t, before.Pix, bottom.Image().Pix)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, bottom.Image().RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, out.Image().RGBAAt(2, 2))
}

func TestComposeBlendsHalfAlpha(t *testing.T) {
	bottom := LayerFrom(uniform(2, 2, color.NRGBA{255, 255, 255, 255}))
	top := LayerFrom(uniform(2, 2, color.NRGBA{0, 0, 0, 128}))

	c := Compose(bottom, top).Image().RGBAAt(0, 0)
	assert.Equal(t, uint8(255), c.A)
	assert.InDelta(t, 127, int(c.R), 2)
}

func TestBlurSpreadsShadow(t *testing.T) {
	box := image.Rect(20, 20, 80, 80)
	shape := FilledEllipse(100, 100, box, color.NRGBA{0, 0, 0, 128})
	require.Equal(t, uint8(0), shape.AlphaAt(18, 50))

	blurred := shape.Blur(4)
	assert.Greater(t, blurred.AlphaAt(18, 50), uint8(0))
	assert.Equal(t, uint8(0), shape.AlphaAt(18, 50), "receiver unchanged")
}

func TestPasteThroughMask(t *testing.T) {
	box := image.Rect(0, 0, 64, 64)
	mask := EllipseMask(64, 64, box)
	red := uniform(64, 64, color.NRGBA{255, 0, 0, 255})

	out := NewLayer(64, 64).Paste(red, mask)
	assert.Equal(t, uint8(255), out.AlphaAt(32, 32))
	assert.Equal(t, uint8(0), out.AlphaAt(0, 0))
}

func TestStrokeEllipseStaysInsideBox(t *testing.T) {
	box := image.Rect(0, 0, 100, 100)
	ring := NewLayer(100, 100).StrokeEllipse(box, color.NRGBA{0, 255, 136, 255}, 4)

	assert.Greater(t, ring.AlphaAt(50, 2), uint8(200))
	assert.Equal(t, uint8(0), ring.AlphaAt(50, 50))
	assert.Equal(t, uint8(0), ring.AlphaAt(50, 10))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, uniform(7, 3, color.NRGBA{1, 2, 3, 255})))
	require.NoError(t, f.Close())

	img, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 7, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())

	bad := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = Open(bad)
	assert.ErrorIs(t, err, models.ErrDecodeFailure)
}

func TestScaleToWidth(t *testing.T) {
	src := uniform(1000, 333, color.NRGBA{0, 0, 0, 255})

	out := ScaleToWidth(src, 400)
	assert.Equal(t, 400, out.Bounds().Dx())
	assert.Equal(t, 133, out.Bounds().Dy())

	same := ScaleToWidth(src, 2000)
	assert.Equal(t, 1000, same.Bounds().Dx())
}

func TestFitAndStretch(t *testing.T) {
	src := uniform(300, 200, color.NRGBA{0, 0, 0, 255})
	assert.Equal(t, image.Rect(0, 0, 120, 120), Fit(src, 120, 120).Bounds())
	assert.Equal(t, image.Rect(0, 0, 50, 80), Stretch(src, 50, 80).Bounds())
}
