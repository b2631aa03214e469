package transform

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixforge/canvas"
	"pixforge/catalog"
)

func noise(w, h int, seed int64) *image.NRGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(r.Intn(256))
		img.Pix[i+1] = uint8(r.Intn(256))
		img.Pix[i+2] = uint8(r.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

func TestStandardExactSize(t *testing.T) {
	cases := []struct {
		srcW, srcH, w, h int
	}{
		{300, 200, 240, 180},
		{200, 300, 240, 180},
		{100, 100, 280, 120},
		{640, 480, 64, 64},
	}
	for _, tc := range cases {
		cfg := catalog.AssetConfig{TargetName: "x", Size: catalog.Size{Width: tc.w, Height: tc.h}}
		out := Standard(noise(tc.srcW, tc.srcH, 1), cfg)
		assert.Equal(t, image.Rect(0, 0, tc.w, tc.h), out.Bounds())
	}
}

func TestStandardIsOpaque(t *testing.T) {
	src := imaging.New(50, 50, color.NRGBA{200, 10, 10, 40})
	cfg := catalog.AssetConfig{Size: catalog.Size{Width: 20, Height: 20}}
	out := Standard(src, cfg)
	for i := 3; i < len(out.Pix); i += 4 {
		require.Equal(t, uint8(255), out.Pix[i])
	}
}

func TestIdentityTintIsNoop(t *testing.T) {
	src := noise(120, 90, 2)
	base := catalog.AssetConfig{
		Size:        catalog.Size{Width: 60, Height: 45},
		Enhancement: catalog.Enhancement{Contrast: catalog.Float(1.1)},
	}
	identity := catalog.IdentityTint
	tinted := base
	tinted.Tint = &identity

	plain := Standard(src, base)
	assert.Equal(t, plain.Pix, Standard(src, tinted).Pix)
	assert.Equal(t, plain.Pix, canvas.Tint(plain, identity.R, identity.G, identity.B).Pix)
}

func TestIdentityEnhancementsAreNoop(t *testing.T) {
	src := noise(80, 80, 3)
	plain := catalog.AssetConfig{Size: catalog.Size{Width: 40, Height: 40}}
	ones := plain
	ones.Enhancement = catalog.Enhancement{
		Brightness: catalog.Float(1),
		Contrast:   catalog.Float(1),
		Saturation: catalog.Float(1),
		Sharpness:  catalog.Float(1),
	}
	assert.Equal(t, Standard(src, plain).Pix, Standard(src, ones).Pix)
}

func TestBlueTintRaisesBlue(t *testing.T) {
	src := noise(300, 200, 4)
	control := catalog.AssetConfig{
		Size: catalog.Size{Width: 240, Height: 180},
		Enhancement: catalog.Enhancement{
			Brightness: catalog.Float(0.9),
			Contrast:   catalog.Float(1.2),
			Saturation: catalog.Float(0.75),
		},
	}
	tinted := control
	tinted.Tint = &catalog.Tint{R: 0.95, G: 1.0, B: 1.05}

	_, _, blueControl := canvas.ChannelMeans(Standard(src, control))
	r, _, blueTinted := canvas.ChannelMeans(Standard(src, tinted))
	rControl, _, _ := canvas.ChannelMeans(Standard(src, control))

	assert.GreaterOrEqual(t, blueTinted, blueControl)
	assert.Less(t, r, rControl)
}

func TestAvatarGeometry(t *testing.T) {
	g := NewAvatarGeometry(512, 512)
	assert.Equal(t, image.Rect(25, 25, 486, 486), g.Circle)
	assert.Equal(t, 8, g.ShadowOffset)
	assert.Equal(t, 4, g.RingWidth)
	assert.InDelta(t, 12, g.ShadowBlur, 1e-9)

	small := NewAvatarGeometry(32, 32)
	assert.Equal(t, 1, small.ShadowOffset)
	assert.Equal(t, 1, small.RingWidth)
	assert.Equal(t, 29, small.Circle.Dx())
}

func TestAvatarAlpha(t *testing.T) {
	cfg := catalog.AssetConfig{
		TargetName:  "avatar",
		Size:        catalog.Size{Width: 512, Height: 512},
		AvatarMode:  true,
		Enhancement: catalog.Enhancement{Sharpness: catalog.Float(1.2)},
	}
	out := Avatar(noise(800, 800, 5), cfg)

	require.Equal(t, image.Rect(0, 0, 512, 512), out.Bounds())
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(511, 0).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 511).A)
	assert.Equal(t, uint8(255), out.NRGBAAt(256, 256).A)
}

func TestSmallAvatarCornersTransparent(t *testing.T) {
	for _, w := range []int{catalog.MinAvatarSize, 20, 24, 33, 48} {
		cfg := catalog.AssetConfig{Size: catalog.Size{Width: w, Height: w}, AvatarMode: true}
		out := Avatar(noise(3*w, 3*w, int64(w)), cfg)
		last := w - 1
		for _, p := range []image.Point{{0, 0}, {last, 0}, {0, last}, {last, last}} {
			assert.Equal(t, uint8(0), out.NRGBAAt(p.X, p.Y).A, "w=%d corner %v", w, p)
		}
		assert.Equal(t, uint8(255), out.NRGBAAt(w/2, w/2).A, "w=%d center", w)
	}
}

func TestAvatarRingColor(t *testing.T) {
	cfg := catalog.AssetConfig{Size: catalog.Size{Width: 512, Height: 512}, AvatarMode: true}
	out := Avatar(imaging.New(600, 600, color.NRGBA{0, 0, 0, 255}), cfg)

	g := NewAvatarGeometry(512, 512)
	top := out.NRGBAAt(256, g.Circle.Min.Y+g.RingWidth/2)
	assert.Equal(t, uint8(255), top.A)
	assert.Greater(t, top.G, uint8(200))
	assert.Less(t, top.R, uint8(40))
}

func TestShadowSitsBelowCircle(t *testing.T) {
	g := NewAvatarGeometry(256, 256)
	shadow := ShadowLayer(g)

	below := shadow.AlphaAt(128, g.Circle.Max.Y+1)
	above := shadow.AlphaAt(128, g.Circle.Min.Y-1)
	assert.Greater(t, below, above)
}

func TestApplyRoutes(t *testing.T) {
	src := noise(100, 60, 6)
	std := Apply(src, catalog.AssetConfig{Size: catalog.Size{Width: 50, Height: 30}})
	assert.Equal(t, image.Rect(0, 0, 50, 30), std.Bounds())

	av := Apply(src, catalog.AssetConfig{Size: catalog.Size{Width: 64, Height: 64}, AvatarMode: true})
	assert.Equal(t, image.Rect(0, 0, 64, 64), av.Bounds())
	_, _, _, a := av.At(0, 0).RGBA()
	assert.Zero(t, a)
}
