package encoder

import (
	"context"
	"image"
	"image/png"
	"os"

	"github.com/disintegration/imaging"
)

// EncodePNG writes img as a PNG. Speed 0–3 trades size for time; higher
// values use default compression.
func EncodePNG(ctx context.Context, img image.Image, out string, o Options) error {
	level := png.DefaultCompression
	if o.Speed <= 3 {
		level = png.BestCompression
	}
	return encodeFile(ctx, img, out, imaging.PNG, imaging.PNGCompressionLevel(level))
}

// EncodeJPG writes img as a baseline JPEG at the given quality.
func EncodeJPG(ctx context.Context, img image.Image, out string, o Options) error {
	q := o.Quality
	if q <= 0 {
		q = 85
	}
	return encodeFile(ctx, img, out, imaging.JPEG, imaging.JPEGQuality(q))
}

func encodeFile(ctx context.Context, img image.Image, out string, format imaging.Format, opts ...imaging.EncodeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := imaging.Encode(f, img, format, opts...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
