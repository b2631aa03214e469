package encoder

import (
	"context"
	"fmt"
	"image"
)

// EncodeAVIF encodes via avifenc. avifenc's speed scale runs 0 (slowest) to 10.
func EncodeAVIF(ctx context.Context, img image.Image, out string, o Options) error {
	return withIntermediate(img, func(in string) error {
		args := []string{"--speed", fmt.Sprint(clamp(o.Speed, 0, 10))}
		if o.Lossless {
			args = append(args, "--lossless")
		} else {
			args = append(args, "-q", fmt.Sprint(o.Quality))
		}
		args = append(args, in, out)
		return run(ctx, "avifenc", args...)
	})
}
