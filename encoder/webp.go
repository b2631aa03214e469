package encoder

import (
	"context"
	"fmt"
	"image"
)

// EncodeWebP encodes via cwebp.
func EncodeWebP(ctx context.Context, img image.Image, out string, o Options) error {
	return withIntermediate(img, func(in string) error {
		args := []string{"-quiet", "-m", fmt.Sprint(clamp(o.Speed, 0, 6))}
		if o.Lossless {
			args = append(args, "-lossless", "-exact")
		} else {
			args = append(args, "-q", fmt.Sprint(o.Quality), "-alpha_q", "100")
		}
		args = append(args, in, "-o", out)
		return run(ctx, "cwebp", args...)
	})
}
