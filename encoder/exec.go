package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"
)

// magick returns an ImageMagick-backed encoder for format.
func magick(format string) EncodeFunc {
	return func(ctx context.Context, img image.Image, out string, o Options) error {
		return withIntermediate(img, func(in string) error {
			args := []string{in}
			if o.Lossless {
				args = append(args, "-define", format+":lossless=true")
			} else {
				args = append(args, "-quality", fmt.Sprint(o.Quality))
			}
			args = append(args, fmt.Sprintf("%s:%s", format, out))
			return run(ctx, "magick", args...)
		})
	}
}

// withIntermediate hands fn the path of a losslessly encoded copy of img.
// External encoders read files, not pixel buffers.
func withIntermediate(img image.Image, fn func(in string) error) error {
	tmp, err := os.CreateTemp("", "pixforge-*.png")
	if err != nil {
		return fmt.Errorf("failed to create intermediate file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, img, imaging.PNG, imaging.PNGCompressionLevel(png.NoCompression)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write intermediate file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return fn(tmp.Name())
}

func run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
