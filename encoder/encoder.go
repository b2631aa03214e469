// Package encoder writes decoded images to disk in the output formats pixforge
// supports. PNG and JPEG are encoded in-process; WebP and AVIF shell out to
// the reference command-line encoders when they are installed.
package encoder

import (
	"context"
	"fmt"
	"image"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"pixforge/logger"
	"pixforge/models"
)

// EncodeFunc is the function signature for any encoder
type EncodeFunc func(ctx context.Context, img image.Image, output string, opts Options) error

type Options struct {
	Quality  int
	Speed    int
	Lossless bool
}

// Registry maps format name → encoder function
type Registry struct {
	mu       sync.RWMutex
	encoders map[string]EncodeFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{encoders: make(map[string]EncodeFunc)}
}

// Register adds encoder if the underlying command exists, logs status.
// It reports whether the encoder was registered.
func (r *Registry) Register(format string, cmdName string, fn EncodeFunc) bool {
	if _, err := exec.LookPath(cmdName); err != nil {
		logger.Debugf("encoder [%s] skipped: command '%s' not found in PATH", format, cmdName)
		return false
	}
	r.set(format, fn)
	logger.Debugf("encoder [%s] registered (command: %s)", format, cmdName)
	return true
}

// RegisterNative adds an in-process encoder.
func (r *Registry) RegisterNative(format string, fn EncodeFunc) {
	r.set(format, fn)
	logger.Debugf("encoder [%s] registered (native)", format)
}

func (r *Registry) set(format string, fn EncodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoders[Normalize(format)] = fn
}

// Get looks up the encoder for format.
func (r *Registry) Get(format string) (EncodeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.encoders[Normalize(format)]
	return fn, ok
}

// Formats lists the registered format names, sorted.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.encoders))
	for f := range r.encoders {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Encode writes img to output using the encoder registered for format.
// Every failure wraps models.ErrEncodeFailure.
func (r *Registry) Encode(ctx context.Context, format string, img image.Image, output string, opts Options) error {
	fn, ok := r.Get(format)
	if !ok {
		return fmt.Errorf("%w: no encoder registered for %q", models.ErrEncodeFailure, format)
	}
	if err := fn(ctx, img, output, opts); err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrEncodeFailure, filepath.Base(output), err)
	}
	return nil
}

// Defaults returns a registry with the native encoders and whichever external
// encoders are available on this machine.
func Defaults() *Registry {
	r := NewRegistry()
	r.RegisterNative("png", EncodePNG)
	r.RegisterNative("jpg", EncodeJPG)
	if !r.Register("webp", "cwebp", EncodeWebP) {
		r.Register("webp", "magick", magick("webp"))
	}
	if !r.Register("avif", "avifenc", EncodeAVIF) {
		r.Register("avif", "magick", magick("avif"))
	}
	for _, f := range []string{"webp", "avif"} {
		if _, ok := r.Get(f); !ok {
			logger.Warnf("encoder [%s] unavailable: install cwebp/avifenc or ImageMagick", f)
		}
	}
	return r
}

// Normalize maps format aliases to their registry name.
func Normalize(format string) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if f == "jpeg" {
		return "jpg"
	}
	return f
}

// Extension returns the file extension, with dot, used for format.
func Extension(format string) string {
	return "." + Normalize(format)
}

// FormatFromPath infers the format from a file name's extension.
func FormatFromPath(path string) string {
	return Normalize(filepath.Ext(path))
}
