package responsive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixforge/canvas"
	"pixforge/catalog"
	"pixforge/encoder"
	"pixforge/journal"
	"pixforge/models"
)

func noise(w, h int) *image.NRGBA {
	r := rand.New(rand.NewSource(int64(w ^ h)))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(r.Intn(256))
		img.Pix[i+1] = uint8(r.Intn(256))
		img.Pix[i+2] = uint8(r.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

func writeJPEG(t *testing.T, path string, w, h, quality int) {
	t.Helper()
	require.NoError(t, imaging.Save(noise(w, h), path, imaging.JPEGQuality(quality)))
}

func jpegTable() catalog.ResponsiveTable {
	return catalog.ResponsiveTable{
		"hero.jpg": {{MaxWidth: 400, Label: "small"}, {MaxWidth: 800, Label: "medium"}, {MaxWidth: 1200, Label: "large"}},
	}
}

func newOptimizer(t *testing.T, dir string, deps Deps, mutate func(*Options)) *Optimizer {
	t.Helper()
	if deps.Encoders == nil {
		deps.Encoders = encoder.Defaults()
	}
	opts := Options{
		SourceDir:  dir,
		Extensions: []string{".jpg"},
		Quality:    85,
		Speed:      6,
		Table:      jpegTable(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	o, err := New(deps, opts)
	require.NoError(t, err)
	return o
}

func snapshot(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	out := map[string][]byte{}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		out[e.Name()] = data
	}
	return out
}

func TestResponsiveVariantsScenario(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	require.NoError(t, os.Mkdir(dir, 0o755))
	hero := filepath.Join(dir, "hero.jpg")
	writeJPEG(t, hero, 1600, 900, 100)
	before := snapshot(t, dir)["hero.jpg"]

	report := filepath.Join(root, "report.txt")
	o := newOptimizer(t, dir, Deps{}, func(opts *Options) { opts.ReportPath = report })
	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	res := summary.Results[0]
	assert.Equal(t, "hero.jpg", res.Name)
	assert.True(t, res.Replaced)
	assert.Less(t, res.OptimizedBytes, res.OriginalBytes)
	assert.Positive(t, res.ReductionPct)
	require.Len(t, res.Variants, 3)

	for _, v := range res.Variants {
		img, err := canvas.Open(filepath.Join(dir, v.Name))
		require.NoError(t, err, v.Name)
		assert.LessOrEqual(t, img.Bounds().Dx(), v.MaxWidth, v.Name)
		assert.Equal(t, v.Width, img.Bounds().Dx())
		assert.Equal(t, int(900*v.MaxWidth/1600), img.Bounds().Dy())
	}

	after := snapshot(t, dir)
	assert.Len(t, after, 4, "original plus three variants, no temp files")
	assert.Contains(t, after, "hero-small.jpg")
	assert.Contains(t, after, "hero-medium.jpg")
	assert.Contains(t, after, "hero-large.jpg")

	backup := snapshot(t, filepath.Join(root, "images-backup"))
	assert.Equal(t, before, backup["hero.jpg"])

	text, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(text), "hero.jpg")
	assert.Contains(t, string(text), "hero-large.jpg")
	assert.Contains(t, string(text), "Total savings")
}

func TestResponsiveWebPScenario(t *testing.T) {
	if _, err := exec.LookPath("cwebp"); err != nil {
		t.Skip("cwebp not installed")
	}
	dir := filepath.Join(t.TempDir(), "images")
	require.NoError(t, os.Mkdir(dir, 0o755))
	hero := filepath.Join(dir, "hero.webp")
	require.NoError(t, encoder.EncodeWebP(context.Background(), noise(1600, 900), hero, encoder.Options{Quality: 100, Speed: 4}))

	o := newOptimizer(t, dir, Deps{}, func(opts *Options) {
		opts.Extensions = []string{".webp"}
		opts.Table = catalog.DefaultResponsive()
	})
	summary, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Len(t, summary.Results[0].Variants, 3)
	assert.Less(t, summary.Results[0].OptimizedBytes, summary.Results[0].OriginalBytes)
	for _, name := range []string{"hero-small.webp", "hero-medium.webp", "hero-large.webp"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestBackupConflictDenied(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeJPEG(t, filepath.Join(dir, "hero.jpg"), 640, 360, 100)
	require.NoError(t, os.Mkdir(filepath.Join(root, "images-backup"), 0o755))
	before := snapshot(t, dir)

	asked := 0
	deny := ConfirmFunc(func(string) (bool, error) { asked++; return false, nil })
	summary, err := newOptimizer(t, dir, Deps{Confirm: deny}, nil).Run(context.Background())

	assert.ErrorIs(t, err, models.ErrBackupConflict)
	assert.Equal(t, 1, asked)
	assert.Empty(t, summary.Results)
	assert.Equal(t, before, snapshot(t, dir))
}

func TestBackupConflictNonInteractive(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeJPEG(t, filepath.Join(dir, "hero.jpg"), 64, 64, 90)
	require.NoError(t, os.Mkdir(filepath.Join(root, "images-backup"), 0o755))

	var out bytes.Buffer
	confirm := &TerminalConfirmer{In: strings.NewReader("yes\n"), Out: &out, Interactive: false}
	_, err := newOptimizer(t, dir, Deps{Confirm: confirm}, nil).Run(context.Background())
	assert.ErrorIs(t, err, models.ErrBackupConflict)
	assert.Contains(t, out.String(), "--force")
}

func TestBackupOverwriteWithForce(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	backup := filepath.Join(root, "images-backup")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.Mkdir(backup, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(backup, "stale.jpg"), []byte("old"), 0o644))
	writeJPEG(t, filepath.Join(dir, "hero.jpg"), 64, 64, 90)

	_, err := newOptimizer(t, dir, Deps{}, func(o *Options) { o.Force = true }).Run(context.Background())
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(backup, "stale.jpg"))
	assert.FileExists(t, filepath.Join(backup, "hero.jpg"))
	assert.NoDirExists(t, backup+".partial")
	assert.NoDirExists(t, backup+".old")
}

func TestBackupInsideSourceRejected(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	bak := filepath.Join(dir, "bak")
	require.NoError(t, os.MkdirAll(bak, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bak, "precious.jpg"), []byte("keep"), 0o644))
	writeJPEG(t, filepath.Join(dir, "hero.jpg"), 64, 64, 90)
	before := snapshot(t, dir)

	for _, backup := range []string{bak, dir, root} {
		_, err := New(Deps{Encoders: encoder.Defaults()}, Options{
			SourceDir: dir, BackupDir: backup, Quality: 85, Force: true, Table: jpegTable(),
		})
		assert.ErrorContains(t, err, "must be outside", backup)
	}

	assert.Equal(t, before, snapshot(t, dir))
	assert.FileExists(t, filepath.Join(bak, "precious.jpg"))
}

func TestFailedBackupKeepsPreviousBackup(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	backup := filepath.Join(root, "images-backup")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.Mkdir(backup, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(backup, "precious.jpg"), []byte("keep"), 0o644))
	writeJPEG(t, filepath.Join(dir, "hero.jpg"), 64, 64, 90)
	before := snapshot(t, dir)

	copyTree = func(src, dst string) error {
		require.NoError(t, os.MkdirAll(dst, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dst, "half.jpg"), []byte("x"), 0o644))
		return errors.New("disk full")
	}
	t.Cleanup(func() { copyTree = CopyTree })

	_, err := newOptimizer(t, dir, Deps{}, func(o *Options) { o.Force = true }).Run(context.Background())
	require.ErrorContains(t, err, "disk full")

	assert.Equal(t, before, snapshot(t, dir))
	data, err := os.ReadFile(filepath.Join(backup, "precious.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
	assert.NoDirExists(t, backup+".partial")
	assert.NoDirExists(t, backup+".old")
}

func TestSweepRunsBeforeBackup(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	require.NoError(t, os.Mkdir(dir, 0o755))
	hero := filepath.Join(dir, "hero.jpg")
	writeJPEG(t, hero, 64, 64, 90)

	jrnl, err := journal.Open(filepath.Join(root, "journal"))
	require.NoError(t, err)
	defer jrnl.Close()
	leftover := journal.TempPath(hero)
	require.NoError(t, os.WriteFile(leftover, []byte("partial"), 0o644))
	require.NoError(t, jrnl.Track(leftover, hero))

	_, err = newOptimizer(t, dir, Deps{Journal: jrnl}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.NoFileExists(t, leftover)
	assert.NoFileExists(t, filepath.Join(root, "images-backup", filepath.Base(leftover)))
	assert.FileExists(t, filepath.Join(root, "images-backup", "hero.jpg"))
}

func TestMissingSourceDir(t *testing.T) {
	root := t.TempDir()
	_, err := newOptimizer(t, filepath.Join(root, "absent"), Deps{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, models.ErrDirectoryMissing)
	assert.NoDirExists(t, filepath.Join(root, "absent-backup"))
}

func TestReencodeIsNearIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeJPEG(t, filepath.Join(dir, "photo.jpg"), 800, 600, 100)

	o := newOptimizer(t, dir, Deps{}, func(o *Options) { o.Force = true })
	first, err := o.Run(context.Background())
	require.NoError(t, err)
	second, err := o.Run(context.Background())
	require.NoError(t, err)

	a := float64(first.Results[0].OptimizedBytes)
	b := float64(second.Results[0].OptimizedBytes)
	assert.InEpsilon(t, a, b, 0.05)
	assert.Equal(t, 1, second.Files)
}

func TestVariantsAreNotReprocessed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeJPEG(t, filepath.Join(dir, "hero.jpg"), 900, 500, 95)
	writeJPEG(t, filepath.Join(dir, "hero-small.jpg"), 400, 222, 95)
	writeJPEG(t, filepath.Join(dir, "banner.jpg"), 300, 100, 95)

	summary, err := newOptimizer(t, dir, Deps{}, nil).Run(context.Background())
	require.NoError(t, err)

	var names []string
	for _, r := range summary.Results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"banner.jpg", "hero.jpg"}, names)
	assert.Empty(t, summary.Results[0].Variants, "banner has no responsive entry")
	assert.Equal(t, 3, summary.Variants)
}

func TestNoUpscaling(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeJPEG(t, filepath.Join(dir, "hero.jpg"), 500, 300, 95)

	summary, err := newOptimizer(t, dir, Deps{}, nil).Run(context.Background())
	require.NoError(t, err)
	for _, v := range summary.Results[0].Variants {
		assert.LessOrEqual(t, v.Width, 500, v.Name)
		assert.LessOrEqual(t, v.Width, v.MaxWidth, v.Name)
	}
	assert.Equal(t, 500, summary.Results[0].Variants[2].Width)
}

func TestOnlyIfSmallerKeepsOriginal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	require.NoError(t, os.Mkdir(dir, 0o755))
	path := filepath.Join(dir, "tiny.jpg")
	writeJPEG(t, path, 256, 256, 20)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	summary, err := newOptimizer(t, dir, Deps{}, func(o *Options) {
		o.Quality = 100
		o.OnlyIfSmaller = true
	}).Run(context.Background())
	require.NoError(t, err)

	res := summary.Results[0]
	assert.False(t, res.Replaced)
	assert.Equal(t, res.OriginalBytes, res.OptimizedBytes)
	assert.Zero(t, res.ReductionPct)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDecodeFailureIsIsolated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("not a jpeg"), 0o644))
	writeJPEG(t, filepath.Join(dir, "ok.jpg"), 100, 100, 95)

	jrnl, err := journal.Open(filepath.Join(t.TempDir(), "journal"))
	require.NoError(t, err)
	defer jrnl.Close()

	summary, err := newOptimizer(t, dir, Deps{Journal: jrnl}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "broken.jpg", summary.Failures[0].Name)
	assert.Equal(t, "decode_failure", summary.Failures[0].Kind)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "ok.jpg", summary.Results[0].Name)

	pending, err := jrnl.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStrictOptimize(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("x"), 0o644))

	_, err := newOptimizer(t, dir, Deps{}, func(o *Options) { o.Strict = true }).Run(context.Background())
	assert.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	_, err := New(Deps{}, Options{SourceDir: "x", Quality: 85})
	assert.Error(t, err)
	_, err = New(Deps{Encoders: encoder.NewRegistry()}, Options{SourceDir: "x", BackupDir: "x", Quality: 85})
	assert.Error(t, err)
	_, err = New(Deps{Encoders: encoder.NewRegistry()}, Options{SourceDir: "x", Quality: 0})
	assert.Error(t, err)
	_, err = New(Deps{Encoders: encoder.NewRegistry()}, Options{
		SourceDir: "x", Quality: 80,
		Table: catalog.ResponsiveTable{"a.jpg": {{MaxWidth: 800, Label: "m"}, {MaxWidth: 400, Label: "s"}}},
	})
	assert.Error(t, err)
}

func TestIsYes(t *testing.T) {
	for _, a := range []string{"y", "YES", " s ", "Sim\n"} {
		assert.True(t, IsYes(a), a)
	}
	for _, a := range []string{"", "n", "no", "nao", "maybe"} {
		assert.False(t, IsYes(a), a)
	}
}

func TestTerminalConfirmerReadsAnswer(t *testing.T) {
	var out bytes.Buffer
	c := &TerminalConfirmer{In: strings.NewReader("sim\n"), Out: &out, Interactive: true}
	ok, err := c.Confirm("overwrite?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "overwrite? [y/N]")
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "b.txt"), []byte("b"), 0o644))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyTree(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "nested", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
	info, err := os.Stat(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Error(t, CopyTree(src, dst), "existing destination is refused")
}

func TestWriteReportAndTable(t *testing.T) {
	var s models.RunSummary
	s.RunID = "run-x"
	s.Add(models.OptimizationResult{
		Name: "hero.webp", OriginalBytes: 200000, OptimizedBytes: 150000, ReductionPct: 25,
		Width: 1600, Height: 900, Replaced: true,
		Variants: []models.ResponsiveVariant{{Name: "hero-small.webp", Label: "small", MaxWidth: 400, Width: 400, Height: 225, SizeBytes: 12000}},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, s, "public/images-backup", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	report := buf.String()
	assert.Contains(t, report, "2026-01-02 03:04:05")
	assert.Contains(t, report, "Total savings: 50 kB (25.0%)")
	assert.Contains(t, report, "hero.webp: 200 kB -> 150 kB (25.0%) 1600x900")
	assert.Contains(t, report, "  - hero-small.webp: 400x225, 12 kB")
	assert.NotContains(t, report, "Failed images")

	s.Fail("broken.webp", fmt.Errorf("%w: broken.webp: bad header", models.ErrDecodeFailure))
	buf.Reset()
	require.NoError(t, WriteReport(&buf, s, "", time.Now()))
	assert.Contains(t, buf.String(), "failed: 1")
	assert.Contains(t, buf.String(), "  - broken.webp (decode_failure): ")

	table := RenderTable(s)
	assert.Contains(t, table, "hero.webp")
	assert.Contains(t, table, "1600x900")
}
