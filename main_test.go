package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixforge/config"
	"pixforge/models"
)

type cliEnv struct {
	base       string
	configPath string
	rawDir     string
	outDir     string
	pubDir     string
}

func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("PIXFORGE_DATA_DIR", filepath.Join(base, "data"))
	t.Setenv("PIXFORGE_CONFIG", "")

	env := &cliEnv{
		base:       base,
		configPath: filepath.Join(base, "pixforge.toml"),
		rawDir:     filepath.Join(base, "raw"),
		outDir:     filepath.Join(base, "outputs"),
		pubDir:     filepath.Join(base, "public"),
	}
	require.NoError(t, os.MkdirAll(env.rawDir, 0o755))
	require.NoError(t, os.MkdirAll(env.pubDir, 0o755))

	catalogPath := filepath.Join(base, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`
assets:
  - match_key: banner_raw
    target_name: banner
    width: 64
    height: 48
    contrast: 1.1
  - match_key: face_raw
    target_name: face
    width: 32
    height: 32
    avatar: true
responsive:
  - file: photo.jpg
    breakpoints:
      - {max_width: 40, label: small}
      - {max_width: 80, label: large}
`), 0o644))

	cfg := `
[log]
level = "warn"
console = true

[assets]
source_dir = "` + env.rawDir + `"
output_dir = "` + env.outDir + `"
catalog_file = "` + catalogPath + `"
lossy_format = "jpg"
lossless_format = "png"

[optimize]
source_dir = "` + env.pubDir + `"
extensions = [".jpg"]
responsive_file = "` + catalogPath + `"
report_path = "` + filepath.Join(base, "report.txt") + `"
`
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0o644))
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 255 / w), uint8(y * 255 / h), 120, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeTestJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 5), uint8((x + y) * 3), 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 100}))
}

func TestAssetsCommand(t *testing.T) {
	env := setupCLIEnv(t)
	writeTestPNG(t, filepath.Join(env.rawDir, "banner_raw.png"), 200, 100)
	writeTestPNG(t, filepath.Join(env.rawDir, "face_raw.png"), 50, 60)
	writeTestPNG(t, filepath.Join(env.rawDir, "unrelated.png"), 10, 10)

	out, err := env.run(t, "assets")
	require.NoError(t, err)
	assert.Contains(t, out, "2 processed, 1 skipped, 0 failed")

	for _, name := range []string{"banner.jpg", "banner.png", "face.jpg", "face.png"} {
		assert.FileExists(t, filepath.Join(env.outDir, name))
	}

	f, err := os.Open(filepath.Join(env.outDir, "face.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())

	out, err = env.run(t, "history", "success")
	require.NoError(t, err)
	assert.Contains(t, out, "banner_raw.png")
	assert.Contains(t, out, "face_raw.png")
}

func TestAssetsCommandRefusesWhileLocked(t *testing.T) {
	env := setupCLIEnv(t)
	require.NoError(t, os.MkdirAll(config.GetDataDir(), 0o755))
	lock := flock.New(config.GetLockPath())
	ok, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer lock.Unlock()

	_, err = env.run(t, "assets")
	assert.ErrorIs(t, err, models.ErrRunLocked)
}

func TestAssetsCommandMissingSource(t *testing.T) {
	env := setupCLIEnv(t)
	_, err := env.run(t, "assets", "--source", filepath.Join(env.base, "nope"))
	assert.ErrorIs(t, err, models.ErrDirectoryMissing)
}

func TestOptimizeCommand(t *testing.T) {
	env := setupCLIEnv(t)
	writeTestJPEG(t, filepath.Join(env.pubDir, "photo.jpg"), 120, 90)

	out, err := env.run(t, "optimize")
	require.NoError(t, err)
	assert.Contains(t, out, "photo.jpg")
	assert.FileExists(t, filepath.Join(env.pubDir, "photo-small.jpg"))
	assert.FileExists(t, filepath.Join(env.pubDir, "photo-large.jpg"))
	assert.FileExists(t, filepath.Join(env.base, "public-backup", "photo.jpg"))

	report, err := os.ReadFile(filepath.Join(env.base, "report.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "photo-small.jpg")

	// no terminal to confirm on, so the existing backup is kept
	_, err = env.run(t, "optimize")
	assert.ErrorIs(t, err, models.ErrBackupConflict)

	_, err = env.run(t, "optimize", "--force")
	assert.NoError(t, err)
}

func TestCredsCommands(t *testing.T) {
	env := setupCLIEnv(t)

	out, err := env.run(t, "creds", "set", "cdn", "bucket=assets", "secretKey=hunter2")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored 2 fields under cdn")

	out, err = env.run(t, "creds", "get", "cdn")
	require.NoError(t, err)
	assert.Equal(t, "bucket=assets\nsecretKey=********\n", out)

	out, err = env.run(t, "creds", "get", "cdn", "--show")
	require.NoError(t, err)
	assert.Contains(t, out, "secretKey=hunter2")

	out, err = env.run(t, "creds", "list")
	require.NoError(t, err)
	assert.Equal(t, "cdn\n", out)

	_, err = env.run(t, "creds", "delete", "cdn")
	require.NoError(t, err)
	_, err = env.run(t, "creds", "get", "cdn")
	assert.Error(t, err)

	_, err = env.run(t, "creds", "set", "cdn", "novalue")
	assert.ErrorContains(t, err, "expected name=value")
}

func TestCatalogCommand(t *testing.T) {
	env := setupCLIEnv(t)
	out, err := env.run(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "banner_raw")
	assert.Contains(t, out, "avatar")
	assert.Contains(t, out, "small<=40px")
	assert.NotContains(t, out, "warning")
}

func TestHistoryAndPrune(t *testing.T) {
	env := setupCLIEnv(t)
	out, err := env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No failures recorded")

	_, err = env.run(t, "history", "bogus")
	assert.Error(t, err)

	out, err = env.run(t, "prune", "--max-age", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 records")

	_, err = env.run(t, "prune", "--max-age", "0s")
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "pixforge.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, config.SampleConfig(), string(data))

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	assert.ErrorContains(t, cmd.Execute(), "already exists")

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "validate", target})
	assert.NoError(t, cmd.Execute())
}

type fakeHistory struct {
	removed int
	calls   int
}

func (f *fakeHistory) CleanupOldRecords(time.Duration) (int, error) {
	f.calls++
	return f.removed, nil
}

func TestCleanupRoutineStopsOnCancel(t *testing.T) {
	store := &fakeHistory{removed: 2}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleanupRoutine(ctx, 10*time.Millisecond, time.Hour, map[string]historyStore{"x": store})
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup routine did not stop")
	}
	assert.Greater(t, store.calls, 0)
	assert.Equal(t, 4, pruneStores(time.Hour, map[string]historyStore{"a": store, "b": store}))
}

func TestOutputSummary(t *testing.T) {
	s := outputSummary([]models.OutputRecord{
		{Format: "webp", Path: "/x/a.webp", Bytes: 2048},
		{Format: "avif", Err: os.ErrInvalid},
	})
	assert.True(t, strings.HasPrefix(s, "a.webp 2.0 kB"))
	assert.True(t, strings.HasSuffix(s, "avif: failed"))
}
