package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"pixforge/models"
)

//go:embed sample_config.toml
var sampleConfig string

// Log contains logging configuration.
type Log struct {
	Level   string `toml:"level"`
	File    string `toml:"file"`
	Console bool   `toml:"console"`
}

// Assets configures the asset transform pipeline.
type Assets struct {
	SourceDir      string   `toml:"source_dir"`
	OutputDir      string   `toml:"output_dir"`
	Extensions     []string `toml:"extensions"`
	CatalogFile    string   `toml:"catalog_file"`
	LossyFormat    string   `toml:"lossy_format"`
	LossyQuality   int      `toml:"lossy_quality"`
	LosslessFormat string   `toml:"lossless_format"`
	Speed          int      `toml:"speed"`
	Strict         bool     `toml:"strict"`
}

// Optimize configures the responsive optimization pipeline.
type Optimize struct {
	SourceDir      string   `toml:"source_dir"`
	BackupDir      string   `toml:"backup_dir"`
	Extensions     []string `toml:"extensions"`
	Quality        int      `toml:"quality"`
	Speed          int      `toml:"speed"`
	ReportPath     string   `toml:"report_path"`
	ResponsiveFile string   `toml:"responsive_file"`
	OnlyIfSmaller  bool     `toml:"only_if_smaller"`
	Strict         bool     `toml:"strict"`
}

// Publish lists the destinations finished assets are mirrored to.
type Publish struct {
	Targets []models.PublishTarget `toml:"targets"`
}

// Metrics configures the prometheus textfile output and the serve address.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
	ServeAddr    string `toml:"serve_addr"`
}

// Config is the full pixforge configuration.
type Config struct {
	Log      Log      `toml:"log"`
	Assets   Assets   `toml:"assets"`
	Optimize Optimize `toml:"optimize"`
	Publish  Publish  `toml:"publish"`
	Metrics  Metrics  `toml:"metrics"`
}

var (
	lossyFormats    = map[string]bool{"webp": true, "jpg": true, "jpeg": true, "avif": true}
	losslessFormats = map[string]bool{"png": true, "webp": true}
	publishTypes    = map[string]bool{"local": true, "s3": true, "gcs": true, "sftp": true}
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: Log{Level: "info", Console: true},
		Assets: Assets{
			SourceDir:      "raw",
			OutputDir:      "outputs",
			Extensions:     []string{".png"},
			LossyFormat:    "webp",
			LossyQuality:   85,
			LosslessFormat: "png",
			Speed:          4,
		},
		Optimize: Optimize{
			SourceDir:  "public/images",
			Extensions: []string{".webp"},
			Quality:    85,
			Speed:      6,
			ReportPath: "optimization-report.txt",
		},
		Metrics: Metrics{ServeAddr: ":8080"},
	}
}

// SampleConfig returns an annotated example configuration file.
func SampleConfig() string {
	return sampleConfig
}

// DefaultPath returns the config file used when none is given explicitly.
func DefaultPath() string {
	if p := os.Getenv("PIXFORGE_CONFIG"); p != "" {
		return p
	}
	return "pixforge.toml"
}

// Load reads the configuration at path on top of the defaults, applies
// environment overrides and validates the result. A missing file is only an
// error when the path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		explicit = os.Getenv("PIXFORGE_CONFIG") != ""
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PIXFORGE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PIXFORGE_SOURCE_DIR"); v != "" {
		c.Assets.SourceDir = v
	}
	if v := os.Getenv("PIXFORGE_OUTPUT_DIR"); v != "" {
		c.Assets.OutputDir = v
	}
	if v := os.Getenv("PIXFORGE_PUBLISHED_DIR"); v != "" {
		c.Optimize.SourceDir = v
	}
	if v := os.Getenv("PIXFORGE_BACKUP_DIR"); v != "" {
		c.Optimize.BackupDir = v
	}
	if v := os.Getenv("PIXFORGE_QUALITY"); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PIXFORGE_QUALITY %q: %w", v, err)
		}
		c.Optimize.Quality = q
	}
	return nil
}

func (c *Config) normalize() {
	c.Assets.Extensions = normalizeExtensions(c.Assets.Extensions)
	c.Optimize.Extensions = normalizeExtensions(c.Optimize.Extensions)
	c.Assets.LossyFormat = strings.ToLower(strings.TrimSpace(c.Assets.LossyFormat))
	c.Assets.LosslessFormat = strings.ToLower(strings.TrimSpace(c.Assets.LosslessFormat))
	if c.Optimize.BackupDir == "" && c.Optimize.SourceDir != "" {
		c.Optimize.BackupDir = BackupDirFor(c.Optimize.SourceDir)
	}
}

// BackupDirFor returns the sibling backup path for a published directory.
func BackupDirFor(sourceDir string) string {
	clean := filepath.Clean(sourceDir)
	return filepath.Join(filepath.Dir(clean), filepath.Base(clean)+"-backup")
}

// Overlaps reports whether a and b are the same directory or one contains the
// other. Relative paths are resolved against the working directory.
func Overlaps(a, b string) bool {
	return within(a, b) || within(b, a)
}

func within(parent, child string) bool {
	p, err := filepath.Abs(parent)
	if err != nil {
		return false
	}
	c, err := filepath.Abs(child)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(p, c)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.Assets.SourceDir == "" {
		errs = append(errs, errors.New("assets.source_dir must be set"))
	}
	if c.Assets.OutputDir == "" {
		errs = append(errs, errors.New("assets.output_dir must be set"))
	}
	if len(c.Assets.Extensions) == 0 {
		errs = append(errs, errors.New("assets.extensions must not be empty"))
	}
	if !lossyFormats[c.Assets.LossyFormat] {
		errs = append(errs, fmt.Errorf("assets.lossy_format %q is not a lossy format", c.Assets.LossyFormat))
	}
	if !losslessFormats[c.Assets.LosslessFormat] {
		errs = append(errs, fmt.Errorf("assets.lossless_format %q is not a lossless format", c.Assets.LosslessFormat))
	}
	if c.Assets.LossyQuality < 1 || c.Assets.LossyQuality > 100 {
		errs = append(errs, fmt.Errorf("assets.lossy_quality must be between 1 and 100, got %d", c.Assets.LossyQuality))
	}

	if c.Optimize.Quality < 1 || c.Optimize.Quality > 100 {
		errs = append(errs, fmt.Errorf("optimize.quality must be between 1 and 100, got %d", c.Optimize.Quality))
	}
	if len(c.Optimize.Extensions) == 0 {
		errs = append(errs, errors.New("optimize.extensions must not be empty"))
	}
	if c.Optimize.SourceDir != "" && c.Optimize.BackupDir != "" && Overlaps(c.Optimize.SourceDir, c.Optimize.BackupDir) {
		errs = append(errs, errors.New("optimize.backup_dir must be outside optimize.source_dir and must not contain it"))
	}

	for i, t := range c.Publish.Targets {
		if !publishTypes[t.Type] {
			errs = append(errs, fmt.Errorf("publish.targets[%d]: unknown type %q", i, t.Type))
		}
	}

	return errors.Join(errs...)
}
