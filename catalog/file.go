package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type assetEntry struct {
	MatchKey   string    `toml:"match_key" yaml:"match_key"`
	TargetName string    `toml:"target_name" yaml:"target_name"`
	Width      int       `toml:"width" yaml:"width"`
	Height     int       `toml:"height" yaml:"height"`
	Brightness *float64  `toml:"brightness" yaml:"brightness"`
	Contrast   *float64  `toml:"contrast" yaml:"contrast"`
	Saturation *float64  `toml:"saturation" yaml:"saturation"`
	Sharpness  *float64  `toml:"sharpness" yaml:"sharpness"`
	Tint       []float64 `toml:"tint" yaml:"tint"`
	Avatar     bool      `toml:"avatar" yaml:"avatar"`
}

type responsiveEntry struct {
	File        string       `toml:"file" yaml:"file"`
	Breakpoints []Breakpoint `toml:"breakpoints" yaml:"breakpoints"`
}

type fileLayout struct {
	Assets     []assetEntry      `toml:"assets" yaml:"assets"`
	Responsive []responsiveEntry `toml:"responsive" yaml:"responsive"`
}

// Definition is the content of a catalog file. Either part may be empty.
type Definition struct {
	Assets     []AssetConfig
	Responsive ResponsiveTable
}

// LoadFile reads a TOML (.toml) or YAML (.yaml, .yml) catalog file.
func LoadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var layout fileLayout
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&layout)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&layout)
	default:
		return Definition{}, fmt.Errorf("catalog %s: unsupported extension, use .toml, .yaml or .yml", path)
	}
	if err != nil {
		return Definition{}, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	def := Definition{}
	for i, a := range layout.Assets {
		cfg := AssetConfig{
			MatchKey:   a.MatchKey,
			TargetName: a.TargetName,
			Size:       Size{Width: a.Width, Height: a.Height},
			Enhancement: Enhancement{
				Brightness: a.Brightness,
				Contrast:   a.Contrast,
				Saturation: a.Saturation,
				Sharpness:  a.Sharpness,
			},
			AvatarMode: a.Avatar,
		}
		switch len(a.Tint) {
		case 0:
		case 3:
			cfg.Tint = &Tint{R: a.Tint[0], G: a.Tint[1], B: a.Tint[2]}
		default:
			return Definition{}, fmt.Errorf("catalog %s: assets[%d] tint needs 3 values, got %d", path, i, len(a.Tint))
		}
		def.Assets = append(def.Assets, cfg)
	}

	if len(layout.Responsive) > 0 {
		def.Responsive = make(ResponsiveTable, len(layout.Responsive))
		for i, r := range layout.Responsive {
			if r.File == "" {
				return Definition{}, fmt.Errorf("catalog %s: responsive[%d] has no file", path, i)
			}
			if _, dup := def.Responsive[r.File]; dup {
				return Definition{}, fmt.Errorf("catalog %s: responsive file %q listed twice", path, r.File)
			}
			def.Responsive[r.File] = r.Breakpoints
		}
		if err := def.Responsive.Validate(); err != nil {
			return Definition{}, fmt.Errorf("catalog %s: %w", path, err)
		}
	}

	return def, nil
}

// LoadRegistry returns the registry from path, or the built-in one when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	def, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if len(def.Assets) == 0 {
		return nil, fmt.Errorf("catalog %s defines no assets", path)
	}
	return NewRegistry(def.Assets...)
}

// LoadResponsive returns the responsive table from path, or the built-in one when path is empty.
func LoadResponsive(path string) (ResponsiveTable, error) {
	if path == "" {
		return DefaultResponsive(), nil
	}
	def, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if len(def.Responsive) == 0 {
		return nil, fmt.Errorf("catalog %s defines no responsive sizes", path)
	}
	return def.Responsive, nil
}
