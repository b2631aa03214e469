// Package catalog holds the static description of what pixforge produces: the
// ordered asset registry used to route raw files, and the responsive size table
// used for published images.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Size is a pixel box.
type Size struct {
	Width  int `toml:"width" yaml:"width" json:"width"`
	Height int `toml:"height" yaml:"height" json:"height"`
}

// Enhancement holds optional photometric multipliers. A nil field is skipped;
// 1.0 is the identity.
type Enhancement struct {
	Brightness *float64 `json:"brightness,omitempty"`
	Contrast   *float64 `json:"contrast,omitempty"`
	Saturation *float64 `json:"saturation,omitempty"`
	Sharpness  *float64 `json:"sharpness,omitempty"`
}

// Tint scales the R, G and B channels independently.
type Tint struct {
	R, G, B float64
}

// IdentityTint leaves pixels unchanged.
var IdentityTint = Tint{R: 1, G: 1, B: 1}

// AssetConfig describes one named output asset.
type AssetConfig struct {
	MatchKey    string
	TargetName  string
	Size        Size
	Enhancement Enhancement
	Tint        *Tint
	AvatarMode  bool
}

// MinAvatarSize is the smallest avatar side whose corners stay fully
// transparent once the shadow is blurred.
const MinAvatarSize = 16

// Float returns a pointer to v, for building Enhancement literals.
func Float(v float64) *float64 {
	return &v
}

func (c AssetConfig) validate() error {
	var errs []error
	if c.MatchKey == "" {
		errs = append(errs, errors.New("match key is empty"))
	}
	if c.TargetName == "" {
		errs = append(errs, errors.New("target name is empty"))
	}
	if strings.ContainsAny(c.TargetName, `/\`) {
		errs = append(errs, fmt.Errorf("target name %q must not contain path separators", c.TargetName))
	}
	if c.Size.Width <= 0 || c.Size.Height <= 0 {
		errs = append(errs, fmt.Errorf("size %dx%d must be positive", c.Size.Width, c.Size.Height))
	}
	if c.AvatarMode && c.Size.Width != c.Size.Height {
		errs = append(errs, fmt.Errorf("avatar size %dx%d must be square", c.Size.Width, c.Size.Height))
	}
	if c.AvatarMode && c.Size.Width > 0 && c.Size.Width < MinAvatarSize {
		errs = append(errs, fmt.Errorf("avatar size %d must be at least %d", c.Size.Width, MinAvatarSize))
	}
	for name, f := range map[string]*float64{
		"brightness": c.Enhancement.Brightness,
		"contrast":   c.Enhancement.Contrast,
		"saturation": c.Enhancement.Saturation,
		"sharpness":  c.Enhancement.Sharpness,
	} {
		if f != nil && *f <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, *f))
		}
	}
	if c.Tint != nil && (c.Tint.R < 0 || c.Tint.G < 0 || c.Tint.B < 0) {
		errs = append(errs, fmt.Errorf("tint %v must not be negative", *c.Tint))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("asset %q: %w", c.MatchKey, err)
	}
	return nil
}

// Predicate decides whether a file name belongs to an entry.
type Predicate func(filename string) bool

// Substring matches file names containing key.
func Substring(key string) Predicate {
	return func(filename string) bool {
		return strings.Contains(filename, key)
	}
}

// Entry pairs a predicate with the config it selects.
type Entry struct {
	Predicate Predicate
	Config    AssetConfig
}

// Registry is the frozen, ordered asset catalog. Entries are evaluated in
// registration order and the first match wins.
type Registry struct {
	entries []Entry
}

// NewRegistry builds a registry matching each config by substring of its MatchKey.
func NewRegistry(configs ...AssetConfig) (*Registry, error) {
	entries := make([]Entry, 0, len(configs))
	for _, c := range configs {
		entries = append(entries, Entry{Predicate: Substring(c.MatchKey), Config: c})
	}
	return NewRegistryFromEntries(entries...)
}

// NewRegistryFromEntries builds a registry with explicit predicates.
func NewRegistryFromEntries(entries ...Entry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, errors.New("catalog is empty")
	}
	var errs []error
	targets := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Predicate == nil {
			errs = append(errs, fmt.Errorf("asset %q: predicate is nil", e.Config.MatchKey))
		}
		if err := e.Config.validate(); err != nil {
			errs = append(errs, err)
		}
		if prev, ok := targets[e.Config.TargetName]; ok && e.Config.TargetName != "" {
			errs = append(errs, fmt.Errorf("assets %q and %q share target name %q", prev, e.Config.MatchKey, e.Config.TargetName))
		}
		targets[e.Config.TargetName] = e.Config.MatchKey
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	frozen := make([]Entry, len(entries))
	for i, e := range entries {
		frozen[i] = Entry{Predicate: e.Predicate, Config: cloneConfig(e.Config)}
	}
	return &Registry{entries: frozen}, nil
}

func cloneConfig(c AssetConfig) AssetConfig {
	out := c
	clone := func(f *float64) *float64 {
		if f == nil {
			return nil
		}
		return Float(*f)
	}
	out.Enhancement = Enhancement{
		Brightness: clone(c.Enhancement.Brightness),
		Contrast:   clone(c.Enhancement.Contrast),
		Saturation: clone(c.Enhancement.Saturation),
		Sharpness:  clone(c.Enhancement.Sharpness),
	}
	if c.Tint != nil {
		t := *c.Tint
		out.Tint = &t
	}
	return out
}

// Resolution is the tagged result of Resolve.
type Resolution struct {
	config  AssetConfig
	matched bool
}

// Matched reports whether a config was found.
func (r Resolution) Matched() bool {
	return r.matched
}

// Config returns the matched config and true, or the zero value and false.
func (r Resolution) Config() (AssetConfig, bool) {
	return r.config, r.matched
}

// Resolve returns the first entry whose predicate accepts the base name of filename.
func (r *Registry) Resolve(filename string) Resolution {
	base := filepath.Base(filename)
	for _, e := range r.entries {
		if e.Predicate(base) {
			return Resolution{config: cloneConfig(e.Config), matched: true}
		}
	}
	return Resolution{}
}

// Configs returns a copy of the registered configs in order.
func (r *Registry) Configs() []AssetConfig {
	out := make([]AssetConfig, len(r.entries))
	for i, e := range r.entries {
		out[i] = cloneConfig(e.Config)
	}
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Overlap names two match keys where one contains the other. Files meant for
// the later entry can be captured by the earlier one.
type Overlap struct {
	Earlier, Later string
}

func (o Overlap) String() string {
	return fmt.Sprintf("%q shadows %q", o.Earlier, o.Later)
}

// Overlaps lists key pairs whose substring relation makes resolution depend on
// registration order.
func (r *Registry) Overlaps() []Overlap {
	var out []Overlap
	for i := 0; i < len(r.entries); i++ {
		for j := i + 1; j < len(r.entries); j++ {
			a, b := r.entries[i].Config.MatchKey, r.entries[j].Config.MatchKey
			if strings.Contains(a, b) || strings.Contains(b, a) {
				out = append(out, Overlap{Earlier: a, Later: b})
			}
		}
	}
	return out
}
