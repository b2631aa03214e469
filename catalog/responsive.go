package catalog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Breakpoint is one responsive width bucket.
type Breakpoint struct {
	MaxWidth int    `toml:"max_width" yaml:"max_width" json:"max_width"`
	Label    string `toml:"label" yaml:"label" json:"label"`
}

// ResponsiveTable maps a published file name to its ascending breakpoints.
type ResponsiveTable map[string][]Breakpoint

// Validate checks that every list is strictly ascending with distinct, non-empty labels.
func (t ResponsiveTable) Validate() error {
	for _, name := range t.Files() {
		seen := make(map[string]bool)
		prev := 0
		for i, bp := range t[name] {
			if bp.MaxWidth <= 0 {
				return fmt.Errorf("responsive %s[%d]: max width must be positive", name, i)
			}
			if bp.MaxWidth <= prev {
				return fmt.Errorf("responsive %s: widths must be ascending, %d after %d", name, bp.MaxWidth, prev)
			}
			if bp.Label == "" || strings.ContainsAny(bp.Label, `/\`) {
				return fmt.Errorf("responsive %s[%d]: invalid label %q", name, i, bp.Label)
			}
			if seen[bp.Label] {
				return fmt.Errorf("responsive %s: duplicate label %q", name, bp.Label)
			}
			seen[bp.Label] = true
			prev = bp.MaxWidth
		}
	}
	return nil
}

// Lookup returns the breakpoints registered for the base name of path.
func (t ResponsiveTable) Lookup(path string) ([]Breakpoint, bool) {
	bps, ok := t[filepath.Base(path)]
	return bps, ok && len(bps) > 0
}

// Files returns the published file names in the table, sorted.
func (t ResponsiveTable) Files() []string {
	out := make([]string, 0, len(t))
	for name := range t {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Labels returns every label used in the table, sorted.
func (t ResponsiveTable) Labels() []string {
	set := make(map[string]bool)
	for _, bps := range t {
		for _, bp := range bps {
			set[bp.Label] = true
		}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// IsVariant reports whether the file name already denotes a derived variant,
// i.e. its stem ends in "-<label>" for a known label.
func (t ResponsiveTable) IsVariant(path string) bool {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, label := range t.Labels() {
		if strings.HasSuffix(stem, "-"+label) {
			return true
		}
	}
	return false
}

// VariantName returns "<stem>-<label><ext>" for a published file name.
func VariantName(published, label string) string {
	base := filepath.Base(published)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + label + ext
}
