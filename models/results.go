package models

import "time"

// OutputRecord is the outcome of writing one encoding of an asset.
type OutputRecord struct {
	Format string `json:"format"`
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
	Err    error  `json:"-"`
}

// AssetOutcome is the per-file record of an asset transform run.
type AssetOutcome struct {
	Source     string         `json:"source"`
	TargetName string         `json:"target_name,omitempty"`
	Avatar     bool           `json:"avatar,omitempty"`
	Outputs    []OutputRecord `json:"outputs,omitempty"`
	Err        error          `json:"-"`
}

// Skipped reports whether the file was left alone because nothing in the catalog matched it.
func (o AssetOutcome) Skipped() bool {
	return o.TargetName == ""
}

// Failed reports whether the file or any of its outputs failed.
func (o AssetOutcome) Failed() bool {
	if o.Err != nil && !o.Skipped() {
		return true
	}
	for _, out := range o.Outputs {
		if out.Err != nil {
			return true
		}
	}
	return false
}

// AssetRunSummary aggregates one asset transform run.
type AssetRunSummary struct {
	RunID     string
	Started   time.Time
	Processed int
	Skipped   int
	Failed    int
	Outcomes  []AssetOutcome
}

// ResponsiveVariant is one downscaled copy written next to a published image.
type ResponsiveVariant struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	MaxWidth  int    `json:"max_width"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
}

// OptimizationResult is the per-file record of a responsive optimization run.
type OptimizationResult struct {
	Name           string              `json:"name"`
	OriginalBytes  int64               `json:"original_bytes"`
	OptimizedBytes int64               `json:"optimized_bytes"`
	ReductionPct   float64             `json:"reduction_pct"`
	Width          int                 `json:"width"`
	Height         int                 `json:"height"`
	Replaced       bool                `json:"replaced"`
	Variants       []ResponsiveVariant `json:"variants,omitempty"`
}

// FileFailure names a file a run could not finish and why.
type FileFailure struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// RunSummary aggregates one responsive optimization run.
type RunSummary struct {
	RunID          string
	Started        time.Time
	TotalOriginal  int64
	TotalOptimized int64
	Files          int
	Variants       int
	Failed         int
	Results        []OptimizationResult
	Failures       []FileFailure
}

// ReductionPct returns the percentage saved going from original to optimized bytes.
func ReductionPct(original, optimized int64) float64 {
	if original <= 0 {
		return 0
	}
	return float64(original-optimized) / float64(original) * 100
}

// Add folds one result into the summary totals.
func (s *RunSummary) Add(r OptimizationResult) {
	s.Results = append(s.Results, r)
	s.TotalOriginal += r.OriginalBytes
	s.TotalOptimized += r.OptimizedBytes
	s.Files++
	s.Variants += len(r.Variants)
}

// Fail records a file that failed.
func (s *RunSummary) Fail(name string, err error) {
	s.Failed++
	f := FileFailure{Name: name, Kind: Kind(err)}
	if err != nil {
		f.Error = err.Error()
	}
	s.Failures = append(s.Failures, f)
}

// Saved returns the aggregate byte savings and percentage.
func (s RunSummary) Saved() (int64, float64) {
	return s.TotalOriginal - s.TotalOptimized, ReductionPct(s.TotalOriginal, s.TotalOptimized)
}
