// Package metrics provides Prometheus metrics for pixforge runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pixforge"

// Recorder owns a private registry so several recorders can coexist in one
// process. All methods are safe on a nil *Recorder.
type Recorder struct {
	registry *prometheus.Registry

	assetsTotal     *prometheus.CounterVec
	outputsTotal    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	variantsTotal   *prometheus.CounterVec
	bytesOriginal   prometheus.Counter
	bytesOptimized  prometheus.Counter
	runDuration     *prometheus.HistogramVec
	lastRunUnixTime *prometheus.GaugeVec
}

// New registers the pixforge collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		assetsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_total",
			Help:      "Source files handled by the asset pipeline, by status",
		}, []string{"status"}),
		outputsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outputs_total",
			Help:      "Encoded files written, by format and status",
		}, []string{"format", "status"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Per-file errors, by pipeline and kind",
		}, []string{"pipeline", "kind"}),
		variantsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responsive_variants_total",
			Help:      "Responsive variants written, by label",
		}, []string{"label"}),
		bytesOriginal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimize_original_bytes_total",
			Help:      "Bytes of published images before re-encoding",
		}),
		bytesOptimized: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimize_optimized_bytes_total",
			Help:      "Bytes of published images after re-encoding",
		}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a pipeline run",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"pipeline"}),
		lastRunUnixTime: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run of a pipeline finished",
		}, []string{"pipeline"}),
	}
}

// Asset counts one source file with status "processed", "skipped" or "failed".
func (r *Recorder) Asset(status string) {
	if r == nil {
		return
	}
	r.assetsTotal.WithLabelValues(status).Inc()
}

// Output counts one encoded file.
func (r *Recorder) Output(format string, ok bool) {
	if r == nil {
		return
	}
	r.outputsTotal.WithLabelValues(format, status(ok)).Inc()
}

// Error counts one per-file error.
func (r *Recorder) Error(pipeline, kind string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(pipeline, kind).Inc()
}

// Optimized adds one re-encoded file's sizes.
func (r *Recorder) Optimized(original, optimized int64) {
	if r == nil {
		return
	}
	r.bytesOriginal.Add(float64(original))
	r.bytesOptimized.Add(float64(optimized))
}

// Variant counts one responsive variant.
func (r *Recorder) Variant(label string) {
	if r == nil {
		return
	}
	r.variantsTotal.WithLabelValues(label).Inc()
}

// RunFinished records a completed run that began at started.
func (r *Recorder) RunFinished(pipeline string, started time.Time) {
	if r == nil {
		return
	}
	r.runDuration.WithLabelValues(pipeline).Observe(time.Since(started).Seconds())
	r.lastRunUnixTime.WithLabelValues(pipeline).SetToCurrentTime()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values for the node-exporter textfile
// collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

// Registry exposes the underlying gatherer.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
