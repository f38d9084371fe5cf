// Package metrics records batch outcomes in a Prometheus registry and
// writes them to a node_exporter textfile collector file.
//
// Metrics are prefixed with "reencoder_":
//   - files_total: files reaching a terminal status, by status
//   - encode_duration_seconds: wall time of each finished encode
//   - output_bytes_total: bytes written by completed encodes
//   - batch_duration_seconds: wall time of the last batch
//   - batch_last_run_timestamp_seconds: when the last batch finished
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"reencoder/internal/progress"
)

// Batch holds the metrics for one run. Each Batch has its own registry so
// runs in the same process do not share counters.
type Batch struct {
	reg *prometheus.Registry

	filesTotal     *prometheus.CounterVec
	encodeDuration prometheus.Histogram
	outputBytes    prometheus.Counter
	batchDuration  prometheus.Gauge
	lastRun        prometheus.Gauge
}

// NewBatch registers the batch metrics in a fresh registry.
func NewBatch() *Batch {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Batch{
		reg: reg,
		filesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reencoder_files_total",
				Help: "Files that reached a terminal status",
			},
			[]string{"status"},
		),
		encodeDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reencoder_encode_duration_seconds",
				Help:    "Wall time of finished encodes in seconds",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600, 7200},
			},
		),
		outputBytes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "reencoder_output_bytes_total",
				Help: "Bytes written by completed encodes",
			},
		),
		batchDuration: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "reencoder_batch_duration_seconds",
				Help: "Wall time of the last batch in seconds",
			},
		),
		lastRun: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "reencoder_batch_last_run_timestamp_seconds",
				Help: "Unix time the last batch finished",
			},
		),
	}
}

// FileDone records a file's terminal result. took is zero for files that
// never started encoding.
func (b *Batch) FileDone(r progress.Result, took time.Duration) {
	b.filesTotal.WithLabelValues(string(r.Stage)).Inc()
	if r.Stage == progress.StageComplete {
		if took > 0 {
			b.encodeDuration.Observe(took.Seconds())
		}
		if r.Bytes > 0 {
			b.outputBytes.Add(float64(r.Bytes))
		}
	}
}

// BatchDone records the end of the batch.
func (b *Batch) BatchDone(took time.Duration) {
	b.batchDuration.Set(took.Seconds())
	b.lastRun.SetToCurrentTime()
}

// WriteFile atomically writes the registry in text exposition format.
func (b *Batch) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, b.reg)
}

// Registry exposes the underlying registry.
func (b *Batch) Registry() *prometheus.Registry { return b.reg }
