package progress

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for ingest runs.
type Metrics struct {
	items         *prometheus.GaugeVec
	percent       *prometheus.GaugeVec
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	uploadLatency *prometheus.HistogramVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns collectors registered with the global registry.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs collectors on reg, reusing collectors that are
// already registered under the same names. Other registration errors panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	items := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "photodock",
			Subsystem: "ingest",
			Name:      "items",
			Help:      "Item counters of the current ingest run by state.",
		},
		[]string{"state"},
	)
	percent := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "photodock",
			Subsystem: "ingest",
			Name:      "progress_percent",
			Help:      "Completion percentage of the current ingest run by phase.",
		},
		[]string{"phase"},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photodock",
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Finished ingest runs by status.",
		},
		[]string{"status"},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "photodock",
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished ingest runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
	uploadLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "photodock",
			Subsystem: "upload",
			Name:      "item_duration_seconds",
			Help:      "Time spent processing one upload item, crop and write-back included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	collectors := []prometheus.Collector{items, percent, runs, runDuration, uploadLatency}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch target := collector.(type) {
				case *prometheus.GaugeVec:
					switch target {
					case items:
						items = already.ExistingCollector.(*prometheus.GaugeVec)
					case percent:
						percent = already.ExistingCollector.(*prometheus.GaugeVec)
					}
				case *prometheus.CounterVec:
					runs = already.ExistingCollector.(*prometheus.CounterVec)
				case *prometheus.HistogramVec:
					uploadLatency = already.ExistingCollector.(*prometheus.HistogramVec)
				case prometheus.Histogram:
					runDuration = already.ExistingCollector.(prometheus.Histogram)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		items:         items,
		percent:       percent,
		runs:          runs,
		runDuration:   runDuration,
		uploadLatency: uploadLatency,
	}
}

// Observe implements Observer by mirroring the snapshot into gauges.
func (m *Metrics) Observe(s Snapshot) {
	if m == nil {
		return
	}
	m.items.WithLabelValues("total").Set(float64(s.Total))
	m.items.WithLabelValues("processed").Set(float64(s.Processed))
	m.items.WithLabelValues("matched").Set(float64(s.Matched))
	m.items.WithLabelValues("unmatched").Set(float64(s.Unmatched))
	m.items.WithLabelValues("uploaded").Set(float64(s.Uploaded))
	m.items.WithLabelValues("failed").Set(float64(s.Failed))
	m.items.WithLabelValues("linked").Set(float64(s.Linked))
	m.items.WithLabelValues("link_failed").Set(float64(s.LinkFailed))
	m.items.WithLabelValues("crop_fallback").Set(float64(s.CropFallbacks))
	m.percent.WithLabelValues("match").Set(s.Percent)
	m.percent.WithLabelValues("upload").Set(s.UploadPercent)
}

// ObserveUpload records the duration of one upload item.
func (m *Metrics) ObserveUpload(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.uploadLatency.WithLabelValues(status).Observe(d.Seconds())
}

// RunFinished counts a finished run with status ("ok", "partial", "failed").
func (m *Metrics) RunFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}
