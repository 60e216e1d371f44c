package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chunkrelay"

// Metrics exposes Prometheus collectors that report conversion activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	conversions    *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	chunksProduced prometheus.Histogram
	inFlight       prometheus.Gauge
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Collectors already registered under the same names are reused, so building
// several instances against one registry is safe. Any other registration
// error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	conversions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Total number of conversion requests by outcome.",
		},
		[]string{"status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Wall-clock time spent handling a conversion request.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)
	chunksProduced := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunks_produced",
			Help:      "Number of chunks written per converted document.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversions_in_flight",
			Help:      "Number of conversion requests currently being processed.",
		},
	)

	collectors := []prometheus.Collector{conversions, duration, chunksProduced, inFlight}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				panic(err)
			}
			switch collector {
			case conversions:
				conversions = already.ExistingCollector.(*prometheus.CounterVec)
			case duration:
				duration = already.ExistingCollector.(*prometheus.HistogramVec)
			case chunksProduced:
				chunksProduced = already.ExistingCollector.(prometheus.Histogram)
			case inFlight:
				inFlight = already.ExistingCollector.(prometheus.Gauge)
			}
		}
	}

	return &Metrics{
		conversions:    conversions,
		duration:       duration,
		chunksProduced: chunksProduced,
		inFlight:       inFlight,
	}
}

// ObserveConversion records a finished request with its status and duration.
func (m *Metrics) ObserveConversion(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// ObserveChunks records the chunk count of a serialized document.
func (m *Metrics) ObserveChunks(n int) {
	if m == nil {
		return
	}
	m.chunksProduced.Observe(float64(n))
}

// IncInFlight marks a request as started.
func (m *Metrics) IncInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// DecInFlight marks a request as finished.
func (m *Metrics) DecInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
