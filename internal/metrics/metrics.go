package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Conversions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "convert_conversions_total",
		Help: "Finished conversions by strategy and outcome",
	}, []string{"strategy", "outcome"})

	ConversionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "convert_conversion_duration_seconds",
		Help:    "Time spent inside a conversion strategy",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"strategy"})

	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "convert_in_flight",
		Help: "Conversions currently running",
	})

	UploadBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "convert_upload_bytes",
		Help:    "Size of accepted uploads",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})

	SideChannelErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "convert_side_channel_errors_total",
		Help: "Archive, history and event publishing failures",
	}, []string{"sink"})
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(Conversions, ConversionDuration, InFlight, UploadBytes, SideChannelErrors)
	})
}

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
