package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qrapi",
			Name:      "generations_total",
			Help:      "QR code generation attempts by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qrapi",
			Name:      "generation_duration_seconds",
			Help:      "Time to render and persist a QR code",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"kind"},
	)

	ScansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "qrapi",
			Name:      "scans_total",
			Help:      "Scan events recorded on download",
		},
	)

	ScanFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "qrapi",
			Name:      "scan_failures_total",
			Help:      "Scan events that could not be recorded",
		},
	)

	DownloadedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "qrapi",
			Name:      "downloaded_bytes_total",
			Help:      "Image bytes served by the download endpoint",
		},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qrapi",
			Name:      "storage_operations_total",
			Help:      "Image storage operations by backend, operation and outcome",
		},
		[]string{"backend", "operation", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qrapi",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code",
		},
		[]string{"method", "status"},
	)
)

// Outcome maps an error to the status label used across counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
