package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Metrics struct {
	flows           *prometheus.CounterVec
	flowDuration    *prometheus.HistogramVec
	downloadedBytes prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watermark_flows_total",
			Help: "Watermark flows by result (success or failure kind).",
		}, []string{"result"}),
		flowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "watermark_flow_duration_seconds",
			Help:    "Wall time of a watermark flow from start to report.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"result"}),
		downloadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watermark_downloaded_bytes_total",
			Help: "Bytes of verified watermarked output written to disk.",
		}),
	}
	reg.MustRegister(m.flows, m.flowDuration, m.downloadedBytes)
	return m
}

func (m *Metrics) ObserveFlow(result string, elapsed time.Duration) {
	m.flows.WithLabelValues(result).Inc()
	m.flowDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

func (m *Metrics) AddDownloadedBytes(n int64) {
	m.downloadedBytes.Add(float64(n))
}

// Expose serves /metrics for the default registry in the background.
func Expose(port int, logger zerolog.Logger) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			logger.Error().Err(err).Int("port", port).Msg("metrics server stopped")
		}
	}()
}
