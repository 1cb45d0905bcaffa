package sensordata

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest outcomes used as the "result" label.
const (
	resultOK      = "ok"
	resultInvalid = "invalid"
	resultError   = "error"
	resultDup     = "duplicate"
)

// Metrics is safe to use as a nil pointer; every method then does nothing.
type Metrics struct {
	ingestTotal   *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	latestReading prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ingestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sensordata_ingest_total",
			Help: "Ingested readings by transport and result",
		}, []string{"transport", "result"}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sensordata_query_duration_seconds",
			Help:    "Duration of latest and history queries against the store",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		latestReading: f.NewGauge(prometheus.GaugeOpts{
			Name: "sensordata_latest_reading_timestamp_seconds",
			Help: "createdAt of the newest reading accepted by this process",
		}),
	}
}

func (m *Metrics) ingest(transport, result string) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(transport, result).Inc()
}

func (m *Metrics) observeQuery(query string, start time.Time) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

func (m *Metrics) setLatest(t time.Time) {
	if m == nil {
		return
	}
	m.latestReading.Set(float64(t.UnixMilli()) / 1000)
}
