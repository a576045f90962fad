// Package prom exports bridge session metrics to Prometheus.
package prom

import (
	"net/http"

	"github.com/opd-ai/savebridge"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a fresh Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler returns a Prometheus HTTP handler bound to the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// BridgeObserver exports bridge session metrics to Prometheus.
type BridgeObserver struct {
	activeGauge   *prometheus.GaugeVec
	startedTotal  *prometheus.CounterVec
	endedTotal    *prometheus.CounterVec
	bytesTotal    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	lastSaveBytes prometheus.Gauge
}

var _ savebridge.Observer = (*BridgeObserver)(nil)

// NewBridgeObserver registers bridge metrics on the registry.
func NewBridgeObserver(reg *prometheus.Registry) *BridgeObserver {
	o := &BridgeObserver{
		activeGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "savebridge_sessions_active",
			Help: "Sessions currently in progress.",
		}, []string{"role"}),
		startedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "savebridge_sessions_started_total",
			Help: "Sessions started by role.",
		}, []string{"role"}),
		endedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "savebridge_sessions_ended_total",
			Help: "Session outcomes by role and error kind.",
		}, []string{"role", "outcome", "kind"}),
		bytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "savebridge_body_bytes_total",
			Help: "Save body bytes moved.",
		}, []string{"role"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "savebridge_session_duration_seconds",
			Help:    "Time from session start to its end.",
			Buckets: prometheus.DefBuckets,
		}, []string{"role", "outcome"}),
		lastSaveBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "savebridge_last_save_bytes",
			Help: "Size of the last save transferred successfully.",
		}),
	}
	reg.MustRegister(
		o.activeGauge,
		o.startedTotal,
		o.endedTotal,
		o.bytesTotal,
		o.duration,
		o.lastSaveBytes,
	)
	return o
}

func (o *BridgeObserver) SessionStarted(_ string, role savebridge.Role) {
	o.startedTotal.WithLabelValues(role.String()).Inc()
	o.activeGauge.WithLabelValues(role.String()).Inc()
}

func (o *BridgeObserver) BytesMoved(_ string, role savebridge.Role, n int) {
	o.bytesTotal.WithLabelValues(role.String()).Add(float64(n))
}

func (o *BridgeObserver) SessionEnded(s savebridge.Summary) {
	role := s.Role.String()
	kind := "none"
	if s.Outcome == savebridge.OutcomeFailed {
		kind = s.Kind.String()
	}
	o.activeGauge.WithLabelValues(role).Dec()
	o.endedTotal.WithLabelValues(role, s.Outcome.String(), kind).Inc()
	o.duration.WithLabelValues(role, s.Outcome.String()).Observe(s.Elapsed.Seconds())
	if s.Outcome == savebridge.OutcomeSuccess {
		o.lastSaveBytes.Set(float64(s.Total))
	}
}
