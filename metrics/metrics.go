package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the process-local Prometheus collectors.
type Registry struct {
	reg              *prometheus.Registry
	ClientsConnected prometheus.Gauge
	Broadcasts       *prometheus.CounterVec
	ClientsDropped   prometheus.Counter
	SnapshotFailures prometheus.Counter
	MirrorFailures   *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	connected := prometheus.NewGauge(prometheus.GaugeOpts{Name: "kitchen_ws_clients_connected"})
	broadcasts := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "kitchen_ws_broadcasts_total"}, []string{"event"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "kitchen_ws_clients_dropped_total"})
	snapshotFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "kitchen_ws_snapshot_failures_total"})
	mirrorFailures := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "kitchen_event_mirror_failures_total"}, []string{"sink"})

	r.MustRegister(connected, broadcasts, dropped, snapshotFailures, mirrorFailures)
	return &Registry{
		reg:              r,
		ClientsConnected: connected,
		Broadcasts:       broadcasts,
		ClientsDropped:   dropped,
		SnapshotFailures: snapshotFailures,
		MirrorFailures:   mirrorFailures,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
