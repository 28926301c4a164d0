package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the engine's operational counters, served on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	SnapshotsApplied *prometheus.CounterVec
	FetchErrors      *prometheus.CounterVec
	StaleDiscarded   *prometheus.CounterVec
	BidsPlaced       prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SnapshotsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bidbox_snapshots_applied_total",
			Help: "Remote snapshots merged into local state, by resource key.",
		}, []string{"resource"}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bidbox_fetch_errors_total",
			Help: "Failed snapshot fetches, by resource key.",
		}, []string{"resource"}),
		StaleDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bidbox_stale_snapshots_discarded_total",
			Help: "Fetch completions discarded by the ordering guard, by resource key.",
		}, []string{"resource"}),
		BidsPlaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "bidbox_bids_placed_total",
			Help: "Successful bid submissions.",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
