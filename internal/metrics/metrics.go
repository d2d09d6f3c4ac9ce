package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	ReservationsOK           prometheus.Counter
	ReservationsInsufficient prometheus.Counter
	ReservationsUnavailable  prometheus.Counter
	RollbackFailures         prometheus.Counter
	OrdersPlaced             prometheus.Counter
	EventsDelivered          prometheus.Counter
	EventsDropped            prometheus.Counter
	LiveConnections          prometheus.Gauge
	PlacementLatencySec      prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	resOK := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_reservations_ok_total"})
	resIns := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_reservations_insufficient_total"})
	resUnav := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_reservations_unavailable_total"})
	rollback := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_rollback_failures_total"})
	placed := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_orders_placed_total"})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_events_delivered_total"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_events_dropped_total"})
	live := prometheus.NewGauge(prometheus.GaugeOpts{Name: "market_live_connections"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "market_placement_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(resOK, resIns, resUnav, rollback, placed, delivered, dropped, live, latency)
	return &Registry{
		reg:                      r,
		ReservationsOK:           resOK,
		ReservationsInsufficient: resIns,
		ReservationsUnavailable:  resUnav,
		RollbackFailures:         rollback,
		OrdersPlaced:             placed,
		EventsDelivered:          delivered,
		EventsDropped:            dropped,
		LiveConnections:          live,
		PlacementLatencySec:      latency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
