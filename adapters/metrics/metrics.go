// Package metrics provides Prometheus metrics collection for the
// confchan daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the daemon.
type Collector struct {
	// Store call metrics
	StoreCallsTotal   *prometheus.CounterVec
	StoreCallDuration *prometheus.HistogramVec
	StoreCallErrors   *prometheus.CounterVec

	// Event metrics
	EventsEmitted   *prometheus.CounterVec
	SubscribersLive prometheus.Gauge

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a new metrics collector with all metrics registered on
// the default registry.
func New() *Collector {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg. Tests pass a private registry
// so parallel collectors don't collide.
func NewWith(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		// Store call metrics
		StoreCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "confchan",
				Name:      "store_calls_total",
				Help:      "Total number of store operations served",
			},
			[]string{"op", "channel"},
		),
		StoreCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "confchan",
				Name:      "store_call_duration_seconds",
				Help:      "Store operation duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op"},
		),
		StoreCallErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "confchan",
				Name:      "store_call_errors_total",
				Help:      "Total number of failed store operations",
			},
			[]string{"op"},
		),

		// Event metrics
		EventsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "confchan",
				Name:      "events_emitted_total",
				Help:      "Total number of change events fanned out",
			},
			[]string{"channel"},
		),
		SubscribersLive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "confchan",
				Name:      "subscribers_live",
				Help:      "Number of live event subscriptions",
			},
		),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "confchan",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "confchan",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),
	}
}
