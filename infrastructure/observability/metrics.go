package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. It satisfies
// the application metrics port and the expiring store observer.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	placementsAccepted *prometheus.CounterVec
	placementsRejected *prometheus.CounterVec
	silentFailures     *prometheus.CounterVec
	graphRestores      *prometheus.CounterVec
	restoredNodes      prometheus.Gauge
	envelopesDiscarded *prometheus.CounterVec
	eventsPublished    *prometheus.CounterVec
	wsClients          prometheus.Gauge
}

// NewCollector creates a collector with its own registry, so tests can
// build as many as they like.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		placementsAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "placements_accepted_total",
				Help:      "Modules placed into a section",
			},
			[]string{"section"},
		),
		placementsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "placements_rejected_total",
				Help:      "Placements rejected by section validation",
			},
			[]string{"section", "reason"},
		),
		silentFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "silent_failures_total",
				Help:      "Failures swallowed without telling the user",
			},
			[]string{"kind"},
		),
		graphRestores: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_restores_total",
				Help:      "Graph restores by source",
			},
			[]string{"source"},
		),
		restoredNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_restored_nodes",
				Help:      "Node count of the last graph restore",
			},
		),
		envelopesDiscarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_envelopes_discarded_total",
				Help:      "Stored envelopes read as absent",
			},
			[]string{"reason"},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Domain events dispatched",
			},
			[]string{"type"},
		),
		wsClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "websocket_clients",
				Help:      "Connected websocket clients",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.placementsAccepted,
		c.placementsRejected,
		c.silentFailures,
		c.graphRestores,
		c.restoredNodes,
		c.envelopesDiscarded,
		c.eventsPublished,
		c.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) PlacementAccepted(sectionID string) {
	c.placementsAccepted.WithLabelValues(sectionID).Inc()
}

func (c *Collector) PlacementRejected(sectionID, reason string) {
	c.placementsRejected.WithLabelValues(sectionID, reason).Inc()
}

func (c *Collector) SilentFailure(kind string) {
	c.silentFailures.WithLabelValues(kind).Inc()
}

func (c *Collector) GraphRestored(source string, nodes int) {
	c.graphRestores.WithLabelValues(source).Inc()
	c.restoredNodes.Set(float64(nodes))
}

// EnvelopeDiscarded implements expiring.Observer.
func (c *Collector) EnvelopeDiscarded(reason string) {
	c.envelopesDiscarded.WithLabelValues(reason).Inc()
}

func (c *Collector) EventPublished(eventType string) {
	c.eventsPublished.WithLabelValues(eventType).Inc()
}

func (c *Collector) ClientConnected()    { c.wsClients.Inc() }
func (c *Collector) ClientDisconnected() { c.wsClients.Dec() }
