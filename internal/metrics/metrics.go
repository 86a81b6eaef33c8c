// Package metrics exposes pipeline outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/serroba/linkbot/internal/pipeline"
)

const namespace = "linkbot"

// Collector records link and message outcomes. It implements
// pipeline.Observer.
type Collector struct {
	registry      *prometheus.Registry
	linksTotal    *prometheus.CounterVec
	linkDuration  *prometheus.HistogramVec
	messagesTotal *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry, including the Go
// runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		linksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "links_total",
				Help:      "Detected links by resolution status.",
			},
			[]string{"status"},
		),
		linkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "link_resolve_duration_seconds",
				Help:      "Time spent resolving one link, token lookup included.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		messagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Processed messages by final pipeline state.",
			},
			[]string{"state"},
		),
	}

	c.registry.MustRegister(
		c.linksTotal,
		c.linkDuration,
		c.messagesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

func (c *Collector) LinkResolved(status pipeline.Status, elapsed time.Duration) {
	c.linksTotal.WithLabelValues(string(status)).Inc()
	c.linkDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

func (c *Collector) MessageProcessed(state pipeline.State) {
	c.messagesTotal.WithLabelValues(string(state)).Inc()
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

var _ pipeline.Observer = (*Collector)(nil)
