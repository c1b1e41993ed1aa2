// Package observability wires Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Each collector
// owns its registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Conversation metrics
	HandlerCalls    *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	Answers         *prometheus.CounterVec
	Planted         *prometheus.CounterVec
	Removed         prometheus.Counter
	Weeded          prometheus.Counter
	GardensFull     prometheus.Counter
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HandlerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_calls_total",
			Help:      "Conversation handler invocations",
		}, []string{"handler", "status"}),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Conversation handler duration in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"handler"}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers to garden questions by outcome",
		}, []string{"outcome"}),
		Planted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_planted_total",
			Help:      "Items planted by category",
		}, []string{"category"}),
		Removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flowers_removed_total",
			Help:      "Flowers removed by the player",
		}),
		Weeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flowers_weeded_total",
			Help:      "Flowers cleared of weeds",
		}),
		GardensFull: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gardens_full_total",
			Help:      "Times a player filled every slot",
		}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.HandlerCalls,
		c.HandlerDuration,
		c.Answers,
		c.Planted,
		c.Removed,
		c.Weeded,
		c.GardensFull,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordHTTPRequest records an HTTP request
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordHandler implements dispatch.Recorder
func (c *Collector) RecordHandler(name string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.HandlerCalls.WithLabelValues(name, status).Inc()
	c.HandlerDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// RecordAnswer counts an answer outcome
func (c *Collector) RecordAnswer(outcome string) {
	c.Answers.WithLabelValues(outcome).Inc()
}

// RecordPlanted counts a planted item
func (c *Collector) RecordPlanted(category string) {
	c.Planted.WithLabelValues(category).Inc()
}

// RecordRemoved counts removed flowers
func (c *Collector) RecordRemoved(n int) {
	c.Removed.Add(float64(n))
}

// RecordWeeded counts weeded flowers
func (c *Collector) RecordWeeded(n int) {
	c.Weeded.Add(float64(n))
}

// RecordGardenFull counts a garden filling up
func (c *Collector) RecordGardenFull() {
	c.GardensFull.Inc()
}
