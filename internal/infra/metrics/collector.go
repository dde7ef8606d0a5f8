package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	rateLimited     *prometheus.CounterVec
	chatEvents      *prometheus.CounterVec
	diagnostics     *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	ticketsOpened   prometheus.Counter
	ticketsClosed   prometheus.Counter
	statusStreamers prometheus.Gauge
}

// NewCollector registers every fpsbot metric on a private registry along with
// the Go runtime and process collectors.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fpsbot",
			Name:      "http_requests_total",
			Help:      "HTTP requests served by the control plane",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fpsbot",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fpsbot",
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"route"}),

		chatEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fpsbot",
			Name:      "chat_events_total",
			Help:      "Chat platform events handled",
		}, []string{"type"}),

		diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fpsbot",
			Name:      "diagnostics_total",
			Help:      "Diagnostic uploads by outcome",
		}, []string{"outcome"}),

		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fpsbot",
			Name:      "webhook_events_total",
			Help:      "Scheduling webhook events by type and status",
		}, []string{"event", "status"}),

		ticketsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fpsbot",
			Name:      "tickets_opened_total",
			Help:      "Support tickets opened",
		}),

		ticketsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fpsbot",
			Name:      "tickets_closed_total",
			Help:      "Support tickets closed",
		}),

		statusStreamers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "fpsbot",
			Name:      "status_stream_clients",
			Help:      "Open status stream connections",
		}),
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) RateLimited(route string) {
	c.rateLimited.WithLabelValues(route).Inc()
}

func (c *Collector) ChatEvent(eventType string) {
	c.chatEvents.WithLabelValues(eventType).Inc()
}

// DiagnosticProcessed takes a recommendation tier or an error kind.
func (c *Collector) DiagnosticProcessed(outcome string) {
	c.diagnostics.WithLabelValues(outcome).Inc()
}

func (c *Collector) WebhookEvent(event, status string) {
	c.webhookEvents.WithLabelValues(event, status).Inc()
}

func (c *Collector) TicketOpened() {
	c.ticketsOpened.Inc()
}

func (c *Collector) TicketClosed() {
	c.ticketsClosed.Inc()
}

func (c *Collector) StreamConnected() {
	c.statusStreamers.Inc()
}

func (c *Collector) StreamDisconnected() {
	c.statusStreamers.Dec()
}
