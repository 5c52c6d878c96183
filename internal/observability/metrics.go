package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors for the NDR pipeline.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	webhooksTotal         *prometheus.CounterVec
	ndrsClassifiedTotal   *prometheus.CounterVec
	outreachTotal         *prometheus.CounterVec
	outreachSkippedTotal  *prometheus.CounterVec
	adapterSendDuration   *prometheus.HistogramVec
	autoTriggerQueueDepth prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ndr_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ndr_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		webhooksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ndr_engine",
				Name:      "webhooks_total",
				Help:      "Total number of carrier webhooks ingested by source format and result.",
			},
			[]string{"format", "result"},
		),
		ndrsClassifiedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ndr_engine",
				Name:      "ndrs_classified_total",
				Help:      "Total number of NDRs classified grouped by reason and priority.",
			},
			[]string{"reason", "priority"},
		),
		outreachTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ndr_engine",
				Name:      "outreach_attempts_total",
				Help:      "Total number of outreach attempts grouped by channel and status.",
			},
			[]string{"channel", "status"},
		),
		outreachSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ndr_engine",
				Name:      "outreach_skipped_total",
				Help:      "Automatic outreach triggers skipped, grouped by skip reason.",
			},
			[]string{"reason"},
		),
		adapterSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ndr_engine",
				Name:      "adapter_send_duration_seconds",
				Help:      "Channel adapter send duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		autoTriggerQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ndr_engine",
				Name:      "auto_trigger_queue_depth",
				Help:      "Current number of queued automatic outreach tasks.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.webhooksTotal,
		m.ndrsClassifiedTotal,
		m.outreachTotal,
		m.outreachSkippedTotal,
		m.adapterSendDuration,
		m.autoTriggerQueueDepth,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncWebhook(format string, result string) {
	if m == nil {
		return
	}
	m.webhooksTotal.WithLabelValues(normalizeLabel(format), normalizeLabel(result)).Inc()
}

func (m *Metrics) IncNDRClassified(reason string, priority string) {
	if m == nil {
		return
	}
	m.ndrsClassifiedTotal.WithLabelValues(normalizeLabel(reason), normalizeLabel(priority)).Inc()
}

func (m *Metrics) IncOutreach(channel string, status string) {
	if m == nil {
		return
	}
	m.outreachTotal.WithLabelValues(normalizeLabel(channel), normalizeLabel(status)).Inc()
}

func (m *Metrics) IncOutreachSkipped(reason string) {
	if m == nil {
		return
	}
	m.outreachSkippedTotal.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) ObserveAdapterSendDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.adapterSendDuration.WithLabelValues(normalizeLabel(channel)).Observe(seconds)
}

func (m *Metrics) SetAutoTriggerQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.autoTriggerQueueDepth.Set(float64(depth))
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
