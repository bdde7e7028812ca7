// Package metrics exposes prometheus collectors for the webhook server and
// the backup engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors. Construct with New; a nil *Metrics is a
// valid no-op receiver so call sites need no guards.
type Metrics struct {
	registry        *prometheus.Registry
	webhooksTotal   *prometheus.CounterVec
	webhookDuration *prometheus.HistogramVec
	eventsGated     *prometheus.CounterVec
	backupRuns      *prometheus.CounterVec
	backupDuration  prometheus.Histogram
}

// New creates the collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		webhooksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaybot_webhooks_total",
			Help: "Inbound webhook requests by platform and status bucket.",
		}, []string{"platform", "status"}),
		webhookDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relaybot_webhook_duration_seconds",
			Help:    "Webhook handling latency by platform.",
			Buckets: prometheus.DefBuckets,
		}, []string{"platform"}),
		eventsGated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaybot_events_gated_total",
			Help: "Events rejected before persistence, by reason.",
		}, []string{"reason"}),
		backupRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaybot_backup_runs_total",
			Help: "Backup runs by outcome.",
		}, []string{"outcome"}),
		backupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relaybot_backup_duration_seconds",
			Help:    "Backup run duration.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

// IncWebhook records one handled webhook request.
func (m *Metrics) IncWebhook(platform string, status int) {
	if m == nil {
		return
	}
	m.webhooksTotal.WithLabelValues(platform, statusBucket(status)).Inc()
}

// ObserveWebhookDuration records webhook handling latency.
func (m *Metrics) ObserveWebhookDuration(platform string, d time.Duration) {
	if m == nil {
		return
	}
	m.webhookDuration.WithLabelValues(platform).Observe(d.Seconds())
}

// IncGated records one event rejected by moderation or rate limiting.
func (m *Metrics) IncGated(reason string) {
	if m == nil {
		return
	}
	m.eventsGated.WithLabelValues(reason).Inc()
}

// IncBackupRun records one backup run outcome ("success" or "failure").
func (m *Metrics) IncBackupRun(outcome string) {
	if m == nil {
		return
	}
	m.backupRuns.WithLabelValues(outcome).Inc()
}

// ObserveBackupDuration records one backup run duration.
func (m *Metrics) ObserveBackupDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.backupDuration.Observe(d.Seconds())
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
