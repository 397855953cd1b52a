// Package metrics exposes the service's Prometheus counters.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"

	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

type Metrics struct {
	PermissionChecksTotal *prometheus.CounterVec
	InvitationEventsTotal *prometheus.CounterVec
	NotificationsTotal    *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teams_permission_checks_total",
				Help: "Permission evaluations by permission tag and decision",
			},
			[]string{"permission", "decision"},
		),
		InvitationEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teams_invitation_events_total",
				Help: "Invitation lifecycle events",
			},
			[]string{"event"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teams_notifications_total",
				Help: "Invitation notifications by result",
			},
			[]string{"result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teams_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "teams_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.PermissionChecksTotal,
		m.InvitationEventsTotal,
		m.NotificationsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

func (m *Metrics) PermissionCheck(permission string, allowed bool) {
	if m == nil {
		return
	}
	decision := DecisionDeny
	if allowed {
		decision = DecisionAllow
	}
	m.PermissionChecksTotal.WithLabelValues(permission, decision).Inc()
}

func (m *Metrics) InvitationEvent(event string) {
	if m == nil {
		return
	}
	m.InvitationEventsTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) Notification(err error) {
	if m == nil {
		return
	}
	result := NotificationSent
	if err != nil {
		result = NotificationFailed
	}
	m.NotificationsTotal.WithLabelValues(result).Inc()
}

// Middleware records request count and latency. Unmatched routes are
// grouped under one path label to keep cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
