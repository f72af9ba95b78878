// Package metrics exposes Prometheus instrumentation for the checking core.
//
// Collectors register on a caller-owned registry so several services can live in
// one process (and in one test binary) without clashing. A nil *Collector is a
// valid no-op.
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every metric the core reports
type Collector struct {
	cacheRequests    *prometheus.CounterVec
	cacheEntries     prometheus.Gauge
	sessionsActive   prometheus.Gauge
	tasksSubmitted   *prometheus.CounterVec
	protocolMessages *prometheus.CounterVec
	protocolErrors   *prometheus.CounterVec
	alertsReceived   prometheus.Counter
	authRefresh      *prometheus.CounterVec
	gatherer         prometheus.Gatherer
}

// New registers the collectors on reg
func New(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		cacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lynx_cache_requests_total",
			Help: "Result cache requests by outcome",
		}, []string{"result"}),
		cacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lynx_cache_entries",
			Help: "Tasks currently held by the result cache",
		}),
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lynx_sessions_active",
			Help: "Protocol sessions currently running",
		}),
		tasksSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lynx_tasks_submitted_total",
			Help: "Tasks handed to the dispatcher by kind",
		}, []string{"kind"}),
		protocolMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lynx_protocol_messages_total",
			Help: "Inbound protocol messages by action",
		}, []string{"action"}),
		protocolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lynx_protocol_errors_total",
			Help: "Sessions torn down by reason",
		}, []string{"reason"}),
		alertsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "lynx_alerts_received_total",
			Help: "Alerts received from the checking service",
		}),
		authRefresh: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lynx_auth_refresh_total",
			Help: "Credential refreshes by outcome",
		}, []string{"result"}),
		gatherer: reg,
	}
}

// CacheHit records a request served from the cache
func (c *Collector) CacheHit() {
	if c == nil {
		return
	}
	c.cacheRequests.WithLabelValues("hit").Inc()
}

// CacheMiss records a request that created a new task
func (c *Collector) CacheMiss() {
	if c == nil {
		return
	}
	c.cacheRequests.WithLabelValues("miss").Inc()
}

// CacheEntries sets the current cache size
func (c *Collector) CacheEntries(n int) {
	if c == nil {
		return
	}
	c.cacheEntries.Set(float64(n))
}

// SessionStarted increments the active session gauge
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessionsActive.Inc()
}

// SessionEnded decrements the active session gauge
func (c *Collector) SessionEnded() {
	if c == nil {
		return
	}
	c.sessionsActive.Dec()
}

// TaskSubmitted counts a dispatched task
func (c *Collector) TaskSubmitted(kind string) {
	if c == nil {
		return
	}
	c.tasksSubmitted.WithLabelValues(kind).Inc()
}

// ProtocolMessage counts an inbound message
func (c *Collector) ProtocolMessage(action string) {
	if c == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	c.protocolMessages.WithLabelValues(action).Inc()
}

// ProtocolError counts a torn-down session
func (c *Collector) ProtocolError(reason string) {
	if c == nil {
		return
	}
	c.protocolErrors.WithLabelValues(reason).Inc()
}

// AlertReceived counts one alert
func (c *Collector) AlertReceived() {
	if c == nil {
		return
	}
	c.alertsReceived.Inc()
}

// AuthRefresh counts a credential refresh
func (c *Collector) AuthRefresh(ok bool) {
	if c == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.authRefresh.WithLabelValues(result).Inc()
}

// Snapshot flattens the current counter and gauge values into a map keyed by
// metric name plus sorted labels, e.g. `lynx_cache_requests_total{result="hit"}`
func (c *Collector) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	if c == nil {
		return out
	}
	families, err := c.gatherer.Gather()
	if err != nil {
		return out
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+`="`+lp.GetValue()+`"`)
			}
			sort.Strings(labels)
			key := mf.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			}
		}
	}
	return out
}
