package server

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/panelmap/pkg/observability"
)

const metricsNamespace = "panelmap"

// Metrics backs the observability hooks with Prometheus collectors.
type Metrics struct {
	dumps        *prometheus.CounterVec
	dumpDuration prometheus.Histogram
	panes        prometheus.Counter
	matched      prometheus.Counter
	tabErrors    *prometheus.CounterVec
	cacheEvents  *prometheus.CounterVec
	cacheBytes   prometheus.Counter
	commands     *prometheus.CounterVec
	commandTime  *prometheus.HistogramVec
	requests     *prometheus.CounterVec
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.ControlHooks  = (*Metrics)(nil)
)

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dumps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dumps_total",
			Help:      "Dumps computed, by outcome.",
		}, []string{"status"}),
		dumpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "dump_duration_seconds",
			Help:      "Time spent computing a dump.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		panes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "panes_total",
			Help:      "Panes emitted across all dumps.",
		}),
		matched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "matched_windows_total",
			Help:      "Windows matched to an OS window id.",
		}),
		tabErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tab_errors_total",
			Help:      "Tabs whose tree could not be laid out, by error code.",
		}, []string{"code"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_events_total",
			Help:      "Cache lookups and stores, by event and key type.",
		}, []string{"event", "key_type"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_stored_bytes_total",
			Help:      "Bytes written to the cache.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "controller_commands_total",
			Help:      "Controller commands, by command and outcome.",
		}, []string{"cmd", "status"}),
		commandTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "controller_command_duration_seconds",
			Help:      "Controller round trip time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"cmd"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"route", "code"}),
	}
	reg.MustRegister(m.dumps, m.dumpDuration, m.panes, m.matched, m.tabErrors,
		m.cacheEvents, m.cacheBytes, m.commands, m.commandTime, m.requests)
	return m
}

// Install registers m as the process-wide observability hooks.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetControlHooks(m)
}

func (m *Metrics) OnDumpStart(context.Context, int) {}

func (m *Metrics) OnDumpComplete(_ context.Context, panes, matched int, duration time.Duration, err error) {
	if err != nil {
		m.dumps.WithLabelValues("error").Inc()
		return
	}
	m.dumps.WithLabelValues("ok").Inc()
	m.dumpDuration.Observe(duration.Seconds())
	m.panes.Add(float64(panes))
	m.matched.Add(float64(matched))
}

func (m *Metrics) OnTabError(_ context.Context, _, _ int, code string) {
	m.tabErrors.WithLabelValues(code).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues("hit", keyType).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues("miss", keyType).Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheEvents.WithLabelValues("set", keyType).Inc()
	m.cacheBytes.Add(float64(size))
}

func (m *Metrics) OnCommand(context.Context, string) {}

func (m *Metrics) OnResponse(_ context.Context, cmd string, success bool, duration time.Duration) {
	status := "ok"
	if !success {
		status = "failed"
	}
	m.commands.WithLabelValues(cmd, status).Inc()
	m.commandTime.WithLabelValues(cmd).Observe(duration.Seconds())
}

func (m *Metrics) OnError(_ context.Context, cmd string, _ error) {
	m.commands.WithLabelValues(cmd, "error").Inc()
}

func (m *Metrics) observeRequest(route string, code int) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
