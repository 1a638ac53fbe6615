package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements every hook interface with prometheus collectors.
type Prometheus struct {
	resolveTotal    *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
	resolvePackages prometheus.Histogram
	shortfallTotal  *prometheus.CounterVec
	installTotal    *prometheus.CounterVec
	installDuration *prometheus.HistogramVec
	rollbackTotal   *prometheus.CounterVec
	cacheTotal      *prometheus.CounterVec
	cacheBytes      *prometheus.CounterVec
	httpTotal       *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg.
// It panics if a collector is already registered, like prometheus.MustRegister.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		resolveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fsm_resolve_total",
			Help: "Total number of resolutions by outcome",
		}, []string{"outcome"}),
		resolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fsm_resolve_duration_seconds",
			Help:    "Resolution latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"outcome"}),
		resolvePackages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fsm_resolve_packages",
			Help:    "Number of packages in a resolution order",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		shortfallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fsm_shortfall_total",
			Help: "Packages the target repository could not satisfy",
		}, []string{"reason"}),
		installTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fsm_install_steps_total",
			Help: "Install steps by package kind and outcome",
		}, []string{"kind", "outcome"}),
		installDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "fsm_install_step_duration_seconds",
			Help: "Install step latency by package kind",
		}, []string{"kind"}),
		rollbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fsm_rollback_total",
			Help: "Transaction rollbacks by outcome",
		}, []string{"outcome"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fsm_cache_ops_total",
			Help: "Cache operations by key type and result",
		}, []string{"key_type", "result"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fsm_cache_written_bytes_total",
			Help: "Bytes written to the cache by key type",
		}, []string{"key_type"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fsm_http_requests_total",
			Help: "Outgoing HTTP requests by host and status",
		}, []string{"method", "host", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "fsm_http_request_duration_seconds",
			Help: "Outgoing HTTP request latency by host",
		}, []string{"method", "host"}),
	}
	reg.MustRegister(
		p.resolveTotal, p.resolveDuration, p.resolvePackages, p.shortfallTotal,
		p.installTotal, p.installDuration, p.rollbackTotal,
		p.cacheTotal, p.cacheBytes,
		p.httpTotal, p.httpDuration,
	)
	return p
}

// Register installs p as the resolve, install, cache and HTTP hooks.
func (p *Prometheus) Register() {
	SetResolveHooks(p)
	SetInstallHooks(p)
	SetCacheHooks(p)
	SetHTTPHooks(p)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnResolveStart(context.Context, string) {}

func (p *Prometheus) OnResolveComplete(_ context.Context, _ string, packages int, d time.Duration, err error) {
	o := outcome(err)
	p.resolveTotal.WithLabelValues(o).Inc()
	p.resolveDuration.WithLabelValues(o).Observe(d.Seconds())
	if err == nil {
		p.resolvePackages.Observe(float64(packages))
	}
}

func (p *Prometheus) OnShortfall(_ context.Context, _ string, reason string) {
	p.shortfallTotal.WithLabelValues(reason).Inc()
}

func (p *Prometheus) OnInstallStep(_ context.Context, kind, _ string, d time.Duration, err error) {
	p.installTotal.WithLabelValues(kind, outcome(err)).Inc()
	p.installDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *Prometheus) OnRollback(_ context.Context, _ string, _ int, err error) {
	p.rollbackTotal.WithLabelValues(outcome(err)).Inc()
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheTotal.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, method, host, _ string, status int, d time.Duration) {
	p.httpTotal.WithLabelValues(method, host, statusClass(status)).Inc()
	p.httpDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, method, host, _ string, _ error) {
	p.httpTotal.WithLabelValues(method, host, "error").Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

var (
	_ ResolveHooks = (*Prometheus)(nil)
	_ InstallHooks = (*Prometheus)(nil)
	_ CacheHooks   = (*Prometheus)(nil)
	_ HTTPHooks    = (*Prometheus)(nil)
)
