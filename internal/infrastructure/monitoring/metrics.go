package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the host.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// App lifecycle metrics
	AppsActive     prometheus.Gauge
	AppsKeptAlive  prometheus.Gauge
	MountsTotal    *prometheus.CounterVec // result: mounted|guarded
	UnmountsTotal  *prometheus.CounterVec // mode: destroy|keep
	LoadErrors     prometheus.Counter
	HookErrors     *prometheus.CounterVec // hook: mount|unmount
	UMDDetections  prometheus.Counter
	SourceFetches  *prometheus.CounterVec // channel: html|scripts, result: ok|error
	PrefetchHits   prometheus.Counter
	PrefetchMisses prometheus.Counter

	// Router metrics
	RouterReplaces prometheus.Counter
	RouterStrips   prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates the metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microfront_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "microfront_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		AppsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "microfront_apps_active",
			Help: "Number of apps currently in the registry",
		}),
		AppsKeptAlive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "microfront_apps_kept_alive",
			Help: "Number of apps currently hidden in keep-alive",
		}),
		MountsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microfront_mounts_total",
				Help: "Mount attempts by outcome",
			},
			[]string{"result"},
		),
		UnmountsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microfront_unmounts_total",
				Help: "Unmounts by mode",
			},
			[]string{"mode"},
		),
		LoadErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "microfront_load_errors_total",
			Help: "Source loading failures",
		}),
		HookErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microfront_hook_errors_total",
				Help: "UMD hook failures by hook",
			},
			[]string{"hook"},
		),
		UMDDetections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "microfront_umd_detections_total",
			Help: "Successful UMD export detections",
		}),
		SourceFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microfront_source_fetches_total",
				Help: "Source channel completions by result",
			},
			[]string{"channel", "result"},
		),
		PrefetchHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "microfront_prefetch_cache_hits_total",
			Help: "Source loads served from the prefetch cache",
		}),
		PrefetchMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "microfront_prefetch_cache_misses_total",
			Help: "Source loads that bypassed the prefetch cache",
		}),

		RouterReplaces: promauto.NewCounter(prometheus.CounterOpts{
			Name: "microfront_router_replaces_total",
			Help: "History replace operations on the shared URL",
		}),
		RouterStrips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "microfront_router_strips_total",
			Help: "App segments stripped from the shared URL",
		}),

		WSConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "microfront_ws_connections",
			Help: "Active WebSocket event-stream connections",
		}),

		Uptime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "microfront_uptime_seconds",
			Help: "Host uptime in seconds",
		}),
	}
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
