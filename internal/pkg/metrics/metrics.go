package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "subscription_metrics"

// 取数来源
const (
	SourceCache = "cache"
	SourceLive  = "live"
	SourceError = "error"
)

// 快照写入类型
const (
	KindLive      = "live"
	KindBackfill  = "backfill"
	KindScheduled = "scheduled"
)

// Collector 服务自身的 Prometheus 指标，所有方法对 nil 安全
type Collector struct {
	registry *prometheus.Registry

	AnalyticsRequests   *prometheus.CounterVec
	UpstreamRequests    *prometheus.CounterVec
	SnapshotWrites      *prometheus.CounterVec
	BackfillRuns        *prometheus.CounterVec
	BackfillDuration    prometheus.Histogram
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New 使用独立 registry 创建
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		AnalyticsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_requests_total",
			Help:      "Analytics requests by source",
		}, []string{"source"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Billing platform requests by resource and status",
		}, []string{"resource", "status"}),
		SnapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_writes_total",
			Help:      "Snapshot upserts by kind and status",
		}, []string{"kind", "status"}),
		BackfillRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backfill_runs_total",
			Help:      "Finished backfill runs by status",
		}, []string{"status"}),
		BackfillDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backfill_duration_seconds",
			Help:      "Duration of backfill runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		c.AnalyticsRequests,
		c.UpstreamRequests,
		c.SnapshotWrites,
		c.BackfillRuns,
		c.BackfillDuration,
		c.HTTPRequestsTotal,
		c.HTTPRequestDuration,
	)

	return c
}

// Registry 测试用
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 暴露 /metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordAnalytics(source string) {
	if c == nil {
		return
	}
	c.AnalyticsRequests.WithLabelValues(source).Inc()
}

func (c *Collector) RecordUpstream(resource string, err error) {
	if c == nil {
		return
	}
	c.UpstreamRequests.WithLabelValues(resource, status(err)).Inc()
}

func (c *Collector) RecordSnapshotWrite(kind string, err error) {
	if c == nil {
		return
	}
	c.SnapshotWrites.WithLabelValues(kind, status(err)).Inc()
}

func (c *Collector) RecordBackfill(err error, duration time.Duration) {
	if c == nil {
		return
	}
	c.BackfillRuns.WithLabelValues(status(err)).Inc()
	c.BackfillDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
