// Package metrics exports launch and sync progress as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/feedship/internal/app"
	"github.com/bft-labs/feedship/internal/domain"
)

const defaultNamespace = "feedship"

// Collector implements app.Observer on a private registry.
type Collector struct {
	registry *prometheus.Registry

	steps        *prometheus.CounterVec
	tokenRefresh *prometheus.CounterVec
	tokenLatency prometheus.Histogram
	resolutions  *prometheus.CounterVec
	resolveTime  prometheus.Histogram
	uploads      *prometheus.CounterVec
	uploadItems  *prometheus.CounterVec
	uploadTime   *prometheus.HistogramVec
}

// NewCollector creates a collector. An empty namespace uses "feedship".
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = defaultNamespace
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "launch",
				Name:      "steps_total",
				Help:      "Launch steps executed, by step and status.",
			},
			[]string{"step", "status"},
		),
		tokenRefresh: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "token",
				Name:      "refreshes_total",
				Help:      "Access token refreshes, by status.",
			},
			[]string{"status"},
		),
		tokenLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "token",
				Name:      "refresh_duration_seconds",
				Help:      "Duration of access token refreshes.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feed_id",
				Name:      "resolutions_total",
				Help:      "Feed id resolutions, by policy and status.",
			},
			[]string{"policy", "status"},
		),
		resolveTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "feed_id",
				Name:      "resolution_duration_seconds",
				Help:      "Duration of feed id resolutions.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upload",
				Name:      "runs_total",
				Help:      "Category uploads, by category and status.",
			},
			[]string{"category", "status"},
		),
		uploadItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upload",
				Name:      "items_total",
				Help:      "Queued records accepted by the backend, by category.",
			},
			[]string{"category"},
		),
		uploadTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upload",
				Name:      "duration_seconds",
				Help:      "Duration of category uploads.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"category"},
		),
	}

	c.registry.MustRegister(
		c.steps,
		c.tokenRefresh,
		c.tokenLatency,
		c.resolutions,
		c.resolveTime,
		c.uploads,
		c.uploadItems,
		c.uploadTime,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the collected metrics over HTTP.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) OnStep(step app.Step, err error) {
	c.steps.WithLabelValues(string(step), status(err)).Inc()
}

func (c *Collector) OnTokenRefresh(err error, d time.Duration) {
	c.tokenRefresh.WithLabelValues(status(err)).Inc()
	c.tokenLatency.Observe(d.Seconds())
}

func (c *Collector) OnFeedIDResolved(policy domain.ResolutionPolicy, _ domain.FeedID, err error, d time.Duration) {
	c.resolutions.WithLabelValues(policy.String(), status(err)).Inc()
	c.resolveTime.Observe(d.Seconds())
}

func (c *Collector) OnUpload(o domain.UploadOutcome, d time.Duration) {
	category := string(o.Category)
	c.uploads.WithLabelValues(category, status(o.Err)).Inc()
	c.uploadItems.WithLabelValues(category).Add(float64(o.Items))
	c.uploadTime.WithLabelValues(category).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
