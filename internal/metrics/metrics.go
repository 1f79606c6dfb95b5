// Package metrics exposes the agent's Prometheus collectors: commit
// throughput, get/put latency, and plugin registry size. Grounded on
// the teacher's pkg/metrics/prometheus (promauto.With(reg).New*Vec
// collector construction, "<app>_<subsystem>_<noun>" naming, histogram
// bucket shape), narrowed from the teacher's per-NFS-operation cache/S3
// metrics to this agent's get/put/commit/plugin surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every collector this agent registers.
type Collector struct {
	reg *prometheus.Registry

	commits        *prometheus.CounterVec
	commitBytes    *prometheus.HistogramVec
	getDuration    *prometheus.HistogramVec
	putDuration    *prometheus.HistogramVec
	pluginsLoaded  prometheus.Gauge
	authDecisions  *prometheus.CounterVec
}

// New registers a fresh collector set against a new registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	return &Collector{
		reg: reg,
		commits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "confd_datastore_commits_total",
			Help: "Total number of successful datastore commits by database and operation",
		}, []string{"database", "operation"}),
		commitBytes: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "confd_datastore_commit_bytes",
			Help:    "Size in bytes of each persisted datastore file after a commit",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
		}, []string{"database"}),
		getDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "confd_datastore_get_duration_milliseconds",
			Help:    "Duration of Engine.Get calls",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
		}, []string{"database"}),
		putDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "confd_datastore_put_duration_milliseconds",
			Help:    "Duration of Engine.Put calls",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
		}, []string{"database", "operation"}),
		pluginsLoaded: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "confd_plugin_registry_size",
			Help: "Number of plugins currently registered",
		}),
		authDecisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "confd_auth_decisions_total",
			Help: "Total auth chain verdicts by outcome",
		}, []string{"verdict"}),
	}
}

// Registry returns the underlying prometheus.Registry for wiring into
// an HTTP handler (promhttp.HandlerFor).
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// ObserveCommit records one successful Put.
func (c *Collector) ObserveCommit(database, operation string, bytes int) {
	c.commits.WithLabelValues(database, operation).Inc()
	c.commitBytes.WithLabelValues(database).Observe(float64(bytes))
}

// ObserveGet records one Get call's duration.
func (c *Collector) ObserveGet(database string, d time.Duration) {
	c.getDuration.WithLabelValues(database).Observe(float64(d.Microseconds()) / 1000.0)
}

// ObservePut records one Put call's duration.
func (c *Collector) ObservePut(database, operation string, d time.Duration) {
	c.putDuration.WithLabelValues(database, operation).Observe(float64(d.Microseconds()) / 1000.0)
}

// SetPluginCount reports the current plugin registry size.
func (c *Collector) SetPluginCount(n int) {
	c.pluginsLoaded.Set(float64(n))
}

// ObserveAuthDecision records one auth chain verdict.
func (c *Collector) ObserveAuthDecision(verdict string) {
	c.authDecisions.WithLabelValues(verdict).Inc()
}
