package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cinegraph/common/dataloader"
)

const namespace = "cinegraph"

// Collector exports dataloader activity to Prometheus.
type Collector struct {
	batches   *prometheus.CounterVec
	failures  *prometheus.CounterVec
	keys      *prometheus.HistogramVec
	latency   *prometheus.HistogramVec
	cacheHits *prometheus.CounterVec
}

var _ dataloader.Observer = (*Collector)(nil)

func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataloader",
			Name:      "batches_total",
			Help:      "Number of backend fetches issued by loaders.",
		}, []string{"loader"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataloader",
			Name:      "batch_failures_total",
			Help:      "Number of backend fetches that returned an error.",
		}, []string{"loader"}),
		keys: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dataloader",
			Name:      "batch_keys",
			Help:      "Distinct keys carried by one backend fetch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"loader"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dataloader",
			Name:      "batch_duration_seconds",
			Help:      "Time spent in one backend fetch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"loader"}),
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataloader",
			Name:      "cache_hits_total",
			Help:      "Lookups served from the request cache.",
		}, []string{"loader"}),
	}
}

func (c *Collector) BatchDispatched(loader string, keys int, elapsed time.Duration, err error) {
	c.batches.WithLabelValues(loader).Inc()
	c.keys.WithLabelValues(loader).Observe(float64(keys))
	c.latency.WithLabelValues(loader).Observe(elapsed.Seconds())
	if err != nil {
		c.failures.WithLabelValues(loader).Inc()
	}
}

func (c *Collector) CacheHit(loader string) {
	c.cacheHits.WithLabelValues(loader).Inc()
}
