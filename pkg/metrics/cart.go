package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records outcomes of cart engine operations.
type CartMetrics struct {
	duration  *prometheus.HistogramVec
	success   *prometheus.CounterVec
	failure   *prometheus.CounterVec
	skipped   prometheus.Counter
	cacheHits prometheus.Counter
	cacheMiss prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_operation_duration_seconds",
		Help:    "Duration of cart engine operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operation_success_total",
		Help: "Cart operations that finished without a user-facing error.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operation_failure_total",
		Help: "Cart operations that finished with a user-facing error.",
	}, []string{"operation", "code"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_reload_coalesced_total",
		Help: "Reload requests absorbed by a reload already in flight.",
	})
	hits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "product_cache_hits_total",
		Help: "Product display lookups served from the cache.",
	})
	miss := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "product_cache_misses_total",
		Help: "Product display lookups that required a backend fetch.",
	})
	reg.MustRegister(duration, success, failure, skipped, hits, miss)
	return &CartMetrics{
		duration:  duration,
		success:   success,
		failure:   failure,
		skipped:   skipped,
		cacheHits: hits,
		cacheMiss: miss,
	}
}

// ObserveDuration records the duration for the named operation.
func (c *CartMetrics) ObserveDuration(op string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (c *CartMetrics) IncSuccess(op string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure increments the failure counter for the named operation and error code.
func (c *CartMetrics) IncFailure(op, code string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(op), normalizeLabel(code)).Inc()
}

// IncCoalesced counts a reload that was absorbed by the one in flight.
func (c *CartMetrics) IncCoalesced() {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.Inc()
}

// AddCacheLookups records product cache hits and misses for one resolve call.
func (c *CartMetrics) AddCacheLookups(hits, misses int) {
	if c == nil || c.cacheHits == nil {
		return
	}
	c.cacheHits.Add(float64(hits))
	c.cacheMiss.Add(float64(misses))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
