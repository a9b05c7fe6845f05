// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector 管线指标收集器
type Collector struct {
	// Forward 指标
	forwardTotal    prometheus.Counter
	forwardDuration prometheus.Histogram

	// 检索指标
	hopsTotal              *prometheus.CounterVec
	retrievalFailuresTotal prometheus.Counter
	passagesRetrieved      prometheus.Counter

	// 补全指标
	completionsTotal   *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec

	// 缓存指标
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器. reg 为 nil 时使用默认注册表.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.forwardTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forward_total",
		Help:      "Total number of pipeline forward calls",
	})

	c.forwardDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "forward_duration_seconds",
		Help:      "Pipeline forward duration in seconds",
		Buckets:   prometheus.DefBuckets,
	})

	c.hopsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hops_total",
			Help:      "Total number of retrieval hops by type",
		},
		[]string{"type"},
	)

	c.retrievalFailuresTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrieval_failures_total",
		Help:      "Total number of degraded (swallowed) retrieval failures",
	})

	c.passagesRetrieved = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "passages_retrieved_total",
		Help:      "Total number of passages returned by retrieval",
	})

	c.completionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Total number of LM completion calls by pipeline stage",
		},
		[]string{"stage"},
	)

	c.completionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "LM completion duration in seconds by pipeline stage",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	c.cacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answer_cache_hits_total",
		Help:      "Total number of answer cache hits",
	})

	c.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answer_cache_misses_total",
		Help:      "Total number of answer cache misses",
	})

	return c
}

// ObserveForward 记录一次 forward 调用.
func (c *Collector) ObserveForward(d time.Duration) {
	c.forwardTotal.Inc()
	c.forwardDuration.Observe(d.Seconds())
}

// IncHop 记录一个检索跳.
func (c *Collector) IncHop(hopType string) {
	c.hopsTotal.WithLabelValues(hopType).Inc()
}

// IncRetrievalFailure 记录一次被吞掉的检索失败.
func (c *Collector) IncRetrievalFailure() {
	c.retrievalFailuresTotal.Inc()
}

// AddPassages 记录检索返回的片段数.
func (c *Collector) AddPassages(n int) {
	c.passagesRetrieved.Add(float64(n))
}

// ObserveCompletion 记录一次补全调用.
func (c *Collector) ObserveCompletion(stage string, d time.Duration) {
	c.completionsTotal.WithLabelValues(stage).Inc()
	c.completionDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncCacheHit 记录一次答案缓存命中.
func (c *Collector) IncCacheHit() { c.cacheHits.Inc() }

// IncCacheMiss 记录一次答案缓存未命中.
func (c *Collector) IncCacheMiss() { c.cacheMisses.Inc() }
