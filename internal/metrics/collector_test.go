package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("sigrag", reg, nil)

	c.ObserveForward(100 * time.Millisecond)
	c.IncHop("primary")
	c.IncHop("primary")
	c.IncHop("follow_up")
	c.IncRetrievalFailure()
	c.AddPassages(3)
	c.ObserveCompletion("synthesis", 50*time.Millisecond)
	c.IncCacheHit()
	c.IncCacheMiss()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.forwardTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.hopsTotal.WithLabelValues("primary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.hopsTotal.WithLabelValues("follow_up")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retrievalFailuresTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.passagesRetrieved))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.completionsTotal.WithLabelValues("synthesis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheMisses))
}

func TestCollector_SeparateRegistries(t *testing.T) {
	// 两个收集器使用独立注册表时不冲突
	a := NewCollector("sigrag", prometheus.NewRegistry(), nil)
	b := NewCollector("sigrag", prometheus.NewRegistry(), nil)
	require.NotSame(t, a, b)

	a.IncHop("primary")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.hopsTotal.WithLabelValues("primary")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.hopsTotal.WithLabelValues("primary")))
}
