package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterAccumulates(t *testing.T) {
	s := NewSink()
	c := s.Counter("rejected_count")
	c.Inc()
	c.Add(2)

	counters, _ := s.Snapshot()
	assert.Equal(t, 3.0, counters["rejected_count"])
}

func TestGaugeSetAndAdd(t *testing.T) {
	s := NewSink()
	g := s.Gauge("waiter_depth")
	g.Set(5)
	g.Add(-2)

	_, gauges := s.Snapshot()
	assert.Equal(t, 3.0, gauges["waiter_depth"])
}

func TestTaggedMetricsAreDistinctKeys(t *testing.T) {
	s := NewSink()
	s.Counter("warm_connect_count", "proxy=a").Inc()
	s.Counter("warm_connect_count", "proxy=b").Add(5)

	counters, _ := s.Snapshot()
	assert.Equal(t, 1.0, counters["warm_connect_count|proxy=a"])
	assert.Equal(t, 5.0, counters["warm_connect_count|proxy=b"])
}

func TestCounterConcurrentIncrements(t *testing.T) {
	s := NewSink()
	c := s.Counter("hits")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	counters, _ := s.Snapshot()
	assert.Equal(t, 100.0, counters["hits"])
}

func TestTimerObserve(t *testing.T) {
	s := NewSink()
	timer := s.Timer("resolve_latency")
	timer.ObserveSeconds(0.5)
	timer.ObserveSeconds(1.5)
	// no public accessor beyond interface; just exercise it doesn't panic
}
