// Package metrics provides the default ports.MetricsSink implementation: an
// in-process, thread-safe collector built on xsync.Map and atomics, the same
// lock-light shape the teacher's circuit breaker uses for per-key state.
package metrics

import (
	"math"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/olla4/internal/core/ports"
)

func asFloat64(bits uint64) float64 { return math.Float64frombits(bits) }
func asUint64(v float64) uint64     { return math.Float64bits(v) }

// Sink is a process-local metrics collector. One Sink is shared by every proxy
// instance in the process, keyed by metric name plus a joined tag suffix.
type Sink struct {
	counters *xsync.Map[string, *counter]
	gauges   *xsync.Map[string, *gauge]
	timers   *xsync.Map[string, *timer]
}

func NewSink() *Sink {
	return &Sink{
		counters: xsync.NewMap[string, *counter](),
		gauges:   xsync.NewMap[string, *gauge](),
		timers:   xsync.NewMap[string, *timer](),
	}
}

func (s *Sink) Counter(name string, tags ...string) ports.Counter {
	key := joinKey(name, tags)
	if c, ok := s.counters.Load(key); ok {
		return c
	}
	c, _ := s.counters.LoadOrStore(key, &counter{})
	return c
}

func (s *Sink) Gauge(name string, tags ...string) ports.Gauge {
	key := joinKey(name, tags)
	if g, ok := s.gauges.Load(key); ok {
		return g
	}
	g, _ := s.gauges.LoadOrStore(key, &gauge{})
	return g
}

func (s *Sink) Timer(name string, tags ...string) ports.Timer {
	key := joinKey(name, tags)
	if t, ok := s.timers.Load(key); ok {
		return t
	}
	t, _ := s.timers.LoadOrStore(key, &timer{})
	return t
}

// Snapshot returns the current value of every counter and gauge, keyed by their
// joined name+tags.
func (s *Sink) Snapshot() (counters map[string]float64, gauges map[string]float64) {
	counters = make(map[string]float64)
	gauges = make(map[string]float64)
	s.counters.Range(func(key string, c *counter) bool {
		counters[key] = c.value()
		return true
	})
	s.gauges.Range(func(key string, g *gauge) bool {
		gauges[key] = g.value()
		return true
	})
	return counters, gauges
}

func joinKey(name string, tags []string) string {
	if len(tags) == 0 {
		return name
	}
	key := name
	for _, t := range tags {
		key += "|" + t
	}
	return key
}

type counter struct {
	bits uint64
}

func (c *counter) Inc() { c.Add(1) }

func (c *counter) Add(delta float64) {
	for {
		old := atomic.LoadUint64(&c.bits)
		newValue := asFloat64(old) + delta
		if atomic.CompareAndSwapUint64(&c.bits, old, asUint64(newValue)) {
			return
		}
	}
}

func (c *counter) value() float64 {
	return asFloat64(atomic.LoadUint64(&c.bits))
}

type gauge struct {
	bits uint64
}

func (g *gauge) Set(value float64) {
	atomic.StoreUint64(&g.bits, asUint64(value))
}

func (g *gauge) Add(delta float64) {
	for {
		old := atomic.LoadUint64(&g.bits)
		newValue := asFloat64(old) + delta
		if atomic.CompareAndSwapUint64(&g.bits, old, asUint64(newValue)) {
			return
		}
	}
}

func (g *gauge) value() float64 {
	return asFloat64(atomic.LoadUint64(&g.bits))
}

// timer keeps only a running count and sum, enough for an average; a full
// histogram is left to whatever real metrics backend a deployment wires in
// behind ports.MetricsSink.
type timer struct {
	count uint64
	sumNs uint64
}

func (t *timer) ObserveSeconds(seconds float64) {
	atomic.AddUint64(&t.count, 1)
	atomic.AddUint64(&t.sumNs, uint64(seconds*1e9))
}
