// Package balancer is the central component of a proxy instance (spec.md §4.2):
// it owns the live endpoint pool, applies resolver snapshots, pairs queued
// waiters with endpoints under power-of-two-choices selection, and drives
// connects and pipes. All balancer state is touched by exactly one goroutine
// (Run's reactor loop); connector and pipe work happen in separate goroutines
// that report outcomes back over a channel, per spec.md §9's multithreaded
// adaptation of the source's single-threaded-reactor design.
package balancer

import (
	"context"
	"math/rand/v2"
	"net"
	"time"

	"github.com/thushan/olla4/internal/adapter/pipe"
	"github.com/thushan/olla4/internal/core/domain"
	"github.com/thushan/olla4/internal/core/ports"
	"github.com/thushan/olla4/internal/logger"
)

// Config wires a Balancer to its collaborators. One Config (and one Balancer)
// exists per proxy instance.
type Config struct {
	Path       domain.Path
	Resolver   ports.Resolver
	Connector  ports.Connector
	Metrics    ports.MetricsSink
	Logger     *logger.StyledLogger
	BufferSize int
	Rand       *rand.Rand // optional; nil uses a process-seeded source
}

type eventKind int

const (
	eventConnectResult eventKind = iota
	eventWarmResult
	eventClosed
)

type event struct {
	kind     eventKind
	endpoint *domain.Endpoint
	waiter   Waiter
	conn     net.Conn
	err      error
}

// Balancer is the reactor for one proxy instance's resolved name.
type Balancer struct {
	path       domain.Path
	resolver   ports.Resolver
	connector  ports.Connector
	metrics    ports.MetricsSink
	log        *logger.StyledLogger
	bufferSize int
	rng        *rand.Rand

	admitCh chan net.Conn
	events  chan event

	endpoints map[string]*domain.Endpoint
	waiters   []Waiter
}

func New(cfg Config) *Balancer {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = pipe.DefaultBufferSize
	}
	return &Balancer{
		path:       cfg.Path,
		resolver:   cfg.Resolver,
		connector:  cfg.Connector,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
		bufferSize: bufferSize,
		rng:        rng,
		admitCh:    make(chan net.Conn, 64),
		events:     make(chan event, 64),
		endpoints:  make(map[string]*domain.Endpoint),
	}
}

// Admit hands an accepted inbound connection to the reactor, which enforces
// the max_waiters bound (spec.md §4.2) and rejects it there if the admission
// queue is already full. Safe to call from the listener's accept goroutine;
// blocks only as long as admitCh's buffer is full, backpressuring the
// listener rather than growing the queue without bound.
func (b *Balancer) Admit(conn net.Conn) {
	b.admitCh <- conn
}

// Run drives the reactor loop until ctx is cancelled. It blocks.
func (b *Balancer) Run(ctx context.Context) error {
	snapshots := b.resolver.Resolve(ctx, b.path)

	var waiterTick <-chan time.Time
	if b.connector.WaiterTimeout() > 0 {
		ticker := time.NewTicker(b.connector.WaiterTimeout())
		defer ticker.Stop()
		waiterTick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			b.drainWaiters()
			return ctx.Err()

		case snap, ok := <-snapshots:
			if !ok {
				b.drainWaiters()
				return nil
			}
			b.applySnapshot(snap)
			b.prewarm()
			b.dispatch()

		case conn := <-b.admitCh:
			b.admit(conn)
			b.dispatch()

		case ev := <-b.events:
			b.handleEvent(ev)
			b.dispatch()

		case now := <-waiterTick:
			b.expireWaiters(now)
		}
	}
}

func (b *Balancer) admit(conn net.Conn) {
	if len(b.waiters) >= b.connector.MaxWaiters() {
		_ = conn.Close()
		if b.metrics != nil {
			b.metrics.Counter("rejected_count").Inc()
		}
		return
	}

	w := Waiter{Conn: conn}
	if t := b.connector.WaiterTimeout(); t > 0 {
		w.Deadline = time.Now().Add(t)
	}
	b.waiters = append(b.waiters, w)
	if b.metrics != nil {
		b.metrics.Gauge("waiter_depth").Set(float64(len(b.waiters)))
	}
}

func (b *Balancer) expireWaiters(now time.Time) {
	if len(b.waiters) == 0 {
		return
	}
	kept := b.waiters[:0]
	for _, w := range b.waiters {
		if w.Expired(now) {
			_ = w.Conn.Close()
			if b.metrics != nil {
				b.metrics.Counter("waiter_timeout_count").Inc()
			}
			continue
		}
		kept = append(kept, w)
	}
	b.waiters = kept
}

func (b *Balancer) drainWaiters() {
	for _, w := range b.waiters {
		_ = w.Conn.Close()
	}
	b.waiters = nil
}

// applySnapshot updates the live endpoint set per spec.md §4.2's update
// algorithm: existing entries are reweighted or retired, new entries are
// created with zeroed state, and idle retired entries are dropped.
func (b *Balancer) applySnapshot(snap domain.Snapshot) {
	if snap.IsErr() {
		if b.log != nil {
			b.log.Warn("resolver snapshot error", "path", b.path.String(), "error", snap.Err.Error())
		}
		if b.metrics != nil {
			b.metrics.Counter("resolver_error_count").Inc()
		}
		return
	}

	seen := make(map[string]bool, len(snap.Addrs))
	for _, wa := range snap.Addrs {
		key := wa.Addr.String()
		seen[key] = true
		if ep, ok := b.endpoints[key]; ok {
			_ = ep.SetWeight(wa.Weight)
			ep.Retired = false
		} else {
			b.endpoints[key] = domain.NewEndpoint(wa.Addr, wa.Weight)
		}
	}

	for key, ep := range b.endpoints {
		if seen[key] {
			continue
		}
		ep.Retired = true
		if ep.Load() == 0 {
			delete(b.endpoints, key)
		}
	}

	b.updateLiveGauge()
}

// prewarm initiates best-effort proactive connects for every live endpoint
// under the connector's min_connections floor (spec.md §4.2, supplemented per
// original_source/src/connector/mod.rs's min_connections field).
func (b *Balancer) prewarm() {
	floor := b.connector.MinConnections()
	if floor <= 0 {
		return
	}
	now := time.Now()
	for _, ep := range b.endpoints {
		if ep.Retired {
			continue
		}
		for ep.Load() < floor && ep.Eligible(now, b.connector.FailureLimit(), b.connector.FailurePenalty()) {
			ep.BeginConnect()
			if b.metrics != nil {
				b.metrics.Counter("warm_connect_count").Inc()
			}
			go b.warmConnect(ep)
		}
	}
}

func (b *Balancer) warmConnect(ep *domain.Endpoint) {
	ctx := context.Background()
	conn, err := b.connector.Connect(ctx, ep)
	b.events <- event{kind: eventWarmResult, endpoint: ep, conn: conn, err: err}
}

func (b *Balancer) connect(ep *domain.Endpoint, w Waiter) {
	ctx := context.Background()
	conn, err := b.connector.Connect(ctx, ep)
	b.events <- event{kind: eventConnectResult, endpoint: ep, waiter: w, conn: conn, err: err}
}

func (b *Balancer) handleEvent(ev event) {
	switch ev.kind {
	case eventWarmResult:
		if ev.err != nil {
			ev.endpoint.ConnectFailed(time.Now())
			return
		}
		ev.endpoint.ConnectSucceeded()
		ev.endpoint.ConnectionClosed()
		_ = ev.conn.Close()

	case eventConnectResult:
		if ev.err != nil {
			ev.endpoint.ConnectFailed(time.Now())
			if b.log != nil {
				b.log.Warn("connect failed", "peer", ev.endpoint.Key, "error", ev.err.Error())
			}
			// the waiter is not dropped on connect failure: it goes back to the
			// front of the queue to be retried against another endpoint.
			b.waiters = append([]Waiter{ev.waiter}, b.waiters...)
			return
		}
		ev.endpoint.ConnectSucceeded()
		go b.pump(ev.endpoint, ev.waiter.Conn, ev.conn)

	case eventClosed:
		ev.endpoint.ConnectionClosed()
		if ev.endpoint.Retired && ev.endpoint.Load() == 0 {
			b.reclaim(ev.endpoint.Key)
		}
	}
}

// reclaim drops a retired, idle endpoint immediately on its last connection
// close (spec.md §1, §8 Scenario 4) rather than waiting for the next resolver
// snapshot to sweep it in applySnapshot.
func (b *Balancer) reclaim(key string) {
	delete(b.endpoints, key)
	b.updateLiveGauge()
}

func (b *Balancer) updateLiveGauge() {
	if b.metrics == nil {
		return
	}
	live := 0
	for _, ep := range b.endpoints {
		if !ep.Retired {
			live++
		}
	}
	b.metrics.Gauge("live_endpoint_count").Set(float64(live))
}

func (b *Balancer) pump(ep *domain.Endpoint, inbound, outbound net.Conn) {
	if err := pipe.Pump(inbound, outbound, ep, b.bufferSize); err != nil && b.log != nil {
		b.log.Warn("pipe closed with error", "peer", ep.Key, "error", err.Error())
	}
	b.events <- event{kind: eventClosed, endpoint: ep}
}

// dispatch pairs queued waiters with eligible endpoints, FIFO, until either
// the queue is empty or no eligible endpoint remains (spec.md §4.2).
func (b *Balancer) dispatch() {
	for len(b.waiters) > 0 {
		candidate := Select(b.rng, b.liveEndpoints(), time.Now(), b.connector.FailureLimit(), b.connector.FailurePenalty())
		if candidate == nil {
			return
		}
		w := b.waiters[0]
		b.waiters = b.waiters[1:]
		candidate.BeginConnect()
		go b.connect(candidate, w)
	}
	if b.metrics != nil {
		b.metrics.Gauge("waiter_depth").Set(float64(len(b.waiters)))
	}
}

func (b *Balancer) liveEndpoints() []*domain.Endpoint {
	live := make([]*domain.Endpoint, 0, len(b.endpoints))
	for _, ep := range b.endpoints {
		if !ep.Retired {
			live = append(live, ep)
		}
	}
	return live
}
