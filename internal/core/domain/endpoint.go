package domain

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// Endpoint is a concrete destination the balancer may dial: a peer address plus its
// mutable load/failure counters. PendingConns/OpenConns/ConsecutiveFailures/weight/
// Retired are owned exclusively by the balancer's single reactor goroutine - the
// connector reports connect outcomes back over the balancer's event channel so
// there is never more than one writer and no locking is required for them. RxBytes/
// TxBytes are the one exception: the pipe goroutines that forward bytes for this
// endpoint's open connections update them directly via atomic ops, since routing
// every byte count back through the reactor for counters nothing else reads would
// only add latency without changing observable behaviour.
type Endpoint struct {
	PeerAddr *net.TCPAddr

	LastFailure time.Time

	weight float64

	Key string

	PendingConns        int
	OpenConns           int
	ConsecutiveFailures int

	RxBytes uint64
	TxBytes uint64

	// Retired is true once the endpoint is absent from the latest resolver
	// snapshot. Retired endpoints keep serving existing connections but are
	// never selected for new ones; they're dropped once idle.
	Retired bool
}

func NewEndpoint(addr *net.TCPAddr, weight float64) *Endpoint {
	return &Endpoint{
		PeerAddr: addr,
		Key:      addr.String(),
		weight:   weight,
	}
}

func (e *Endpoint) Weight() float64 {
	return e.weight
}

// SetWeight sets the endpoint's traffic weight. w must be in [0, 1].
func (e *Endpoint) SetWeight(w float64) error {
	if w < 0 || w > 1 {
		return fmt.Errorf("endpoint %s: weight %f out of range [0, 1]", e.Key, w)
	}
	e.weight = w
	return nil
}

// Load is the number of connections currently attributed to this endpoint, open or
// still being established. Selection cost is derived from it.
func (e *Endpoint) Load() int {
	return e.PendingConns + e.OpenConns
}

func (e *Endpoint) IsIdle() bool {
	return e.OpenConns == 0
}

// Eligible reports whether the endpoint may be selected for a new connection: it
// must not be retired, and it must not be inside a failure-penalty window.
func (e *Endpoint) Eligible(now time.Time, failureLimit int, failurePenalty time.Duration) bool {
	if e.Retired {
		return false
	}
	if e.weight <= 0 {
		return false
	}
	if failureLimit <= 0 || e.ConsecutiveFailures < failureLimit {
		return true
	}
	return now.Sub(e.LastFailure) >= failurePenalty
}

// Cost is the power-of-two-choices comparison metric: load divided by weight,
// floored by epsilon to avoid dividing by (near) zero. Lower cost wins.
func (e *Endpoint) Cost(epsilon float64) float64 {
	w := e.weight
	if w < epsilon {
		w = epsilon
	}
	return float64(e.Load()) / w
}

// BeginConnect records a connection attempt starting. Must be paired with exactly
// one of ConnectSucceeded or ConnectFailed.
func (e *Endpoint) BeginConnect() {
	e.PendingConns++
}

func (e *Endpoint) ConnectSucceeded() {
	e.PendingConns--
	e.OpenConns++
	e.ConsecutiveFailures = 0
}

func (e *Endpoint) ConnectFailed(at time.Time) {
	e.PendingConns--
	e.ConsecutiveFailures++
	e.LastFailure = at
}

func (e *Endpoint) ConnectionClosed() {
	e.OpenConns--
}

func (e *Endpoint) RecordRead(n int) {
	atomic.AddUint64(&e.RxBytes, uint64(n))
}

func (e *Endpoint) RecordWrite(n int) {
	atomic.AddUint64(&e.TxBytes, uint64(n))
}
