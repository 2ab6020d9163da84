package balancer

import (
	"net"
	"time"
)

// Waiter is an accepted inbound socket queued pending endpoint selection
// (spec.md §4.2 "admission queue"). Waiters are dispatched strictly FIFO.
type Waiter struct {
	Conn     net.Conn
	Deadline time.Time // zero means no admission timeout
}

// Expired reports whether the waiter has outlived its optional admission
// timeout (the connector-config supplemented feature, zero value = disabled).
func (w Waiter) Expired(now time.Time) bool {
	return !w.Deadline.IsZero() && now.After(w.Deadline)
}
