package domain

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAddr(t *testing.T, s string) *net.TCPAddr {
	t.Helper()
	addr, err := net.ResolveTCPAddr("tcp", s)
	require.NoError(t, err)
	return addr
}

func TestEndpointLoadAndIdle(t *testing.T) {
	e := NewEndpoint(mustAddr(t, "127.0.0.1:9000"), 1.0)
	assert.True(t, e.IsIdle())
	assert.Equal(t, 0, e.Load())

	e.BeginConnect()
	assert.Equal(t, 1, e.Load())
	assert.True(t, e.IsIdle()) // still idle: no *open* conns yet

	e.ConnectSucceeded()
	assert.Equal(t, 1, e.Load())
	assert.False(t, e.IsIdle())

	e.ConnectionClosed()
	assert.True(t, e.IsIdle())
	assert.Equal(t, 0, e.Load())
}

func TestEndpointSetWeightRange(t *testing.T) {
	e := NewEndpoint(mustAddr(t, "127.0.0.1:9000"), 0.5)
	require.NoError(t, e.SetWeight(0))
	require.NoError(t, e.SetWeight(1))
	require.Error(t, e.SetWeight(-0.1))
	require.Error(t, e.SetWeight(1.1))
}

func TestEndpointConnectFailureStreak(t *testing.T) {
	e := NewEndpoint(mustAddr(t, "127.0.0.1:9000"), 1.0)
	now := time.Now()

	e.BeginConnect()
	e.ConnectFailed(now)
	assert.Equal(t, 1, e.ConsecutiveFailures)
	assert.Equal(t, 0, e.PendingConns)

	e.BeginConnect()
	e.ConnectFailed(now.Add(time.Second))
	assert.Equal(t, 2, e.ConsecutiveFailures)

	e.BeginConnect()
	e.ConnectSucceeded()
	assert.Equal(t, 0, e.ConsecutiveFailures)
}

func TestEndpointEligibility(t *testing.T) {
	e := NewEndpoint(mustAddr(t, "127.0.0.1:9000"), 1.0)
	now := time.Now()

	assert.True(t, e.Eligible(now, 3, time.Second))

	e.ConsecutiveFailures = 3
	e.LastFailure = now
	assert.False(t, e.Eligible(now, 3, time.Second))
	assert.True(t, e.Eligible(now.Add(2*time.Second), 3, time.Second))

	e.Retired = true
	assert.False(t, e.Eligible(now.Add(2*time.Second), 3, time.Second))
}

func TestEndpointCostPrefersLowerLoadPerWeight(t *testing.T) {
	a := NewEndpoint(mustAddr(t, "127.0.0.1:9001"), 1.0)
	b := NewEndpoint(mustAddr(t, "127.0.0.1:9002"), 0.5)

	a.BeginConnect()
	a.ConnectSucceeded()
	b.BeginConnect()
	b.ConnectSucceeded()

	// equal load, but b has half the weight, so b costs twice as much
	assert.Less(t, a.Cost(1e-9), b.Cost(1e-9))
}

func TestNormaliseWeightsSumToOne(t *testing.T) {
	addrs := []WeightedAddress{
		{Addr: mustAddr(t, "127.0.0.1:1"), Weight: 2.0},
		{Addr: mustAddr(t, "127.0.0.1:2"), Weight: 3.0},
	}
	NormaliseWeights(addrs)

	var sum float64
	for _, a := range addrs {
		sum += a.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.4, addrs[0].Weight, 1e-9)
	assert.InDelta(t, 0.6, addrs[1].Weight, 1e-9)
}

func TestNormaliseWeightsEmptySumNoop(t *testing.T) {
	addrs := []WeightedAddress{{Addr: mustAddr(t, "127.0.0.1:1"), Weight: 0}}
	NormaliseWeights(addrs)
	assert.Equal(t, 0.0, addrs[0].Weight)
}
