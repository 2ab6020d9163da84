package balancer

import (
	"math/rand/v2"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/olla4/internal/core/domain"
)

func newTestEndpoint(t *testing.T, port int, weight float64) *domain.Endpoint {
	t.Helper()
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:"+strconv.Itoa(port))
	require.NoError(t, err)
	return domain.NewEndpoint(addr, weight)
}

func TestSelectSingleEndpointIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	e := newTestEndpoint(t, 9000, 1.0)

	got := Select(rng, []*domain.Endpoint{e}, time.Now(), 3, time.Second)
	assert.Same(t, e, got)
}

func TestSelectNoLiveEndpointsReturnsNil(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	got := Select(rng, nil, time.Now(), 3, time.Second)
	assert.Nil(t, got)
}

func TestSelectPrefersLowerCost(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	cheap := newTestEndpoint(t, 9001, 1.0)
	expensive := newTestEndpoint(t, 9002, 1.0)
	expensive.BeginConnect()
	expensive.ConnectSucceeded()

	// run many trials; cheap (load 0) must always win over expensive (load 1)
	for i := 0; i < 20; i++ {
		got := Select(rng, []*domain.Endpoint{cheap, expensive}, time.Now(), 3, time.Second)
		require.NotNil(t, got)
		assert.Same(t, cheap, got)
	}
}

func TestSelectSkipsEndpointInFailurePenalty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	now := time.Now()

	failing := newTestEndpoint(t, 9003, 1.0)
	failing.ConsecutiveFailures = 5
	failing.LastFailure = now

	healthy := newTestEndpoint(t, 9004, 1.0)

	for i := 0; i < 20; i++ {
		got := Select(rng, []*domain.Endpoint{failing, healthy}, now, 3, time.Second)
		require.NotNil(t, got)
		assert.Same(t, healthy, got)
	}
}

func TestSelectReturnsNilWhenAllEndpointsPenalised(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	now := time.Now()

	a := newTestEndpoint(t, 9005, 1.0)
	a.ConsecutiveFailures = 5
	a.LastFailure = now

	b := newTestEndpoint(t, 9006, 1.0)
	b.ConsecutiveFailures = 5
	b.LastFailure = now

	got := Select(rng, []*domain.Endpoint{a, b}, now, 3, time.Second)
	assert.Nil(t, got)
}
