package balancer

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/olla4/internal/adapter/metrics"
	"github.com/thushan/olla4/internal/core/domain"
)

// fakeResolver forwards every snapshot the test pushes onto snaps, in order,
// until ctx is cancelled.
type fakeResolver struct {
	snaps chan domain.Snapshot
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{snaps: make(chan domain.Snapshot, 8)}
}

func (f *fakeResolver) Resolve(ctx context.Context, _ domain.Path) <-chan domain.Snapshot {
	out := make(chan domain.Snapshot)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-f.snaps:
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// fakeConnector dials real loopback listeners so Pump has something to talk to.
type fakeConnector struct {
	maxWaiters     int
	failureLimit   int
	failurePenalty time.Duration
	minConnections int
	alwaysFail     bool
}

func (f *fakeConnector) Connect(_ context.Context, e *domain.Endpoint) (net.Conn, error) {
	if f.alwaysFail {
		return nil, &domain.ConnectIOError{Addr: e.PeerAddr.String(), Err: assertErr}
	}
	return net.Dial("tcp", e.PeerAddr.String())
}
func (f *fakeConnector) MinConnections() int          { return f.minConnections }
func (f *fakeConnector) FailureLimit() int             { return f.failureLimit }
func (f *fakeConnector) FailurePenalty() time.Duration { return f.failurePenalty }
func (f *fakeConnector) MaxWaiters() int               { return f.maxWaiters }
func (f *fakeConnector) WaiterTimeout() time.Duration  { return 0 }

var assertErr = &netDialError{}

type netDialError struct{}

func (e *netDialError) Error() string { return "dial failed" }

func echoServer(t *testing.T) (addr *net.TCPAddr, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if n > 0 {
						_, _ = c.Write(buf[:n])
					}
					if err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr), func() { _ = ln.Close() }
}

func TestBalancerBasicForwarding(t *testing.T) {
	echoAddr, stop := echoServer(t)
	defer stop()

	resolver := newFakeResolver()
	connector := &fakeConnector{maxWaiters: 8, failureLimit: 3, failurePenalty: time.Second}

	b := New(Config{
		Path:      domain.ParsePath("/svc/web"),
		Resolver:  resolver,
		Connector: connector,
		Metrics:   metrics.NewSink(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()

	resolver.snaps <- domain.OkSnapshot([]domain.WeightedAddress{
		domain.NewWeightedAddress(echoAddr, 1.0),
	})
	time.Sleep(50 * time.Millisecond)

	clientSide, inbound := net.Pipe()
	b.Admit(inbound)

	_, err := clientSide.Write([]byte("hello"))
	require.NoError(t, err)

	reply := make([]byte, 5)
	_ = clientSide.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := clientSide.Read(reply)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(reply[:n]))

	_ = clientSide.Close()
}

func TestBalancerRejectsOverMaxWaiters(t *testing.T) {
	resolver := newFakeResolver()
	connector := &fakeConnector{maxWaiters: 1, failureLimit: 3, failurePenalty: time.Second}

	b := New(Config{
		Path:      domain.ParsePath("/svc/web"),
		Resolver:  resolver,
		Connector: connector,
		Metrics:   metrics.NewSink(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()

	// no live endpoints, so the first admitted waiter stays queued - the second,
	// over max_waiters=1, must be closed immediately.
	_, a := net.Pipe()
	_, c := net.Pipe()
	overPeer, over := net.Pipe()

	b.Admit(a)
	time.Sleep(20 * time.Millisecond)
	b.Admit(over)
	time.Sleep(20 * time.Millisecond)

	buf := make([]byte, 1)
	_ = overPeer.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err := overPeer.Read(buf)
	assert.ErrorIs(t, err, io.EOF) // closed (EOF), proving it was rejected rather than queued

	_ = c.Close()
}

// TestBalancerReclaimsRetiredEndpointOnConnectionClose covers spec.md §1's
// "reclaims idle endpoints when they are removed from the resolved set" and
// §8 Scenario 4: once a retired endpoint's last connection closes, it must be
// dropped immediately - not left until the next resolver snapshot arrives.
func TestBalancerReclaimsRetiredEndpointOnConnectionClose(t *testing.T) {
	echoAddr, stop := echoServer(t)
	defer stop()

	resolver := newFakeResolver()
	connector := &fakeConnector{maxWaiters: 8, failureLimit: 3, failurePenalty: time.Second}
	sink := metrics.NewSink()

	b := New(Config{
		Path:      domain.ParsePath("/svc/web"),
		Resolver:  resolver,
		Connector: connector,
		Metrics:   sink,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()

	resolver.snaps <- domain.OkSnapshot([]domain.WeightedAddress{
		domain.NewWeightedAddress(echoAddr, 1.0),
	})
	time.Sleep(50 * time.Millisecond)

	clientSide, inbound := net.Pipe()
	b.Admit(inbound)
	time.Sleep(50 * time.Millisecond)

	key := echoAddr.String()
	assert.Contains(t, b.endpoints, key)

	// endpoint dropped from the resolved set while still serving a connection
	resolver.snaps <- domain.OkSnapshot(nil)
	time.Sleep(50 * time.Millisecond)

	_, gauges := sink.Snapshot()
	assert.Contains(t, b.endpoints, key) // retired but still has load, kept
	assert.Equal(t, float64(0), gauges["live_endpoint_count"])

	_ = clientSide.Close() // last connection closes
	time.Sleep(50 * time.Millisecond)

	assert.NotContains(t, b.endpoints, key) // reclaimed immediately, not on next poll
}
