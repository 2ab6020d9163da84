package pipe

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/olla4/internal/core/domain"
)

func TestPumpEchoesBothDirectionsAndAccountsBytes(t *testing.T) {
	clientSide, inbound := net.Pipe()
	serverSide, outbound := net.Pipe()

	e := domain.NewEndpoint(mustAddr(t), 1.0)

	done := make(chan error, 1)
	go func() { done <- Pump(inbound, outbound, e, 4096) }()

	// echo server on the "outbound" peer: bounce whatever it reads back to itself...
	// instead, simulate an upstream that reads then writes a fixed reply.
	go func() {
		buf := make([]byte, 5)
		_, _ = io.ReadFull(serverSide, buf)
		_, _ = serverSide.Write(buf)
		_ = serverSide.Close()
	}()

	_, err := clientSide.Write([]byte("hello"))
	require.NoError(t, err)

	reply := make([]byte, 5)
	_, err = io.ReadFull(clientSide, reply)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(reply))

	_ = clientSide.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pump did not complete after both sides closed")
	}

	assert.Greater(t, e.RxBytes+e.TxBytes, uint64(0))
}

func mustAddr(t *testing.T) *net.TCPAddr {
	t.Helper()
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:9000")
	require.NoError(t, err)
	return addr
}
