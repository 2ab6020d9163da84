package connector

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/olla4/internal/core/domain"
)

func TestConnectPlainSucceeds(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	e := domain.NewEndpoint(addr, 1.0)

	c := New(Config{ConnectTimeout: time.Second})
	conn, err := c.Connect(context.Background(), e)
	require.NoError(t, err)
	defer conn.Close()
}

func TestConnectTimeoutOnUnroutableAddress(t *testing.T) {
	// 10.255.255.1 is a non-routable address reserved for this purpose in tests
	// elsewhere in the ecosystem; use a short timeout so the test stays fast.
	addr, err := net.ResolveTCPAddr("tcp", "10.255.255.1:81")
	require.NoError(t, err)
	e := domain.NewEndpoint(addr, 1.0)

	c := New(Config{ConnectTimeout: 50 * time.Millisecond})
	_, err = c.Connect(context.Background(), e)
	require.Error(t, err)

	var timeoutErr *domain.ConnectTimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestConnectIOErrorOnRefusedConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close() // nothing listens now; connection should be refused quickly

	e := domain.NewEndpoint(addr, 1.0)
	c := New(Config{ConnectTimeout: time.Second})
	_, err = c.Connect(context.Background(), e)
	require.Error(t, err)

	var ioErr *domain.ConnectIOError
	assert.ErrorAs(t, err, &ioErr)
}
