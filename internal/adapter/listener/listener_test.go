package listener

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAdmitter struct {
	mu    sync.Mutex
	conns []net.Conn
}

func (r *recordingAdmitter) Admit(conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns = append(r.conns, conn)
}

func (r *recordingAdmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestListenerAdmitsAcceptedConnections(t *testing.T) {
	addr := freePort(t)
	admitter := &recordingAdmitter{}
	l := New(Config{Addr: addr}, admitter, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = l.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return admitter.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestListenerBindErrorOnInvalidAddress(t *testing.T) {
	admitter := &recordingAdmitter{}
	l := New(Config{Addr: "not-an-addr"}, admitter, nil)

	err := l.Run(context.Background())
	require.Error(t, err)
}

func TestListenerStopsOnContextCancel(t *testing.T) {
	addr := freePort(t)
	admitter := &recordingAdmitter{}
	l := New(Config{Addr: addr}, admitter, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop after context cancel")
	}
}
