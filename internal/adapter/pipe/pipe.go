// Package pipe implements the bidirectional byte-forwarder between an inbound
// and an outbound socket (spec.md §4.5), with half-close semantics and
// per-endpoint byte accounting.
package pipe

import (
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/thushan/olla4/internal/core/domain"
	"github.com/thushan/olla4/pkg/pool"
)

const DefaultBufferSize = 64 * 1024

type byteSlice []byte

func (b *byteSlice) Reset() {
	for i := range *b {
		(*b)[i] = 0
	}
}

// bufferPools is shared by every Pipe in the process, keyed by buffer size;
// most deployments use a single configured bufferSize so this map stays tiny.
var (
	bufferPoolsMu sync.Mutex
	bufferPools   = map[int]*pool.Pool[*byteSlice]{}
)

func bufferPoolFor(size int) *pool.Pool[*byteSlice] {
	bufferPoolsMu.Lock()
	defer bufferPoolsMu.Unlock()

	if p, ok := bufferPools[size]; ok {
		return p
	}
	p := pool.NewLitePool(func() *byteSlice {
		b := make(byteSlice, size)
		return &b
	})
	bufferPools[size] = p
	return p
}

// halfCloser is implemented by *net.TCPConn and *tls.Conn; calling CloseWrite
// signals EOF to the peer without tearing down the read half.
type halfCloser interface {
	CloseWrite() error
}

// Pump forwards bytes in both directions between inbound and outbound until
// both directions have hit EOF or an error, then closes both sockets. Byte
// counts are reported to endpoint via RecordRead/RecordWrite (spec.md §4.3's
// connection-context read/wrote notifications).
func Pump(inbound, outbound net.Conn, endpoint *domain.Endpoint, bufferSize int) error {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	var g errgroup.Group
	g.Go(func() error {
		return forward(outbound, inbound, endpoint.RecordRead, bufferSize, "inbound->outbound")
	})
	g.Go(func() error {
		return forward(inbound, outbound, endpoint.RecordWrite, bufferSize, "outbound->inbound")
	})

	err := g.Wait()

	_ = inbound.Close()
	_ = outbound.Close()

	return err
}

// forward copies from src to dst, reporting the byte count of each successful
// write to dst via record, then half-closes dst's write side on src EOF.
func forward(dst, src net.Conn, record func(int), bufferSize int, direction string) error {
	p := bufferPoolFor(bufferSize)
	buf := p.Get()
	defer p.Put(buf)

	_, err := io.CopyBuffer(&countingWriter{Writer: dst, record: record}, src, *buf)

	if hc, ok := dst.(halfCloser); ok {
		_ = hc.CloseWrite()
	}

	if err != nil && err != io.EOF {
		return &domain.PipeIOError{Side: direction, Detail: "copy", Err: err}
	}
	return nil
}

// countingWriter wraps the destination so every successful Write is recorded
// against the endpoint before CopyBuffer moves on to the next chunk.
type countingWriter struct {
	io.Writer
	record func(int)
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.Writer.Write(p)
	if n > 0 {
		w.record(n)
	}
	return n, err
}
