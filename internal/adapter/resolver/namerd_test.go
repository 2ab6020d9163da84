package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/olla4/internal/adapter/metrics"
	"github.com/thushan/olla4/internal/core/domain"
)

func TestNamerdResolveSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/1/resolve/default", r.URL.Path)
		assert.Equal(t, "/svc/web", r.URL.Query().Get("path"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"bound","addrs":[{"ip":"127.0.0.1","port":9000,"meta":{}}],"meta":{}}`))
	}))
	defer srv.Close()

	n := New(Config{Addr: srv.URL, Interval: 20 * time.Millisecond}, nil, metrics.NewSink(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	snaps := n.Resolve(ctx, domain.ParsePath("/svc/web"))

	snap := <-snaps
	require.False(t, snap.IsErr())
	require.Len(t, snap.Addrs, 1)
	assert.Equal(t, "127.0.0.1:9000", snap.Addrs[0].Addr.String())
}

func TestNamerdResolveUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(Config{Addr: srv.URL, Interval: time.Minute}, nil, metrics.NewSink(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	snap := <-n.Resolve(ctx, domain.ParsePath("/svc/web"))
	require.True(t, snap.IsErr())

	var statusErr *domain.ResolverUnexpectedStatusError
	require.ErrorAs(t, snap.Err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestNamerdResolveStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"bound","addrs":[],"meta":{}}`))
	}))
	defer srv.Close()

	n := New(Config{Addr: srv.URL, Interval: 10 * time.Millisecond}, nil, metrics.NewSink(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	snaps := n.Resolve(ctx, domain.ParsePath("/svc/web"))

	<-snaps
	cancel()

	// channel must eventually close once the goroutine observes cancellation
	for range snaps {
	}
}
