// Package connector builds outbound sockets to resolved endpoints, optionally
// negotiating client TLS, under a connect timeout (spec.md §4.4), grounded on
// connector/mod.rs's Connector/ConnectorFactory.
package connector

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/thushan/olla4/internal/core/domain"
)

// Connector implements ports.Connector for a single, fully-folded Config.
type Connector struct {
	cfg    Config
	dialer *net.Dialer
}

func New(cfg Config) *Connector {
	cfg = cfg.withDefaults()
	return &Connector{
		cfg:    cfg,
		dialer: &net.Dialer{},
	}
}

func (c *Connector) MinConnections() int           { return c.cfg.MinConnections }
func (c *Connector) FailureLimit() int             { return c.cfg.FailureLimit }
func (c *Connector) FailurePenalty() time.Duration { return c.cfg.FailurePenalty }
func (c *Connector) MaxWaiters() int               { return c.cfg.MaxWaiters }
func (c *Connector) WaiterTimeout() time.Duration  { return c.cfg.WaiterTimeout }

// Connect dials e.PeerAddr, optionally wrapping the raw connection in a TLS
// client handshake, racing the whole attempt against cfg.ConnectTimeout when
// set. The caller owns bracketing e.BeginConnect/ConnectSucceeded/ConnectFailed.
func (c *Connector) Connect(ctx context.Context, e *domain.Endpoint) (net.Conn, error) {
	dialCtx := ctx
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	tcp, err := c.dialer.DialContext(dialCtx, "tcp", e.PeerAddr.String())
	if err != nil {
		if dialCtx.Err() != nil {
			return nil, &domain.ConnectTimeoutError{Addr: e.PeerAddr.String(), Timeout: c.cfg.ConnectTimeout}
		}
		return nil, &domain.ConnectIOError{Addr: e.PeerAddr.String(), Err: err}
	}

	if c.cfg.TLS == nil {
		return tcp, nil
	}

	tlsConn := tls.Client(tcp, withServerName(c.cfg.TLS.Config, c.cfg.TLS.Name))
	if err := tlsConn.HandshakeContext(dialCtx); err != nil {
		_ = tcp.Close()
		if dialCtx.Err() != nil {
			return nil, &domain.ConnectTimeoutError{Addr: e.PeerAddr.String(), Timeout: c.cfg.ConnectTimeout}
		}
		return nil, &domain.ConnectTLSError{Addr: e.PeerAddr.String(), Err: err}
	}

	return tlsConn, nil
}

func withServerName(base *tls.Config, name string) *tls.Config {
	cfg := base.Clone()
	cfg.ServerName = name
	return cfg
}
