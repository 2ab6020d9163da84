// Package listener implements the accept loop for a proxy instance's inbound
// sockets (spec.md §2 "listener", ~5%): plain TCP or TLS-terminating, handing
// each accepted connection to the balancer's admission queue.
package listener

import (
	"context"
	"crypto/tls"
	"net"

	"golang.org/x/time/rate"

	"github.com/thushan/olla4/internal/core/domain"
	"github.com/thushan/olla4/internal/logger"
)

// Admitter is the balancer's inbound face: anything that can take an accepted
// connection and either queue or reject it.
type Admitter interface {
	Admit(conn net.Conn)
}

// Config configures a single listening socket.
type Config struct {
	Addr string
	TLS  *tls.Config // nil for plain TCP

	// AcceptBurst/AcceptPerSecond bound the rate of accepted connections
	// handed to the admission queue, protecting it from accept storms
	// without inspecting payload (so it stays a layer-4 concern). Zero
	// AcceptPerSecond disables the limiter.
	AcceptPerSecond float64
	AcceptBurst     int
}

// Listener accepts inbound connections and admits them into a Balancer.
type Listener struct {
	cfg      Config
	admitter Admitter
	log      *logger.StyledLogger
	limiter  *rate.Limiter
}

func New(cfg Config, admitter Admitter, log *logger.StyledLogger) *Listener {
	l := &Listener{cfg: cfg, admitter: admitter, log: log}
	if cfg.AcceptPerSecond > 0 {
		burst := cfg.AcceptBurst
		if burst <= 0 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptPerSecond), burst)
	}
	return l
}

// Run binds the listening socket and accepts connections until ctx is
// cancelled or the listener suffers a fatal error. A bind failure surfaces as
// a *domain.BindError, matching spec.md §7's "Bind: cannot bind a listener.
// Fatal for that proxy instance" policy.
func (l *Listener) Run(ctx context.Context) error {
	var ln net.Listener
	var err error
	if l.cfg.TLS != nil {
		ln, err = tls.Listen("tcp", l.cfg.Addr, l.cfg.TLS)
	} else {
		ln, err = net.Listen("tcp", l.cfg.Addr)
	}
	if err != nil {
		return domain.NewBindError(l.cfg.Addr, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if l.log != nil {
				l.log.Warn("accept failed", "addr", l.cfg.Addr, "error", err.Error())
			}
			continue
		}

		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				_ = conn.Close()
				continue
			}
		}

		l.admitter.Admit(conn)
	}
}
