// Package proxy wires one configured proxy (spec.md §6.1 `proxies[]` entry)
// into a running set of listeners feeding a single balancer.
package proxy

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thushan/olla4/internal/adapter/balancer"
	"github.com/thushan/olla4/internal/adapter/connector"
	"github.com/thushan/olla4/internal/adapter/listener"
	"github.com/thushan/olla4/internal/adapter/resolver"
	"github.com/thushan/olla4/internal/config"
	"github.com/thushan/olla4/internal/core/domain"
	"github.com/thushan/olla4/internal/core/ports"
	"github.com/thushan/olla4/internal/logger"
)

// Instance is one proxies[] entry: the listening sockets that feed it, and
// the balancer that resolves, selects and connects on their behalf.
type Instance struct {
	listeners []*listener.Listener
	balancer  *balancer.Balancer
	path      domain.Path
}

// New builds an Instance from a single ProxyConfig. bufferSize is the
// document-level default (spec.md §6.1 top-level `bufferSize`).
func New(p config.ProxyConfig, bufferSize int, metrics ports.MetricsSink, log *logger.StyledLogger) (*Instance, error) {
	path := domain.ParsePath(p.Namerd.Path)

	clientName, clientTLS, err := buildClientTLS(clientTLSOf(p))
	if err != nil {
		return nil, err
	}

	connCfg := connector.Config{
		MaxWaiters: int(derefUint(p.MaxWaiters, config.DefaultMaxWaiters)),
	}
	if clientTLS != nil {
		connCfg.TLS = &connector.TLSConfig{Name: clientName, Config: clientTLS}
	}

	factory := connector.NewGlobal(connCfg)
	conn, err := factory.Connector(path)
	if err != nil {
		return nil, err
	}

	namerdCfg := resolver.Config{
		Addr:      "http://" + p.Namerd.Addr,
		Namespace: p.Namerd.Namespace,
		Interval:  time.Duration(derefUint(p.Namerd.IntervalSecs, config.DefaultIntervalSecs)) * time.Second,
	}
	res := resolver.New(namerdCfg, nil, metrics, log)

	b := balancer.New(balancer.Config{
		Path:       path,
		Resolver:   res,
		Connector:  conn,
		Metrics:    metrics,
		Logger:     log,
		BufferSize: bufferSize,
	})

	listeners := make([]*listener.Listener, 0, len(p.Servers))
	for _, s := range p.Servers {
		lcfg := listener.Config{Addr: s.Addr}
		if s.Kind == "io.l5d.tls" {
			serverTLS, err := buildServerTLS(s)
			if err != nil {
				return nil, err
			}
			lcfg.TLS = serverTLS
		}
		listeners = append(listeners, listener.New(lcfg, b, log))
	}

	return &Instance{listeners: listeners, balancer: b, path: path}, nil
}

// Run starts the balancer and every listener, returning when ctx is cancelled
// or any of them returns a fatal error. A single listener's bind failure is
// fatal only for this Instance, matching spec.md §7's "Bind" policy.
func (inst *Instance) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return inst.balancer.Run(ctx)
	})

	for _, l := range inst.listeners {
		l := l
		g.Go(func() error {
			return l.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("proxy %s: %w", inst.path.String(), err)
	}
	return nil
}

func clientTLSOf(p config.ProxyConfig) *config.ClientTLSConfig {
	if p.Client == nil {
		return nil
	}
	return p.Client.TLS
}

func derefUint(p *uint, def int) int {
	if p == nil {
		return def
	}
	return int(*p)
}
