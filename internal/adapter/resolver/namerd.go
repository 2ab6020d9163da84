// Package resolver implements the namerd-style HTTP naming service client
// (spec.md §4.1, §6.2): polling an external resolve endpoint on an interval and
// turning each poll into a domain.Snapshot.
package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/thushan/olla4/internal/core/domain"
	"github.com/thushan/olla4/internal/core/ports"
	"github.com/thushan/olla4/internal/logger"
)

// Namerd resolves logical names against a namerd-compatible HTTP naming
// service. Grounded on resolver/namerd.rs's Namerd/WithClient/Addrs: the Rust
// stream's Pending/Waiting state machine becomes a goroutine driven by a
// time.Ticker, since Go has no poll-based future to thread through.
type Namerd struct {
	client   *http.Client
	baseURL  string
	metrics  ports.MetricsSink
	log      *logger.StyledLogger
	interval time.Duration
}

// New builds a Namerd resolver. cfg.Addr is the namerd base URL, e.g.
// "http://namerd:4180"; requests are sent to
// "{addr}/api/1/resolve/{namespace}?path={target}".
func New(cfg Config, client *http.Client, metrics ports.MetricsSink, log *logger.StyledLogger) *Namerd {
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Namerd{
		client:   client,
		baseURL:  fmt.Sprintf("%s/api/1/resolve/%s", cfg.Addr, cfg.Namespace),
		metrics:  metrics,
		log:      log,
		interval: cfg.Interval,
	}
}

// Resolve implements ports.Resolver. It issues one request immediately, then
// one every interval, until ctx is cancelled.
func (n *Namerd) Resolve(ctx context.Context, path domain.Path) <-chan domain.Snapshot {
	target := path.String()
	out := make(chan domain.Snapshot)

	go func() {
		defer close(out)

		if !n.pollOnce(ctx, target, out) {
			return
		}

		ticker := time.NewTicker(n.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !n.pollOnce(ctx, target, out) {
					return
				}
			}
		}
	}()

	return out
}

// pollOnce performs a single resolve request and sends its outcome. It
// returns false only when ctx is already done and the result should be
// dropped rather than sent.
func (n *Namerd) pollOnce(ctx context.Context, target string, out chan<- domain.Snapshot) bool {
	snap := n.request(ctx, target)

	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

func (n *Namerd) request(ctx context.Context, target string) domain.Snapshot {
	reqURL := n.baseURL + "?" + url.Values{"path": {target}}.Encode()

	start := time.Now()
	snap := n.doRequest(ctx, reqURL)
	if n.metrics != nil {
		n.metrics.Timer("resolver_request_latency").ObserveSeconds(time.Since(start).Seconds())
		if snap.IsErr() {
			n.metrics.Counter("resolver_failure_count").Inc()
		} else {
			n.metrics.Counter("resolver_success_count").Inc()
		}
	}
	if snap.IsErr() && n.log != nil {
		n.log.Warn("namerd poll failed", "target", target, "error", GetUserFriendlyMessage(snap.Err))
	}
	return snap
}

func (n *Namerd) doRequest(ctx context.Context, reqURL string) domain.Snapshot {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.ErrSnapshot(&domain.ResolverTransportError{URL: reqURL, Err: err})
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return domain.ErrSnapshot(&domain.ResolverTransportError{URL: reqURL, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ErrSnapshot(&domain.ResolverUnexpectedStatusError{URL: reqURL, StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ErrSnapshot(&domain.ResolverParseError{Err: err})
	}

	addrs, err := parseBody(body)
	if err != nil {
		return domain.ErrSnapshot(err)
	}

	return domain.OkSnapshot(addrs)
}
