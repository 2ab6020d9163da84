// Package app wires a loaded configuration document into a running set of
// proxy instances and coordinates their startup and shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thushan/olla4/internal/adapter/metrics"
	"github.com/thushan/olla4/internal/config"
	"github.com/thushan/olla4/internal/core/ports"
	"github.com/thushan/olla4/internal/logger"
	"github.com/thushan/olla4/internal/proxy"
)

const defaultShutdownTimeout = 10 * time.Second

// Application owns one proxy.Instance per configured proxies[] entry and
// drives them to completion together. Each instance runs under its own
// cancellable context rather than a shared errgroup context, so that one
// instance's fatal error (bind failure, etc.) cannot cascade and tear down
// its peers - spec.md §7: "a crash in one proxy instance must not affect
// peers".
type Application struct {
	doc       *config.Document
	log       *logger.StyledLogger
	metrics   ports.MetricsSink
	instances []*proxy.Instance

	cancel context.CancelFunc
	done   chan error
}

// New builds an Application from a loaded configuration document.
func New(doc *config.Document, log *logger.StyledLogger) (*Application, error) {
	sink := metrics.NewSink()

	instances := make([]*proxy.Instance, 0, len(doc.Proxies))
	for i, p := range doc.Proxies {
		inst, err := proxy.New(p, doc.BufferSize, sink, log)
		if err != nil {
			return nil, fmt.Errorf("proxies[%d]: %w", i, err)
		}
		instances = append(instances, inst)
	}

	return &Application{
		doc:       doc,
		log:       log,
		metrics:   sink,
		instances: instances,
		done:      make(chan error, 1),
	}, nil
}

// Start runs every proxy instance concurrently, each under its own context
// derived from ctx, and returns nil once they have been launched. An instance
// that stops with a fatal error (e.g. a bind failure) has the error logged;
// the other instances keep running, ctx is not cancelled, and the collected
// errors are returned later by Stop.
func (a *Application) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	var wg sync.WaitGroup
	errs := make([]error, len(a.instances))
	for i, inst := range a.instances {
		i, inst := i, inst
		instCtx, instCancel := context.WithCancel(runCtx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer instCancel()
			if err := inst.Run(instCtx); err != nil && instCtx.Err() == nil {
				a.log.Error("proxy instance stopped", "index", i, "error", err)
				errs[i] = err
			}
		}()
	}

	go func() {
		wg.Wait()
		a.done <- errors.Join(errs...)
	}()

	a.log.Info("started proxy instances", "count", len(a.instances))
	return nil
}

// Stop cancels every running instance and waits for them to unwind, bounded
// by ctx or a default shutdown timeout if ctx carries no deadline.
func (a *Application) Stop(ctx context.Context) error {
	if a.cancel == nil {
		return nil
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
	}

	a.cancel()

	select {
	case err := <-a.done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
