// Package pool executes probe invocations asynchronously.
//
// A Pool has a one-shot lifecycle: create, submit any number of tasks, drain, discard.
// Draining waits for every submitted task and its completion callback, after which the pool
// rejects further submissions. Callers that want to keep going must create a new Pool.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/armadaproject/scalebench/internal/common/benchmarkerrors"
	"github.com/armadaproject/scalebench/internal/scalebench/registry"
)

// Callback receives the outcome of a task exactly once.
// err is non-nil if the probe returned an error or panicked; result may still hold partial data.
// A non-nil return value is fatal: it is reported by Err and Drain.
type Callback func(result registry.Result, err error) error

// Observer is notified when tasks start and finish.
type Observer interface {
	TaskStarted(metric string)
	TaskFinished(metric string, duration time.Duration, failed bool)
}

type Pool struct {
	group    *errgroup.Group
	ctx      context.Context
	sem      *semaphore.Weighted
	observer Observer

	mu       sync.Mutex
	drained  bool
	pending  int64
	firstErr error
}

// New creates a pool whose tasks run under ctx.
// At most size tasks execute at once; further tasks wait for a free slot. A size of zero or less means unbounded.
func New(ctx context.Context, size int, observer Observer) *Pool {
	group, groupCtx := errgroup.WithContext(ctx)
	p := &Pool{
		group:    group,
		ctx:      groupCtx,
		observer: observer,
	}
	if size > 0 {
		p.sem = semaphore.NewWeighted(int64(size))
	}
	return p
}

// Submit schedules metric's probe for the given iteration and returns immediately.
// onComplete is invoked exactly once, from the goroutine that ran the probe.
func (p *Pool) Submit(metric registry.Metric, iteration int, onComplete Callback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drained {
		return errors.WithStack(benchmarkerrors.ErrPoolDrained)
	}
	atomic.AddInt64(&p.pending, 1)
	p.group.Go(func() error {
		defer atomic.AddInt64(&p.pending, -1)
		result, err := p.run(metric, iteration)
		if cbErr := onComplete(result, err); cbErr != nil {
			p.recordErr(cbErr)
			return cbErr
		}
		return nil
	})
	return nil
}

func (p *Pool) run(metric registry.Metric, iteration int) (result registry.Result, err error) {
	if p.sem != nil {
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return registry.NewResult(iteration), errors.WithMessagef(err, "waiting to run %s", metric.Name)
		}
		defer p.sem.Release(1)
	}

	start := time.Now()
	if p.observer != nil {
		p.observer.TaskStarted(metric.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithField("metric", metric.Name).WithField("iteration", iteration).Errorf("probe panicked: %v", r)
			result = registry.NewResult(iteration)
			err = errors.WithStack(fmt.Errorf("probe %s panicked: %v", metric.Name, r))
		}
		if p.observer != nil {
			p.observer.TaskFinished(metric.Name, time.Since(start), err != nil)
		}
	}()
	return metric.Probe(p.ctx, iteration)
}

func (p *Pool) recordErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.firstErr == nil {
		p.firstErr = err
	}
}

// Err returns the first error returned by a completion callback, without waiting.
func (p *Pool) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstErr
}

// Pending returns the number of tasks submitted whose callback has not yet returned.
func (p *Pool) Pending() int {
	return int(atomic.LoadInt64(&p.pending))
}

// Drain blocks until all submitted tasks have completed and their callbacks have returned.
// The pool accepts no further submissions once Drain has been called.
//
// A positive timeout bounds the wait; when it passes, or ctx is cancelled, an ErrDrainTimeout reporting the number
// of outstanding tasks is returned. Those tasks keep running in the background and their callbacks still fire.
// A zero timeout waits for as long as the slowest probe takes.
func (p *Pool) Drain(ctx context.Context, timeout time.Duration) error {
	p.mu.Lock()
	p.drained = true
	p.mu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- p.group.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		drainErr := &benchmarkerrors.ErrDrainTimeout{Pending: p.Pending()}
		if timeout > 0 {
			drainErr.Timeout = timeout.String()
		}
		return errors.WithStack(drainErr)
	}
}
