package checkpoint

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/scalebench/internal/scalebench/pool"
	"github.com/armadaproject/scalebench/internal/scalebench/sink"
	"github.com/armadaproject/scalebench/internal/scalebench/table"
)

// PoolFactory creates the worker pool that replaces a drained one.
type PoolFactory func() *pool.Pool

// FlushRecorder is told about every successful flush.
type FlushRecorder interface {
	RecordFlush(rows int, duration time.Duration)
}

// ShouldFlush reports whether more than saveEvery has elapsed between lastFlush and now.
func ShouldFlush(now, lastFlush time.Time, saveEvery time.Duration) bool {
	return now.Sub(lastFlush) > saveEvery
}

// Checkpointer periodically drains the worker pool and moves the buffered result table into a sink.
// It is driven from the scheduling loop and is not safe for concurrent use.
type Checkpointer struct {
	aggregator   *table.Aggregator
	sink         sink.Sink
	clock        clock.PassiveClock
	saveEvery    time.Duration
	drainTimeout time.Duration
	newPool      PoolFactory
	recorder     FlushRecorder

	lastFlush     time.Time
	headerWritten bool
}

func NewCheckpointer(
	aggregator *table.Aggregator,
	sink sink.Sink,
	clock clock.PassiveClock,
	saveEvery time.Duration,
	drainTimeout time.Duration,
	newPool PoolFactory,
	recorder FlushRecorder,
) *Checkpointer {
	return &Checkpointer{
		aggregator:   aggregator,
		sink:         sink,
		clock:        clock,
		saveEvery:    saveEvery,
		drainTimeout: drainTimeout,
		newPool:      newPool,
		recorder:     recorder,
		lastFlush:    clock.Now(),
	}
}

// MaybeFlush flushes if saveEvery has elapsed since the last flush.
// On a flush, current is drained and discarded, and the returned pool is a fresh one that must be used for all
// further submissions. Otherwise current is returned unchanged.
//
// A flush is bounded only by the drain timeout. Cancelling the run while a flush is waiting for slow probes
// does not abandon the buffered rows.
func (c *Checkpointer) MaybeFlush(current *pool.Pool) (*pool.Pool, bool, error) {
	now := c.clock.Now()
	if !ShouldFlush(now, c.lastFlush, c.saveEvery) {
		return current, false, nil
	}
	log.Info("saving...")
	if err := c.flush(current, now); err != nil {
		return nil, false, err
	}
	log.Info("saved...")
	return c.newPool(), true, nil
}

// Flush drains current and persists whatever is buffered, regardless of when the last flush happened.
// current must not be used afterwards.
func (c *Checkpointer) Flush(current *pool.Pool) error {
	return c.flush(current, c.clock.Now())
}

func (c *Checkpointer) flush(current *pool.Pool, now time.Time) error {
	start := time.Now()
	if err := current.Drain(context.Background(), c.drainTimeout); err != nil {
		return errors.WithMessage(err, "draining worker pool")
	}

	rows := c.aggregator.Snapshot()
	if err := c.sink.Write(c.aggregator.Labels(), rows, !c.headerWritten); err != nil {
		return errors.WithMessagef(err, "writing %d rows", len(rows))
	}
	c.headerWritten = true
	c.aggregator.Reset()
	c.lastFlush = now

	if c.recorder != nil {
		c.recorder.RecordFlush(len(rows), time.Since(start))
	}
	log.Debugf("flushed %d rows", len(rows))
	return nil
}

// HeaderWritten reports whether a flush has succeeded yet.
func (c *Checkpointer) HeaderWritten() bool {
	return c.headerWritten
}

// LastFlush returns the time of the last successful flush, or of construction if there has been none.
func (c *Checkpointer) LastFlush() time.Time {
	return c.lastFlush
}
