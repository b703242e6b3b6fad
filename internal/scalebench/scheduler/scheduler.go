// Package scheduler drives a benchmark run: it schedules every metric once per iteration at a fixed pulse,
// feeds completions into the result table and periodically checkpoints the table to a sink.
package scheduler

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"k8s.io/utils/clock"

	"github.com/armadaproject/scalebench/internal/common/benchmarkerrors"
	"github.com/armadaproject/scalebench/internal/common/logging"
	"github.com/armadaproject/scalebench/internal/scalebench/checkpoint"
	"github.com/armadaproject/scalebench/internal/scalebench/metrics"
	"github.com/armadaproject/scalebench/internal/scalebench/pool"
	"github.com/armadaproject/scalebench/internal/scalebench/registry"
	"github.com/armadaproject/scalebench/internal/scalebench/sink"
	"github.com/armadaproject/scalebench/internal/scalebench/table"
)

type Config struct {
	// Number of iterations to schedule.
	Iterations int
	// Base delay between two iterations.
	Pulse time.Duration
	// Upper bound of the random delay added to Pulse.
	Jitter time.Duration
	// Minimum time between two checkpoint flushes.
	SaveEvery time.Duration
	// Maximum number of probes executing at once. Zero means unbounded.
	Workers int
	// How long a flush waits for outstanding probes. Zero means forever.
	DrainTimeout time.Duration
}

func (c Config) Validate() error {
	if c.Iterations <= 0 {
		return errors.WithStack(&benchmarkerrors.ErrInvalidArgument{
			Name: "Iterations", Value: c.Iterations, Message: "must be positive",
		})
	}
	if c.Pulse < 0 {
		return errors.WithStack(&benchmarkerrors.ErrInvalidArgument{
			Name: "Pulse", Value: c.Pulse, Message: "must not be negative",
		})
	}
	if c.Jitter < 0 {
		return errors.WithStack(&benchmarkerrors.ErrInvalidArgument{
			Name: "Jitter", Value: c.Jitter, Message: "must not be negative",
		})
	}
	if c.SaveEvery <= 0 {
		return errors.WithStack(&benchmarkerrors.ErrInvalidArgument{
			Name: "SaveEvery", Value: c.SaveEvery, Message: "must be positive",
		})
	}
	return nil
}

// Summary describes a finished run.
type Summary struct {
	// Iterations actually scheduled. Less than Config.Iterations if the run was stopped early.
	Iterations int
	// Flushes performed, including the final one.
	Flushes int
	Stopped bool
}

type Scheduler struct {
	config  Config
	metrics []registry.Metric
	sink    sink.Sink
	clock   clock.Clock
	random  *rand.Rand
	bench   *metrics.Metrics
}

// New creates a scheduler for the given metrics.
// clk and random may be nil, in which case the wall clock and a time-seeded generator are used.
func New(
	config Config,
	metricsToRun []registry.Metric,
	sink sink.Sink,
	clk clock.Clock,
	random *rand.Rand,
	benchMetrics *metrics.Metrics,
) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := registry.Validate(metricsToRun); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.WithStack(&benchmarkerrors.ErrInvalidArgument{Name: "Sink", Value: nil, Message: "must not be nil"})
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if random == nil {
		random = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	if benchMetrics == nil {
		benchMetrics = metrics.NewNop()
	}
	return &Scheduler{
		config:  config,
		metrics: metricsToRun,
		sink:    sink,
		clock:   clk,
		random:  random,
		bench:   benchMetrics,
	}, nil
}

// Run schedules all iterations and returns once every result has been written to the sink.
//
// Cancelling ctx stops scheduling new iterations and cancels in-flight probes. Whatever is buffered is still
// drained and flushed before Run returns, and an early stop is not reported as an error.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	summary := Summary{}
	aggregator := table.NewAggregator(registry.Register(s.metrics), s.bench)
	newPool := func() *pool.Pool {
		return pool.New(ctx, s.config.Workers, s.bench)
	}
	checkpointer := checkpoint.NewCheckpointer(
		aggregator,
		s.sink,
		s.clock,
		s.config.SaveEvery,
		s.config.DrainTimeout,
		newPool,
		s.bench,
	)
	current := newPool()

	log.Infof(
		"scheduling %d iterations of %d metrics every %s (+ up to %s jitter), saving every %s",
		s.config.Iterations, len(s.metrics), s.config.Pulse, s.config.Jitter, s.config.SaveEvery,
	)

	for i := 0; i < s.config.Iterations; i++ {
		// A flush may have outlasted a cancellation.
		if ctx.Err() != nil {
			s.stopEarly(&summary)
			break
		}
		aggregator.AddRow(i)
		for _, metric := range s.metrics {
			if err := current.Submit(metric, i, s.onComplete(aggregator, metric.Name, i)); err != nil {
				return summary, s.abort(current, err)
			}
		}
		s.bench.RecordIteration()
		summary.Iterations++

		if !s.sleep(ctx) {
			s.stopEarly(&summary)
			break
		}

		next, flushed, err := checkpointer.MaybeFlush(current)
		if err != nil {
			return summary, err
		}
		current = next
		if flushed {
			summary.Flushes++
		}

		if err := current.Err(); err != nil {
			return summary, s.abort(current, err)
		}
	}

	if err := checkpointer.Flush(current); err != nil {
		return summary, errors.WithMessage(err, "final flush")
	}
	summary.Flushes++
	log.Infof("finished %d iterations, %d flushes", summary.Iterations, summary.Flushes)
	return summary, nil
}

func (s *Scheduler) stopEarly(summary *Summary) {
	log.Warnf("stopping after %d of %d iterations", summary.Iterations, s.config.Iterations)
	summary.Stopped = true
}

func (s *Scheduler) onComplete(aggregator *table.Aggregator, metric string, iteration int) pool.Callback {
	return func(result registry.Result, err error) error {
		if err != nil {
			logging.
				WithStacktrace(log.WithField("metric", metric).WithField("iteration", iteration), err).
				Warn("probe failed")
		}
		return aggregator.Aggregate(result)
	}
}

// nextDelay returns the pulse plus a jitter drawn uniformly from [0, Jitter).
func (s *Scheduler) nextDelay() time.Duration {
	if s.config.Jitter <= 0 {
		return s.config.Pulse
	}
	return s.config.Pulse + time.Duration(s.random.Int63n(int64(s.config.Jitter)))
}

// sleep waits for nextDelay. It returns false if ctx was cancelled first.
func (s *Scheduler) sleep(ctx context.Context) bool {
	delay := s.nextDelay()
	select {
	case <-ctx.Done():
		return false
	default:
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(delay):
		return true
	}
}

// abort waits for outstanding probes of a pool that hit a fatal error and returns the combined error.
// Nothing buffered is written.
func (s *Scheduler) abort(current *pool.Pool, cause error) error {
	var result *multierror.Error
	result = multierror.Append(result, cause)
	if err := current.Drain(context.Background(), s.config.DrainTimeout); err != nil && !errors.Is(err, cause) {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
