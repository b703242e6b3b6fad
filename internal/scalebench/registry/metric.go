// Package registry holds the metric definitions a benchmark run is made of, and assigns every label
// they declare a stable column in the result table.
package registry

import (
	"context"

	"github.com/pkg/errors"

	"github.com/armadaproject/scalebench/internal/common/benchmarkerrors"
)

// Probe performs one measurement for the given iteration.
//
// Probes should trap their own failures: log them and return whatever partial Result they have,
// with the row key still set, so that the iteration's row is not lost. A non-nil error is logged by the
// caller but otherwise treated the same as a partial result.
type Probe func(ctx context.Context, iteration int) (Result, error)

// Metric is a probe together with the ordered list of labels it may report.
type Metric struct {
	Name   string
	Probe  Probe
	Labels []string
}

// Result is the labelled output of a single probe invocation.
type Result struct {
	// The iteration this result belongs to. Nil if the probe did not supply one.
	RowKey *int
	Values map[string]interface{}
}

// NewResult returns an empty result tagged with the given iteration.
func NewResult(iteration int) Result {
	return Result{
		RowKey: &iteration,
		Values: map[string]interface{}{},
	}
}

// Set records value for label and returns the result to allow chaining.
// The value is written into r's map, so copies of r that share it see the value too.
func (r Result) Set(label string, value interface{}) Result {
	if r.Values == nil {
		r.Values = map[string]interface{}{}
	}
	r.Values[label] = value
	return r
}

// Merge returns a result holding the values of r and other, with other taking precedence.
// Neither r nor other is modified.
func (r Result) Merge(other Result) Result {
	values := make(map[string]interface{}, len(r.Values)+len(other.Values))
	for label, value := range r.Values {
		values[label] = value
	}
	for label, value := range other.Values {
		values[label] = value
	}
	r.Values = values
	return r
}

// Validate checks that every metric can be registered.
func Validate(metrics []Metric) error {
	if len(metrics) == 0 {
		return errors.WithStack(&benchmarkerrors.ErrInvalidArgument{
			Name:    "Metrics",
			Value:   len(metrics),
			Message: "at least one metric must be registered",
		})
	}
	for i, metric := range metrics {
		if metric.Name == "" {
			return errors.WithStack(&benchmarkerrors.ErrInvalidArgument{
				Name:    "Name",
				Value:   i,
				Message: "metric has no name",
			})
		}
		if metric.Probe == nil {
			return errors.WithStack(&benchmarkerrors.ErrInvalidArgument{
				Name:    "Probe",
				Value:   metric.Name,
				Message: "metric has no probe",
			})
		}
		if len(metric.Labels) == 0 {
			return errors.WithStack(&benchmarkerrors.ErrInvalidArgument{
				Name:    "Labels",
				Value:   metric.Name,
				Message: "metric declares no labels",
			})
		}
	}
	return nil
}
