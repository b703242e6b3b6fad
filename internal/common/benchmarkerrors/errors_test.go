package benchmarkerrors

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := map[string]struct {
		err  error
		want string
	}{
		"ErrInvalidArgument": {
			&ErrInvalidArgument{Name: "iterations", Value: 0},
			`value 0 is invalid for field "iterations"`,
		},
		"ErrInvalidArgument with message": {
			&ErrInvalidArgument{Name: "iterations", Value: 0, Message: "must be positive"},
			`value 0 is invalid for field "iterations"; must be positive`,
		},
		"ErrUnregisteredLabel": {
			&ErrUnregisteredLabel{Label: "foo", Iteration: 3},
			`label "foo" reported for iteration 3 was never registered`,
		},
		"ErrDrainTimeout": {
			&ErrDrainTimeout{Pending: 2},
			"2 task(s) still pending after draining the worker pool",
		},
		"ErrDrainTimeout with timeout": {
			&ErrDrainTimeout{Pending: 1, Timeout: "5s"},
			"1 task(s) still pending after draining the worker pool for 5s",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestErrorsAs_ThroughWrapping(t *testing.T) {
	err := errors.WithMessage(errors.WithStack(&ErrUnregisteredLabel{Label: "foo"}), "aggregating result")

	var unregistered *ErrUnregisteredLabel
	assert.True(t, errors.As(err, &unregistered))
	assert.Equal(t, "foo", unregistered.Label)

	var drain *ErrDrainTimeout
	assert.False(t, errors.As(err, &drain))
}

func TestErrPoolDrained_Is(t *testing.T) {
	err := errors.WithMessage(ErrPoolDrained, "submitting iteration 4")
	assert.True(t, errors.Is(err, ErrPoolDrained))
}
