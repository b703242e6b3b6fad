package logging

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const Stacktrace = "stacktrace"

// Unexported but considered part of the stable interface of pkg/errors.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Unexported but considered part of the stable interface of pkg/errors.
type causer interface {
	Cause() error
}

type unwrapper interface {
	Unwrap() error
}

// WithStacktrace adds err and, if one can be found, its stack trace to logger.
func WithStacktrace(logger *logrus.Entry, err error) *logrus.Entry {
	logger = logger.WithError(err)
	if stack := ExtractStack(err); stack != nil {
		logger = logger.WithField(Stacktrace, stack)
	}
	return logger
}

// ExtractStack returns the first errors.StackTrace found in err's chain, or nil.
// For a multierror the wrapped errors are searched in order.
func ExtractStack(err error) errors.StackTrace {
	switch e := err.(type) {
	case nil:
		return nil
	case stackTracer:
		return e.StackTrace()
	case *multierror.Error:
		for _, wrapped := range e.WrappedErrors() {
			if stack := ExtractStack(wrapped); stack != nil {
				return stack
			}
		}
		return nil
	case causer:
		return ExtractStack(e.Cause())
	case unwrapper:
		return ExtractStack(e.Unwrap())
	}
	return nil
}
