package handler

import (
	"fmt"

	"github.com/Ironwood-Cyber/decorator-demo/errors"
)

// Outcome is the kind of a capability call result.
type Outcome int

const (
	// OutcomeSupported means the handler produced a value.
	OutcomeSupported Outcome = iota
	// OutcomeNotSupported means the handler does not implement the capability.
	OutcomeNotSupported
	// OutcomeFailed means the call failed unexpectedly.
	OutcomeFailed
)

// String returns the lowercase outcome name used in logs and metric labels.
func (o Outcome) String() string {
	switch o {
	case OutcomeSupported:
		return "supported"
	case OutcomeNotSupported:
		return "not_supported"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the typed outcome of one capability call.
type Result[T any] struct {
	outcome Outcome
	value   T
	err     error
}

// Supported wraps a produced value.
func Supported[T any](v T) Result[T] {
	return Result[T]{outcome: OutcomeSupported, value: v}
}

// NotSupported reports a capability the handler does not implement.
func NotSupported[T any]() Result[T] {
	return Result[T]{outcome: OutcomeNotSupported}
}

// Failed reports an unexpected failure. A nil err is recorded as errors.ErrHandlerFailure.
func Failed[T any](err error) Result[T] {
	if err == nil {
		err = errors.ErrHandlerFailure
	}
	return Result[T]{outcome: OutcomeFailed, err: err}
}

// FromError maps a conventional (value, error) pair onto a Result. Errors wrapping
// errors.ErrNotSupported become NotSupported.
func FromError[T any](v T, err error) Result[T] {
	switch {
	case err == nil:
		return Supported(v)
	case errors.IsNotSupported(err):
		return NotSupported[T]()
	default:
		return Failed[T](err)
	}
}

// Outcome returns the result kind.
func (r Result[T]) Outcome() Outcome { return r.outcome }

// IsSupported reports whether the call produced a value.
func (r Result[T]) IsSupported() bool { return r.outcome == OutcomeSupported }

// IsNotSupported reports whether the handler lacks the capability.
func (r Result[T]) IsNotSupported() bool { return r.outcome == OutcomeNotSupported }

// IsFailed reports whether the call failed.
func (r Result[T]) IsFailed() bool { return r.outcome == OutcomeFailed }

// Value returns the produced value, or the zero value for other outcomes.
func (r Result[T]) Value() T { return r.value }

// Err returns the failure cause. It is errors.ErrNotSupported for NotSupported
// results and nil for Supported ones.
func (r Result[T]) Err() error {
	switch r.outcome {
	case OutcomeNotSupported:
		return errors.ErrNotSupported
	case OutcomeFailed:
		return r.err
	default:
		return nil
	}
}

// Unwrap returns the value and Err, for callers that prefer the two-value form.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.Err()
}

func (r Result[T]) String() string {
	if r.outcome == OutcomeFailed {
		return fmt.Sprintf("failed: %v", r.err)
	}
	return r.outcome.String()
}

// Map converts a Supported value with fn. NotSupported and Failed results pass
// through; an error from fn turns the result into Failed.
func Map[T, U any](r Result[T], fn func(T) (U, error)) Result[U] {
	switch r.outcome {
	case OutcomeSupported:
		v, err := fn(r.value)
		if err != nil {
			return Failed[U](err)
		}
		return Supported(v)
	case OutcomeNotSupported:
		return NotSupported[U]()
	default:
		return Failed[U](r.err)
	}
}
