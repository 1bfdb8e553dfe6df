package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for the runner.
type ErrorKind int

const (
	// KindStep is a failure raised while a step was running.
	KindStep ErrorKind = iota + 1
	// KindConfiguration is detected before any step runs: unknown command,
	// missing context facts, invalid stage options.
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindStep:
		return "step failure"
	case KindConfiguration:
		return "configuration error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind ErrorKind
	Step string
	Err  error
}

func (e *Error) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s in %q: %v", e.Kind, e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ConfigurationError wraps err as a configuration error.
func ConfigurationError(err error) error {
	return &Error{Kind: KindConfiguration, Err: err}
}

// KindOf returns the kind of a classified error, or 0 when err is not one.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
