package pipeline

import "fmt"

// Status is the outcome class of a step run.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Result is returned by every step and composite.
type Result struct {
	Status Status
	Reason string // why a step was skipped
	Origin string // name of the step that failed
	Err    error
}

// Success reports that the step did its work.
func Success() Result {
	return Result{Status: StatusSuccess}
}

// Skip reports that there was nothing to do.
func Skip(reason string) Result {
	return Result{Status: StatusSkipped, Reason: reason}
}

// Skipf is Skip with a formatted reason.
func Skipf(format string, args ...any) Result {
	return Skip(fmt.Sprintf(format, args...))
}

// Fail reports a failure. The enclosing composite fills in Origin.
func Fail(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}

// Failf is Fail with a formatted error.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Errorf(format, args...))
}

func (r Result) Failed() bool  { return r.Status == StatusFailed }
func (r Result) Skipped() bool { return r.Status == StatusSkipped }

// AsError converts a failed result into a step error. It returns nil for
// success and skip.
func (r Result) AsError() error {
	if !r.Failed() {
		return nil
	}
	return &Error{Kind: KindStep, Step: r.Origin, Err: r.Err}
}
