// Package pipeline is the step execution engine. A Step is either a leaf or
// a Composite of other steps; both are run the same way and report a Result.
package pipeline

import "context"

// Step is the interface all pipeline steps implement.
//
// Run is called at most once per pipeline run. Steps must not assume earlier
// steps ran in this process: their effects may come from a previous run and
// are only visible through the flag store and the filesystem.
type Step interface {
	Name() string
	Run(ctx context.Context) Result
}

type funcStep struct {
	name string
	fn   func(ctx context.Context) Result
}

// StepFunc adapts a function into a Step.
func StepFunc(name string, fn func(ctx context.Context) Result) Step {
	return &funcStep{name: name, fn: fn}
}

func (s *funcStep) Name() string { return s.name }

func (s *funcStep) Run(ctx context.Context) Result { return s.fn(ctx) }
