package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Parent is implemented by steps that wrap other steps.
type Parent interface {
	Steps() []Step
}

// Composite runs its children sequentially and stops at the first failure.
type Composite struct {
	name  string
	steps []Step
}

// NewComposite creates a composite step. Children run in the given order.
func NewComposite(name string, steps ...Step) *Composite {
	return &Composite{name: name, steps: steps}
}

func (c *Composite) Name() string { return c.name }

// Steps returns the children in execution order.
func (c *Composite) Steps() []Step {
	return c.steps
}

func (c *Composite) Run(ctx context.Context) Result {
	for _, step := range c.steps {
		slog.Info("running step", "pipeline", c.name, "step", step.Name())
		start := time.Now()

		result := step.Run(ctx)

		switch result.Status {
		case StatusFailed:
			if result.Origin == "" {
				result.Origin = step.Name()
			}
			slog.Error("step failed", "pipeline", c.name, "step", step.Name(), "origin", result.Origin, "error", result.Err)
			return result
		case StatusSkipped:
			slog.Info("step skipped", "pipeline", c.name, "step", step.Name(), "reason", result.Reason)
		default:
			slog.Info("step completed", "pipeline", c.name, "step", step.Name(), "duration", time.Since(start))
		}
	}
	return Success()
}

// Names flattens a step tree into slash-joined paths, depth first.
func Names(step Step) []string {
	var names []string
	var walk func(prefix string, s Step)
	walk = func(prefix string, s Step) {
		path := s.Name()
		if prefix != "" {
			path = prefix + "/" + path
		}
		names = append(names, path)
		if p, ok := s.(Parent); ok {
			for _, child := range p.Steps() {
				walk(path, child)
			}
		}
	}
	walk("", step)
	return names
}
