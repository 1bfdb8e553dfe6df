package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/shell"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

// Process exit codes for pipeline outcomes.
const (
	ExitOK = iota
	ExitStepFailure
	ExitConfiguration
)

// Runner executes pipelines by command name.
type Runner struct {
	deps steps.Deps
}

// NewRunner creates a runner. deps.App may be nil; the runner creates one
// with the verbosity of the command's stage.
func NewRunner(deps steps.Deps) *Runner {
	return &Runner{deps: deps}
}

// Run parses name, assembles its pipeline and executes it. Failures are
// returned as *pipeline.Error.
func (r *Runner) Run(ctx context.Context, name string) error {
	cmd, err := ParseCommand(name)
	if err != nil {
		return err
	}

	deps := r.stageDeps(cmd)
	pc, err := ResolveContext(cmd, deps)
	if err != nil {
		return err
	}
	root, err := Assemble(pc, deps)
	if err != nil {
		return err
	}

	slog.Info("executing pipeline", "command", cmd, "installed", pc.Installed)
	start := time.Now()

	result := root.Run(ctx)
	r.recordOutcome(cmd, result)

	if result.Failed() {
		slog.Error("pipeline failed", "command", cmd, "step", result.Origin, "error", result.Err)
		return result.AsError()
	}
	slog.Info("pipeline succeeded", "command", cmd, "duration", time.Since(start))
	return nil
}

func (r *Runner) stageDeps(cmd Command) steps.Deps {
	deps := r.deps
	if deps.App == nil {
		options := deps.Deploy
		if cmd.IsBuild() {
			options = deps.Build
		}
		deps.App = shell.NewApp(deps.Shell, options.Verbosity())
	}
	return deps
}

func (r *Runner) recordOutcome(cmd Command, result pipeline.Result) {
	if cmd != CommandDeploy {
		return
	}
	var err error
	if result.Failed() {
		err = r.deps.Flags.Set(flagfile.DeployFailed)
	} else {
		err = r.deps.Flags.Clear(flagfile.DeployFailed)
	}
	if err != nil {
		slog.Warn("updating deploy state flag", "flag", flagfile.DeployFailed, "error", err)
	}
}

// Describe renders err for the operator.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		return err.Error()
	}
	switch pe.Kind {
	case pipeline.KindConfiguration:
		return fmt.Sprintf("Configuration error: %v", pe.Err)
	case pipeline.KindStep:
		if pe.Step == "" {
			return fmt.Sprintf("Pipeline failed: %v", pe.Err)
		}
		return fmt.Sprintf("Step %q failed: %v", pe.Step, pe.Err)
	default:
		return pe.Error()
	}
}

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case pipeline.KindOf(err) == pipeline.KindConfiguration:
		return ExitConfiguration
	default:
		return ExitStepFailure
	}
}
