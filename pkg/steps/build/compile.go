package build

import (
	"context"

	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

type compileDi struct {
	deps steps.Deps
}

// NewCompileDi generates dependency injection code.
func NewCompileDi(deps steps.Deps) pipeline.Step {
	return &compileDi{deps: deps}
}

func (s *compileDi) Name() string { return "compile di" }

func (s *compileDi) Run(ctx context.Context) pipeline.Result {
	if _, err := s.deps.App.Run(ctx, "setup:di:compile"); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}

type dumpAutoload struct {
	deps steps.Deps
}

// NewDumpAutoload regenerates an optimized class autoloader.
func NewDumpAutoload(deps steps.Deps) pipeline.Step {
	return &dumpAutoload{deps: deps}
}

func (s *dumpAutoload) Name() string { return "dump autoload" }

func (s *dumpAutoload) Run(ctx context.Context) pipeline.Result {
	if _, err := s.deps.Shell.Execute(ctx, "composer", "dump-autoload", "-o", "--ansi", "--no-interaction"); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}
