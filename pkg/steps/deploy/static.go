package deploy

import (
	"context"
	"log/slog"

	"github.com/systemstart/cloud-pipeline/pkg/api"
	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/fsutil"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

type generateStaticContent struct {
	deps steps.Deps
}

// NewGenerateStaticContent deploys static content during deploy unless the
// build already did.
func NewGenerateStaticContent(deps steps.Deps) pipeline.Step {
	return &generateStaticContent{deps: deps}
}

func (s *generateStaticContent) Name() string { return "generate static content" }

func (s *generateStaticContent) Run(ctx context.Context) pipeline.Result {
	if s.deps.Flags.Exists(flagfile.StaticContentDeploy) {
		return pipeline.Skip("static content was deployed during build")
	}
	if s.deps.Deploy.Bool(api.OptSkipSCD) {
		return pipeline.Skipf("%s is set", api.OptSkipSCD)
	}

	if s.deps.Deploy.Bool(api.OptCleanStaticFiles) {
		slog.Info("clearing static content")
		if err := fsutil.ClearDirectory(s.deps.Dirs.StaticContent()); err != nil {
			return pipeline.Fail(err)
		}
	}

	scd := steps.StaticContent{Deps: s.deps, Options: s.deps.Deploy}
	if err := scd.Deploy(ctx); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}
