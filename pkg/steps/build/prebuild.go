// Package build implements the steps of the build pipeline.
package build

import (
	"context"
	"log/slog"

	"github.com/systemstart/cloud-pipeline/pkg/configdump"
	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/fsutil"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

type preBuild struct {
	deps steps.Deps
}

// NewPreBuild logs build settings and drops the static content flag when the
// content it refers to is gone.
func NewPreBuild(deps steps.Deps) pipeline.Step {
	return &preBuild{deps: deps}
}

func (s *preBuild) Name() string { return "pre-build" }

func (s *preBuild) Run(_ context.Context) pipeline.Result {
	verbosity := s.deps.Build.Verbosity()
	if verbosity == "" {
		verbosity = "not set"
	}
	slog.Info("verbosity level", "level", verbosity)

	if s.deps.Flags.Exists(flagfile.StaticContentDeploy) && fsutil.IsEmptyDir(s.deps.Dirs.StaticContent()) {
		slog.Info("static content is missing, clearing flag", "flag", flagfile.StaticContentDeploy)
		if err := s.deps.Flags.Clear(flagfile.StaticContentDeploy); err != nil {
			return pipeline.Fail(err)
		}
	}
	return pipeline.Success()
}

type prepareModuleConfig struct {
	deps steps.Deps
}

// NewPrepareModuleConfig enables all modules when the shared configuration
// has no module list yet.
func NewPrepareModuleConfig(deps steps.Deps) pipeline.Step {
	return &prepareModuleConfig{deps: deps}
}

func (s *prepareModuleConfig) Name() string { return "prepare module config" }

func (s *prepareModuleConfig) Run(ctx context.Context) pipeline.Result {
	snapshot, err := configdump.Load(s.deps.Dirs.ConfigFile())
	if err != nil {
		return pipeline.Fail(err)
	}
	if _, ok := snapshot.Get("modules"); ok {
		return pipeline.Skip("module configuration already present")
	}

	slog.Info("enabling all modules")
	if _, err := s.deps.App.Run(ctx, "module:enable", "--all"); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}
