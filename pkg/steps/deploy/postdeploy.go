package deploy

import (
	"context"
	"errors"

	"github.com/systemstart/cloud-pipeline/pkg/api"
	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

// ErrDeployFailed is returned by the deploy state check after a failed deploy.
var ErrDeployFailed = errors.New("the last deploy failed, post-deploy actions are not run")

type disableGoogleAnalytics struct {
	deps steps.Deps
}

// NewDisableGoogleAnalytics turns analytics off outside production unless
// ENABLE_GOOGLE_ANALYTICS is set.
func NewDisableGoogleAnalytics(deps steps.Deps) pipeline.Step {
	return &disableGoogleAnalytics{deps: deps}
}

func (s *disableGoogleAnalytics) Name() string { return "disable google analytics" }

func (s *disableGoogleAnalytics) Run(ctx context.Context) pipeline.Result {
	if s.deps.Env.IsProduction() {
		return pipeline.Skip("production environment")
	}
	if s.deps.Deploy.Bool(api.OptEnableGoogleAnalytics) {
		return pipeline.Skipf("%s is set", api.OptEnableGoogleAnalytics)
	}
	if _, err := s.deps.App.Run(ctx, "config:set", "google/analytics/active", "0"); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}

type checkDeployState struct {
	deps steps.Deps
}

// NewCheckDeployState fails while the deploy failure flag is set.
func NewCheckDeployState(deps steps.Deps) pipeline.Step {
	return &checkDeployState{deps: deps}
}

func (s *checkDeployState) Name() string { return "check deploy state" }

func (s *checkDeployState) Run(_ context.Context) pipeline.Result {
	if s.deps.Flags.Exists(flagfile.DeployFailed) {
		return pipeline.Fail(ErrDeployFailed)
	}
	return pipeline.Success()
}
