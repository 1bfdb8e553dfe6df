package deploy

import (
	"context"
	"log/slog"

	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

type setAdminURL struct {
	deps steps.Deps
}

// NewSetAdminURL writes the admin front name from ADMIN_URL.
func NewSetAdminURL(deps steps.Deps) pipeline.Step {
	return &setAdminURL{deps: deps}
}

func (s *setAdminURL) Name() string { return "set admin url" }

func (s *setAdminURL) Run(_ context.Context) pipeline.Result {
	frontName := s.deps.Env.Variable(VarAdminURL, "")
	if frontName == "" {
		return pipeline.Skipf("%s is not set", VarAdminURL)
	}

	patch := map[string]any{
		"backend": map[string]any{"frontName": frontName},
	}
	if err := MergeEnvFile(s.deps.Dirs, patch); err != nil {
		return pipeline.Fail(err)
	}
	slog.Info("admin url updated", "frontName", frontName)
	return pipeline.Success()
}

type upgradeSetup struct {
	deps steps.Deps
}

// NewUpgradeSetup upgrades the schema and data of an installed application.
func NewUpgradeSetup(deps steps.Deps) pipeline.Step {
	return &upgradeSetup{deps: deps}
}

func (s *upgradeSetup) Name() string { return "upgrade application" }

func (s *upgradeSetup) Run(ctx context.Context) pipeline.Result {
	if _, err := s.deps.App.Run(ctx, "setup:upgrade", "--keep-generated"); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}

type adminCredentials struct {
	deps steps.Deps
}

// NewAdminCredentials creates or updates the admin account from project
// variables. It skips when none of them are set.
func NewAdminCredentials(deps steps.Deps) pipeline.Step {
	return &adminCredentials{deps: deps}
}

func (s *adminCredentials) Name() string { return "update admin credentials" }

func (s *adminCredentials) Run(ctx context.Context) pipeline.Result {
	env := s.deps.Env
	options := []struct{ variable, flag string }{
		{VarAdminUsername, "--admin-user"},
		{VarAdminFirstname, "--admin-firstname"},
		{VarAdminLastname, "--admin-lastname"},
		{VarAdminEmail, "--admin-email"},
		{VarAdminPassword, "--admin-password"},
	}

	var args []string
	for _, o := range options {
		if v := env.Variable(o.variable, ""); v != "" {
			args = append(args, o.flag+"="+v)
		}
	}
	if len(args) == 0 {
		return pipeline.Skip("no admin variables set")
	}

	if _, err := s.deps.App.Run(ctx, "admin:user:create", args...); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}

type clearCache struct {
	deps steps.Deps
}

// NewClearCache flushes all application caches.
func NewClearCache(deps steps.Deps) pipeline.Step {
	return &clearCache{deps: deps}
}

func (s *clearCache) Name() string { return "clear cache" }

func (s *clearCache) Run(ctx context.Context) pipeline.Result {
	if _, err := s.deps.App.Run(ctx, "cache:flush"); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}
