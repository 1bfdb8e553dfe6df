package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/systemstart/cloud-pipeline/pkg/config"
	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

// Project variables that control the admin account.
const (
	VarAdminEmail     = "ADMIN_EMAIL"
	VarAdminUsername  = "ADMIN_USERNAME"
	VarAdminFirstname = "ADMIN_FIRSTNAME"
	VarAdminLastname  = "ADMIN_LASTNAME"
	VarAdminPassword  = "ADMIN_PASSWORD"
	VarAdminURL       = "ADMIN_URL"
	VarAdminLocale    = "ADMIN_LOCALE"

	defaultAdminUsername = "admin"
	credentialsFile      = "credentials_email.txt"
)

type emailChecker struct {
	deps steps.Deps
}

// NewEmailChecker fails when no admin email is configured.
func NewEmailChecker(deps steps.Deps) pipeline.Step {
	return &emailChecker{deps: deps}
}

func (s *emailChecker) Name() string { return "check admin email" }

func (s *emailChecker) Run(_ context.Context) pipeline.Result {
	if s.deps.Env.Variable(VarAdminEmail, "") == "" {
		return pipeline.Fail(fmt.Errorf("%s is not set", VarAdminEmail))
	}
	return pipeline.Success()
}

type installSetup struct {
	deps steps.Deps
}

// NewInstallSetup runs the application installer once and records success in
// the installed flag.
func NewInstallSetup(deps steps.Deps) pipeline.Step {
	return &installSetup{deps: deps}
}

func (s *installSetup) Name() string { return "install application" }

func (s *installSetup) Run(ctx context.Context) pipeline.Result {
	installed, err := s.deps.Flags.Check(flagfile.Installed)
	if err != nil {
		return pipeline.Fail(err)
	}
	if installed {
		return pipeline.Skip("application is already installed")
	}

	args, err := s.installArgs()
	if err != nil {
		return pipeline.Fail(err)
	}

	slog.Info("installing application")
	if _, err := s.deps.App.Run(ctx, "setup:install", args...); err != nil {
		return pipeline.Fail(err)
	}
	if err := s.deps.Flags.Set(flagfile.Installed); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}

func (s *installSetup) installArgs() ([]string, error) {
	env := s.deps.Env
	db, ok := env.Relationship(config.RelationshipDatabase)
	if !ok {
		return nil, fmt.Errorf("no %s relationship", config.RelationshipDatabase)
	}

	args := []string{
		"--session-save=db",
		"--cleanup-database",
		"--use-secure-admin=1",
		"--use-rewrites=1",
		"--language=" + env.Variable(VarAdminLocale, "en_US"),
		fmt.Sprintf("--db-host=%s:%d", db.Host, db.Port),
		"--db-name=" + db.Path,
		"--db-user=" + db.Username,
		"--admin-user=" + env.Variable(VarAdminUsername, defaultAdminUsername),
		"--admin-firstname=" + env.Variable(VarAdminFirstname, "Admin"),
		"--admin-lastname=" + env.Variable(VarAdminLastname, "Username"),
		"--admin-email=" + env.Variable(VarAdminEmail, ""),
	}
	if db.Password != "" {
		args = append(args, "--db-password="+db.Password)
	}
	if pw := env.Variable(VarAdminPassword, ""); pw != "" {
		args = append(args, "--admin-password="+pw)
	}
	if secure, unsecure, ok := env.BaseURLs(); ok {
		args = append(args, "--base-url="+unsecure, "--base-url-secure="+secure)
	}
	return args, nil
}

type resetPassword struct {
	deps steps.Deps
}

// NewResetPassword leaves instructions for setting the admin password when
// none was configured.
func NewResetPassword(deps steps.Deps) pipeline.Step {
	return &resetPassword{deps: deps}
}

func (s *resetPassword) Name() string { return "reset password" }

func (s *resetPassword) Run(_ context.Context) pipeline.Result {
	env := s.deps.Env
	if env.Variable(VarAdminPassword, "") != "" {
		return pipeline.Skip("admin password is configured")
	}

	username := env.Variable(VarAdminUsername, defaultAdminUsername)
	email := env.Variable(VarAdminEmail, "")
	path := filepath.Join(s.deps.Dirs.Var(), credentialsFile)
	body := fmt.Sprintf("The admin account %q (%s) was created without a password.\n"+
		"Use the \"Forgot your password\" link on the admin login page to set one.\n", username, email)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return pipeline.Fail(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return pipeline.Fail(fmt.Errorf("writing credentials notice: %w", err))
	}
	slog.Info("admin password not set, wrote notice", "path", path)
	return pipeline.Success()
}

type configImport struct {
	deps steps.Deps
}

// NewConfigImport imports shared configuration from config.yaml into the
// database.
func NewConfigImport(deps steps.Deps) pipeline.Step {
	return &configImport{deps: deps}
}

func (s *configImport) Name() string { return "import config" }

func (s *configImport) Run(ctx context.Context) pipeline.Result {
	if _, err := s.deps.App.Run(ctx, "app:config:import"); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}
