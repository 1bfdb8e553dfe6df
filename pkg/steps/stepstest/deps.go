// Package stepstest builds step dependencies over a temporary application
// root for tests.
package stepstest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/systemstart/cloud-pipeline/pkg/api"
	"github.com/systemstart/cloud-pipeline/pkg/config"
	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/shell"
	"github.com/systemstart/cloud-pipeline/pkg/shell/shelltest"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

// Fixture bundles test dependencies with the recorder behind them.
type Fixture struct {
	Deps  steps.Deps
	Shell *shelltest.Recorder
}

// New returns a fixture rooted in a fresh temp directory with default stage
// options and an empty environment.
func New(t *testing.T) *Fixture {
	t.Helper()

	root := t.TempDir()
	dirs := config.DirectoryList{Root: root}
	rec := &shelltest.Recorder{}

	return &Fixture{
		Shell: rec,
		Deps: steps.Deps{
			Dirs:   dirs,
			Flags:  flagfile.NewFileStore(dirs.Var()),
			Shell:  rec,
			App:    shell.NewApp(rec, ""),
			Env:    &config.Environment{Variables: map[string]string{}},
			Build:  config.NewReader(nil, nil, api.BuildDefaults),
			Deploy: config.NewReader(nil, nil, api.DeployDefaults),
		},
	}
}

// WithBuild replaces the build options. Defaults still apply.
func (f *Fixture) WithBuild(options map[string]any) *Fixture {
	f.Deps.Build = config.NewReader(options, nil, api.BuildDefaults)
	return f
}

// WithDeploy replaces the deploy options. Defaults still apply.
func (f *Fixture) WithDeploy(options map[string]any) *Fixture {
	f.Deps.Deploy = config.NewReader(options, nil, api.DeployDefaults)
	return f
}

// WithService registers a relationship in the environment.
func (f *Fixture) WithService(name string, svc config.Service) *Fixture {
	if f.Deps.Env.Relationships == nil {
		f.Deps.Env.Relationships = map[string][]config.Service{}
	}
	f.Deps.Env.Relationships[name] = []config.Service{svc}
	return f
}

// WithVariable sets a project variable in the environment.
func (f *Fixture) WithVariable(name, value string) *Fixture {
	f.Deps.Env.Variables[name] = value
	return f
}

// Root returns the application root.
func (f *Fixture) Root() string {
	return f.Deps.Dirs.Root
}

// WriteFile writes content to a path relative to the root.
func (f *Fixture) WriteFile(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.Root(), rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile reads a path relative to the root.
func (f *Fixture) ReadFile(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.Root(), rel))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// SetFlag sets a flag or fails the test.
func (f *Fixture) SetFlag(t *testing.T, name string) {
	t.Helper()
	if err := f.Deps.Flags.Set(name); err != nil {
		t.Fatal(err)
	}
}
