package deploy

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/systemstart/cloud-pipeline/pkg/fsutil"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

// EnvTemplateFile overrides defaultEnvTemplate when present in app/etc.
const EnvTemplateFile = "env.yaml.tmpl"

const defaultEnvTemplate = `backend:
  frontName: {{ .Variables.ADMIN_URL | default "admin" | quote }}
crypt:
  key: {{ .Variables.CRYPT_KEY | default (randAlphaNum 32) | quote }}
MAGE_MODE: production
resource:
  default_setup:
    connection: default
cache_types:
{{- range .CacheTypes }}
  {{ . }}: 1
{{- end }}
`

var cacheTypes = []string{
	"block_html",
	"collections",
	"config",
	"config_integration",
	"config_webservice",
	"db_ddl",
	"eav",
	"full_page",
	"layout",
	"reflection",
	"translate",
}

type createConfigFile struct {
	deps steps.Deps
}

// NewCreateConfigFile renders the initial runtime configuration. An existing
// app/etc/env.yaml is left alone.
func NewCreateConfigFile(deps steps.Deps) pipeline.Step {
	return &createConfigFile{deps: deps}
}

func (s *createConfigFile) Name() string { return "create config file" }

func (s *createConfigFile) Run(_ context.Context) pipeline.Result {
	path := s.deps.Dirs.EnvFile()
	if fsutil.Exists(path) {
		return pipeline.Skip("runtime config already exists")
	}

	tmplText := defaultEnvTemplate
	custom := filepath.Join(s.deps.Dirs.AppEtc(), EnvTemplateFile)
	if data, err := os.ReadFile(custom); err == nil {
		slog.Info("using custom runtime config template", "path", custom)
		tmplText = string(data)
	} else if !os.IsNotExist(err) {
		return pipeline.Fail(fmt.Errorf("reading %s: %w", custom, err))
	}

	content, err := renderEnvTemplate(tmplText, map[string]any{
		"Variables":  s.deps.Env.Variables,
		"Name":       s.deps.Env.Name,
		"CacheTypes": cacheTypes,
	})
	if err != nil {
		return pipeline.Fail(err)
	}
	if err := fsutil.WriteFileAtomic(path, content); err != nil {
		return pipeline.Fail(fmt.Errorf("writing runtime config: %w", err))
	}
	return pipeline.Success()
}

func renderEnvTemplate(text string, data map[string]any) ([]byte, error) {
	tmpl, err := template.New(EnvTemplateFile).Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	return buf.Bytes(), nil
}

type setMode struct {
	deps steps.Deps
}

// NewSetMode switches the application to production mode without
// recompiling.
func NewSetMode(deps steps.Deps) pipeline.Step {
	return &setMode{deps: deps}
}

func (s *setMode) Name() string { return "set application mode" }

func (s *setMode) Run(ctx context.Context) pipeline.Result {
	if _, err := s.deps.App.Run(ctx, "deploy:mode:set", "production", "--skip-compilation"); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}
