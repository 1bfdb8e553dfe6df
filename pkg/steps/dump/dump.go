// Package dump implements the config-dump pipeline, which exports the
// database configuration and keeps only the portable part in config.yaml.
package dump

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/systemstart/cloud-pipeline/pkg/configdump"
	"github.com/systemstart/cloud-pipeline/pkg/fsutil"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

const backupSuffix = ".bak"

// Export dumps application configuration into config.yaml and runs its child
// on the result. When the dump or the child fails, the previous config.yaml
// is put back.
type Export struct {
	deps  steps.Deps
	child pipeline.Step
}

// NewExport wraps child in an export.
func NewExport(deps steps.Deps, child pipeline.Step) *Export {
	return &Export{deps: deps, child: child}
}

func (s *Export) Name() string { return "export" }

// Steps exposes the wrapped child for tree inspection.
func (s *Export) Steps() []pipeline.Step { return []pipeline.Step{s.child} }

func (s *Export) Run(ctx context.Context) pipeline.Result {
	path := s.deps.Dirs.ConfigFile()
	backup := path + backupSuffix

	hadConfig := fsutil.Exists(path)
	if hadConfig {
		if err := copyFile(path, backup); err != nil {
			return pipeline.Fail(fmt.Errorf("backing up %s: %w", path, err))
		}
	}

	result := s.export(ctx)
	if result.Failed() {
		if err := s.restore(path, backup, hadConfig); err != nil {
			slog.Error("restoring config after failed export", "error", err)
			result.Err = errors.Join(result.Err, err)
		}
		return result
	}

	if hadConfig {
		if err := os.Remove(backup); err != nil {
			slog.Warn("removing config backup", "path", backup, "error", err)
		}
	}
	return result
}

func (s *Export) export(ctx context.Context) pipeline.Result {
	slog.Info("dumping application configuration")
	if _, err := s.deps.App.Run(ctx, "app:config:dump"); err != nil {
		return pipeline.Fail(err)
	}

	result := s.child.Run(ctx)
	if result.Failed() && result.Origin == "" {
		result.Origin = s.child.Name()
	}
	return result
}

func (s *Export) restore(path, backup string, hadConfig bool) error {
	if !hadConfig {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	slog.Info("restoring previous config", "path", path)
	return os.Rename(backup, path)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(dst, data)
}

type generateConfig struct {
	deps steps.Deps
	keys []string
}

// NewGenerateConfig reduces config.yaml to the portable configuration keys.
func NewGenerateConfig(deps steps.Deps) pipeline.Step {
	return &generateConfig{deps: deps, keys: configdump.DefaultKeys}
}

func (s *generateConfig) Name() string { return "generate config" }

func (s *generateConfig) Run(_ context.Context) pipeline.Result {
	path := s.deps.Dirs.ConfigFile()
	src, err := configdump.Load(path)
	if err != nil {
		return pipeline.Fail(err)
	}

	snapshot := configdump.Generate(src, s.keys)
	if len(snapshot) == 0 {
		return pipeline.Failf("no exportable configuration in %s", path)
	}
	if err := configdump.Save(path, snapshot); err != nil {
		return pipeline.Fail(err)
	}
	slog.Info("config snapshot written", "path", path, "sections", len(snapshot))
	return pipeline.Success()
}
