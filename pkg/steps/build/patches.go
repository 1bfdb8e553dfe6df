package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

const patchPattern = "**/*.patch"

type applyPatches struct {
	deps steps.Deps
}

// NewApplyPatches applies every hotfix patch in lexical order. Patches that
// are already applied are left alone.
func NewApplyPatches(deps steps.Deps) pipeline.Step {
	return &applyPatches{deps: deps}
}

func (s *applyPatches) Name() string { return "apply patches" }

func (s *applyPatches) Run(ctx context.Context) pipeline.Result {
	dir := s.deps.Dirs.Patches()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return pipeline.Skipf("no patch directory %s", dir)
	}

	patches, err := doublestar.Glob(os.DirFS(dir), patchPattern)
	if err != nil {
		return pipeline.Fail(fmt.Errorf("finding patches: %w", err))
	}
	if len(patches) == 0 {
		return pipeline.Skip("no patches found")
	}
	slices.Sort(patches)

	applied := 0
	for _, rel := range patches {
		p := filepath.Join(dir, rel)

		if _, err := s.deps.Shell.Execute(ctx, "git", "apply", "--check", "--reverse", p); err == nil {
			slog.Info("patch already applied", "patch", rel)
			continue
		}

		slog.Info("applying patch", "patch", rel)
		if _, err := s.deps.Shell.Execute(ctx, "git", "apply", p); err != nil {
			return pipeline.Fail(fmt.Errorf("applying %s: %w", rel, err))
		}
		applied++
	}

	if applied == 0 {
		return pipeline.Skip("all patches already applied")
	}
	return pipeline.Success()
}
