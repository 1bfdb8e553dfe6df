package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/fsutil"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

type marshallFiles struct {
	deps steps.Deps
}

// NewMarshallFiles resets generated code and the file cache.
func NewMarshallFiles(deps steps.Deps) pipeline.Step {
	return &marshallFiles{deps: deps}
}

func (s *marshallFiles) Name() string { return "marshall files" }

func (s *marshallFiles) Run(_ context.Context) pipeline.Result {
	for _, dir := range []string{s.deps.Dirs.Generated(), s.deps.Dirs.Cache()} {
		if err := fsutil.ClearDirectory(dir); err != nil {
			return pipeline.Fail(err)
		}
	}
	return pipeline.Success()
}

type copySampleData struct {
	deps steps.Deps
}

// NewCopySampleData copies sample data media into pub/media when installed.
func NewCopySampleData(deps steps.Deps) pipeline.Step {
	return &copySampleData{deps: deps}
}

func (s *copySampleData) Name() string { return "copy sample data" }

func (s *copySampleData) Run(_ context.Context) pipeline.Result {
	src := s.deps.Dirs.SampleData()
	if !fsutil.Exists(src) {
		return pipeline.Skip("sample data is not installed")
	}

	slog.Info("copying sample data media", "from", src)
	if err := fsutil.CopyTree(src, s.deps.Dirs.Media()); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}

type clearInitDirectory struct {
	deps steps.Deps
}

// NewClearInitDirectory empties init/ and removes the runtime config so the
// build artifact carries no deploy state.
func NewClearInitDirectory(deps steps.Deps) pipeline.Step {
	return &clearInitDirectory{deps: deps}
}

func (s *clearInitDirectory) Name() string { return "clear init directory" }

func (s *clearInitDirectory) Run(_ context.Context) pipeline.Result {
	if err := fsutil.ClearDirectory(s.deps.Dirs.Init()); err != nil {
		return pipeline.Fail(err)
	}
	if err := os.Remove(s.deps.Dirs.EnvFile()); err != nil && !os.IsNotExist(err) {
		return pipeline.Fail(fmt.Errorf("removing runtime config: %w", err))
	}
	return pipeline.Success()
}

type backupData struct {
	deps steps.Deps
}

// NewBackupData copies writable directories, and static content when it was
// generated, into init/ so deploy can restore them onto mounted volumes.
func NewBackupData(deps steps.Deps) pipeline.Step {
	return &backupData{deps: deps}
}

func (s *backupData) Name() string { return "backup data" }

func (s *backupData) Run(_ context.Context) pipeline.Result {
	dirs := s.deps.Dirs

	for _, rel := range dirs.WritableDirectories() {
		src := dirs.Abs(rel)
		if !fsutil.Exists(src) {
			slog.Debug("writable directory missing, nothing to back up", "dir", rel)
			continue
		}
		slog.Info("backing up writable directory", "dir", rel)
		if err := fsutil.CopyTree(src, dirs.InitPath(rel)); err != nil {
			return pipeline.Fail(err)
		}
	}

	if s.deps.Flags.Exists(flagfile.StaticContentDeploy) {
		slog.Info("backing up static content")
		if err := fsutil.CopyTree(dirs.StaticContent(), dirs.InitPath(filepath.Join("pub", "static"))); err != nil {
			return pipeline.Fail(err)
		}
	}
	return pipeline.Success()
}
