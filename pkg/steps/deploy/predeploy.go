// Package deploy implements the steps of the deploy and post-deploy
// pipelines.
package deploy

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/systemstart/cloud-pipeline/pkg/config"
	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/fsutil"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

type restoreWritableDirectories struct {
	deps steps.Deps
}

// NewRestoreWritableDirectories copies the build-time backups from init/ onto
// the writable mounts. The runtime env.yaml is never taken from a backup.
func NewRestoreWritableDirectories(deps steps.Deps) pipeline.Step {
	return &restoreWritableDirectories{deps: deps}
}

func (s *restoreWritableDirectories) Name() string { return "restore writable directories" }

func (s *restoreWritableDirectories) Run(_ context.Context) pipeline.Result {
	dirs := s.deps.Dirs
	for _, rel := range dirs.WritableDirectories() {
		backup := dirs.InitPath(rel)
		if !fsutil.Exists(backup) {
			continue
		}
		slog.Info("restoring writable directory", "dir", rel)
		var exclude []string
		if rel == dirs.AppEtcRel() {
			exclude = []string{filepath.Base(dirs.EnvFile())}
		}
		if err := fsutil.CopyTreeExcluding(backup, dirs.Abs(rel), exclude); err != nil {
			return pipeline.Fail(err)
		}
	}

	// The application leaves this marker behind when it wants generated code
	// rebuilt; restored directories make it stale.
	if err := s.deps.Flags.Clear(flagfile.Regenerate); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}

type cleanRedisCache struct {
	deps steps.Deps
}

// NewCleanRedisCache flushes the cache and page cache databases.
func NewCleanRedisCache(deps steps.Deps) pipeline.Step {
	return &cleanRedisCache{deps: deps}
}

func (s *cleanRedisCache) Name() string { return "clean redis cache" }

func (s *cleanRedisCache) Run(ctx context.Context) pipeline.Result {
	redis, ok := s.deps.Env.Relationship(config.RelationshipRedis)
	if !ok {
		return pipeline.Skip("redis is not configured")
	}

	for _, db := range []int{redisCacheDB, redisPageCacheDB} {
		slog.Info("flushing redis database", "host", redis.Host, "db", db)
		_, err := s.deps.Shell.Execute(ctx, "redis-cli",
			"-h", redis.Host,
			"-p", strconv.Itoa(redis.Port),
			"-n", strconv.Itoa(db),
			"flushdb")
		if err != nil {
			return pipeline.Fail(err)
		}
	}
	return pipeline.Success()
}

type cleanFileCache struct {
	deps steps.Deps
}

// NewCleanFileCache empties var/cache.
func NewCleanFileCache(deps steps.Deps) pipeline.Step {
	return &cleanFileCache{deps: deps}
}

func (s *cleanFileCache) Name() string { return "clean file cache" }

func (s *cleanFileCache) Run(_ context.Context) pipeline.Result {
	if err := fsutil.ClearDirectory(s.deps.Dirs.Cache()); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}

type processStaticContent struct {
	deps steps.Deps
}

// NewProcessStaticContent puts static content generated during build in
// place of whatever the pub/static mount holds.
func NewProcessStaticContent(deps steps.Deps) pipeline.Step {
	return &processStaticContent{deps: deps}
}

func (s *processStaticContent) Name() string { return "process static content" }

func (s *processStaticContent) Run(_ context.Context) pipeline.Result {
	if !s.deps.Flags.Exists(flagfile.StaticContentDeploy) {
		return pipeline.Skip("static content was not generated during build")
	}

	dirs := s.deps.Dirs
	backup := dirs.InitPath("pub/static")
	if !fsutil.Exists(backup) {
		return pipeline.Fail(errors.New("static content flag is set but init/pub/static is missing"))
	}

	slog.Info("moving build-time static content into place")
	if err := fsutil.ClearDirectory(dirs.StaticContent()); err != nil {
		return pipeline.Fail(err)
	}
	if err := fsutil.CopyTree(backup, dirs.StaticContent()); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}

// maintenance runs the enable or disable command.
type maintenance struct {
	deps   steps.Deps
	enable bool
}

// NewEnableMaintenanceMode switches the storefront into maintenance mode.
func NewEnableMaintenanceMode(deps steps.Deps) pipeline.Step {
	return &maintenance{deps: deps, enable: true}
}

// NewDisableMaintenanceMode takes the storefront out of maintenance mode.
func NewDisableMaintenanceMode(deps steps.Deps) pipeline.Step {
	return &maintenance{deps: deps}
}

func (s *maintenance) Name() string {
	if s.enable {
		return "enable maintenance mode"
	}
	return "disable maintenance mode"
}

func (s *maintenance) Run(ctx context.Context) pipeline.Result {
	command := "maintenance:disable"
	if s.enable {
		command = "maintenance:enable"
	}
	if _, err := s.deps.App.Run(ctx, command); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}
