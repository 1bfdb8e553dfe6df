package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"dario.cat/mergo"
	"github.com/Masterminds/semver/v3"

	"github.com/systemstart/cloud-pipeline/pkg/api"
	"github.com/systemstart/cloud-pipeline/pkg/config"
	"github.com/systemstart/cloud-pipeline/pkg/fsutil"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

const (
	redisCacheDB     = 1
	redisPageCacheDB = 2
	redisSessionDB   = 0

	relationshipRedisSlave = "redis-slave"
)

// MergeEnvFile deep-merges patch into the runtime configuration file. Keys
// absent from patch are preserved.
func MergeEnvFile(dirs config.DirectoryList, patch map[string]any) error {
	path := dirs.EnvFile()
	current, err := fsutil.ReadYAML(path)
	if err != nil {
		return err
	}
	if err := mergo.Merge(&current, patch, mergo.WithOverride); err != nil {
		return fmt.Errorf("merging runtime config: %w", err)
	}
	if err := fsutil.WriteYAML(path, current); err != nil {
		return fmt.Errorf("writing runtime config: %w", err)
	}
	return nil
}

// envUpdate is a step that derives a runtime config patch from the
// environment. A nil patch skips the step with reason.
type envUpdate struct {
	name  string
	deps  steps.Deps
	patch func(deps steps.Deps) (patch map[string]any, reason string, err error)
}

func (s *envUpdate) Name() string { return s.name }

func (s *envUpdate) Run(_ context.Context) pipeline.Result {
	patch, reason, err := s.patch(s.deps)
	if err != nil {
		return pipeline.Fail(err)
	}
	if patch == nil {
		return pipeline.Skip(reason)
	}
	slog.Info("updating runtime config", "step", s.name)
	if err := MergeEnvFile(s.deps.Dirs, patch); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}

// NewDbConnection writes the database connection.
func NewDbConnection(deps steps.Deps) pipeline.Step {
	return &envUpdate{name: "update database connection", deps: deps, patch: dbPatch}
}

func dbPatch(deps steps.Deps) (map[string]any, string, error) {
	db, ok := deps.Env.Relationship(config.RelationshipDatabase)
	if !ok {
		return nil, "", fmt.Errorf("no %s relationship", config.RelationshipDatabase)
	}
	conn := map[string]any{
		"host":     fmt.Sprintf("%s:%d", db.Host, db.Port),
		"dbname":   db.Path,
		"username": db.Username,
		"password": db.Password,
	}
	return map[string]any{
		"db": map[string]any{
			"connection": map[string]any{
				"default": conn,
				"indexer": conn,
			},
		},
	}, "", nil
}

// NewAmqp writes the message queue connection.
func NewAmqp(deps steps.Deps) pipeline.Step {
	return &envUpdate{name: "update message queue", deps: deps, patch: amqpPatch}
}

func amqpPatch(deps steps.Deps) (map[string]any, string, error) {
	mq, ok := deps.Env.Relationship(config.RelationshipRabbitMQ)
	if !ok {
		return nil, "message queue is not configured", nil
	}
	return map[string]any{
		"queue": map[string]any{
			"amqp": map[string]any{
				"host":        mq.Host,
				"port":        mq.Port,
				"user":        mq.Username,
				"password":    mq.Password,
				"virtualhost": "/",
			},
		},
	}, "", nil
}

// NewRedis writes the cache, page cache and session backends.
func NewRedis(deps steps.Deps) pipeline.Step {
	return &envUpdate{name: "update redis", deps: deps, patch: redisPatch}
}

func redisPatch(deps steps.Deps) (map[string]any, string, error) {
	redis, ok := deps.Env.Relationship(config.RelationshipRedis)
	if !ok {
		return nil, "redis is not configured", nil
	}

	backend := func(db int) map[string]any {
		options := map[string]any{
			"server":   redis.Host,
			"port":     redis.Port,
			"database": db,
		}
		if deps.Deploy.Bool(api.OptRedisUseSlaveConnection) {
			if slave, ok := deps.Env.Relationship(relationshipRedisSlave); ok {
				options["load_from_slave"] = map[string]any{
					"server": slave.Host,
					"port":   slave.Port,
				}
			}
		}
		return map[string]any{
			"backend":         "Cm_Cache_Backend_Redis",
			"backend_options": options,
		}
	}

	return map[string]any{
		"cache": map[string]any{
			"frontend": map[string]any{
				"default":    backend(redisCacheDB),
				"page_cache": backend(redisPageCacheDB),
			},
		},
		"session": map[string]any{
			"save": "redis",
			"redis": map[string]any{
				"host":     redis.Host,
				"port":     redis.Port,
				"database": redisSessionDB,
			},
		},
	}, "", nil
}

// NewSearchEngine writes the catalog search engine matching the configured
// search service.
func NewSearchEngine(deps steps.Deps) pipeline.Step {
	return &envUpdate{name: "update search engine", deps: deps, patch: searchPatch}
}

func searchPatch(deps steps.Deps) (map[string]any, string, error) {
	search := map[string]any{}

	es, ok := deps.Env.Relationship(config.RelationshipSearch)
	if !ok {
		search["engine"] = SearchEngineMySQL
	} else {
		engine, err := SearchEngineFor(es.Version)
		if err != nil {
			return nil, "", err
		}
		search["engine"] = engine
		search[engine+"_server_hostname"] = es.Host
		search[engine+"_server_port"] = es.Port
	}

	return map[string]any{
		"system": map[string]any{
			"default": map[string]any{
				"catalog": map[string]any{
					"search": search,
				},
			},
		},
	}, "", nil
}

const SearchEngineMySQL = "mysql"

// SearchEngineFor maps a search service version to the engine name. An empty
// version selects the newest supported engine.
func SearchEngineFor(version string) (string, error) {
	if version == "" {
		return "elasticsearch7", nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return "", fmt.Errorf("parsing search engine version %q: %w", version, err)
	}
	switch {
	case v.Major() >= 7:
		return "elasticsearch7", nil
	case v.Major() == 6:
		return "elasticsearch6", nil
	case v.Major() == 5:
		return "elasticsearch5", nil
	default:
		return "elasticsearch", nil
	}
}

// NewUrls writes base URLs from the primary route.
func NewUrls(deps steps.Deps) pipeline.Step {
	return &envUpdate{name: "update urls", deps: deps, patch: urlsPatch}
}

func urlsPatch(deps steps.Deps) (map[string]any, string, error) {
	if !deps.Deploy.Bool(api.OptUpdateURLs) {
		return nil, fmt.Sprintf("%s is disabled", api.OptUpdateURLs), nil
	}
	secure, unsecure, ok := deps.Env.BaseURLs()
	if !ok {
		return nil, "no upstream routes", nil
	}
	return map[string]any{
		"system": map[string]any{
			"default": map[string]any{
				"web": map[string]any{
					"secure":   map[string]any{"base_url": secure},
					"unsecure": map[string]any{"base_url": unsecure},
				},
			},
		},
	}, "", nil
}
