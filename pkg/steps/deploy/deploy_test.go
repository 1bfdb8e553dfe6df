package deploy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemstart/cloud-pipeline/pkg/api"
	"github.com/systemstart/cloud-pipeline/pkg/config"
	"github.com/systemstart/cloud-pipeline/pkg/configdump"
	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/fsutil"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps/stepstest"
)

var (
	testDB    = config.Service{Host: "db.internal", Port: 3306, Username: "user", Password: "secret", Path: "main"}
	testRedis = config.Service{Host: "redis.internal", Port: 6379}
	testMQ    = config.Service{Host: "mq.internal", Port: 5672, Username: "guest", Password: "guest"}
)

func readEnv(t *testing.T, f *stepstest.Fixture) configdump.Snapshot {
	t.Helper()
	s, err := configdump.Load(f.Deps.Dirs.EnvFile())
	require.NoError(t, err)
	return s
}

func get(t *testing.T, s configdump.Snapshot, path string) any {
	t.Helper()
	v, ok := s.Get(path)
	require.True(t, ok, "missing %s", path)
	return v
}

func TestMergeEnvFile_PreservesUnrelatedKeys(t *testing.T) {
	f := stepstest.New(t)
	f.WriteFile(t, "app/etc/env.yaml", `db:
  table_prefix: ""
  connection:
    default:
      host: old
      model: mysql4
crypt:
  key: abc
`)

	err := MergeEnvFile(f.Deps.Dirs, map[string]any{
		"db": map[string]any{
			"connection": map[string]any{
				"default": map[string]any{"host": "new"},
			},
		},
	})
	require.NoError(t, err)

	env := readEnv(t, f)
	assert.Equal(t, "new", get(t, env, "db/connection/default/host"))
	assert.Equal(t, "mysql4", get(t, env, "db/connection/default/model"))
	assert.Equal(t, "", get(t, env, "db/table_prefix"))
	assert.Equal(t, "abc", get(t, env, "crypt/key"))
}

func TestDbConnection(t *testing.T) {
	f := stepstest.New(t).WithService(config.RelationshipDatabase, testDB)

	r := NewDbConnection(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)

	env := readEnv(t, f)
	assert.Equal(t, "db.internal:3306", get(t, env, "db/connection/default/host"))
	assert.Equal(t, "main", get(t, env, "db/connection/default/dbname"))
	assert.Equal(t, "secret", get(t, env, "db/connection/indexer/password"))
}

func TestDbConnection_MissingRelationship(t *testing.T) {
	f := stepstest.New(t)
	r := NewDbConnection(f.Deps).Run(context.Background())
	assert.True(t, r.Failed())
}

func TestAmqpAndRedis_SkipWithoutService(t *testing.T) {
	f := stepstest.New(t)
	ctx := context.Background()

	assert.Equal(t, pipeline.StatusSkipped, NewAmqp(f.Deps).Run(ctx).Status)
	assert.Equal(t, pipeline.StatusSkipped, NewRedis(f.Deps).Run(ctx).Status)
	assert.Equal(t, pipeline.StatusSkipped, NewCleanRedisCache(f.Deps).Run(ctx).Status)
	assert.False(t, fsutil.Exists(f.Deps.Dirs.EnvFile()), "skipped updates must not write")
}

func TestAmqp(t *testing.T) {
	f := stepstest.New(t).WithService(config.RelationshipRabbitMQ, testMQ)

	r := NewAmqp(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)

	env := readEnv(t, f)
	assert.Equal(t, "mq.internal", get(t, env, "queue/amqp/host"))
	assert.Equal(t, 5672, get(t, env, "queue/amqp/port"))
	assert.Equal(t, "/", get(t, env, "queue/amqp/virtualhost"))
}

func TestRedis(t *testing.T) {
	f := stepstest.New(t).
		WithService(config.RelationshipRedis, testRedis).
		WithService("redis-slave", config.Service{Host: "replica.internal", Port: 6380}).
		WithDeploy(map[string]any{api.OptRedisUseSlaveConnection: true})

	r := NewRedis(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)

	env := readEnv(t, f)
	assert.Equal(t, "redis.internal", get(t, env, "cache/frontend/default/backend_options/server"))
	assert.Equal(t, 1, get(t, env, "cache/frontend/default/backend_options/database"))
	assert.Equal(t, 2, get(t, env, "cache/frontend/page_cache/backend_options/database"))
	assert.Equal(t, "replica.internal", get(t, env, "cache/frontend/default/backend_options/load_from_slave/server"))
	assert.Equal(t, "redis", get(t, env, "session/save"))
}

func TestCleanRedisCache(t *testing.T) {
	f := stepstest.New(t).WithService(config.RelationshipRedis, testRedis)

	r := NewCleanRedisCache(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
	assert.Equal(t, []string{
		"redis-cli -h redis.internal -p 6379 -n 1 flushdb",
		"redis-cli -h redis.internal -p 6379 -n 2 flushdb",
	}, f.Shell.Commands())
}

func TestSearchEngineFor(t *testing.T) {
	tests := []struct {
		version string
		want    string
		wantErr bool
	}{
		{version: "7.10.2", want: "elasticsearch7"},
		{version: "8.11", want: "elasticsearch7"},
		{version: "6.8", want: "elasticsearch6"},
		{version: "5.2", want: "elasticsearch5"},
		{version: "2.4", want: "elasticsearch"},
		{version: "", want: "elasticsearch7"},
		{version: "latest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := SearchEngineFor(tt.version)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchEngine(t *testing.T) {
	t.Run("mysql without search service", func(t *testing.T) {
		f := stepstest.New(t)
		r := NewSearchEngine(f.Deps).Run(context.Background())
		require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
		assert.Equal(t, SearchEngineMySQL, get(t, readEnv(t, f), "system/default/catalog/search/engine"))
	})

	t.Run("elasticsearch 6", func(t *testing.T) {
		f := stepstest.New(t).WithService(config.RelationshipSearch,
			config.Service{Host: "es.internal", Port: 9200, Version: "6.5.4"})
		r := NewSearchEngine(f.Deps).Run(context.Background())
		require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)

		env := readEnv(t, f)
		assert.Equal(t, "elasticsearch6", get(t, env, "system/default/catalog/search/engine"))
		assert.Equal(t, "es.internal", get(t, env, "system/default/catalog/search/elasticsearch6_server_hostname"))
		assert.Equal(t, 9200, get(t, env, "system/default/catalog/search/elasticsearch6_server_port"))
	})
}

func TestUrls(t *testing.T) {
	f := stepstest.New(t)
	f.Deps.Env.Routes = map[string]config.Route{
		"http://shop.example.com/": {Type: "upstream", Primary: true},
	}

	r := NewUrls(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)

	env := readEnv(t, f)
	assert.Equal(t, "https://shop.example.com/", get(t, env, "system/default/web/secure/base_url"))
	assert.Equal(t, "http://shop.example.com/", get(t, env, "system/default/web/unsecure/base_url"))

	f = stepstest.New(t).WithDeploy(map[string]any{api.OptUpdateURLs: false})
	f.Deps.Env.Routes = map[string]config.Route{"http://shop.example.com/": {Type: "upstream"}}
	assert.Equal(t, pipeline.StatusSkipped, NewUrls(f.Deps).Run(context.Background()).Status)
}

func TestRestoreWritableDirectories(t *testing.T) {
	f := stepstest.New(t)
	f.WriteFile(t, "init/pub/media/logo.png", "png")
	f.WriteFile(t, "init/app/etc/di.xml", "<config/>")
	f.WriteFile(t, "init/app/etc/env.yaml", "stale: true\n")
	f.WriteFile(t, "app/etc/env.yaml", "live: true\n")
	f.SetFlag(t, flagfile.Regenerate)

	r := NewRestoreWritableDirectories(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
	assert.Equal(t, "png", f.ReadFile(t, "pub/media/logo.png"))
	assert.Equal(t, "<config/>", f.ReadFile(t, "app/etc/di.xml"))
	assert.Equal(t, "live: true\n", f.ReadFile(t, "app/etc/env.yaml"), "backup must not replace the runtime config")
	assert.False(t, f.Deps.Flags.Exists(flagfile.Regenerate))
}

func TestCleanFileCache(t *testing.T) {
	f := stepstest.New(t)
	f.WriteFile(t, "var/cache/mage--0/entry", "cached")

	r := NewCleanFileCache(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
	assert.True(t, fsutil.IsEmptyDir(f.Deps.Dirs.Cache()))
	assert.True(t, fsutil.Exists(f.Deps.Dirs.Cache()), "cache directory itself is kept")
}

func TestProcessStaticContent(t *testing.T) {
	t.Run("skips without flag", func(t *testing.T) {
		f := stepstest.New(t)
		assert.Equal(t, pipeline.StatusSkipped, NewProcessStaticContent(f.Deps).Run(context.Background()).Status)
	})

	t.Run("replaces mounted content", func(t *testing.T) {
		f := stepstest.New(t)
		f.SetFlag(t, flagfile.StaticContentDeploy)
		f.WriteFile(t, "init/pub/static/app.js", "new")
		f.WriteFile(t, "pub/static/stale.js", "old")

		r := NewProcessStaticContent(f.Deps).Run(context.Background())
		require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
		assert.Equal(t, "new", f.ReadFile(t, "pub/static/app.js"))
		assert.False(t, fsutil.Exists(filepath.Join(f.Root(), "pub/static/stale.js")))
	})

	t.Run("fails when backup is missing", func(t *testing.T) {
		f := stepstest.New(t)
		f.SetFlag(t, flagfile.StaticContentDeploy)
		assert.True(t, NewProcessStaticContent(f.Deps).Run(context.Background()).Failed())
	})
}

func TestCreateConfigFile(t *testing.T) {
	f := stepstest.New(t).WithVariable(VarAdminURL, "backoffice")

	r := NewCreateConfigFile(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)

	env := readEnv(t, f)
	assert.Equal(t, "backoffice", get(t, env, "backend/frontName"))
	assert.Equal(t, "production", get(t, env, "MAGE_MODE"))
	assert.Len(t, get(t, env, "crypt/key"), 32)
	assert.Equal(t, 1, get(t, env, "cache_types/full_page"))

	r = NewCreateConfigFile(f.Deps).Run(context.Background())
	assert.Equal(t, pipeline.StatusSkipped, r.Status)
}

func TestCreateConfigFile_CustomTemplate(t *testing.T) {
	f := stepstest.New(t)
	f.Deps.Env.Name = "staging"
	f.WriteFile(t, filepath.Join("app/etc", EnvTemplateFile), "environment: {{ .Name | upper }}\n")

	r := NewCreateConfigFile(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
	assert.Equal(t, "environment: STAGING\n", f.ReadFile(t, "app/etc/env.yaml"))
}

func TestInstallSetup(t *testing.T) {
	f := stepstest.New(t).
		WithService(config.RelationshipDatabase, testDB).
		WithVariable(VarAdminEmail, "admin@example.com")

	r := NewInstallSetup(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
	assert.True(t, f.Deps.Flags.Exists(flagfile.Installed))

	cmds := f.Shell.Commands()
	require.Len(t, cmds, 1)
	assert.True(t, strings.HasPrefix(cmds[0], "php bin/magento setup:install "))
	assert.Contains(t, cmds[0], "--db-host=db.internal:3306")
	assert.Contains(t, cmds[0], "--admin-email=admin@example.com")
	assert.NotContains(t, cmds[0], "--admin-password")

	r = NewInstallSetup(f.Deps).Run(context.Background())
	assert.Equal(t, pipeline.StatusSkipped, r.Status)
	assert.Len(t, f.Shell.Commands(), 1)
}

func TestInstallSetup_FailureLeavesFlagUnset(t *testing.T) {
	f := stepstest.New(t).WithService(config.RelationshipDatabase, testDB)
	f.Shell.FailOn("setup:install", "access denied")

	r := NewInstallSetup(f.Deps).Run(context.Background())
	require.True(t, r.Failed())
	assert.Contains(t, r.Err.Error(), "access denied")
	assert.False(t, f.Deps.Flags.Exists(flagfile.Installed))
}

func TestInstallSetup_UnreadableFlagFails(t *testing.T) {
	f := stepstest.New(t).WithService(config.RelationshipDatabase, testDB)
	varDir := f.Deps.Dirs.Var()
	require.NoError(t, os.MkdirAll(varDir, 0o750))
	require.NoError(t, os.Symlink(flagfile.Installed, filepath.Join(varDir, flagfile.Installed)))

	r := NewInstallSetup(f.Deps).Run(context.Background())
	require.True(t, r.Failed())
	assert.Empty(t, f.Shell.Commands())
}

func TestEmailChecker(t *testing.T) {
	f := stepstest.New(t)
	r := NewEmailChecker(f.Deps).Run(context.Background())
	require.True(t, r.Failed())
	assert.Contains(t, r.Err.Error(), VarAdminEmail)

	f.WithVariable(VarAdminEmail, "admin@example.com")
	assert.Equal(t, pipeline.StatusSuccess, NewEmailChecker(f.Deps).Run(context.Background()).Status)
}

func TestResetPassword(t *testing.T) {
	f := stepstest.New(t).WithVariable(VarAdminEmail, "admin@example.com")
	r := NewResetPassword(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
	assert.Contains(t, f.ReadFile(t, "var/credentials_email.txt"), "admin@example.com")

	f = stepstest.New(t).WithVariable(VarAdminPassword, "p4ss")
	assert.Equal(t, pipeline.StatusSkipped, NewResetPassword(f.Deps).Run(context.Background()).Status)
}

func TestSetAdminURL(t *testing.T) {
	f := stepstest.New(t)
	assert.Equal(t, pipeline.StatusSkipped, NewSetAdminURL(f.Deps).Run(context.Background()).Status)

	f.WithVariable(VarAdminURL, "secret-admin")
	r := NewSetAdminURL(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
	assert.Equal(t, "secret-admin", get(t, readEnv(t, f), "backend/frontName"))
}

func TestAdminCredentials(t *testing.T) {
	f := stepstest.New(t)
	assert.Equal(t, pipeline.StatusSkipped, NewAdminCredentials(f.Deps).Run(context.Background()).Status)
	assert.Empty(t, f.Shell.Commands())

	f.WithVariable(VarAdminUsername, "root").WithVariable(VarAdminEmail, "root@example.com")
	r := NewAdminCredentials(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
	assert.Equal(t, []string{
		"php bin/magento admin:user:create --admin-user=root --admin-email=root@example.com --ansi --no-interaction",
	}, f.Shell.Commands())
}

func TestGenerateStaticContent(t *testing.T) {
	t.Run("skips when deployed during build", func(t *testing.T) {
		f := stepstest.New(t)
		f.SetFlag(t, flagfile.StaticContentDeploy)
		assert.Equal(t, pipeline.StatusSkipped, NewGenerateStaticContent(f.Deps).Run(context.Background()).Status)
		assert.Empty(t, f.Shell.Commands())
	})

	t.Run("cleans and deploys", func(t *testing.T) {
		f := stepstest.New(t)
		f.WriteFile(t, "pub/static/stale.css", "old")

		r := NewGenerateStaticContent(f.Deps).Run(context.Background())
		require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
		assert.Equal(t, 1, f.Shell.Count("setup:static-content:deploy"))
		assert.False(t, fsutil.Exists(filepath.Join(f.Root(), "pub/static/stale.css")))
		assert.False(t, f.Deps.Flags.Exists(flagfile.StaticContentDeploy))
	})

	t.Run("keeps files when cleaning is disabled", func(t *testing.T) {
		f := stepstest.New(t).WithDeploy(map[string]any{api.OptCleanStaticFiles: false})
		f.WriteFile(t, "pub/static/keep.css", "old")

		r := NewGenerateStaticContent(f.Deps).Run(context.Background())
		require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
		assert.True(t, fsutil.Exists(filepath.Join(f.Root(), "pub/static/keep.css")))
	})
}

func TestDisableGoogleAnalytics(t *testing.T) {
	f := stepstest.New(t)
	f.Deps.Env.Name = "production"
	assert.Equal(t, pipeline.StatusSkipped, NewDisableGoogleAnalytics(f.Deps).Run(context.Background()).Status)

	f = stepstest.New(t).WithDeploy(map[string]any{api.OptEnableGoogleAnalytics: true})
	assert.Equal(t, pipeline.StatusSkipped, NewDisableGoogleAnalytics(f.Deps).Run(context.Background()).Status)

	f = stepstest.New(t)
	r := NewDisableGoogleAnalytics(f.Deps).Run(context.Background())
	require.Equal(t, pipeline.StatusSuccess, r.Status, "%v", r.Err)
	assert.True(t, f.Shell.Ran("config:set google/analytics/active 0"))
}

func TestCheckDeployState(t *testing.T) {
	f := stepstest.New(t)
	assert.Equal(t, pipeline.StatusSuccess, NewCheckDeployState(f.Deps).Run(context.Background()).Status)

	f.SetFlag(t, flagfile.DeployFailed)
	r := NewCheckDeployState(f.Deps).Run(context.Background())
	require.True(t, r.Failed())
	assert.ErrorIs(t, r.Err, ErrDeployFailed)
}

func TestMaintenanceMode(t *testing.T) {
	f := stepstest.New(t)
	ctx := context.Background()

	on := NewEnableMaintenanceMode(f.Deps)
	off := NewDisableMaintenanceMode(f.Deps)
	assert.Equal(t, "enable maintenance mode", on.Name())
	assert.Equal(t, "disable maintenance mode", off.Name())

	require.False(t, on.Run(ctx).Failed())
	require.False(t, off.Run(ctx).Failed())
	assert.Equal(t, []string{
		"php bin/magento maintenance:enable --ansi --no-interaction",
		"php bin/magento maintenance:disable --ansi --no-interaction",
	}, f.Shell.Commands())
}
