package config

import (
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemstart/cloud-pipeline/pkg/api"
)

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestReader_Layers(t *testing.T) {
	c := &api.EnvConfig{Stage: api.Stages{
		Global: map[string]any{api.OptSCDThreads: 3, api.OptVerboseCommands: "-v"},
		Build:  map[string]any{api.OptSCDThreads: "5"},
	}}

	build := BuildReader(c)
	assert.Equal(t, 5, build.Int(api.OptSCDThreads))
	assert.Equal(t, "-v", build.Verbosity())
	assert.Equal(t, 6, build.Int(api.OptSCDCompressionLevel))
	assert.False(t, build.Bool(api.OptSkipSCD))
	assert.Equal(t, "fallback", build.Get("NOT_AN_OPTION", "fallback"))

	deploy := DeployReader(c)
	assert.Equal(t, 3, deploy.Int(api.OptSCDThreads))
	assert.True(t, deploy.Bool(api.OptCleanStaticFiles))
}

func TestLoadEnvironment(t *testing.T) {
	relationships := encode(`{
		// primary database
		"database": [{"host": "db.internal", "port": 3306, "username": "user", "password": "secret", "path": "main"}],
		"elasticsearch": [{"host": "es.internal", "port": 9200, "version": "7.9.3"},],
	}`)
	routes := encode(`{
		"https://shop.example.com/": {"type": "upstream", "upstream": "app:http", "original_url": "https://{default}/"},
		"https://www.shop.example.com/": {"type": "redirect"}
	}`)
	variables := encode(`{"ADMIN_EMAIL": "admin@example.com", "ADMIN_LOCALE": "de_DE", "RETRIES": 3, "DEBUG": true}`)

	vars := map[string]string{
		EnvEnvironment:   "staging",
		EnvRelationships: relationships,
		EnvRoutes:        routes,
		EnvVariables:     variables,
	}

	env, err := LoadEnvironment(func(k string) string { return vars[k] })
	require.NoError(t, err)

	assert.Equal(t, "staging", env.Name)
	assert.False(t, env.IsProduction())

	db, ok := env.Relationship(RelationshipDatabase)
	require.True(t, ok)
	assert.Equal(t, "db.internal", db.Host)
	assert.Equal(t, 3306, db.Port)
	assert.Equal(t, "main", db.Path)

	assert.True(t, env.HasRelationship(RelationshipSearch))
	assert.False(t, env.HasRelationship(RelationshipRedis))

	assert.Equal(t, "admin@example.com", env.Variable("ADMIN_EMAIL", ""))
	assert.Equal(t, "3", env.Variable("RETRIES", ""))
	assert.Equal(t, "true", env.Variable("DEBUG", ""))
	assert.Equal(t, "admin", env.Variable("ADMIN_URL", "admin"))

	secure, unsecure, ok := env.BaseURLs()
	require.True(t, ok)
	assert.Equal(t, "https://shop.example.com/", secure)
	assert.Equal(t, "http://shop.example.com/", unsecure)
}

func TestLoadEnvironment_Empty(t *testing.T) {
	env, err := LoadEnvironment(func(string) string { return "" })
	require.NoError(t, err)
	assert.Empty(t, env.Relationships)
	_, _, ok := env.BaseURLs()
	assert.False(t, ok)
}

func TestLoadEnvironment_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{"bad base64", map[string]string{EnvRelationships: "%%%"}, "base64"},
		{"bad json", map[string]string{EnvRoutes: encode(`{"a":`)}, "json"},
		{"nested variable", map[string]string{EnvVariables: encode(`{"A": {"b": 1}}`)}, "unsupported type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadEnvironment(func(k string) string { return tt.vars[k] })
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}

func TestDirectoryList(t *testing.T) {
	d := DirectoryList{Root: "/app"}
	assert.Equal(t, filepath.Join("/app", "var"), d.Var())
	assert.Equal(t, filepath.Join("/app", "pub", "static"), d.StaticContent())
	assert.Equal(t, filepath.Join("/app", "init", "pub", "media"), d.InitPath(filepath.Join("pub", "media")))
	assert.Equal(t, filepath.Join("/app", "var", "log", "cloud.log"), d.LogFile())
	assert.Len(t, d.WritableDirectories(), 3)
}
