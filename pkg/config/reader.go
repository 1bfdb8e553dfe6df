// Package config resolves build-time and deploy-time settings: stage options
// from .cloud.env.yaml, platform environment variables and directory layout.
package config

import (
	"github.com/spf13/cast"

	"github.com/systemstart/cloud-pipeline/pkg/api"
)

// Reader looks up stage options. Stage values override global values, which
// override the defaults.
type Reader struct {
	stage    map[string]any
	global   map[string]any
	defaults map[string]any
}

// NewReader creates a reader over the given option layers. Any layer may be nil.
func NewReader(stage, global, defaults map[string]any) *Reader {
	return &Reader{stage: stage, global: global, defaults: defaults}
}

// BuildReader returns the reader for build stage options.
func BuildReader(c *api.EnvConfig) *Reader {
	return NewReader(c.Stage.Build, c.Stage.Global, api.BuildDefaults)
}

// DeployReader returns the reader for deploy stage options.
func DeployReader(c *api.EnvConfig) *Reader {
	return NewReader(c.Stage.Deploy, c.Stage.Global, api.DeployDefaults)
}

// Get returns the option value or def when no layer sets it.
func (r *Reader) Get(key string, def any) any {
	for _, layer := range []map[string]any{r.stage, r.global, r.defaults} {
		if v, ok := layer[key]; ok {
			return v
		}
	}
	return def
}

func (r *Reader) String(key string) string {
	return cast.ToString(r.Get(key, ""))
}

func (r *Reader) Int(key string) int {
	return cast.ToInt(r.Get(key, 0))
}

func (r *Reader) Bool(key string) bool {
	return cast.ToBool(r.Get(key, false))
}

// Verbosity returns the verbosity flag for application commands, e.g. "-vv".
func (r *Reader) Verbosity() string {
	return r.String(api.OptVerboseCommands)
}
