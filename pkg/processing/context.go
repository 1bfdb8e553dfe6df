package processing

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/systemstart/cloud-pipeline/pkg/config"
	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

// Context holds the facts the assembler branches on. It is resolved once per
// run, before any step executes.
type Context struct {
	Command   Command
	Installed bool
	Services  map[string]bool
}

var serviceNames = []string{
	config.RelationshipDatabase,
	config.RelationshipRabbitMQ,
	config.RelationshipRedis,
	config.RelationshipSearch,
}

// ResolveContext reads the installed flag and the configured services.
// Deploying without a database, or an installed flag that cannot be read, is
// a configuration error.
func ResolveContext(cmd Command, deps steps.Deps) (*Context, error) {
	installed, err := deps.Flags.Check(flagfile.Installed)
	if err != nil {
		return nil, pipeline.ConfigurationError(fmt.Errorf("cannot tell whether the application is installed: %w", err))
	}

	pc := &Context{
		Command:   cmd,
		Installed: installed,
		Services:  make(map[string]bool, len(serviceNames)),
	}
	for _, name := range serviceNames {
		pc.Services[name] = deps.Env != nil && deps.Env.HasRelationship(name)
	}

	if cmd == CommandDeploy && !pc.Services[config.RelationshipDatabase] {
		return nil, pipeline.ConfigurationError(
			errors.New("deploy requires a database relationship in " + config.EnvRelationships))
	}

	slog.Debug("pipeline context resolved", "command", cmd, "installed", pc.Installed, "services", pc.Services)
	return pc, nil
}
