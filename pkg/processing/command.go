// Package processing turns a command name into a step tree and runs it.
package processing

import (
	"fmt"
	"strings"

	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
)

// Command names a pipeline.
type Command string

const (
	CommandBuild      Command = "build"
	CommandDeploy     Command = "deploy"
	CommandPostDeploy Command = "post-deploy"
	CommandConfigDump Command = "config-dump"
)

// Commands lists every runnable command.
var Commands = []Command{CommandBuild, CommandDeploy, CommandPostDeploy, CommandConfigDump}

// ParseCommand resolves a command name. Unknown names are configuration
// errors.
func ParseCommand(name string) (Command, error) {
	for _, c := range Commands {
		if string(c) == name {
			return c, nil
		}
	}
	names := make([]string, len(Commands))
	for i, c := range Commands {
		names[i] = string(c)
	}
	return "", pipeline.ConfigurationError(
		fmt.Errorf("unknown command %q (expected one of %s)", name, strings.Join(names, ", ")))
}

// IsBuild reports whether the command runs with build stage options.
func (c Command) IsBuild() bool {
	return c == CommandBuild
}
