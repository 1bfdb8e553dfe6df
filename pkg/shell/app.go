package shell

import (
	"context"
	"fmt"
)

// AppBinary is the application CLI, relative to the application root.
const AppBinary = "bin/magento"

// App runs application CLI commands through a Shell.
type App struct {
	shell     Shell
	verbosity string
}

// NewApp creates an application CLI wrapper. verbosity is appended to every
// command when not empty.
func NewApp(shell Shell, verbosity string) *App {
	return &App{shell: shell, verbosity: verbosity}
}

// Run executes an application command non-interactively.
func (a *App) Run(ctx context.Context, command string, args ...string) ([]string, error) {
	full := append([]string{AppBinary, command}, args...)
	full = append(full, "--ansi", "--no-interaction")
	if a.verbosity != "" {
		full = append(full, a.verbosity)
	}

	out, err := a.shell.Execute(ctx, "php", full...)
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", command, err)
	}
	return out, nil
}
