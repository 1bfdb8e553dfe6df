// Package steps holds the collaborators shared by the leaf steps in the
// build, deploy and dump subpackages.
package steps

import (
	"github.com/systemstart/cloud-pipeline/pkg/config"
	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/shell"
)

// Deps are injected into every step constructor.
type Deps struct {
	Dirs   config.DirectoryList
	Flags  flagfile.Store
	Shell  shell.Shell
	App    *shell.App
	Env    *config.Environment
	Build  *config.Reader
	Deploy *config.Reader
}
