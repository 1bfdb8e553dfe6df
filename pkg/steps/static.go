package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/systemstart/cloud-pipeline/pkg/api"
	"github.com/systemstart/cloud-pipeline/pkg/config"
	"github.com/systemstart/cloud-pipeline/pkg/configdump"
	"github.com/systemstart/cloud-pipeline/pkg/fsutil"
)

const (
	localeKey           = "system/default/general/locale/code"
	defaultLocale       = "en_US"
	DeployedVersionFile = "deployed_version.txt"
)

// StaticContent generates static view files with the application CLI.
type StaticContent struct {
	Deps    Deps
	Options *config.Reader
}

// Deploy runs static content deployment for the configured locales and
// records a content digest as the deployed version.
func (s StaticContent) Deploy(ctx context.Context) error {
	snapshot, err := configdump.Load(s.Deps.Dirs.ConfigFile())
	if err != nil {
		return err
	}

	locales := Locales(snapshot, s.Deps.Env)
	args := StaticDeployArgs(s.Options, locales)

	slog.Info("deploying static content", "locales", locales, "strategy", s.Options.String(api.OptSCDStrategy))
	if _, err := s.Deps.App.Run(ctx, "setup:static-content:deploy", args...); err != nil {
		return err
	}

	return WriteDeployedVersion(s.Deps.Dirs.StaticContent())
}

// Locales returns the sorted set of locales to deploy: the configured default
// locale, the admin locale and en_US.
func Locales(snapshot configdump.Snapshot, env *config.Environment) []string {
	locales := []string{defaultLocale}
	if v, ok := snapshot.Get(localeKey); ok {
		if s, ok := v.(string); ok && s != "" {
			locales = append(locales, s)
		}
	}
	if env != nil {
		locales = append(locales, env.Variable("ADMIN_LOCALE", defaultLocale))
	}
	slices.Sort(locales)
	return slices.Compact(locales)
}

// StaticDeployArgs builds setup:static-content:deploy arguments from stage
// options.
func StaticDeployArgs(options *config.Reader, locales []string) []string {
	threads := options.Int(api.OptSCDThreads)
	if threads < 1 {
		threads = 1
	}

	args := []string{"-f", "--jobs", strconv.Itoa(threads)}
	if strategy := options.String(api.OptSCDStrategy); strategy != "" {
		args = append(args, "--strategy", strategy)
	}
	for _, theme := range strings.Split(options.String(api.OptSCDExcludeThemes), ",") {
		if theme = strings.TrimSpace(theme); theme != "" {
			args = append(args, "--exclude-theme", theme)
		}
	}
	return append(args, locales...)
}

// WriteDeployedVersion stores a digest of the static content tree, used as
// the static asset signature.
func WriteDeployedVersion(staticDir string) error {
	if err := os.MkdirAll(staticDir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", staticDir, err)
	}
	digest, err := fsutil.TreeDigest(staticDir, DeployedVersionFile)
	if err != nil {
		return err
	}
	version := digest[:16]
	if err := fsutil.WriteFileAtomic(filepath.Join(staticDir, DeployedVersionFile), []byte(version+"\n")); err != nil {
		return fmt.Errorf("writing deployed version: %w", err)
	}
	slog.Info("static content version", "version", version)
	return nil
}
