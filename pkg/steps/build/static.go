package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/systemstart/cloud-pipeline/pkg/api"
	"github.com/systemstart/cloud-pipeline/pkg/configdump"
	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

// compressPattern selects the static assets worth serving pre-compressed.
const compressPattern = "**/*.{js,css,svg,html,htm,txt,json}"

// CompressedVersionFile records the content version and gzip level of the
// last completed compression in pub/static.
const CompressedVersionFile = ".compressed_version"

type generateStaticContent struct {
	deps steps.Deps
}

// NewGenerateStaticContent deploys static content during build when the
// shared configuration knows the scopes. A successful run sets the static
// content flag, so later builds and the deploy phase skip the work.
func NewGenerateStaticContent(deps steps.Deps) pipeline.Step {
	return &generateStaticContent{deps: deps}
}

func (s *generateStaticContent) Name() string { return "generate static content" }

func (s *generateStaticContent) Run(ctx context.Context) pipeline.Result {
	if s.deps.Flags.Exists(flagfile.StaticContentDeploy) {
		return pipeline.Skip("static content already deployed")
	}
	if s.deps.Build.Bool(api.OptSkipSCD) {
		return pipeline.Skipf("%s is set", api.OptSkipSCD)
	}

	snapshot, err := configdump.Load(s.deps.Dirs.ConfigFile())
	if err != nil {
		return pipeline.Fail(err)
	}
	if _, ok := snapshot.Get("scopes"); !ok {
		return pipeline.Skip("no scopes in shared configuration, deferring to deploy")
	}

	scd := steps.StaticContent{Deps: s.deps, Options: s.deps.Build}
	if err := scd.Deploy(ctx); err != nil {
		return pipeline.Fail(err)
	}
	if err := s.deps.Flags.Set(flagfile.StaticContentDeploy); err != nil {
		return pipeline.Fail(err)
	}
	return pipeline.Success()
}

type compressStaticContent struct {
	deps steps.Deps
}

// NewCompressStaticContent writes a .gz sibling for every compressible
// static asset deployed during build.
func NewCompressStaticContent(deps steps.Deps) pipeline.Step {
	return &compressStaticContent{deps: deps}
}

func (s *compressStaticContent) Name() string { return "compress static content" }

func (s *compressStaticContent) Run(ctx context.Context) pipeline.Result {
	if !s.deps.Flags.Exists(flagfile.StaticContentDeploy) {
		return pipeline.Skip("static content was not deployed during build")
	}
	level := s.deps.Build.Int(api.OptSCDCompressionLevel)
	if level == 0 {
		return pipeline.Skipf("%s is 0", api.OptSCDCompressionLevel)
	}

	root := s.deps.Dirs.StaticContent()
	stamp := compressionStamp(root, level)
	if stamp != "" {
		if data, err := os.ReadFile(filepath.Join(root, CompressedVersionFile)); err == nil && string(data) == stamp {
			return pipeline.Skipf("static content already compressed at level %d", level)
		}
	}

	files, err := doublestar.Glob(os.DirFS(root), compressPattern)
	if err != nil {
		return pipeline.Fail(fmt.Errorf("finding static assets: %w", err))
	}

	threads := s.deps.Build.Int(api.OptSCDThreads)
	if threads < 1 {
		threads = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for _, rel := range files {
		path := filepath.Join(root, rel)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return CompressFile(path, level)
		})
	}
	if err := g.Wait(); err != nil {
		return pipeline.Fail(err)
	}

	if stamp != "" {
		if err := os.WriteFile(filepath.Join(root, CompressedVersionFile), []byte(stamp), 0o640); err != nil {
			return pipeline.Fail(fmt.Errorf("recording compression: %w", err))
		}
	}

	slog.Info("compressed static content", "files", len(files), "level", level)
	return pipeline.Success()
}

// compressionStamp is empty when the content has no deployed version.
func compressionStamp(root string, level int) string {
	data, err := os.ReadFile(filepath.Join(root, steps.DeployedVersionFile))
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s level=%d\n", strings.TrimSpace(string(data)), level)
}

// CompressFile writes path.gz next to path at the given gzip level.
func CompressFile(path string, level int) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	out, err := os.Create(path + ".gz")
	if err != nil {
		return fmt.Errorf("creating %s.gz: %w", path, err)
	}
	defer func() { _ = out.Close() }()

	zw, err := gzip.NewWriterLevel(out, level)
	if err != nil {
		return fmt.Errorf("compressing %s: %w", path, err)
	}
	if _, err := zw.Write(src); err != nil {
		return fmt.Errorf("compressing %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing %s: %w", path, err)
	}
	return out.Close()
}
