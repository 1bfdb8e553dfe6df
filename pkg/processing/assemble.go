package processing

import (
	"fmt"

	"github.com/systemstart/cloud-pipeline/pkg/pipeline"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
	"github.com/systemstart/cloud-pipeline/pkg/steps/build"
	"github.com/systemstart/cloud-pipeline/pkg/steps/deploy"
	"github.com/systemstart/cloud-pipeline/pkg/steps/dump"
)

// Assemble returns the step tree for pc.Command. The same context always
// yields the same tree; nothing is executed.
func Assemble(pc *Context, deps steps.Deps) (pipeline.Step, error) {
	switch pc.Command {
	case CommandBuild:
		return buildPipeline(deps), nil
	case CommandDeploy:
		return deployPipeline(pc, deps), nil
	case CommandPostDeploy:
		return postDeployPipeline(deps), nil
	case CommandConfigDump:
		return configDumpPipeline(deps), nil
	default:
		return nil, pipeline.ConfigurationError(fmt.Errorf("no pipeline for command %q", pc.Command))
	}
}

func buildPipeline(deps steps.Deps) pipeline.Step {
	return pipeline.NewComposite(string(CommandBuild),
		build.NewPreBuild(deps),
		build.NewPrepareModuleConfig(deps),
		build.NewApplyPatches(deps),
		build.NewMarshallFiles(deps),
		build.NewCopySampleData(deps),
		build.NewCompileDi(deps),
		build.NewDumpAutoload(deps),
		pipeline.NewComposite("deploy static content",
			build.NewGenerateStaticContent(deps),
			build.NewCompressStaticContent(deps),
		),
		build.NewClearInitDirectory(deps),
		build.NewBackupData(deps),
	)
}

func deployPipeline(pc *Context, deps steps.Deps) pipeline.Step {
	setup := updatePipeline(deps)
	if !pc.Installed {
		setup = installPipeline(deps)
	}

	return pipeline.NewComposite(string(CommandDeploy),
		pipeline.NewComposite("pre-deploy",
			deploy.NewRestoreWritableDirectories(deps),
			deploy.NewCleanRedisCache(deps),
			deploy.NewCleanFileCache(deps),
			deploy.NewProcessStaticContent(deps),
			deploy.NewEnableMaintenanceMode(deps),
		),
		deploy.NewCreateConfigFile(deps),
		deploy.NewSetMode(deps),
		setup,
		pipeline.NewComposite("deploy static content",
			deploy.NewGenerateStaticContent(deps),
		),
		deploy.NewDisableGoogleAnalytics(deps),
	)
}

func installPipeline(deps steps.Deps) pipeline.Step {
	return pipeline.NewComposite("install",
		deploy.NewEmailChecker(deps),
		deploy.NewInstallSetup(deps),
		updateConfigPipeline(deps),
		deploy.NewConfigImport(deps),
		deploy.NewResetPassword(deps),
	)
}

func updatePipeline(deps steps.Deps) pipeline.Step {
	return pipeline.NewComposite("update",
		updateConfigPipeline(deps),
		deploy.NewSetAdminURL(deps),
		deploy.NewUpgradeSetup(deps),
		deploy.NewAdminCredentials(deps),
		deploy.NewClearCache(deps),
	)
}

func updateConfigPipeline(deps steps.Deps) pipeline.Step {
	return pipeline.NewComposite("update config",
		deploy.NewDbConnection(deps),
		deploy.NewAmqp(deps),
		deploy.NewRedis(deps),
		deploy.NewSearchEngine(deps),
		deploy.NewUrls(deps),
	)
}

func postDeployPipeline(deps steps.Deps) pipeline.Step {
	return pipeline.NewComposite(string(CommandPostDeploy),
		deploy.NewCheckDeployState(deps),
		deploy.NewDisableMaintenanceMode(deps),
	)
}

func configDumpPipeline(deps steps.Deps) pipeline.Step {
	return pipeline.NewComposite(string(CommandConfigDump),
		dump.NewExport(deps, dump.NewGenerateConfig(deps)),
		dump.NewGenerateConfig(deps),
		deploy.NewConfigImport(deps),
	)
}
