package api

const (
	// EnvConfigFilename is the per-project stage configuration file.
	EnvConfigFilename = ".cloud.env.yaml"

	StageGlobal = "global"
	StageBuild  = "build"
	StageDeploy = "deploy"

	OptSkipSCD                 = "SKIP_SCD"
	OptSCDStrategy             = "SCD_STRATEGY"
	OptSCDThreads              = "SCD_THREADS"
	OptSCDCompressionLevel     = "SCD_COMPRESSION_LEVEL"
	OptSCDExcludeThemes        = "SCD_EXCLUDE_THEMES"
	OptVerboseCommands         = "VERBOSE_COMMANDS"
	OptCleanStaticFiles        = "CLEAN_STATIC_FILES"
	OptEnableGoogleAnalytics   = "ENABLE_GOOGLE_ANALYTICS"
	OptRedisUseSlaveConnection = "REDIS_USE_SLAVE_CONNECTION"
	OptUpdateURLs              = "UPDATE_URLS"

	SCDStrategyStandard = "standard"
	SCDStrategyQuick    = "quick"
	SCDStrategyCompact  = "compact"
)

// EnvConfig is the .cloud.env.yaml configuration format.
type EnvConfig struct {
	Stage Stages `yaml:"stage"`

	// Set by the loader, not from YAML.
	FilePath string `yaml:"-"`
}

// Stages holds option maps per stage. Build and deploy options override
// global options.
type Stages struct {
	Global map[string]any `yaml:"global"`
	Build  map[string]any `yaml:"build"`
	Deploy map[string]any `yaml:"deploy"`
}

// BuildDefaults are used when an option is set neither for the build stage
// nor globally.
var BuildDefaults = map[string]any{
	OptSkipSCD:             false,
	OptSCDStrategy:         SCDStrategyQuick,
	OptSCDThreads:          1,
	OptSCDCompressionLevel: 6,
	OptSCDExcludeThemes:    "",
	OptVerboseCommands:     "",
}

// DeployDefaults are used when an option is set neither for the deploy stage
// nor globally.
var DeployDefaults = map[string]any{
	OptSkipSCD:                 false,
	OptSCDStrategy:             SCDStrategyQuick,
	OptSCDThreads:              1,
	OptSCDExcludeThemes:        "",
	OptVerboseCommands:         "",
	OptCleanStaticFiles:        true,
	OptEnableGoogleAnalytics:   false,
	OptRedisUseSlaveConnection: false,
	OptUpdateURLs:              true,
}
