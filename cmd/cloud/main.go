package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/systemstart/cloud-pipeline/pkg/api"
	"github.com/systemstart/cloud-pipeline/pkg/config"
	"github.com/systemstart/cloud-pipeline/pkg/flagfile"
	"github.com/systemstart/cloud-pipeline/pkg/logging"
	"github.com/systemstart/cloud-pipeline/pkg/processing"
	"github.com/systemstart/cloud-pipeline/pkg/shell"
	"github.com/systemstart/cloud-pipeline/pkg/steps"
)

var version = "dev"

// Startup failures continue after the pipeline outcome codes.
const (
	_ = iota + processing.ExitConfiguration
	exitUsage
	exitDotenvError
	exitLoggingFailed
	exitRootDirectoryCheckFailed
	exitLoadEnvConfigFailed
	exitLoadEnvironmentFailed
)

var (
	rootDirectory string
	loggingType   string
	logLevel      string
	logToFile     bool
	showVersion   bool
)

func newFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("cloud", pflag.ContinueOnError)
	flagSet.StringVar(
		&rootDirectory,
		"root",
		".",
		"application root directory")
	flagSet.StringVar(
		&loggingType,
		"logging-type",
		logging.Tint,
		"logging type: json, text or tint")
	flagSet.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error (default from LOG_LEVEL)")
	flagSet.BoolVar(
		&logToFile,
		"log-file",
		true,
		"also append log records to var/log/cloud.log")
	flagSet.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cloud [flags] <%s|%s|%s|%s>\n\nFlags:\n",
			processing.CommandBuild, processing.CommandDeploy, processing.CommandPostDeploy, processing.CommandConfigDump)
		flagSet.PrintDefaults()
	}
	return flagSet
}

func main() {
	flagSet := newFlagSet()
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if flagSet.NArg() != 1 {
		flagSet.Usage()
		os.Exit(exitUsage)
	}
	command := flagSet.Arg(0)

	checkRootDirectory()
	dirs := config.DirectoryList{Root: rootDirectory}

	envLoaded := includeEnv()
	logLevel = effectiveLogLevel(flagSet)

	logFile := ""
	if logToFile {
		logFile = dirs.LogFile()
	}
	closeLog, err := logging.Initialize(loggingType, logLevel, logFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitLoggingFailed)
	}
	defer func() { _ = closeLog() }()

	if envLoaded {
		slog.Info("using .env file")
	} else {
		slog.Info("no .env file found")
	}

	deps := loadDeps(dirs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = processing.NewRunner(deps).Run(ctx, command)
	if err != nil {
		slog.Error(processing.Describe(err))
		code := processing.ExitCode(err)
		stop()
		_ = closeLog()
		os.Exit(code)
	}

	slog.Info("done", "command", command)
}

func loadDeps(dirs config.DirectoryList) steps.Deps {
	envConfigFile := filepath.Join(dirs.Root, api.EnvConfigFilename)
	envConfig, err := api.LoadEnvConfig(envConfigFile)
	if err != nil {
		slog.Error("failed to load stage configuration", "filename", envConfigFile, "error", err)
		os.Exit(exitLoadEnvConfigFailed)
	}

	env, err := config.LoadEnvironment(os.Getenv)
	if err != nil {
		slog.Error("failed to load platform environment", "error", err)
		os.Exit(exitLoadEnvironmentFailed)
	}

	sh := shell.NewExec(dirs.Root)
	return steps.Deps{
		Dirs:   dirs,
		Flags:  flagfile.NewFileStore(dirs.Var()),
		Shell:  sh,
		Env:    env,
		Build:  config.BuildReader(envConfig),
		Deploy: config.DeployReader(envConfig),
	}
}

// includeEnv loads root/.env before logging is set up, so LOG_LEVEL may come
// from it. It reports whether a file was found.
func includeEnv() bool {
	err := godotenv.Load(filepath.Join(rootDirectory, ".env"))
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
			os.Exit(exitDotenvError)
		}
		return false
	}
	return true
}

func checkRootDirectory() {
	st, err := os.Stat(rootDirectory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to check root directory %s: %v\n", rootDirectory, err)
		os.Exit(exitRootDirectoryCheckFailed)
	}
	if !st.IsDir() {
		fmt.Fprintf(os.Stderr, "root %s is not a directory\n", rootDirectory)
		os.Exit(exitRootDirectoryCheckFailed)
	}
}

// effectiveLogLevel prefers an explicit --log-level over LOG_LEVEL.
func effectiveLogLevel(flagSet *pflag.FlagSet) string {
	if flagSet.Changed("log-level") {
		return logLevel
	}
	return envOr("LOG_LEVEL", logLevel)
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
