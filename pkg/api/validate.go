package api

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cast"
)

var validSCDStrategies = []string{
	SCDStrategyStandard,
	SCDStrategyQuick,
	SCDStrategyCompact,
}

var validVerbosity = []string{"", "-v", "-vv", "-vvv"}

// Validate checks stage options for errors.
func (c *EnvConfig) Validate() error {
	stages := []struct {
		name    string
		options map[string]any
	}{
		{StageGlobal, c.Stage.Global},
		{StageBuild, c.Stage.Build},
		{StageDeploy, c.Stage.Deploy},
	}

	for _, s := range stages {
		if err := validateOptions(s.options); err != nil {
			return fmt.Errorf("stage %q: %w", s.name, err)
		}
	}
	return nil
}

func validateOptions(options map[string]any) error {
	for key, value := range options {
		if err := validateOption(key, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func validateOption(key string, value any) error {
	switch key {
	case OptSCDCompressionLevel:
		level, err := cast.ToIntE(value)
		if err != nil {
			return fmt.Errorf("must be an integer: %w", err)
		}
		if level < 0 || level > 9 {
			return fmt.Errorf("must be between 0 and 9, got %d", level)
		}
	case OptSCDThreads:
		threads, err := cast.ToIntE(value)
		if err != nil {
			return fmt.Errorf("must be an integer: %w", err)
		}
		if threads < 1 {
			return fmt.Errorf("must be at least 1, got %d", threads)
		}
	case OptSCDStrategy:
		s := cast.ToString(value)
		if !slices.Contains(validSCDStrategies, s) {
			return fmt.Errorf("%q is not valid (valid: %s)", s, strings.Join(validSCDStrategies, ", "))
		}
	case OptVerboseCommands:
		s := cast.ToString(value)
		if !slices.Contains(validVerbosity, s) {
			return fmt.Errorf("%q is not valid (valid: -v, -vv, -vvv)", s)
		}
	case OptSkipSCD, OptCleanStaticFiles, OptEnableGoogleAnalytics, OptRedisUseSlaveConnection, OptUpdateURLs:
		if _, err := cast.ToBoolE(value); err != nil {
			return fmt.Errorf("must be a boolean: %w", err)
		}
	}
	return nil
}
