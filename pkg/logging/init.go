package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
)

const (
	JSON = "json"
	Text = "text"
	Tint = "tint"
)

// Initialize installs the default logger. When logFile is set, records are
// also appended to it and tint output is written without colors. The
// returned function closes the log file.
func Initialize(loggingType string, logLevelName string, logFile string) (func() error, error) {
	var logLevel slog.Level
	err := logLevel.UnmarshalText([]byte(logLevelName))
	if err != nil {
		return nil, fmt.Errorf("could not parse log level: %v", err)
	}

	var (
		out     io.Writer = os.Stdout
		closeFn           = func() error { return nil }
	)
	if logFile != "" {
		f, err := openLogFile(logFile)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stdout, f)
		closeFn = f.Close
	}

	var (
		logHandlerOptions = slog.HandlerOptions{
			AddSource: true,
			Level:     logLevel,
		}
		logHandler slog.Handler
	)

	switch loggingType {
	case JSON:
		logHandler = slog.NewJSONHandler(out, &logHandlerOptions)
	case Text:
		logHandler = slog.NewTextHandler(out, &logHandlerOptions)
	case Tint:
		logHandler = tint.NewHandler(out, &tint.Options{
			AddSource: logHandlerOptions.AddSource,
			Level:     logHandlerOptions.Level,
			NoColor:   logFile != "",
		})
	default:
		_ = closeFn()
		return nil, fmt.Errorf("unknown logging type: %s", loggingType)
	}

	slog.SetDefault(slog.New(logHandler))
	slog.Info("logging initialized", "logLevel", logLevel, "logFile", logFile)
	return closeFn, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
