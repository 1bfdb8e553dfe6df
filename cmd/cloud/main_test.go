package main

import (
	"os"
	"path/filepath"
	"testing"
)

func unsetEnv(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	if err := os.Unsetenv(name); err != nil {
		t.Fatal(err)
	}
}

func TestLogLevelFromDotenv(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"dotenv", nil, "debug"},
		{"flag wins", []string{"--log-level", "warn"}, "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, "LOG_LEVEL")
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0o600); err != nil {
				t.Fatal(err)
			}

			flagSet := newFlagSet()
			args := append([]string{"--root", dir}, tt.args...)
			if err := flagSet.Parse(append(args, "build")); err != nil {
				t.Fatal(err)
			}

			if !includeEnv() {
				t.Fatal("expected .env to be loaded")
			}
			if got := effectiveLogLevel(flagSet); got != tt.want {
				t.Errorf("expected log level %q, got %q", tt.want, got)
			}
		})
	}
}

func TestIncludeEnv_Missing(t *testing.T) {
	flagSet := newFlagSet()
	if err := flagSet.Parse([]string{"--root", t.TempDir(), "build"}); err != nil {
		t.Fatal(err)
	}
	if includeEnv() {
		t.Error("expected no .env file")
	}
	if got := effectiveLogLevel(flagSet); got == "" {
		t.Error("expected a default log level")
	}
}
