// Package flagfile persists named boolean markers as files. A flag is set
// when its file exists; the file content is never read.
package flagfile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// StaticContentDeploy marks static content generated during build.
	StaticContentDeploy = ".static_content_deploy"
	// Regenerate is left by the application when generated code must be rebuilt.
	Regenerate = ".regenerate"
	// DeployFailed marks a deploy that did not complete.
	DeployFailed = ".deploy_is_failed"
	// Installed marks a completed application install.
	Installed = ".installed"
)

// Store is the cross-invocation memory available to steps.
type Store interface {
	Exists(name string) bool
	Check(name string) (bool, error)
	Set(name string) error
	Clear(name string) error
}

// FileStore keeps flags as marker files in a single directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created on
// the first Set.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether the flag is set. A marker that cannot be checked
// counts as absent; use Check where that distinction matters.
func (s *FileStore) Exists(name string) bool {
	ok, err := s.Check(name)
	if err != nil {
		slog.Warn("failed to check flag, treating as absent", "flag", name, "error", err)
	}
	return ok
}

// Check reports whether the flag is set. Only a missing marker means unset;
// any other stat failure is returned.
func (s *FileStore) Check(name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("checking flag %s: %w", name, err)
	}
}

func (s *FileStore) Set(name string) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("creating flag directory: %w", err)
	}
	f, err := os.OpenFile(s.path(name), os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("setting flag %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("setting flag %s: %w", name, err)
	}
	slog.Debug("flag set", "flag", name)
	return nil
}

func (s *FileStore) Clear(name string) error {
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing flag %s: %w", name, err)
	}
	if err == nil {
		slog.Debug("flag cleared", "flag", name)
	}
	return nil
}
