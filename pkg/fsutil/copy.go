// Package fsutil holds filesystem helpers shared by pipeline steps.
package fsutil

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// CopyTree copies src recursively into dst, creating dst as needed. Existing
// files in dst are overwritten.
func CopyTree(src, dst string) error {
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk error at %s: %w", path, err)
		}
		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return fmt.Errorf("computing relative path for %s: %w", path, relErr)
		}
		return copyEntry(dst, rel, path, d)
	})
	if err != nil {
		return fmt.Errorf("copying tree: %w", err)
	}
	return nil
}

// CopyTreeExcluding copies src into dst, skipping immediate children of src
// whose names are in exclude.
func CopyTreeExcluding(src, dst string, exclude []string) error {
	if len(exclude) == 0 {
		return CopyTree(src, dst)
	}

	excludeSet := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excludeSet[name] = true
	}

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk error at %s: %w", path, err)
		}

		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return fmt.Errorf("computing relative path for %s: %w", path, relErr)
		}

		if filepath.Dir(rel) == "." && rel != "." && excludeSet[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		return copyEntry(dst, rel, path, d)
	})
	if err != nil {
		return fmt.Errorf("copying filtered tree: %w", err)
	}
	return nil
}

func copyEntry(dst, rel, srcPath string, d fs.DirEntry) error {
	target := filepath.Join(dst, rel)

	if d.IsDir() {
		if err := os.MkdirAll(target, 0o750); err != nil {
			return fmt.Errorf("creating directory %s: %w", target, err)
		}
		return nil
	}

	if d.Type()&fs.ModeSymlink != 0 {
		link, err := os.Readlink(srcPath)
		if err != nil {
			return fmt.Errorf("reading link %s: %w", srcPath, err)
		}
		_ = os.Remove(target)
		if err := os.Symlink(link, target); err != nil {
			return fmt.Errorf("creating link %s: %w", target, err)
		}
		return nil
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", srcPath, err)
	}

	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("stat %s: %w", srcPath, err)
	}

	if err := os.WriteFile(target, data, info.Mode()); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}

// ClearDirectory removes everything inside dir but keeps dir itself. A missing
// directory is not an error.
func ClearDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		slog.Debug("removing", "path", p)
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsEmptyDir reports whether dir is missing or has no entries.
func IsEmptyDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err != nil || len(entries) == 0
}
