// Package osutil provides the file system helpers used while preparing
// worker scripts: staging function sources for the bundler and locating
// the files it produced.
package osutil

import (
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
)

// skipDirs are never staged into a bundle work directory.
var skipDirs = map[string]bool{
	".git":         true,
	".cfdeploy":    true,
	"node_modules": true,
}

// Stage copies the service directory src into dst for bundling.
// node_modules is symlinked rather than copied, VCS and build dirs are
// skipped, as is any directory listed in exclude.
func Stage(src, dst string, exclude ...string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}

	excluded := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		if abs, err := filepath.Abs(e); err == nil {
			excluded[abs] = true
		}
	}

	opts := copy.Options{
		OnSymlink: func(src string) copy.SymlinkAction {
			return copy.Shallow
		},
		PermissionControl: copy.PerservePermission,
		OnDirExists: func(src, dst string) copy.DirExistsAction {
			return copy.Replace
		},
		Skip: func(info os.FileInfo, src, dest string) (bool, error) {
			if !info.IsDir() {
				return false, nil
			}
			if skipDirs[info.Name()] {
				return true, nil
			}
			abs, err := filepath.Abs(src)
			if err != nil {
				return false, err
			}
			return excluded[abs], nil
		},
	}
	if err := copy.Copy(src, dst, opts); err != nil {
		return err
	}

	modules := filepath.Join(src, "node_modules")
	if IsDir(modules) {
		link := filepath.Join(dst, "node_modules")
		if !Exists(link) {
			abs, err := filepath.Abs(modules)
			if err != nil {
				return err
			}
			return os.Symlink(abs, link)
		}
	}
	return nil
}

// Exists returns true if the path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir returns true if the path is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsFile returns true if the path is a regular file.
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
