package osutil

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// GlobIn expands a glob pattern relative to a base directory.
// Supports doublestar (**) patterns. Results are absolute-joined and sorted.
func GlobIn(baseDir, pattern string) ([]string, error) {
	var opts []doublestar.GlobOption
	if runtime.GOOS == "windows" {
		opts = append(opts, doublestar.WithNoFollow())
	}
	opts = append(opts, doublestar.WithFilesOnly())

	matches, err := doublestar.Glob(os.DirFS(baseDir), pattern, opts...)
	if err != nil {
		return nil, err
	}

	result := make([]string, len(matches))
	for i, m := range matches {
		result[i] = filepath.Join(baseDir, filepath.FromSlash(m))
	}
	sort.Strings(result)
	return result, nil
}
