// Package workerscript produces the script body uploaded for a function.
package workerscript

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joeblew999/cfdeploy/internal/config"
	"github.com/joeblew999/cfdeploy/internal/manifest"
	"github.com/joeblew999/cfdeploy/internal/osutil"
)

// Generator reads worker scripts from a service directory.
type Generator struct {
	servicePath string
	buildDir    string
}

// New creates a generator rooted at servicePath. An empty buildDir uses
// the default bundle work directory.
func New(servicePath, buildDir string) *Generator {
	if buildDir == "" {
		buildDir = config.BuildDir(servicePath)
	}
	return &Generator{
		servicePath: servicePath,
		buildDir:    buildDir,
	}
}

// Generate returns the script text for fn. Functions that request bundling
// read the bundler's output instead of the source file.
func (g *Generator) Generate(fn *manifest.Function) (string, error) {
	path, err := g.ScriptPath(fn)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read script for %s: %w", fn.Name, err)
	}
	return string(data), nil
}

// ScriptPath resolves the file Generate will read for fn.
func (g *Generator) ScriptPath(fn *manifest.Function) (string, error) {
	if !fn.Webpack.Enabled {
		return filepath.Join(g.servicePath, fn.Script+config.ScriptExt), nil
	}
	return BundleOutput(g.buildDir, fn)
}

// OutputDir is where the bundler writes fn's output.
func OutputDir(buildDir string, fn *manifest.Function) string {
	return filepath.Join(buildDir, fn.Name, "dist")
}

// BundleOutput locates the bundled script for fn. It prefers a file named
// after the script, then main.js, then the only .js file produced.
func BundleOutput(buildDir string, fn *manifest.Function) (string, error) {
	dir := OutputDir(buildDir, fn)
	if !osutil.IsDir(dir) {
		return "", fmt.Errorf("no bundle output for %s in %s (bundling did not run?)", fn.Name, dir)
	}

	matches, err := osutil.GlobIn(dir, "**/*.js")
	if err != nil {
		return "", fmt.Errorf("failed to scan bundle output: %w", err)
	}

	want := filepath.Base(fn.Script) + config.ScriptExt
	for _, m := range matches {
		if filepath.Base(m) == want {
			return m, nil
		}
	}
	for _, m := range matches {
		if filepath.Base(m) == "main.js" {
			return m, nil
		}
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("bundle output for %s contains no .js files", fn.Name)
	}
	return "", fmt.Errorf("bundle output for %s is ambiguous: %d .js files", fn.Name, len(matches))
}
