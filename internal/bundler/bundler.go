// Package bundler runs webpack for functions that request bundling.
//
// Each function is bundled in its own work directory under the build dir:
// the service sources are staged into <build>/<name>/src and webpack writes
// to <build>/<name>/dist, where workerscript picks the output up.
package bundler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/joeblew999/cfdeploy/internal/config"
	"github.com/joeblew999/cfdeploy/internal/manifest"
	"github.com/joeblew999/cfdeploy/internal/osutil"
	"github.com/joeblew999/cfdeploy/internal/workerscript"
)

// Environment passed to the bundle command alongside the webpack flags.
const (
	EnvEntry          = "CFDEPLOY_ENTRY"
	EnvOutputPath     = "CFDEPLOY_OUTPUT_PATH"
	EnvOutputFilename = "CFDEPLOY_OUTPUT_FILENAME"
	EnvFunction       = "CFDEPLOY_FUNCTION"
)

// Webpack bundles function sources with a webpack-compatible command.
type Webpack struct {
	servicePath string
	buildDir    string
	command     []string
	log         zerolog.Logger
}

// Option configures a Webpack bundler.
type Option func(*Webpack)

// WithCommand replaces the bundle command (default: npx webpack).
func WithCommand(args ...string) Option {
	return func(w *Webpack) { w.command = args }
}

// WithLogger sets the logger that receives the command's output.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Webpack) { w.log = l }
}

// WithBuildDir overrides the work directory.
func WithBuildDir(dir string) Option {
	return func(w *Webpack) { w.buildDir = dir }
}

// New creates a bundler for the service at servicePath.
func New(servicePath string, opts ...Option) *Webpack {
	w := &Webpack{
		servicePath: servicePath,
		buildDir:    config.BuildDir(servicePath),
		command:     strings.Fields(config.DefaultBundleCommand),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Pack stages the sources, runs the bundle command and returns the path of
// the bundled script.
func (w *Webpack) Pack(ctx context.Context, fn *manifest.Function) (string, error) {
	if !fn.Webpack.Enabled {
		return "", fmt.Errorf("function %s does not request bundling", fn.Name)
	}
	if len(w.command) == 0 {
		return "", fmt.Errorf("no bundle command configured")
	}

	buildDir, err := filepath.Abs(w.buildDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve build dir: %w", err)
	}

	srcDir := filepath.Join(buildDir, fn.Name, "src")
	outDir := workerscript.OutputDir(buildDir, fn)

	if err := os.RemoveAll(outDir); err != nil {
		return "", fmt.Errorf("failed to clean bundle output: %w", err)
	}
	if err := osutil.Stage(w.servicePath, srcDir, buildDir); err != nil {
		return "", fmt.Errorf("failed to stage sources for %s: %w", fn.Name, err)
	}

	cfg := fn.Webpack.Config
	if cfg == "" {
		cfg = config.DefaultBundleConfig
	}

	entry := "./" + filepath.ToSlash(fn.Script) + config.ScriptExt
	filename := filepath.Base(fn.Script) + config.ScriptExt

	args := append([]string{}, w.command[1:]...)
	if osutil.IsFile(filepath.Join(srcDir, cfg)) {
		args = append(args, "--config", cfg)
	}
	args = append(args,
		"--entry", entry,
		"--output-path", outDir,
		"--output-filename", filename,
		"--target", "webworker",
	)

	cmd := exec.CommandContext(ctx, w.command[0], args...)
	cmd.Dir = srcDir
	cmd.Env = append(os.Environ(),
		EnvEntry+"="+entry,
		EnvOutputPath+"="+outDir,
		EnvOutputFilename+"="+filename,
		EnvFunction+"="+fn.Name,
	)

	w.log.Info().Str("function", fn.Name).Str("command", strings.Join(w.command, " ")).Msg("bundling")

	if err := w.run(cmd); err != nil {
		return "", fmt.Errorf("bundling %s failed: %w", fn.Name, err)
	}

	return workerscript.BundleOutput(buildDir, fn)
}

// run streams stdout/stderr of cmd to the logger line by line. The last
// lines are kept for the error message.
func (w *Webpack) run(cmd *exec.Cmd) error {
	var mu sync.Mutex
	var tail []string

	emit := func(name, line string) {
		w.log.Debug().Str("stream", name).Msg(line)
		mu.Lock()
		tail = append(tail, line)
		if len(tail) > tailLines {
			tail = tail[1:]
		}
		mu.Unlock()
	}

	stdout := &lineWriter{name: "stdout", emit: emit}
	stderr := &lineWriter{name: "stderr", emit: emit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Children of the bundle command may keep the output open after a kill.
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()

	if err != nil {
		if len(tail) > 0 {
			return fmt.Errorf("%w\n%s", err, strings.Join(tail, "\n"))
		}
		return err
	}
	return nil
}

const (
	tailLines    = 20
	maxLineBytes = 16 * 1024
	waitDelay    = 5 * time.Second
)

// lineWriter splits command output into lines. Lines longer than
// maxLineBytes are cut and marked with "...".
type lineWriter struct {
	name      string
	emit      func(name, line string)
	buf       []byte
	truncated bool
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			lw.add(p)
			break
		}
		lw.add(p[:i])
		lw.Flush()
		p = p[i+1:]
	}
	return n, nil
}

func (lw *lineWriter) add(b []byte) {
	room := maxLineBytes - len(lw.buf)
	if len(b) > room {
		if room > 0 {
			lw.buf = append(lw.buf, b[:room]...)
		}
		lw.truncated = true
		return
	}
	lw.buf = append(lw.buf, b...)
}

// Flush emits the pending partial line, if any.
func (lw *lineWriter) Flush() {
	if len(lw.buf) == 0 && !lw.truncated {
		return
	}
	line := strings.TrimRight(string(lw.buf), "\r")
	if lw.truncated {
		line += "..."
	}
	lw.emit(lw.name, line)
	lw.buf = lw.buf[:0]
	lw.truncated = false
}
